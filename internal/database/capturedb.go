package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecapture/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "sitecapture.db"

// ErrCaptureNotFound is returned when no capture has the requested ID.
var ErrCaptureNotFound = errors.New("capture not found")

// CaptureDB provides SQLite-based storage for capture history.
//
// Design decision: We use a single database file for all runs rather than
// one file per site. Listing history across sites is then a single query.
type CaptureDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CaptureDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CaptureDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CaptureDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite takes the open mode in the DSN: rw refuses to
	// create a missing file, rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CaptureDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CaptureDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CaptureDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CaptureDB) createTables() error {
	schema := `
	-- One row per completed capture run
	CREATE TABLE IF NOT EXISTS captures (
		id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		total_pages INTEGER NOT NULL,
		total_assets INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_captures_base_url ON captures(base_url);
	CREATE INDEX IF NOT EXISTS idx_captures_started_at ON captures(started_at);

	-- Pages written by a capture run
	CREATE TABLE IF NOT EXISTS capture_pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		capture_id TEXT NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT,
		filename TEXT NOT NULL,
		depth INTEGER NOT NULL,
		content_hash TEXT,
		UNIQUE(capture_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_capture_pages_capture ON capture_pages(capture_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCapture archives a materialized capture run.
// Only pages that appear in the run's report (that is, pages actually
// written to disk) are stored. The run and its pages are saved in one
// transaction.
func (cdb *CaptureDB) SaveCapture(ctx context.Context, c *model.Capture) error {
	report := c.Report
	if report == nil {
		report = model.NewCaptureReport(c)
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	finished := c.FinishedAt
	if finished.IsZero() {
		finished = report.ScrapingDate
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	_, err = tx.ExecContext(ctx, `
	INSERT INTO captures (id, base_url, output_dir, started_at, finished_at, total_pages, total_assets, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.BaseURL,
		c.OutputDir,
		formatTimestamp(c.StartedAt),
		formatTimestamp(finished),
		report.TotalPages,
		report.TotalAssets,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save capture: %w", err)
	}

	written := make(map[string]bool, len(report.Pages))
	for _, p := range report.Pages {
		written[p.URL] = true
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO capture_pages (capture_id, url, title, filename, depth, content_hash)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range c.Pages {
		if !written[p.URL] {
			continue
		}
		if _, err := stmt.ExecContext(ctx, c.ID, p.URL, p.DisplayTitle(), p.Filename, p.Depth, p.Hash); err != nil {
			return fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit capture: %w", err)
	}
	return nil
}

// CaptureSummary contains summary information about a capture run.
// This is used for displaying history without loading the full report.
type CaptureSummary struct {
	// ID is the run ID.
	ID string

	// BaseURL is the URL the crawl was seeded with.
	BaseURL string

	// OutputDir is where the replica was written.
	OutputDir string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when materialization completed.
	FinishedAt time.Time

	// TotalPages is the number of pages written.
	TotalPages int

	// TotalAssets is the number of assets saved.
	TotalAssets int
}

// ListCaptures returns capture runs, newest first.
// When baseURL is non-empty only runs seeded with that URL are returned.
func (cdb *CaptureDB) ListCaptures(ctx context.Context, baseURL string) ([]CaptureSummary, error) {
	query := `
	SELECT id, base_url, output_dir, started_at, finished_at, total_pages, total_assets
	FROM captures
	WHERE 1=1
	`
	args := make([]any, 0, 1)

	if baseURL != "" {
		query += " AND base_url = ?"
		args = append(args, baseURL)
	}
	query += " ORDER BY started_at DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}
	defer rows.Close()

	var results []CaptureSummary
	for rows.Next() {
		var s CaptureSummary
		var started, finished string

		if err := rows.Scan(&s.ID, &s.BaseURL, &s.OutputDir, &started, &finished, &s.TotalPages, &s.TotalAssets); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}

		s.StartedAt = parseTimestamp(started)
		s.FinishedAt = parseTimestamp(finished)
		results = append(results, s)
	}

	return results, rows.Err()
}

// GetCaptureReport retrieves the report of a capture run by its ID.
// It returns ErrCaptureNotFound when no such run exists.
func (cdb *CaptureDB) GetCaptureReport(ctx context.Context, id string) (*model.CaptureReport, error) {
	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, `SELECT report_json FROM captures WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture report: %w", err)
	}

	var report model.CaptureReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// PageRecord is a stored page of a capture run.
type PageRecord struct {
	URL      string
	Title    string
	Filename string
	Depth    int
	Hash     string
}

// GetCapturePages returns the pages of a capture run in depth order.
func (cdb *CaptureDB) GetCapturePages(ctx context.Context, id string) ([]PageRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, title, filename, depth, content_hash
	FROM capture_pages
	WHERE capture_id = ?
	ORDER BY depth, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var title, hash sql.NullString
		if err := rows.Scan(&p.URL, &title, &p.Filename, &p.Depth, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.Title = title.String
		p.Hash = hash.String
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// timestampLayout is fixed-width so lexical and chronological order agree.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp formats t in UTC with timestampLayout.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Package site writes a capture to disk.
//
// The output directory holds one flat HTML file per captured page, a site
// map, a fallback home page when the crawl did not produce index.html, and
// scraping_report.json describing the run.
package site

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecapture/internal/filename"
	"github.com/nao1215/sitecapture/internal/model"
	"github.com/nao1215/sitecapture/internal/report"
)

// Output file names.
const (
	SitemapFile = "sitemap.html"
	ReportFile  = "scraping_report.json"
)

const (
	// defaultPreviewLimit is how many pages the synthesized home page lists.
	defaultPreviewLimit = 10

	// writeConcurrency bounds concurrent page writes.
	writeConcurrency = 8

	// filePerm is the mode of written files; the output is meant to be served.
	filePerm = 0o644
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Materializer writes captures to an output directory.
type Materializer struct {
	outputDir    string
	previewLimit int
	logger       *slog.Logger
	now          func() time.Time
	writeFileFn  func(name string, data []byte, perm os.FileMode) error
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Materializer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPreviewLimit sets how many pages the synthesized home page lists.
func WithPreviewLimit(n int) Option {
	return func(m *Materializer) {
		if n > 0 {
			m.previewLimit = n
		}
	}
}

// WithClock sets the time source for the report and the site map.
func WithClock(now func() time.Time) Option {
	return func(m *Materializer) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a Materializer writing to outputDir.
func New(outputDir string, opts ...Option) *Materializer {
	m := &Materializer{
		outputDir:    outputDir,
		previewLimit: defaultPreviewLimit,
		logger:       slog.Default(),
		now:          time.Now,
		writeFileFn:  os.WriteFile,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Write writes every page of c, then the site map, the home page and the
// report. It sets c.Report and c.FinishedAt.
//
// A page that fails to write is logged and left out of the site map and the
// report; the other pages are still written. The home page is synthesized
// when no written page is index.html. Errors are returned only when
// the output directory or the report cannot be written.
func (m *Materializer) Write(ctx context.Context, c *model.Capture) (*model.CaptureReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(m.outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	written := m.writePages(c.Pages)

	result := *c
	result.Pages = written
	result.URLMappings = writtenMappings(c.URLMappings, written)
	r := model.NewCaptureReport(&result)
	r.ScrapingDate = m.now()

	if err := m.writeTemplate(SitemapFile, "sitemap.html.tmpl", m.pageListing(r, len(r.Pages))); err != nil {
		m.logger.Warn("failed to write site map", "path", SitemapFile, "error", err)
	}

	if !result.HasFilename(filename.Index) {
		if err := m.writeTemplate(filename.Index, "index.html.tmpl", m.pageListing(r, m.previewLimit)); err != nil {
			m.logger.Warn("failed to write home page", "path", filename.Index, "error", err)
		}
	}

	if err := m.writeReport(r); err != nil {
		return nil, err
	}

	c.Report = r
	c.FinishedAt = r.ScrapingDate
	return r, nil
}

// writePages writes pages concurrently and returns the ones that succeeded,
// in their original order.
func (m *Materializer) writePages(pages []*model.Page) []*model.Page {
	ok := make([]bool, len(pages))

	var g errgroup.Group
	g.SetLimit(writeConcurrency)
	for i, p := range pages {
		g.Go(func() error {
			if err := m.writeFile(p.Filename, []byte(p.Content)); err != nil {
				m.logger.Warn("failed to write page", "url", p.URL, "path", p.Filename, "error", err)
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // writes never return errors

	written := make([]*model.Page, 0, len(pages))
	for i, p := range pages {
		if ok[i] {
			written = append(written, p)
		}
	}
	return written
}

// writtenMappings keeps mappings whose file was written.
func writtenMappings(mappings []model.URLMapping, written []*model.Page) []model.URLMapping {
	files := make(map[string]bool, len(written))
	for _, p := range written {
		files[p.Filename] = true
	}
	out := make([]model.URLMapping, 0, len(mappings))
	for _, mp := range mappings {
		if files[mp.LocalFilename] {
			out = append(out, mp)
		}
	}
	return out
}

// listing is the data of the site map and home page templates.
type listing struct {
	BaseURL   string
	Generated time.Time
	Total     int
	More      int
	Pages     []model.PageSummary
}

// pageListing builds template data listing at most limit pages.
func (m *Materializer) pageListing(r *model.CaptureReport, limit int) listing {
	pages := r.Pages
	if limit >= 0 && len(pages) > limit {
		pages = pages[:limit]
	}
	return listing{
		BaseURL:   r.BaseURL,
		Generated: r.ScrapingDate,
		Total:     len(r.Pages),
		More:      len(r.Pages) - len(pages),
		Pages:     pages,
	}
}

// bufPool holds buffers for rendering templates.
var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// writeTemplate renders the named template into name.
func (m *Materializer) writeTemplate(name, tmpl string, data listing) error {
	buf := bufPool.Get().(*bytes.Buffer) //nolint:forcetypeassert // pool only holds buffers
	defer bufPool.Put(buf)
	buf.Reset()

	if err := templates.ExecuteTemplate(buf, tmpl, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return m.writeFile(name, buf.Bytes())
}

// writeReport writes scraping_report.json.
func (m *Materializer) writeReport(r *model.CaptureReport) error {
	f, err := os.OpenFile(filepath.Join(m.outputDir, ReportFile), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	if _, err := report.NewJSONWriter(f, report.WithPrettyPrint()).Write(r); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// writeFile writes data to name below the output directory.
func (m *Materializer) writeFile(name string, data []byte) error {
	return m.writeFileFn(filepath.Join(m.outputDir, name), data, filePerm)
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitecapture/internal/config"
	"github.com/nao1215/sitecapture/internal/crawler"
	"github.com/nao1215/sitecapture/internal/database"
	seclog "github.com/nao1215/sitecapture/internal/log"
	"github.com/nao1215/sitecapture/internal/model"
	"github.com/nao1215/sitecapture/internal/pipeline"
	"github.com/nao1215/sitecapture/internal/report"
)

// NewCaptureCmd creates the capture command.
func NewCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture [url]",
		Short: "Capture a website into a local directory",
		Long: `Capture crawls a website breadth-first starting at the given URL and writes
an offline replica of every page it reaches.

Only links on the same host are followed. Crawling stops when either the
maximum depth or the maximum page count is reached. Pages are fetched in
small concurrent batches with a pause between batches.

Output layout:
  <output>/index.html            home page (synthesized if the site has none)
  <output>/sitemap.html          list of every captured page
  <output>/scraping_report.json  machine-readable capture report
  <output>/<page>.html           one file per captured page
  <output>/assets/{css,js,images,fonts,other}/

Examples:
  # Capture up to 5 pages, 3 links deep
  sitecapture capture https://example.com

  # Capture more of the site into a custom directory
  sitecapture capture -o mirror -d 5 -p 100 https://example.com

  # Send a session cookie and an extra header
  sitecapture capture --cookie "session=abc" -H "Accept-Language: en" https://example.com

  # Print the capture summary as JSON into a file
  sitecapture capture --json --summary-file out/summary.json https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCaptureCmd,
	}

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory the replica is written to")

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum number of link hops from the start URL")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to capture")
	cmd.Flags().Int("delay", int(config.DefaultDelay/time.Millisecond),
		"Pause between crawl batches in milliseconds")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages fetched concurrently per batch")

	// Transport flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().String("cookie", "",
		"Cookie sent with every request (e.g., \"name=value\")")
	cmd.Flags().StringArrayP("header", "H", nil,
		"Extra HTTP header in \"Name: Value\" form (repeatable)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitecapture in current or home directory)")

	// Summary flags
	cmd.Flags().BoolP("json", "j", false,
		"Print the capture summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the capture summary as Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("summary-file", "s", "",
		"Write the capture summary to this file instead of stdout")

	// History and logging flags
	cmd.Flags().Bool("no-history", false,
		"Do not record this capture in the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON lines")

	return cmd
}

// runCaptureCmd executes the capture command.
func runCaptureCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCapture(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildConfig creates a Config from cobra command flags and the optional
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	if len(args) > 0 {
		cfg.TargetURL = args[0]
	}

	var err error

	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}

	delayMs, err := flags.GetInt("delay")
	if err != nil {
		return nil, err
	}
	cfg.Delay = time.Duration(delayMs) * time.Millisecond

	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
		return nil, err
	}

	headers, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	if cfg.Headers, err = parseHeaders(headers); err != nil {
		return nil, err
	}

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONSummary, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownSummary, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.SummaryFile, err = flags.GetString("summary-file"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	if cfg.JSONLog, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	explicit := map[string]bool{
		"depth":      flags.Changed("depth"),
		"user-agent": flags.Changed("user-agent"),
	}
	if err := cfg.Load(explicit); err != nil {
		return nil, fmt.Errorf("failed to load configuration file: %w", err)
	}

	return cfg, nil
}

// parseHeaders parses "Name: Value" header flags.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: Value\")", v)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// setupLogger creates the secure logger selected by the configuration.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.JSONLog {
		return seclog.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return seclog.NewSecureLogger(w, cfg.Verbose)
}

// runCapture executes the capture pipeline and prints the summary.
func runCapture(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting capture",
		"url", cfg.TargetURL,
		"output", cfg.OutputDir,
		"maxDepth", cfg.MaxDepth,
		"maxPages", cfg.MaxPages,
	)

	opts := []pipeline.DefaultOption{pipeline.WithStepLogger(logger)}

	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("history disabled for this run", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			opts = append(opts, pipeline.WithArchiver(db))
		}
	}

	progress := newProgressSpinner(cfg)
	if progress != nil {
		opts = append(opts, pipeline.WithProgress(func(p crawler.Progress) {
			progress.Lock()
			progress.Suffix = fmt.Sprintf(" %d captured, %d queued, depth %d", p.Captured, p.Queued, p.Depth)
			progress.Unlock()
		}))
	}

	p, err := pipeline.DefaultPipeline(cfg, opts...)
	if err != nil {
		return err
	}

	c := model.NewCapture(cfg.TargetURL, cfg.OutputDir)
	startTime := time.Now()

	if progress != nil {
		progress.Start()
	}
	err = p.Execute(ctx, c)
	if progress != nil {
		progress.Stop()
	}

	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("capture interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("capture failed: %w", err)
	}

	logger.Info("capture completed",
		"pages", c.Report.TotalPages,
		"assets", c.Report.TotalAssets,
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	return outputSummary(cfg, c, out)
}

// newProgressSpinner returns a spinner for interactive runs, or nil when
// log lines would interleave with it.
func newProgressSpinner(cfg *config.Config) *spinner.Spinner {
	if cfg.Verbose || cfg.JSONLog {
		return nil
	}
	// The spinner stays silent unless its writer is a terminal.
	return spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriterFile(os.Stderr),
		spinner.WithSuffix(" capturing "+cfg.TargetURL),
		spinner.WithHiddenCursor(true),
	)
}

// outputSummary prints the capture summary in the requested format to the
// summary file or out.
func outputSummary(cfg *config.Config, c *model.Capture, out io.Writer) error {
	if cfg.SummaryFile != "" {
		dir := filepath.Dir(cfg.SummaryFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create summary directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.SummaryFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create summary file: %w", err)
		}
		defer f.Close()
		out = f
	}

	_, err := summaryWriter(cfg, c.ID, out).Write(c.Report)
	return err
}

// summaryWriter selects the report writer for the configured format.
func summaryWriter(cfg *config.Config, captureID string, out io.Writer) report.Writer {
	switch {
	case cfg.JSONSummary:
		return report.NewFullJSONWriter(out, getVersion(), captureID, report.WithPrettyPrint())
	case cfg.MarkdownSummary:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithShowEmpty(true), report.WithVerbose(cfg.Verbose))
	}
}

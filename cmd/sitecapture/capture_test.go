package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitecapture/internal/config"
	"github.com/nao1215/sitecapture/internal/report"
)

// newSiteServer serves a two-page site with one shared image.
func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><head><title>Home</title></head>
<body><img src="/logo.png"><a id="about" href="/about">About</a></body></html>`))
		case "/about":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><head><title>About</title></head>
<body><img src="/logo.png"><a id="home" href="/">Home</a></body></html>`))
		case "/logo.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig writes a config file into a temp directory and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".sitecapture")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// runRoot executes the root command with args and returns stdout and stderr.
func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// TestNewCaptureCmd tests the capture command creation.
func TestNewCaptureCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCaptureCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "capture [url]" {
			t.Errorf("expected use 'capture [url]', got %q", cmd.Use)
		}
	})

	t.Run("requires exactly one argument", func(t *testing.T) {
		t.Parallel()
		if err := cmd.Args(cmd, []string{}); err == nil {
			t.Error("expected error for no arguments")
		}
		if err := cmd.Args(cmd, []string{"a", "b"}); err == nil {
			t.Error("expected error for two arguments")
		}
		if err := cmd.Args(cmd, []string{"https://example.com"}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"output", "o", config.DefaultOutputDir},
		{"depth", "d", "3"},
		{"max-pages", "p", "5"},
		{"delay", "", "500"},
		{"batch", "b", "3"},
		{"timeout", "t", "30s"},
		{"user-agent", "A", config.DefaultUserAgent},
		{"header", "H", "[]"},
		{"config", "c", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"summary-file", "s", ""},
		{"no-history", "", "false"},
		{"log-json", "", "false"},
	}
	for _, f := range flags {
		t.Run("has "+f.name+" flag", func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(f.name)
			if flag == nil {
				t.Fatalf("expected %s flag", f.name)
			}
			if flag.Shorthand != f.shorthand {
				t.Errorf("expected shorthand %q, got %q", f.shorthand, flag.Shorthand)
			}
			if flag.DefValue != f.defValue {
				t.Errorf("expected default %q, got %q", f.defValue, flag.DefValue)
			}
		})
	}
}

// TestBuildConfig tests building a Config from flags and a config file.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	build := func(t *testing.T, args ...string) (*config.Config, error) {
		t.Helper()

		cmd := NewCaptureCmd()
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		return buildConfig(cmd, cmd.Flags().Args())
	}

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := build(t, "-c", writeConfig(t, ""), "https://x.test/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.TargetURL != "https://x.test/" {
			t.Errorf("unexpected target %q", cfg.TargetURL)
		}
		if cfg.OutputDir != config.DefaultOutputDir {
			t.Errorf("unexpected output dir %q", cfg.OutputDir)
		}
		if cfg.MaxDepth != 3 || cfg.MaxPages != 5 {
			t.Errorf("unexpected limits depth=%d pages=%d", cfg.MaxDepth, cfg.MaxPages)
		}
		if cfg.Delay != 500*time.Millisecond {
			t.Errorf("unexpected delay %v", cfg.Delay)
		}
		if !cfg.SaveHistory {
			t.Error("expected history to be enabled by default")
		}
		if cfg.DBDir != config.XDGDataDir() {
			t.Errorf("unexpected db dir %q", cfg.DBDir)
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := build(t,
			"-c", writeConfig(t, ""),
			"-o", "mirror",
			"--delay", "0",
			"-p", "50",
			"--no-history",
			"--db-dir", "/tmp/db",
			"-H", "X-Token: abc",
			"-H", "Accept-Language:en",
			"--log-json",
			"https://x.test/",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.OutputDir != "mirror" || cfg.MaxPages != 50 || cfg.Delay != 0 {
			t.Errorf("unexpected config %+v", cfg)
		}
		if cfg.SaveHistory {
			t.Error("expected history to be disabled")
		}
		if cfg.DBDir != "/tmp/db" {
			t.Errorf("unexpected db dir %q", cfg.DBDir)
		}
		if cfg.Headers["X-Token"] != "abc" || cfg.Headers["Accept-Language"] != "en" {
			t.Errorf("unexpected headers %v", cfg.Headers)
		}
		if !cfg.JSONLog {
			t.Error("expected JSON logging")
		}
	})

	t.Run("config file applies to the target host", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
sites:
  x.test:
    cookie: "session=abc"
    depth: 7
    userAgent: "custom/1.0"
    ignorePatterns:
      - "/logout*"
`)
		cfg, err := build(t, "-c", path, "--depth", "2", "https://x.test/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxDepth != 2 {
			t.Errorf("expected the --depth flag to win, got %d", cfg.MaxDepth)
		}
		if cfg.Cookie != "session=abc" {
			t.Errorf("expected cookie from file, got %q", cfg.Cookie)
		}
		if cfg.UserAgent != "custom/1.0" {
			t.Errorf("expected user agent from file, got %q", cfg.UserAgent)
		}
		if len(cfg.IgnorePatterns) != 1 {
			t.Errorf("expected ignore patterns from file, got %v", cfg.IgnorePatterns)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		_, err := build(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "https://x.test/")
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		t.Parallel()

		_, err := build(t, "-c", writeConfig(t, ""), "-H", "no-colon", "https://x.test/")
		if err == nil {
			t.Error("expected error for malformed header")
		}
	})
}

// TestParseHeaders tests header flag parsing.
func TestParseHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		values  []string
		want    map[string]string
		wantErr bool
	}{
		{name: "none", values: nil, want: nil},
		{name: "trims spaces", values: []string{"  X-A :  1 "}, want: map[string]string{"X-A": "1"}},
		{name: "value with colon", values: []string{"Referer: https://x.test/"}, want: map[string]string{"Referer": "https://x.test/"}},
		{name: "empty value", values: []string{"X-Empty:"}, want: map[string]string{"X-Empty": ""}},
		{name: "missing colon", values: []string{"X-A"}, wantErr: true},
		{name: "missing name", values: []string{": v"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseHeaders(tt.values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseHeaders() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("header %q = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

// TestSummaryWriter tests summary format selection.
func TestSummaryWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := config.NewConfig()
	if _, ok := summaryWriter(cfg, "id", &buf).(*report.SimpleWriter); !ok {
		t.Error("expected SimpleWriter by default")
	}

	cfg.JSONSummary = true
	if _, ok := summaryWriter(cfg, "id", &buf).(*report.FullJSONWriter); !ok {
		t.Error("expected FullJSONWriter for --json")
	}

	cfg.JSONSummary = false
	cfg.MarkdownSummary = true
	if _, ok := summaryWriter(cfg, "id", &buf).(*report.MarkdownWriter); !ok {
		t.Error("expected MarkdownWriter for --markdown")
	}
}

// TestRunCaptureCmd tests capture runs end to end.
// These subtests are not parallel: the command installs the default logger.
func TestRunCaptureCmd(t *testing.T) {
	t.Run("invalid target URL fails before any work", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out")

		_, _, err := runRoot(t, "capture", "-c", writeConfig(t, ""), "-o", out, "--no-history", "not a url")
		if !errors.Is(err, config.ErrInvalidTargetURL) {
			t.Fatalf("expected ErrInvalidTargetURL, got %v", err)
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Error("expected no output directory")
		}
	})

	t.Run("conflicting summary formats", func(t *testing.T) {
		_, _, err := runRoot(t, "capture", "-c", writeConfig(t, ""), "--no-history",
			"--json", "--markdown", "https://x.test/")
		if !errors.Is(err, config.ErrConflictingSummaryFormats) {
			t.Fatalf("expected ErrConflictingSummaryFormats, got %v", err)
		}
	})

	t.Run("captures a site and prints a JSON summary", func(t *testing.T) {
		srv := newSiteServer(t)
		out := filepath.Join(t.TempDir(), "out")

		stdout, _, err := runRoot(t, "capture",
			"-c", writeConfig(t, ""),
			"-o", out,
			"--delay", "0",
			"--no-history",
			"--json",
			srv.URL+"/",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var summary report.JSONReport
		if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
			t.Fatalf("summary is not JSON: %v\n%s", err, stdout)
		}
		if summary.Report == nil || summary.Report.TotalPages != 2 {
			t.Fatalf("expected 2 pages in summary, got %+v", summary.Report)
		}
		if summary.Report.TotalAssets != 1 {
			t.Errorf("expected 1 asset, got %d", summary.Report.TotalAssets)
		}
		if summary.CaptureID == "" {
			t.Error("expected a capture ID")
		}

		for _, name := range []string{"index.html", "about_index.html", "sitemap.html", "scraping_report.json"} {
			if _, err := os.Stat(filepath.Join(out, name)); err != nil {
				t.Errorf("expected %s: %v", name, err)
			}
		}

		f, err := os.Open(filepath.Join(out, "index.html"))
		if err != nil {
			t.Fatalf("failed to open index.html: %v", err)
		}
		defer f.Close()
		doc, err := goquery.NewDocumentFromReader(f)
		if err != nil {
			t.Fatalf("failed to parse index.html: %v", err)
		}
		if href, _ := doc.Find("a#about").Attr("href"); href != "about_index.html" {
			t.Errorf("expected link to about_index.html, got %q", href)
		}
		if src, _ := doc.Find("img").Attr("src"); !strings.HasPrefix(src, "assets/images/") {
			t.Errorf("expected localized image, got %q", src)
		}
	})

	t.Run("writes a Markdown summary file", func(t *testing.T) {
		srv := newSiteServer(t)
		dir := t.TempDir()
		summaryPath := filepath.Join(dir, "reports", "summary.md")

		stdout, _, err := runRoot(t, "capture",
			"-c", writeConfig(t, ""),
			"-o", filepath.Join(dir, "out"),
			"--delay", "0",
			"-p", "1",
			"--no-history",
			"--markdown",
			"--summary-file", summaryPath,
			srv.URL+"/",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != "" {
			t.Errorf("expected nothing on stdout, got %q", stdout)
		}

		content, err := os.ReadFile(summaryPath)
		if err != nil {
			t.Fatalf("failed to read summary: %v", err)
		}
		if !strings.Contains(string(content), "# Site Capture Report") {
			t.Errorf("unexpected summary:\n%s", content)
		}
	})
}

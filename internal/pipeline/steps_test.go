package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitecapture/internal/config"
	"github.com/nao1215/sitecapture/internal/crawler"
	"github.com/nao1215/sitecapture/internal/database"
	"github.com/nao1215/sitecapture/internal/model"
)

const (
	homeHTML = `<!DOCTYPE html>
<html><head><title>Home</title><link rel="stylesheet" href="/style.css"></head>
<body><img src="/logo.png"><a id="about" href="/about">About</a>
<a id="ext" href="https://elsewhere.test/">Out</a></body></html>`

	aboutHTML = `<!DOCTYPE html>
<html><head><title>About</title></head>
<body><img src="/logo.png"><a id="home" href="/">Home</a></body></html>`

	styleCSS = `@font-face{src:url(/font.woff)} .x{background:url("/missing.woff")}`
)

// testSite serves a two-page site and counts requests per path.
type testSite struct {
	srv  *httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()

	files := map[string]struct{ contentType, body string }{
		"/":          {"text/html; charset=utf-8", homeHTML},
		"/about":     {"text/html; charset=utf-8", aboutHTML},
		"/style.css": {"text/css", styleCSS},
		"/logo.png":  {"image/png", "png"},
		"/font.woff": {"font/woff", "woff"},
	}

	s := &testSite{hits: make(map[string]int)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()

		f, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", f.contentType)
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *testSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// testConfig returns a validated config crawling site into a temp dir.
func testConfig(t *testing.T, site *testSite) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.TargetURL = site.srv.URL + "/"
	cfg.OutputDir = t.TempDir()
	cfg.MaxPages = 2
	cfg.Delay = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return cfg
}

// recordingArchiver records archived captures.
type recordingArchiver struct {
	mu       sync.Mutex
	captures []*model.Capture
	err      error
}

func (a *recordingArchiver) SaveCapture(_ context.Context, c *model.Capture) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.captures = append(a.captures, c)
	return a.err
}

func openDoc(t *testing.T, path string) *goquery.Document {
	t.Helper()

	f, err := os.Open(path) //nolint:gosec // test output path
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
	return doc
}

// TestDefaultPipeline runs a complete capture against a local site.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	cfg := testConfig(t, site)
	archiver := &recordingArchiver{}

	var progress atomic.Int32
	p, err := DefaultPipeline(cfg,
		WithArchiver(archiver),
		WithProgress(func(crawler.Progress) { progress.Add(1) }),
		WithStepLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	wantSteps := []string{StepCrawl, StepResolve, StepMaterialize, StepArchive}
	if got := p.StepNames(); strings.Join(got, ",") != strings.Join(wantSteps, ",") {
		t.Fatalf("unexpected steps %v", got)
	}

	c := model.NewCapture(cfg.TargetURL, cfg.OutputDir)
	if err := p.Execute(context.Background(), c); err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	t.Run("writes both pages and the site map", func(t *testing.T) {
		for _, name := range []string{"index.html", "about_index.html", "sitemap.html", "scraping_report.json"} {
			if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
				t.Errorf("expected %s: %v", name, err)
			}
		}
	})

	t.Run("resolves internal links to local files", func(t *testing.T) {
		home := openDoc(t, filepath.Join(cfg.OutputDir, "index.html"))
		if href, _ := home.Find("#about").Attr("href"); href != "about_index.html" {
			t.Errorf("expected about_index.html, got %q", href)
		}
		if href, _ := home.Find("#ext").Attr("href"); href != "https://elsewhere.test/" {
			t.Errorf("expected external link untouched, got %q", href)
		}
		if home.Find(".sitecapture-marker").Length() != 1 {
			t.Error("expected provenance marker")
		}

		about := openDoc(t, filepath.Join(cfg.OutputDir, "about_index.html"))
		if href, _ := about.Find("#home").Attr("href"); href != "index.html" {
			t.Errorf("expected index.html, got %q", href)
		}
	})

	t.Run("shared asset is fetched once", func(t *testing.T) {
		if n := site.hitCount("/logo.png"); n != 1 {
			t.Errorf("expected 1 fetch of logo.png, got %d", n)
		}

		home := openDoc(t, filepath.Join(cfg.OutputDir, "index.html"))
		about := openDoc(t, filepath.Join(cfg.OutputDir, "about_index.html"))
		a, _ := home.Find("img").Attr("src")
		b, _ := about.Find("img").Attr("src")
		if a != "assets/images/logo.png" || a != b {
			t.Errorf("expected identical local image paths, got %q and %q", a, b)
		}
	})

	t.Run("stylesheet keeps unreachable font reference", func(t *testing.T) {
		home := openDoc(t, filepath.Join(cfg.OutputDir, "index.html"))
		href, _ := home.Find(`link[rel="stylesheet"]`).Attr("href")
		if !strings.HasPrefix(href, "assets/css/style_") {
			t.Fatalf("expected local stylesheet, got %q", href)
		}

		data, err := os.ReadFile(filepath.Join(cfg.OutputDir, filepath.FromSlash(href)))
		if err != nil {
			t.Fatalf("failed to read stylesheet: %v", err)
		}
		css := string(data)
		if !strings.Contains(css, "url(../fonts/font.woff)") {
			t.Errorf("expected rewritten font, got %s", css)
		}
		if !strings.Contains(css, `url("/missing.woff")`) {
			t.Errorf("expected unreachable font unchanged, got %s", css)
		}
	})

	t.Run("report counts pages and assets", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "scraping_report.json"))
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var r model.CaptureReport
		if err := json.Unmarshal(data, &r); err != nil {
			t.Fatalf("invalid report: %v", err)
		}
		if r.TotalPages != 2 {
			t.Errorf("expected 2 pages, got %d", r.TotalPages)
		}
		// logo, stylesheet, font
		if r.TotalAssets != 3 {
			t.Errorf("expected 3 assets, got %d", r.TotalAssets)
		}
	})

	t.Run("capture is hashed and archived", func(t *testing.T) {
		for _, page := range c.Pages {
			if len(page.Hash) != 64 {
				t.Errorf("expected hash for %s", page.URL)
			}
		}
		if len(archiver.captures) != 1 || archiver.captures[0].Report == nil {
			t.Error("expected archived capture with report")
		}
		if progress.Load() == 0 {
			t.Error("expected progress callbacks")
		}
	})
}

// TestDefaultPipelineFollowsRedirects tests that links on a redirected page
// are resolved against the page's final URL.
func TestDefaultPipelineFollowsRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Home</title></head><body><a id="d" href="/docs">Docs</a></body></html>`))
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Path == "/docs/intro" {
			_, _ = w.Write([]byte(`<html><head><title>Intro</title></head><body>intro</body></html>`))
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>Docs</title></head><body><a id="i" href="intro">Intro</a></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.NewConfig()
	cfg.TargetURL = srv.URL + "/"
	cfg.OutputDir = t.TempDir()
	cfg.MaxPages = 3
	cfg.Delay = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	p, err := DefaultPipeline(cfg, WithStepLogger(discardLogger()))
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	c := model.NewCapture(cfg.TargetURL, cfg.OutputDir)
	if err := p.Execute(t.Context(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "docs_intro_index.html")); err != nil {
		t.Fatalf("expected the intro page to be captured: %v", err)
	}
	doc := openDoc(t, filepath.Join(cfg.OutputDir, "docs_index.html"))
	if href, _ := doc.Find("a#i").Attr("href"); href != "docs_intro_index.html" {
		t.Errorf("expected the intro link to be local, got %q", href)
	}
}

// TestDefaultPipelineArchivesToDatabase runs a capture into a real history database.
func TestDefaultPipelineArchivesToDatabase(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	cfg := testConfig(t, site)

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	p, err := DefaultPipeline(cfg, WithArchiver(db), WithStepLogger(discardLogger()))
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	c := model.NewCapture(cfg.TargetURL, cfg.OutputDir)
	if err := p.Execute(context.Background(), c); err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	list, err := db.ListCaptures(context.Background(), cfg.TargetURL)
	if err != nil {
		t.Fatalf("failed to list captures: %v", err)
	}
	if len(list) != 1 || list[0].ID != c.ID || list[0].TotalPages != 2 {
		t.Errorf("unexpected history %+v", list)
	}

	pages, err := db.GetCapturePages(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("failed to get pages: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("expected 2 stored pages, got %d", len(pages))
	}
}

// TestDefaultPipelineCancelled tests that a cancelled capture writes nothing.
func TestDefaultPipelineCancelled(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	cfg := testConfig(t, site)
	archiver := &recordingArchiver{}

	p, err := DefaultPipeline(cfg, WithArchiver(archiver), WithStepLogger(discardLogger()))
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.Execute(ctx, model.NewCapture(cfg.TargetURL, cfg.OutputDir))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatalf("failed to read output dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty output dir, found %d entries", len(entries))
	}
	if len(archiver.captures) != 0 {
		t.Error("cancelled capture must not be archived")
	}
	if site.hitCount("/") != 0 {
		t.Error("cancelled capture must not fetch")
	}
}

// TestDefaultPipelineErrors tests construction failures.
func TestDefaultPipelineErrors(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		if _, err := DefaultPipeline(nil); !errors.Is(err, ErrNilConfig) {
			t.Errorf("expected ErrNilConfig, got %v", err)
		}
	})

	t.Run("invalid proxy", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.TargetURL = "https://x.test/"
		cfg.ProxyAddress = "not-a-proxy"
		if _, err := DefaultPipeline(cfg); err == nil {
			t.Error("expected proxy error")
		}
	})
}

// TestArchiveStepSwallowsErrors tests that history failures do not fail the run.
func TestArchiveStepSwallowsErrors(t *testing.T) {
	t.Parallel()

	archiver := &recordingArchiver{err: errors.New("disk full")}
	step := NewArchiveStep(archiver, discardLogger())

	if err := step.Do(context.Background(), model.NewCapture("https://x.test/", "out")); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if len(archiver.captures) != 1 {
		t.Error("expected archive attempt")
	}
}

// TestResolveStep tests link resolution on in-memory pages.
func TestResolveStep(t *testing.T) {
	t.Parallel()

	c := model.NewCapture("https://x.test/", "out")
	c.Pages = []*model.Page{
		{URL: "https://x.test/", Filename: "index.html", Content: `<html><body><a href="/Docs#top">docs</a></body></html>`},
		{URL: "https://x.test/Docs", Filename: "Docs_index.html", Content: `<html><body><a href="HTTPS://X.TEST/">home</a></body></html>`},
	}
	c.URLMappings = []model.URLMapping{
		{OriginalURL: "https://x.test/", LocalFilename: "index.html"},
		{OriginalURL: "https://x.test/Docs", LocalFilename: "Docs_index.html"},
	}

	if err := NewResolveStep(discardLogger()).Do(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(c.Pages[0].Content, `href="Docs_index.html#top"`) {
		t.Errorf("expected fragment-preserving rewrite, got %s", c.Pages[0].Content)
	}
	if !strings.Contains(c.Pages[1].Content, `href="index.html"`) {
		t.Errorf("expected normalized host match, got %s", c.Pages[1].Content)
	}
	for _, p := range c.Pages {
		if p.Hash == "" {
			t.Errorf("expected hash for %s", p.URL)
		}
	}
}

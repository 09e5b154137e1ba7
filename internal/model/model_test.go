package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestPageComputeHash tests the ComputeHash method.
func TestPageComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("hash is stable and hex encoded", func(t *testing.T) {
		t.Parallel()

		a := &Page{Content: "<html>hello</html>"}
		b := &Page{Content: "<html>hello</html>"}
		a.ComputeHash()
		b.ComputeHash()

		if a.Hash != b.Hash {
			t.Errorf("expected identical hashes, got %q and %q", a.Hash, b.Hash)
		}
		if len(a.Hash) != 64 {
			t.Errorf("expected 64 hex characters, got %d", len(a.Hash))
		}
	})

	t.Run("different content produces different hash", func(t *testing.T) {
		t.Parallel()

		a := &Page{Content: "one"}
		b := &Page{Content: "two"}
		a.ComputeHash()
		b.ComputeHash()

		if a.Hash == b.Hash {
			t.Error("expected different hashes")
		}
	})

	t.Run("empty content produces empty hash", func(t *testing.T) {
		t.Parallel()

		p := &Page{}
		p.ComputeHash()
		if p.Hash != "" {
			t.Errorf("expected empty hash, got %q", p.Hash)
		}
	})
}

// TestAssetKind tests directory and extension policy per kind.
func TestAssetKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind AssetKind
		name string
		dir  string
		ext  string
	}{
		{AssetStylesheet, "stylesheet", "assets/css", ".css"},
		{AssetScript, "script", "assets/js", ".js"},
		{AssetImage, "image", "assets/images", ".jpg"},
		{AssetFont, "font", "assets/fonts", ".woff"},
		{AssetOther, "other", "assets/other", ".bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.kind.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.kind.String(), tt.name)
			}
			if tt.kind.Dir() != tt.dir {
				t.Errorf("Dir() = %q, want %q", tt.kind.Dir(), tt.dir)
			}
			if tt.kind.DefaultExt() != tt.ext {
				t.Errorf("DefaultExt() = %q, want %q", tt.kind.DefaultExt(), tt.ext)
			}
		})
	}
}

// TestNewCaptureReport tests report construction and its JSON field names.
func TestNewCaptureReport(t *testing.T) {
	t.Parallel()

	c := NewCapture("https://x.test/", "out")
	c.Pages = append(c.Pages,
		&Page{URL: "https://x.test/", Title: "Home", Filename: "index.html", Depth: 0},
		&Page{URL: "https://x.test/about", Filename: "about_index.html", Depth: 1},
	)
	c.URLMappings = append(c.URLMappings,
		URLMapping{OriginalURL: "https://x.test/", LocalFilename: "index.html"},
		URLMapping{OriginalURL: "https://x.test/about", LocalFilename: "about_index.html"},
	)
	c.AssetCount = 4

	r := NewCaptureReport(c)

	if r.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", r.TotalPages)
	}
	if r.TotalAssets != 4 {
		t.Errorf("expected 4 assets, got %d", r.TotalAssets)
	}
	if r.Pages[1].Title != DefaultTitle {
		t.Errorf("expected fallback title, got %q", r.Pages[1].Title)
	}
	if r.MaxDepth() != 1 {
		t.Errorf("expected max depth 1, got %d", r.MaxDepth())
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	for _, key := range []string{
		`"baseUrl"`, `"totalPages"`, `"totalAssets"`, `"outputDirectory"`,
		`"scrapingDate"`, `"pages"`, `"urlMappings"`, `"originalUrl"`, `"localFilename"`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected key %s in report JSON", key)
		}
	}
}

// TestCaptureHelpers tests lookup helpers on Capture.
func TestCaptureHelpers(t *testing.T) {
	t.Parallel()

	c := NewCapture("https://x.test/", "out")
	if c.ID == "" {
		t.Fatal("expected a run ID")
	}

	c.Pages = append(c.Pages, &Page{URL: "https://x.test/a", Filename: "a_index.html"})
	c.URLMappings = append(c.URLMappings, URLMapping{OriginalURL: "https://x.test/a", LocalFilename: "a_index.html"})

	if got := c.FilenameIndex()["https://x.test/a"]; got != "a_index.html" {
		t.Errorf("expected a_index.html, got %q", got)
	}
	if !c.HasFilename("a_index.html") {
		t.Error("expected HasFilename to find a_index.html")
	}
	if c.HasFilename("index.html") {
		t.Error("did not expect index.html")
	}
}

// TestPageBase tests the base URL fallback.
func TestPageBase(t *testing.T) {
	t.Parallel()

	p := &Page{URL: "https://x.test/docs"}
	if p.Base() != "https://x.test/docs" {
		t.Errorf("expected URL as base, got %q", p.Base())
	}

	p.BaseURL = "https://x.test/docs/"
	if p.Base() != "https://x.test/docs/" {
		t.Errorf("expected redirect target as base, got %q", p.Base())
	}
}

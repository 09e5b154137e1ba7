package crawler

import (
	"net/url"
	"testing"
)

// TestMatchPattern tests glob matching of URL paths.
func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		// Prefix patterns with /*
		{"admin prefix match", "/admin/*", "/admin/dashboard", true},
		{"admin prefix exact", "/admin/*", "/admin", true},
		{"admin prefix no match", "/admin/*", "/user/profile", false},
		{"admin prefix partial no match", "/admin/*", "/administrator", false},
		{"nested admin", "/admin/*", "/admin/users/edit", true},

		// Extension patterns with *.
		{"pdf extension", "*.pdf", "/docs/file.pdf", true},
		{"pdf extension nested", "*.pdf", "/a/b/c/report.pdf", true},
		{"pdf extension no match", "*.pdf", "/docs/file.txt", false},

		// Exact match patterns
		{"exact match", "/logout", "/logout", true},
		{"exact no match", "/logout", "/login", false},

		// Wildcard in middle
		{"wildcard middle", "/api/v?/users", "/api/v1/users", true},
		{"wildcard middle no match", "/api/v?/users", "/api/v10/users", false},

		// Segment-only patterns
		{"segment glob", "draft-*", "/blog/draft-one", true},

		// Root path
		{"root path", "/", "/", true},
		{"root no match prefix", "/admin/*", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := matchPattern(tt.pattern, tt.path)
			if got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestLinkFilterCandidate tests which anchors become crawl candidates.
func TestLinkFilterCandidate(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://x.test/")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}
	page, err := url.Parse("https://x.test/docs/guide")
	if err != nil {
		t.Fatalf("failed to parse page: %v", err)
	}

	filter := NewLinkFilter(base,
		WithIgnorePatterns([]string{"/admin/*"}),
	)

	tests := []struct {
		name string
		href string
		want string
		ok   bool
	}{
		{name: "relative link", href: "intro", want: "https://x.test/docs/intro", ok: true},
		{name: "absolute path", href: "/about", want: "https://x.test/about", ok: true},
		{name: "fragment dropped", href: "/about#team", want: "https://x.test/about", ok: true},
		{name: "uppercase host", href: "HTTPS://X.TEST/Case", want: "https://x.test/Case", ok: true},
		{name: "query kept", href: "/search?q=go", want: "https://x.test/search?q=go", ok: true},
		{name: "fragment only", href: "#top", ok: false},
		{name: "empty", href: "  ", ok: false},
		{name: "javascript", href: "javascript:void(0)", ok: false},
		{name: "mailto", href: "mailto:a@x.test", ok: false},
		{name: "tel", href: "tel:+100", ok: false},
		{name: "data", href: "data:text/html,hi", ok: false},
		{name: "other host", href: "https://other.test/", ok: false},
		{name: "excluded extension", href: "/files/report.PDF", ok: false},
		{name: "stylesheet extension", href: "/site.css", ok: false},
		{name: "ignore pattern", href: "/admin/users", ok: false},
		{name: "ftp scheme", href: "ftp://x.test/file", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := filter.Candidate(page, tt.href)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Candidate(%q) = (%q, %v), want (%q, %v)", tt.href, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// TestLinkFilterOptions tests follow patterns and custom extensions.
func TestLinkFilterOptions(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://x.test/")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}

	t.Run("follow patterns restrict candidates", func(t *testing.T) {
		t.Parallel()

		filter := NewLinkFilter(base, WithFollowPatterns([]string{"/docs/*"}))
		if _, ok := filter.Candidate(base, "/docs/a"); !ok {
			t.Error("expected /docs/a to be followed")
		}
		if _, ok := filter.Candidate(base, "/blog/a"); ok {
			t.Error("expected /blog/a to be skipped")
		}
	})

	t.Run("custom excluded extensions", func(t *testing.T) {
		t.Parallel()

		filter := NewLinkFilter(base, WithExcludedExtensions([]string{"php", " .ASPX "}))
		if _, ok := filter.Candidate(base, "/index.php"); ok {
			t.Error("expected .php to be excluded")
		}
		if _, ok := filter.Candidate(base, "/page.aspx"); ok {
			t.Error("expected .aspx to be excluded")
		}
		if _, ok := filter.Candidate(base, "/report.pdf"); !ok {
			t.Error("expected defaults to be replaced")
		}
	})
}

// TestNormalizeURL tests URL normalization for deduplication.
func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"https://x.test", "https://x.test/"},
		{"https://x.test/", "https://x.test/"},
		{"HTTPS://X.Test/Page", "https://x.test/Page"},
		{"https://x.test/page#section", "https://x.test/page"},
		{"https://x.test/page?a=1", "https://x.test/page?a=1"},
		{"https://x.test/dir/", "https://x.test/dir/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := NormalizeURL(tt.input); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

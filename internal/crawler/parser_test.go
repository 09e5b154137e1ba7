package crawler

import (
	"net/url"
	"slices"
	"testing"

	"github.com/nao1215/sitecapture/internal/dom"
)

// TestExtractLinks tests candidate collection from anchors.
func TestExtractLinks(t *testing.T) {
	t.Parallel()

	doc, err := dom.ParseString(`<html><body>
		<a href="/a">A</a>
		<a href="/b#x">B</a>
		<a href="/a">A again</a>
		<a href="#top">Top</a>
		<a>No href</a>
		<a href="https://elsewhere.test/">Out</a>
	</body></html>`)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	page, err := url.Parse("https://x.test/")
	if err != nil {
		t.Fatalf("failed to parse URL: %v", err)
	}

	got := extractLinks(doc, page, NewLinkFilter(page))
	want := []string{"https://x.test/a", "https://x.test/b"}
	if !slices.Equal(got, want) {
		t.Errorf("extractLinks() = %v, want %v", got, want)
	}

	// Anchors are left untouched.
	for _, a := range doc.Elements(dom.KindAnchor) {
		if href, _ := a.Attr("href"); href == "https://x.test/a" {
			t.Error("anchor href must not be rewritten")
		}
	}
}

// TestParseSrcset tests srcset candidate parsing.
func TestParseSrcset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		srcset string
		want   []srcsetCandidate
	}{
		{
			name:   "density descriptors",
			srcset: "a.png 1x, b.png 2x",
			want:   []srcsetCandidate{{"a.png", "1x"}, {"b.png", "2x"}},
		},
		{
			name:   "width descriptors with extra whitespace",
			srcset: "  small.jpg   480w ,\n large.jpg 1024w ",
			want:   []srcsetCandidate{{"small.jpg", "480w"}, {"large.jpg", "1024w"}},
		},
		{
			name:   "no descriptor",
			srcset: "only.png",
			want:   []srcsetCandidate{{"only.png", ""}},
		},
		{
			name:   "comma directly after URL",
			srcset: "a.png, b.png 2x",
			want:   []srcsetCandidate{{"a.png", ""}, {"b.png", "2x"}},
		},
		{
			name:   "empty",
			srcset: " , ",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseSrcset(tt.srcset)
			if !slices.Equal(got, tt.want) {
				t.Errorf("parseSrcset(%q) = %+v, want %+v", tt.srcset, got, tt.want)
			}
		})
	}
}

// TestFormatSrcset tests srcset serialization.
func TestFormatSrcset(t *testing.T) {
	t.Parallel()

	got := formatSrcset([]srcsetCandidate{{"assets/images/a.png", "1x"}, {"assets/images/b.png", ""}})
	if got != "assets/images/a.png 1x, assets/images/b.png" {
		t.Errorf("unexpected srcset %q", got)
	}
}

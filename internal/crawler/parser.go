package crawler

import (
	"net/url"
	"strings"

	"github.com/nao1215/sitecapture/internal/dom"
)

// extractLinks returns the crawl candidates among the anchors of doc, in
// document order and without duplicates.
//
// Anchors are only read here; rewriting them is left to the resolver.
func extractLinks(doc *dom.Document, page *url.URL, filter *LinkFilter) []string {
	seen := make(map[string]bool)
	links := make([]string, 0)
	for _, a := range doc.Elements(dom.KindAnchor) {
		href, ok := a.Attr("href")
		if !ok {
			continue
		}
		link, ok := filter.Candidate(page, href)
		if !ok || seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}
	return links
}

// srcsetCandidate is one image candidate of a srcset attribute.
type srcsetCandidate struct {
	url string

	// descriptor is the width or density token ("2x", "640w"), if any.
	descriptor string
}

// parseSrcset splits a srcset attribute into its candidates.
//
// A candidate is a URL followed by an optional descriptor, candidates are
// separated by commas. A comma directly after a URL ends the candidate, so
// URLs containing commas survive as long as they are not followed by one.
func parseSrcset(srcset string) []srcsetCandidate {
	var out []srcsetCandidate
	s := srcset
	for {
		s = strings.TrimLeft(s, " \t\n\r\f,")
		if s == "" {
			return out
		}

		end := strings.IndexAny(s, " \t\n\r\f")
		if end < 0 {
			end = len(s)
		}
		rawURL := s[:end]
		s = s[end:]

		var c srcsetCandidate
		if trimmed := strings.TrimRight(rawURL, ","); trimmed != rawURL {
			c.url = trimmed
		} else {
			c.url = rawURL
			desc := s
			if i := strings.IndexByte(s, ','); i >= 0 {
				desc, s = s[:i], s[i+1:]
			} else {
				s = ""
			}
			c.descriptor = strings.Join(strings.Fields(desc), " ")
		}
		if c.url != "" {
			out = append(out, c)
		}
	}
}

// formatSrcset serializes candidates back into a srcset attribute value.
func formatSrcset(candidates []srcsetCandidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.descriptor == "" {
			parts = append(parts, c.url)
			continue
		}
		parts = append(parts, c.url+" "+c.descriptor)
	}
	return strings.Join(parts, ", ")
}

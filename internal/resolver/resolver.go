// Package resolver rewrites internal links of captured pages to local files.
//
// Resolution runs once, after the crawl: only then is every captured URL
// known, so a link to a page fetched later in the crawl still resolves.
package resolver

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nao1215/sitecapture/internal/dom"
	"github.com/nao1215/sitecapture/internal/model"
)

// Marker is appended to the body of every resolved page.
const Marker = `<div class="sitecapture-marker" style="position:fixed;bottom:8px;right:8px;` +
	`padding:4px 8px;background:#222;color:#fff;font:12px sans-serif;opacity:.8;z-index:2147483647">` +
	`Captured by sitecapture</div>`

// Normalizer maps an absolute URL to the key used in the URL→filename map.
type Normalizer func(rawURL string) string

// Resolver rewrites anchors using a complete URL→filename map.
type Resolver struct {
	filenames map[string]string
	normalize Normalizer
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNormalizer sets the URL normalization used for lookups.
// It must match the normalization used to build the map.
func WithNormalizer(n Normalizer) Option {
	return func(r *Resolver) {
		if n != nil {
			r.normalize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Resolver over mappings.
func New(mappings []model.URLMapping, opts ...Option) *Resolver {
	r := &Resolver{
		filenames: make(map[string]string, len(mappings)),
		normalize: func(s string) string { return s },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, m := range mappings {
		r.filenames[r.normalize(m.OriginalURL)] = m.LocalFilename
	}
	return r
}

// Resolve rewrites the anchors of page and appends the marker, then
// re-renders page.Content. It returns the number of rewritten anchors.
//
// Anchors whose target is not in the map are left untouched; they point at
// external or uncaptured pages. A fragment on the original target is kept.
func (r *Resolver) Resolve(page *model.Page) (int, error) {
	doc := page.Document
	if doc == nil {
		parsed, err := dom.ParseString(page.Content)
		if err != nil {
			return 0, fmt.Errorf("failed to parse %s: %w", page.URL, err)
		}
		doc = parsed
	}

	// Anchors resolve against the same base the fetcher collected them with.
	base, err := url.Parse(page.Base())
	if err != nil {
		return 0, fmt.Errorf("invalid page URL %s: %w", page.Base(), err)
	}

	rewritten := 0
	for _, a := range doc.Elements(dom.KindAnchor) {
		href, ok := a.Attr("href")
		if !ok {
			continue
		}
		local, ok := r.target(base, href)
		if !ok {
			continue
		}
		a.SetAttr("href", local)
		rewritten++
	}

	if err := doc.AppendToBody(Marker); err != nil {
		return rewritten, fmt.Errorf("failed to add marker to %s: %w", page.URL, err)
	}

	content, err := doc.Render()
	if err != nil {
		return rewritten, fmt.Errorf("failed to render %s: %w", page.URL, err)
	}
	page.Content = content
	page.Document = doc
	return rewritten, nil
}

// ResolveAll resolves every page. A page that fails keeps its previous
// content and the failure is logged.
func (r *Resolver) ResolveAll(pages []*model.Page) int {
	total := 0
	for _, page := range pages {
		n, err := r.Resolve(page)
		if err != nil {
			r.logger.Warn("failed to resolve links", "url", page.URL, "error", err)
			continue
		}
		total += n
		r.logger.Debug("resolved links", "url", page.URL, "rewritten", n)
	}
	return total
}

// target returns the local href for an anchor, if its target was captured.
func (r *Resolver) target(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	abs, err := base.Parse(href)
	if err != nil {
		return "", false
	}

	fragment := abs.EscapedFragment()
	abs.Fragment, abs.RawFragment = "", ""

	local, ok := r.filenames[r.normalize(abs.String())]
	if !ok {
		return "", false
	}
	if fragment != "" {
		local += "#" + fragment
	}
	return local, true
}

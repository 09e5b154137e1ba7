package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecapture/internal/dom"
	"github.com/nao1215/sitecapture/internal/filename"
	"github.com/nao1215/sitecapture/internal/model"
	"github.com/nao1215/sitecapture/internal/transport"
)

// defaultAssetConcurrency bounds concurrent asset rewrites within one page.
const defaultAssetConcurrency = 8

// ErrNotHTML is returned when a crawled URL does not serve an HTML document.
var ErrNotHTML = errors.New("response is not an HTML document")

// Getter fetches a URL. *transport.Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, rawURL, accept string) (*transport.Response, error)
}

// AssetLocalizer replaces a remote asset URL with the path of a local copy.
// *asset.Pipeline implements it.
type AssetLocalizer interface {
	Localize(ctx context.Context, rawURL string, kind model.AssetKind) string
}

// Fetcher fetches a single page and rewrites its resource references.
// A Fetcher is safe for concurrent use.
type Fetcher struct {
	getter      Getter
	assets      AssetLocalizer
	filter      *LinkFilter
	logger      *slog.Logger
	concurrency int
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithAssetConcurrency sets how many asset rewrites of one page run at once.
func WithAssetConcurrency(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(getter Getter, assets AssetLocalizer, filter *LinkFilter, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		getter:      getter,
		assets:      assets,
		filter:      filter,
		logger:      slog.Default(),
		concurrency: defaultAssetConcurrency,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads pageURL and returns its page record and crawl candidates.
//
// Stylesheets, scripts and images are replaced with local copies before the
// page is rendered. Anchors keep their original targets. A failing asset
// never fails the page; only a failure to fetch or decode the page itself
// is returned.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, depth int) (*model.Page, []string, error) {
	resp, err := f.getter.Get(ctx, pageURL, transport.AcceptHTML)
	if err != nil {
		return nil, nil, err
	}

	if mt := resp.MediaType(); !isHTML(mt) {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrNotHTML, pageURL, mt)
	}

	doc, err := dom.Parse(decodeBody(resp))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	doc.SetUTF8Charset()

	// Relative references resolve against where the page actually came from.
	base, err := url.Parse(resp.URL)
	if err != nil {
		if base, err = url.Parse(pageURL); err != nil {
			return nil, nil, fmt.Errorf("invalid page URL %s: %w", pageURL, err)
		}
	}

	links := extractLinks(doc, base, f.filter)
	f.rewriteAssets(ctx, doc, base)

	content, err := doc.Render()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render %s: %w", pageURL, err)
	}

	page := &model.Page{
		URL:      pageURL,
		BaseURL:  base.String(),
		Title:    doc.Title(),
		Filename: filename.Derive(pageURL),
		Depth:    depth,
		Content:  content,
		Document: doc,
	}
	return page, links, nil
}

// assetRewrite computes a new value for one attribute.
type assetRewrite struct {
	el   dom.Element
	attr string

	// compute returns the new value, or "" to keep the current one.
	compute func(ctx context.Context) string
}

// rewriteAssets localizes stylesheet, icon, script and image references.
//
// Rewrites run concurrently and only compute values; the document is
// mutated after all of them finished, so the tree is never written from
// more than one goroutine.
func (f *Fetcher) rewriteAssets(ctx context.Context, doc *dom.Document, base *url.URL) {
	rewrites := f.collectRewrites(doc, base)
	if len(rewrites) == 0 {
		return
	}

	values := make([]string, len(rewrites))
	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, rw := range rewrites {
		g.Go(func() error {
			values[i] = rw.compute(ctx)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // rewrites never return errors

	for i, rw := range rewrites {
		if values[i] != "" {
			rw.el.SetAttr(rw.attr, values[i])
		}
	}
}

// collectRewrites lists the attribute rewrites of doc.
func (f *Fetcher) collectRewrites(doc *dom.Document, base *url.URL) []assetRewrite {
	var rewrites []assetRewrite

	single := func(el dom.Element, attr string, kind model.AssetKind) {
		raw, ok := el.Attr(attr)
		if !ok {
			return
		}
		abs, ok := resolveAsset(base, raw)
		if !ok {
			return
		}
		rewrites = append(rewrites, assetRewrite{
			el:   el,
			attr: attr,
			compute: func(ctx context.Context) string {
				return f.assets.Localize(ctx, abs, kind)
			},
		})
	}

	for _, el := range doc.Elements(dom.KindLink, dom.KindScript, dom.KindImage) {
		switch el.Kind {
		case dom.KindLink:
			switch {
			case el.HasRel("stylesheet"):
				single(el, "href", model.AssetStylesheet)
			case el.HasRel("icon"), el.HasRel("apple-touch-icon"):
				single(el, "href", model.AssetImage)
			}
		case dom.KindScript:
			single(el, "src", model.AssetScript)
		case dom.KindImage:
			single(el, "src", model.AssetImage)
			if srcset, ok := el.Attr("srcset"); ok && strings.TrimSpace(srcset) != "" {
				rewrites = append(rewrites, assetRewrite{
					el:   el,
					attr: "srcset",
					compute: func(ctx context.Context) string {
						return f.rewriteSrcset(ctx, base, srcset)
					},
				})
			}
		case dom.KindAnchor:
			// Anchors are resolved after the crawl.
		}
	}
	return rewrites
}

// rewriteSrcset localizes every candidate URL, keeping descriptors.
func (f *Fetcher) rewriteSrcset(ctx context.Context, base *url.URL, srcset string) string {
	candidates := parseSrcset(srcset)
	if len(candidates) == 0 {
		return ""
	}
	for i, c := range candidates {
		if abs, ok := resolveAsset(base, c.url); ok {
			candidates[i].url = f.assets.Localize(ctx, abs, model.AssetImage)
		}
	}
	return formatSrcset(candidates)
}

// resolveAsset resolves ref against base and reports whether the result
// can be downloaded.
func resolveAsset(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return "", false
	}
	u, err := base.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

// isHTML reports whether a media type is an HTML document. A missing
// Content-Type is treated as HTML.
func isHTML(mediaType string) bool {
	switch mediaType {
	case "", "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}

// decodeBody converts the body to UTF-8 using the declared or sniffed charset.
func decodeBody(resp *transport.Response) io.Reader {
	r, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType)
	if err != nil {
		return bytes.NewReader(resp.Body)
	}
	return r
}

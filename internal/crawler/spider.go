package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecapture/internal/model"
)

// Default crawl limits.
const (
	DefaultMaxDepth  = 3
	DefaultMaxPages  = 5
	DefaultBatchSize = 3
	DefaultDelay     = 500 * time.Millisecond
)

// PageFetcher fetches one page. *Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string, depth int) (*model.Page, []string, error)
}

// Spider is the crawl frontier.
// It dispatches URLs breadth-first in fixed-size batches and stops when the
// queue is empty or the page cap has been reached.
//
// Design decision: A whole batch finishes before the next one starts, and the
// links a batch discovers are queued only after it completes. Depth therefore
// never decreases from one batch to the next, and the page cap is checked
// between batches as well as per URL through Store.TryVisit.
type Spider struct {
	pages PageFetcher
	store *Store

	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits how many URLs are dispatched in total.
	maxPages int

	// batchSize is how many pages are fetched concurrently.
	batchSize int

	// delay is the pause between batches.
	delay time.Duration

	progress func(Progress)
	logger   *slog.Logger
}

// Progress is reported after every batch.
type Progress struct {
	// Captured is the number of stored pages.
	Captured int

	// Visited is the number of dispatched URLs.
	Visited int

	// Queued is the number of URLs waiting in the frontier.
	Queued int

	// Depth is the depth of the last dispatched batch.
	Depth int
}

// Result is the outcome of a completed crawl.
type Result struct {
	// Pages are the captured pages in the order they were stored.
	Pages []*model.Page

	// URLMappings is the complete URL→filename map, aliases included.
	URLMappings []model.URLMapping

	// Visited is the number of dispatched URLs, failed ones included.
	Visited int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the pause between batches.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithBatchSize sets how many pages are fetched concurrently.
func WithBatchSize(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithStore sets the store the crawl state is recorded in.
func WithStore(store *Store) SpiderOption {
	return func(s *Spider) {
		if store != nil {
			s.store = store
		}
	}
}

// WithProgress sets a callback invoked after every batch.
func WithProgress(fn func(Progress)) SpiderOption {
	return func(s *Spider) {
		s.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider dispatching pages to pages.
func NewSpider(pages PageFetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		pages:     pages,
		store:     NewStore(),
		maxDepth:  DefaultMaxDepth,
		maxPages:  DefaultMaxPages,
		batchSize: DefaultBatchSize,
		delay:     DefaultDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the store the spider records into.
func (s *Spider) Store() *Store {
	return s.store
}

// queueItem represents an item in the crawl queue.
type queueItem struct {
	url   string
	depth int
}

// batchResult is the outcome of one dispatched URL. A nil page means the URL
// was skipped or failed.
type batchResult struct {
	page  *model.Page
	links []string
}

// Crawl runs the crawl from startURL to completion.
//
// Cancelling ctx stops the crawl at the next batch boundary or pause. The
// batch in flight is dropped and ctx.Err() is returned with no result.
func (s *Spider) Crawl(ctx context.Context, startURL string) (*Result, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	if (start.Scheme != "http" && start.Scheme != "https") || start.Host == "" {
		return nil, fmt.Errorf("invalid start URL: %s", startURL)
	}

	seed := NormalizeURL(start.String())
	s.store.MarkQueued(seed)
	queue := []queueItem{{url: seed, depth: 0}}

	for len(queue) > 0 && !s.capReached() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := min(s.batchSize, len(queue))
		batch := queue[:n]
		queue = queue[n:]

		results := s.dispatch(ctx, batch)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i, r := range results {
			if r.page == nil {
				continue
			}
			if !s.store.AddPage(r.page) {
				owner, _ := s.store.Owner(r.page.Filename)
				s.logger.Warn("page file name already taken; recorded as alias",
					"url", r.page.URL,
					"filename", r.page.Filename,
					"owner", owner,
				)
				continue
			}

			next := batch[i].depth + 1
			if next > s.maxDepth {
				continue
			}
			for _, link := range r.links {
				if s.store.MarkQueued(link) {
					queue = append(queue, queueItem{url: link, depth: next})
				}
			}
		}

		s.report(len(queue), batch[len(batch)-1].depth)

		if len(queue) > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return &Result{
		Pages:       s.store.Pages(),
		URLMappings: s.store.Mappings(),
		Visited:     s.store.VisitedCount(),
	}, nil
}

// dispatch fetches a batch concurrently. Results are indexed like batch;
// failures are logged and leave an empty result.
func (s *Spider) dispatch(ctx context.Context, batch []queueItem) []batchResult {
	results := make([]batchResult, len(batch))

	var g errgroup.Group
	for i, item := range batch {
		g.Go(func() error {
			results[i] = s.visit(ctx, item)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // visits never return errors

	return results
}

// visit applies the dispatch guards and fetches one page.
func (s *Spider) visit(ctx context.Context, item queueItem) batchResult {
	if item.depth > s.maxDepth {
		return batchResult{}
	}
	if !s.store.TryVisit(item.url, s.maxPages) {
		return batchResult{}
	}

	page, links, err := s.pages.Fetch(ctx, item.url, item.depth)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("failed to capture page", "url", item.url, "error", err)
		}
		return batchResult{}
	}

	s.logger.Debug("captured page",
		"url", item.url,
		"depth", item.depth,
		"links", len(links),
	)
	return batchResult{page: page, links: links}
}

// capReached reports whether the page cap stops further dispatch.
func (s *Spider) capReached() bool {
	return s.maxPages > 0 && s.store.VisitedCount() >= s.maxPages
}

// report invokes the progress callback.
func (s *Spider) report(queued, depth int) {
	if s.progress == nil {
		return
	}
	s.progress(Progress{
		Captured: len(s.store.Pages()),
		Visited:  s.store.VisitedCount(),
		Queued:   queued,
		Depth:    depth,
	})
}

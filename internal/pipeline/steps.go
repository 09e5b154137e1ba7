package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/nao1215/sitecapture/internal/asset"
	"github.com/nao1215/sitecapture/internal/config"
	"github.com/nao1215/sitecapture/internal/crawler"
	"github.com/nao1215/sitecapture/internal/model"
	"github.com/nao1215/sitecapture/internal/resolver"
	"github.com/nao1215/sitecapture/internal/site"
	"github.com/nao1215/sitecapture/internal/transport"
)

// Step names.
const (
	StepCrawl       = "crawl"
	StepResolve     = "resolve"
	StepMaterialize = "materialize"
	StepArchive     = "archive"
)

// AssetCounter reports how many distinct assets were saved.
// *asset.Pipeline implements it.
type AssetCounter interface {
	Count() int
}

// CrawlStep runs the frontier and stores its pages and URL mappings in the
// capture.
type CrawlStep struct {
	spider *crawler.Spider
	assets AssetCounter
	logger *slog.Logger
}

// NewCrawlStep creates a crawl step. assets may be nil, in which case the
// asset count is left untouched.
func NewCrawlStep(spider *crawler.Spider, assets AssetCounter, logger *slog.Logger) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{spider: spider, assets: assets, logger: logger}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return StepCrawl
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, c *model.Capture) error {
	result, err := s.spider.Crawl(ctx, c.BaseURL)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	c.Pages = result.Pages
	c.URLMappings = result.URLMappings
	if s.assets != nil {
		c.AssetCount = s.assets.Count()
	}

	s.logger.Info("crawl completed",
		"pages", len(c.Pages),
		"visited", result.Visited,
		"assets", c.AssetCount,
	)
	return nil
}

// ResolveStep points internal anchors at local files and hashes the final
// page content.
//
// Design decision: Resolution is its own step rather than part of the crawl
// because it needs the complete URL→filename map. Running it per page
// during the crawl would leave links to pages fetched later unresolved.
type ResolveStep struct {
	logger *slog.Logger
}

// NewResolveStep creates a resolve step.
func NewResolveStep(logger *slog.Logger) *ResolveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveStep{logger: logger}
}

// Name returns the step name.
func (s *ResolveStep) Name() string {
	return StepResolve
}

// Do executes the resolve step.
func (s *ResolveStep) Do(_ context.Context, c *model.Capture) error {
	r := resolver.New(c.URLMappings,
		resolver.WithNormalizer(crawler.NormalizeURL),
		resolver.WithLogger(s.logger),
	)
	rewritten := r.ResolveAll(c.Pages)

	for _, p := range c.Pages {
		p.ComputeHash()
	}

	s.logger.Info("links resolved", "pages", len(c.Pages), "rewritten", rewritten)
	return nil
}

// MaterializeStep writes the capture to the output directory.
type MaterializeStep struct {
	materializer *site.Materializer
}

// NewMaterializeStep creates a materialize step.
func NewMaterializeStep(m *site.Materializer) *MaterializeStep {
	return &MaterializeStep{materializer: m}
}

// Name returns the step name.
func (s *MaterializeStep) Name() string {
	return StepMaterialize
}

// Do executes the materialize step.
func (s *MaterializeStep) Do(ctx context.Context, c *model.Capture) error {
	if _, err := s.materializer.Write(ctx, c); err != nil {
		return fmt.Errorf("failed to write capture: %w", err)
	}
	return nil
}

// Archiver stores a finished capture. *database.CaptureDB implements it.
type Archiver interface {
	SaveCapture(ctx context.Context, c *model.Capture) error
}

// ArchiveStep saves the capture to the history database.
//
// Design decision: A history failure is logged and swallowed. By the time
// this step runs the replica is already on disk, and failing the whole run
// over the optional history would misreport what happened.
type ArchiveStep struct {
	archiver Archiver
	logger   *slog.Logger
}

// NewArchiveStep creates an archive step.
func NewArchiveStep(a Archiver, logger *slog.Logger) *ArchiveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveStep{archiver: a, logger: logger}
}

// Name returns the step name.
func (s *ArchiveStep) Name() string {
	return StepArchive
}

// Do executes the archive step.
func (s *ArchiveStep) Do(ctx context.Context, c *model.Capture) error {
	if err := s.archiver.SaveCapture(ctx, c); err != nil {
		s.logger.Warn("failed to archive capture", "id", c.ID, "error", err)
		return nil
	}
	s.logger.Debug("capture archived", "id", c.ID)
	return nil
}

// ErrNilConfig is returned by DefaultPipeline when no config is given.
var ErrNilConfig = errors.New("pipeline: nil config")

// defaultSettings holds the optional collaborators of DefaultPipeline.
type defaultSettings struct {
	archiver Archiver
	progress func(crawler.Progress)
	logger   *slog.Logger
}

// DefaultOption configures DefaultPipeline.
type DefaultOption func(*defaultSettings)

// WithArchiver adds the archive step backed by a.
func WithArchiver(a Archiver) DefaultOption {
	return func(s *defaultSettings) {
		s.archiver = a
	}
}

// WithProgress receives crawl progress after every batch.
func WithProgress(fn func(crawler.Progress)) DefaultOption {
	return func(s *defaultSettings) {
		s.progress = fn
	}
}

// WithStepLogger sets the logger shared by every component of the pipeline.
func WithStepLogger(logger *slog.Logger) DefaultOption {
	return func(s *defaultSettings) {
		s.logger = logger
	}
}

// DefaultPipeline wires the transport, asset pipeline, page fetcher, frontier,
// resolver and materializer for cfg and returns them as a ready pipeline.
// cfg must already be validated.
//
// Design decision: We provide a default pipeline because:
// 1. The CLI and the tests need the same wiring
// 2. It keeps the step order in one place
func DefaultPipeline(cfg *config.Config, opts ...DefaultOption) (*Pipeline, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	settings := &defaultSettings{logger: slog.Default()}
	for _, opt := range opts {
		opt(settings)
	}
	logger := settings.logger

	base, err := url.Parse(cfg.TargetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}

	client, err := transport.NewHTTPClient(transport.ClientOptions{
		Timeout:      cfg.Timeout,
		ProxyAddress: cfg.ProxyAddress,
		Cookie:       cfg.Cookie,
		Headers:      cfg.Headers,
	})
	if err != nil {
		return nil, err
	}

	fetcher := transport.NewFetcher(client,
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithMaxBodySize(cfg.MaxBodySize),
		transport.WithLogger(logger),
	)

	assets := asset.New(fetcher, cfg.OutputDir, asset.WithLogger(logger))

	filterOpts := []crawler.FilterOption{
		crawler.WithIgnorePatterns(cfg.IgnorePatterns),
		crawler.WithFollowPatterns(cfg.FollowPatterns),
	}
	if len(cfg.ExcludeExtensions) > 0 {
		filterOpts = append(filterOpts, crawler.WithExcludedExtensions(cfg.ExcludeExtensions))
	}
	filter := crawler.NewLinkFilter(base, filterOpts...)

	pages := crawler.NewFetcher(fetcher, assets, filter, crawler.WithFetcherLogger(logger))

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(cfg.Delay),
		crawler.WithBatchSize(cfg.BatchSize),
		crawler.WithLogger(logger),
	}
	if settings.progress != nil {
		spiderOpts = append(spiderOpts, crawler.WithProgress(settings.progress))
	}
	spider := crawler.NewSpider(pages, spiderOpts...)

	p := New(WithLogger(logger))
	p.AddSteps(
		NewCrawlStep(spider, assets, logger),
		NewResolveStep(logger),
		NewMaterializeStep(site.New(cfg.OutputDir, site.WithLogger(logger))),
	)
	if settings.archiver != nil {
		p.AddStep(NewArchiveStep(settings.archiver, logger))
	}

	return p, nil
}

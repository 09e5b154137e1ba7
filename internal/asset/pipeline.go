package asset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/sitecapture/internal/model"
	"github.com/nao1215/sitecapture/internal/transport"
)

// maxCollisionSuffix bounds the search for a free file name.
const maxCollisionSuffix = 10000

// ErrUnsupportedURL is returned for references that cannot be fetched over HTTP.
var ErrUnsupportedURL = errors.New("unsupported asset URL")

// Getter fetches a URL. *transport.Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, rawURL, accept string) (*transport.Response, error)
}

// Pipeline fetches, deduplicates and stores assets under an output directory.
// A Pipeline is safe for concurrent use.
type Pipeline struct {
	getter    Getter
	outputDir string
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	paths  map[string]string
	failed map[string]error
	group  singleflight.Group
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock sets the time source used for stylesheet names.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Pipeline writing below outputDir.
func New(getter Getter, outputDir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		getter:    getter,
		outputDir: outputDir,
		logger:    slog.Default(),
		now:       time.Now,
		paths:     make(map[string]string),
		failed:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch returns the output-relative path of the local copy of rawURL,
// downloading it on first use.
//
// Concurrent calls for the same URL share one download. A URL that failed
// once keeps failing without another request, except when the failure was
// caused by context cancellation.
func (p *Pipeline) Fetch(ctx context.Context, rawURL string, kind model.AssetKind) (string, error) {
	u, err := parseAssetURL(rawURL)
	if err != nil {
		return "", err
	}
	key := cacheKey(u.String(), kind)

	if e, ok := p.lookup(key); ok {
		return e.path, e.err
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		if e, ok := p.lookup(key); ok {
			return e.path, e.err
		}

		local, err := p.download(ctx, u, kind)

		p.mu.Lock()
		defer p.mu.Unlock()
		switch {
		case err == nil:
			p.paths[key] = local
		case ctx.Err() == nil:
			p.failed[key] = err
		}
		return local, err
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil //nolint:forcetypeassert // the flight only returns strings
}

// Localize is Fetch with fallback: on failure it logs and returns rawURL so
// the reference stays live.
func (p *Pipeline) Localize(ctx context.Context, rawURL string, kind model.AssetKind) string {
	local, err := p.Fetch(ctx, rawURL, kind)
	if err != nil {
		p.logger.Debug("keeping remote asset reference", "url", rawURL, "kind", kind.String(), "error", err)
		return rawURL
	}
	return local
}

// Count returns the number of distinct assets saved so far.
func (p *Pipeline) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.paths)
}

// entry is a cached download outcome.
type entry struct {
	path string
	err  error
}

// lookup returns the cached outcome for key, if any.
func (p *Pipeline) lookup(key string) (entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if local, ok := p.paths[key]; ok {
		return entry{path: local}, true
	}
	if err, ok := p.failed[key]; ok {
		return entry{err: err}, true
	}
	return entry{}, false
}

// download fetches u and writes it to the kind's directory.
func (p *Pipeline) download(ctx context.Context, u *url.URL, kind model.AssetKind) (string, error) {
	resp, err := p.getter.Get(ctx, u.String(), transport.AcceptAny)
	if err != nil {
		p.logger.Warn("failed to fetch asset", "url", u.String(), "kind", kind.String(), "error", err)
		return "", err
	}

	body := resp.Body
	if kind == model.AssetStylesheet {
		body = []byte(p.RewriteCSS(ctx, string(body), resp.URL))
	}

	stem, ext := p.fileName(u, kind, resp.MediaType())
	local, err := p.save(kind, stem, ext, body)
	if err != nil {
		p.logger.Warn("failed to save asset", "url", u.String(), "kind", kind.String(), "error", err)
		return "", err
	}

	p.logger.Debug("saved asset", "url", u.String(), "path", local)
	return local, nil
}

// fileName picks the stem and extension for a downloaded asset.
//
// Extension policy:
//   - stylesheets are always .css and carry a timestamp in the stem
//   - images without a URL extension use the response content type
//   - everything else uses the URL extension or the kind default
func (p *Pipeline) fileName(u *url.URL, kind model.AssetKind, mediaType string) (string, string) {
	segment := path.Base(u.Path)
	if segment == "." || segment == "/" {
		segment = ""
	}

	ext := path.Ext(segment)
	stem := sanitize(strings.TrimSuffix(segment, ext))
	if stem == "" {
		stem = "asset_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	ext = strings.ToLower(sanitize(ext))

	switch {
	case kind == model.AssetStylesheet:
		return stem + "_" + strconv.FormatInt(p.now().UnixNano(), 10), ".css"
	case ext != "":
		return stem, ext
	case kind == model.AssetImage:
		if e := extensionForType(mediaType); e != "" {
			return stem, e
		}
	}
	return stem, kind.DefaultExt()
}

// save writes data to a free name in the kind's directory and returns the
// output-relative, slash-separated path.
func (p *Pipeline) save(kind model.AssetKind, stem, ext string, data []byte) (string, error) {
	dir := filepath.Join(p.outputDir, filepath.FromSlash(kind.Dir()))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	for i := 0; i < maxCollisionSuffix; i++ {
		name := stem + ext
		if i > 0 {
			name = stem + "_" + strconv.Itoa(i) + ext
		}

		// O_EXCL claims the name atomically; concurrent downloads that
		// flatten to the same base name get distinct suffixes.
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create asset file: %w", err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if err := errors.Join(werr, cerr); err != nil {
			return "", fmt.Errorf("failed to write asset file: %w", err)
		}
		return kind.Dir() + "/" + name, nil
	}
	return "", fmt.Errorf("no free file name for %s%s in %s", stem, ext, kind.Dir())
}

// parseAssetURL accepts absolute http and https URLs only.
func parseAssetURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}
	u.Fragment = ""
	return u, nil
}

// cacheKey separates stylesheet downloads from other kinds. A stylesheet
// download waits on the references inside it, so sharing keys with them
// could make two in-flight stylesheets wait on each other.
func cacheKey(rawURL string, kind model.AssetKind) string {
	if kind == model.AssetStylesheet {
		return "css " + rawURL
	}
	return rawURL
}

// imageTypes maps common image media types to extensions; mime's table
// is platform dependent and lists several extensions for image/jpeg.
var imageTypes = map[string]string{
	"image/jpeg":               ".jpg",
	"image/png":                ".png",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/avif":               ".avif",
	"image/svg+xml":            ".svg",
	"image/x-icon":             ".ico",
	"image/vnd.microsoft.icon": ".ico",
	"image/bmp":                ".bmp",
}

// extensionForType returns the extension for an image media type, or "".
func extensionForType(mediaType string) string {
	if ext, ok := imageTypes[mediaType]; ok {
		return ext
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return ""
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// sanitize keeps characters that are safe in file names on every platform.
func sanitize(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

package transport

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

const (
	// DefaultUserAgent identifies the crawler to the sites it captures.
	DefaultUserAgent = "sitecapture/1.0 (+https://github.com/nao1215/sitecapture)"

	// DefaultMaxBodySize caps how many bytes of a single response are read.
	DefaultMaxBodySize int64 = 10 << 20

	// AcceptHTML is the Accept header used for page requests.
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	// AcceptAny is the Accept header used for asset requests.
	AcceptAny = "*/*"
)

// Response is a fully read HTTP response.
type Response struct {
	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// ContentType is the raw Content-Type header.
	ContentType string

	// Body is the decoded response body.
	Body []byte
}

// MediaType returns the lowercased media type of ContentType without parameters.
func (r *Response) MediaType() string {
	mt, _, _ := strings.Cut(r.ContentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// Fetcher performs GET requests and returns decoded bodies.
// A Fetcher is safe for concurrent use.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the response body limit in bytes.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a Fetcher around client. A nil client uses a client
// built from zero ClientOptions.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client, _ = NewHTTPClient(ClientOptions{}) //nolint:errcheck // only fails for an invalid proxy address
	}
	f := &Fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches rawURL with the given Accept header.
//
// Non-2xx responses return a *StatusError and bodies over the limit return
// ErrBodyTooLarge; in both cases no Response is returned.
func (f *Fetcher) Get(ctx context.Context, rawURL, accept string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	if accept == "" {
		accept = AcceptAny
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for connection reuse
		_ = resp.Body.Close()                                       //nolint:errcheck // nothing to do on close failure
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	f.logger.Debug("fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	return &Response{
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// readBody decodes and reads the response body, closing it.
func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		dr, err := newDeflateReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("deflate decode: %w", err)
		}
		reader = dr
		closers = append(closers, dr)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close() //nolint:errcheck // read already finished
		}
	}()

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}
	return body, nil
}

// newDeflateReader decodes a "deflate" body. HTTP deflate is zlib-wrapped
// (RFC 1950), but some servers send a raw RFC 1951 stream instead; the zlib
// header decides which one this is.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header[0], header[1]) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// isZlibHeader reports whether cmf and flg form a valid zlib header with
// the deflate compression method.
func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout is the per-request timeout when none is configured.
	DefaultTimeout = 30 * time.Second

	// maxRedirects bounds redirect chains.
	maxRedirects = 10
)

// ClientOptions configures NewHTTPClient.
type ClientOptions struct {
	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Cookie is a raw cookie string sent with every request.
	Cookie string

	// Headers are sent with every request, overriding defaults.
	Headers map[string]string
}

// NewHTTPClient creates an HTTP client for capturing a site.
//
// Design decisions:
//   - Cookies from responses are kept in a jar so that sites setting a
//     session cookie on the first page keep serving the same content
//   - Redirect limit is 10 to prevent loops while allowing normal redirects
//   - Compression is negotiated by the Fetcher, not the transport, so that
//     brotli is supported alongside gzip and deflate
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	base := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	base.DisableCompression = true
	base.MaxIdleConnsPerHost = 4

	if opts.ProxyAddress != "" {
		dialContext, err := socks5DialContext(opts.ProxyAddress)
		if err != nil {
			return nil, err
		}
		base.Proxy = nil
		base.DialContext = dialContext
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var rt http.RoundTripper = base
	if opts.Cookie != "" || len(opts.Headers) > 0 {
		rt = &headerInjectingTransport{
			base:    base,
			cookie:  opts.Cookie,
			headers: opts.Headers,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// socks5DialContext returns a DialContext function routing through the
// SOCKS5 proxy at address.
func socks5DialContext(address string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	if !isValidProxyAddress(address) {
		return nil, ErrInvalidProxyAddress
	}

	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format
// with a port between 1 and 65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

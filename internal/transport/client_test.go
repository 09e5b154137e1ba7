package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestIsValidProxyAddress tests proxy address validation.
func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{name: "ipv4 with port", address: "127.0.0.1:9050", want: true},
		{name: "hostname with port", address: "localhost:1080", want: true},
		{name: "ipv6 with port", address: "[::1]:1080", want: true},
		{name: "empty", address: "", want: false},
		{name: "missing port", address: "127.0.0.1", want: false},
		{name: "missing host", address: ":9050", want: false},
		{name: "port zero", address: "127.0.0.1:0", want: false},
		{name: "port too large", address: "127.0.0.1:65536", want: false},
		{name: "non numeric port", address: "127.0.0.1:socks", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := isValidProxyAddress(tt.address); got != tt.want {
				t.Errorf("isValidProxyAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

// TestNewHTTPClient tests client construction.
func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(ClientOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != DefaultTimeout {
			t.Errorf("expected default timeout, got %v", client.Timeout)
		}
		if client.Jar == nil {
			t.Error("expected cookie jar")
		}
		if _, ok := client.Transport.(*http.Transport); !ok {
			t.Errorf("expected plain transport without headers, got %T", client.Transport)
		}
	})

	t.Run("custom timeout", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(ClientOptions{Timeout: 5 * time.Second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != 5*time.Second {
			t.Errorf("expected 5s, got %v", client.Timeout)
		}
	})

	t.Run("invalid proxy address", func(t *testing.T) {
		t.Parallel()

		_, err := NewHTTPClient(ClientOptions{ProxyAddress: "not-an-address"})
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("valid proxy address", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(ClientOptions{ProxyAddress: "127.0.0.1:1080"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tr, ok := client.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("expected *http.Transport, got %T", client.Transport)
		}
		if tr.DialContext == nil {
			t.Error("expected SOCKS5 dialer to be installed")
		}
	})

	t.Run("redirect limit", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(ClientOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		via := make([]*http.Request, maxRedirects)
		if err := client.CheckRedirect(nil, via); !errors.Is(err, http.ErrUseLastResponse) {
			t.Errorf("expected ErrUseLastResponse, got %v", err)
		}
		if err := client.CheckRedirect(nil, via[:1]); err != nil {
			t.Errorf("expected redirect to be allowed, got %v", err)
		}
	})
}

// TestHeaderInjectingTransport tests custom header and cookie injection.
func TestHeaderInjectingTransport(t *testing.T) {
	t.Parallel()

	var gotCookie, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotHeader = r.Header.Get("X-Capture")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(ClientOptions{
		Cookie:  "session=abc123",
		Headers: map[string]string{"X-Capture": "yes"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Cookie", "theme=dark")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()

	if gotCookie != "theme=dark; session=abc123" {
		t.Errorf("unexpected cookie header %q", gotCookie)
	}
	if gotHeader != "yes" {
		t.Errorf("unexpected custom header %q", gotHeader)
	}
	if req.Header.Get("Cookie") != "theme=dark" {
		t.Error("original request must not be modified")
	}
}

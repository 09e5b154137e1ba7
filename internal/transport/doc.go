// Package transport provides the HTTP plumbing used to capture a site.
//
// It builds an *http.Client with timeouts, a cookie jar, a redirect limit and
// an optional SOCKS5 proxy, and wraps it in a Fetcher that adds the configured
// headers, decodes compressed bodies and caps how much of a response is read.
// Every network access made by the crawler and the asset pipeline goes
// through a Fetcher, so politeness headers and limits apply uniformly.
package transport

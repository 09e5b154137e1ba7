// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - Configurable log levels with verbose mode support
//   - Terminal output through charmbracelet/log, or JSON lines
//
// # Security Features
//
// A capture run may be configured with a session cookie or an Authorization
// header for the target site. The SecureHandler masks such values in log
// output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (bearer/basic auth, JWTs)
//   - Session identifiers and authentication tokens
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("request sent",
//	    "cookie", "session=abc123",  // logged as ***REDACTED***
//	    "url", "https://example.com/",
//	)
//
//	slog.SetDefault(logger)
package log

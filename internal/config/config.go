package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitecapture"

	// DefaultOutputDir is where the replica is written unless -o is given.
	DefaultOutputDir = "captured_site"

	// DefaultMaxDepth limits how many link hops from the start page are
	// followed. Depth 0 means only the start page.
	DefaultMaxDepth = 3

	// DefaultMaxPages caps the number of pages captured per run. The default
	// is deliberately small: a capture is a snapshot, not a mirror.
	DefaultMaxPages = 5

	// DefaultDelay is the pause between crawl batches.
	DefaultDelay = 500 * time.Millisecond

	// DefaultBatchSize is the number of pages fetched concurrently.
	DefaultBatchSize = 3

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies sitecapture in HTTP requests.
	// A descriptive User-Agent lets site operators identify capture traffic
	// in their logs.
	DefaultUserAgent = "sitecapture/1.0 (+https://github.com/nao1215/sitecapture)"

	// DefaultMaxBodySize limits the size of a single response body.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Config holds all configuration options for one capture run.
// It is populated from CLI flags and the optional config file, validated
// once, and then passed down explicitly; no component reads global state.
//
// Design decision: We use a single flat struct, the same as the CLI flag
// surface. Nesting would add indirection without grouping anything the
// components consume separately.
type Config struct {
	// TargetURL is the absolute http(s) URL the crawl starts from.
	TargetURL string

	// OutputDir is the directory the replica is written to.
	OutputDir string

	// MaxDepth is the maximum number of link hops from TargetURL.
	MaxDepth int

	// MaxPages is the maximum number of pages captured.
	MaxPages int

	// Delay is the pause between crawl batches.
	Delay time.Duration

	// BatchSize is the number of pages fetched concurrently per batch.
	BatchSize int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// Cookie is sent with every request when set.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string

	// ExcludeExtensions replaces the default list of link extensions
	// that are never crawled as pages. Empty keeps the defaults.
	ExcludeExtensions []string

	// IgnorePatterns are glob path patterns whose links are not collected.
	IgnorePatterns []string

	// FollowPatterns, when set, restrict collected links to matching paths.
	FollowPatterns []string

	// DBDir is the directory holding the capture history database.
	// Defaults to the XDG data directory (~/.local/share/sitecapture on Linux).
	DBDir string

	// SaveHistory archives the run in the history database.
	SaveHistory bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output to JSON lines.
	JSONLog bool

	// JSONSummary prints the capture summary as JSON.
	// Mutually exclusive with MarkdownSummary.
	JSONSummary bool

	// MarkdownSummary prints the capture summary as Markdown.
	// Mutually exclusive with JSONSummary.
	MarkdownSummary bool

	// SummaryFile, when set, receives the summary instead of stdout.
	SummaryFile string

	// ConfigFilePath is an explicit config file. When empty, .sitecapture
	// is looked up in the current directory and then the home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because most defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		OutputDir:   DefaultOutputDir,
		MaxDepth:    DefaultMaxDepth,
		MaxPages:    DefaultMaxPages,
		Delay:       DefaultDelay,
		BatchSize:   DefaultBatchSize,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		DBDir:       XDGDataDir(),
		SaveHistory: true,
	}
}

// XDGDataDir returns the XDG data directory for sitecapture.
// On Linux: ~/.local/share/sitecapture
// On macOS: ~/Library/Application Support/sitecapture
// On Windows: %LOCALAPPDATA%\sitecapture
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate once, right after flag parsing and before
// any network I/O, and return the first problem found. Fixing one error
// often makes others irrelevant.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TargetURL) == "" {
		return ErrNoTarget
	}
	if !isValidTargetURL(c.TargetURL) {
		return ErrInvalidTargetURL
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return ErrEmptyOutputDir
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONSummary && c.MarkdownSummary {
		return ErrConflictingSummaryFormats
	}
	return nil
}

// Host returns the host of TargetURL, or "" if it does not parse.
func (c *Config) Host() string {
	u, err := url.Parse(c.TargetURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// ApplySite merges a site configuration from the config file into c.
// Values already set on the command line win over the file: callers pass
// the names of flags the user changed in explicit.
func (c *Config) ApplySite(site SiteConfig, explicit map[string]bool) {
	if site.Cookie != "" && c.Cookie == "" {
		c.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		merged := make(map[string]string, len(site.Headers)+len(c.Headers))
		for k, v := range site.Headers {
			merged[k] = v
		}
		for k, v := range c.Headers {
			merged[k] = v
		}
		c.Headers = merged
	}
	if site.Depth != 0 && !explicit["depth"] {
		c.MaxDepth = site.Depth
	}
	if site.UserAgent != "" && !explicit["user-agent"] {
		c.UserAgent = site.UserAgent
	}
	if len(site.IgnorePatterns) > 0 {
		c.IgnorePatterns = append(c.IgnorePatterns, site.IgnorePatterns...)
	}
	if len(site.FollowPatterns) > 0 {
		c.FollowPatterns = append(c.FollowPatterns, site.FollowPatterns...)
	}
	if len(site.ExcludeExtensions) > 0 && len(c.ExcludeExtensions) == 0 {
		c.ExcludeExtensions = site.ExcludeExtensions
	}
}

// isValidTargetURL reports whether raw is an absolute http(s) URL with a host.
func isValidTargetURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

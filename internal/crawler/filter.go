package crawler

import (
	"net/url"
	"path"
	"strings"
)

// DefaultExcludedExtensions are link targets that are never crawled as pages.
var DefaultExcludedExtensions = []string{
	".pdf", ".zip", ".gz", ".tar", ".rar", ".7z", ".exe", ".dmg",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico", ".bmp",
	".mp3", ".mp4", ".avi", ".mov", ".webm", ".wav",
	".css", ".js", ".json", ".xml", ".rss",
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

// nonNavigableSchemes are href prefixes that never point at a page.
var nonNavigableSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// LinkFilter decides which anchors on a page are crawl candidates.
//
// A candidate must be on the same host as the crawl root, must not be a
// fragment-only or non-navigable reference, must not end in an excluded
// extension and must pass the ignore/follow path patterns.
type LinkFilter struct {
	host           string
	excluded       map[string]bool
	ignorePatterns []string
	followPatterns []string
}

// FilterOption configures a LinkFilter.
type FilterOption func(*LinkFilter)

// WithExcludedExtensions replaces the excluded extension list.
// Extensions are matched case-insensitively and may omit the leading dot.
func WithExcludedExtensions(exts []string) FilterOption {
	return func(f *LinkFilter) {
		f.excluded = make(map[string]bool, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			f.excluded[ext] = true
		}
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
// URLs matching any of these patterns will not be crawled.
func WithIgnorePatterns(patterns []string) FilterOption {
	return func(f *LinkFilter) {
		f.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) FilterOption {
	return func(f *LinkFilter) {
		f.followPatterns = patterns
	}
}

// NewLinkFilter creates a filter for links on the site rooted at base.
func NewLinkFilter(base *url.URL, opts ...FilterOption) *LinkFilter {
	f := &LinkFilter{host: strings.ToLower(base.Host)}
	WithExcludedExtensions(DefaultExcludedExtensions)(f)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Candidate resolves href against page and returns the normalized absolute
// URL when it should be crawled.
func (f *LinkFilter) Candidate(page *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, scheme := range nonNavigableSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	u, err := page.Parse(href)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(u.Host, f.host) {
		return "", false
	}
	if f.excluded[strings.ToLower(path.Ext(u.Path))] {
		return "", false
	}
	if !f.shouldCrawl(u) {
		return "", false
	}

	return NormalizeURL(u.String()), true
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
//
// Logic:
//  1. If URL matches any ignorePattern, skip it (return false)
//  2. If followPatterns is set and URL matches none, skip it (return false)
//  3. Otherwise, crawl it (return true)
func (f *LinkFilter) shouldCrawl(u *url.URL) bool {
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}

	if len(f.followPatterns) > 0 {
		for _, pattern := range f.followPatterns {
			if matchPattern(pattern, p) {
				return true
			}
		}
		return false
	}

	return true
}

// NormalizeURL normalizes a URL for deduplication and map lookups.
//
// The fragment is dropped, scheme and host are lowercased and an empty path
// becomes "/". Unparsable input is returned unchanged.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// http://example.com and http://example.com/ are the same page.
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	return u.String()
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, p string) bool {
	// "/admin/*" matches everything below /admin, not only one segment.
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(p, prefix+"/") || p == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(p, ext) {
			return true
		}
	}

	matched, err := path.Match(pattern, p)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Patterns without a slash also match the last segment alone.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := path.Match(pattern, path.Base(p))
		if err == nil && matched {
			return true
		}
	}

	return false
}

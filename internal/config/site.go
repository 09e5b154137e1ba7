package config

import "strings"

// SiteConfig holds site-specific configuration for a single host.
// This allows customizing crawl behavior per site.
type SiteConfig struct {
	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the default crawl depth for this site.
	// If zero, the global depth is used.
	Depth int `yaml:"depth,omitempty"`

	// UserAgent overrides the User-Agent header for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// IgnorePatterns are URL patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// ExcludeExtensions replaces the list of link extensions never
	// crawled as pages.
	ExcludeExtensions []string `yaml:"excludeExtensions,omitempty"`
}

// File represents the structure of the .sitecapture configuration file.
type File struct {
	// Sites maps hosts to their site-specific configurations.
	// Keys are host names without scheme (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
// Host keys are compared case-insensitively.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[host]
	if !ok {
		for k, v := range cf.Sites {
			if strings.EqualFold(k, host) {
				siteConfig, ok = v, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if len(siteConfig.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range siteConfig.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	if len(siteConfig.ExcludeExtensions) > 0 {
		result.ExcludeExtensions = siteConfig.ExcludeExtensions
	}

	return result
}

// Package main provides the entry point for the sitecapture CLI.
//
// sitecapture crawls a website breadth-first from a single URL and writes
// a self-contained offline replica: flattened HTML pages with rewritten
// links, localized assets, a sitemap and a JSON capture report.
//
// Usage:
//
//	sitecapture capture https://example.com
//	sitecapture history
//
// See --help for all available options.
package main

// main is the entry point for sitecapture.
func main() {
	Execute()
}

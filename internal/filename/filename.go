// Package filename maps page URLs to flat local file names.
//
// Every captured page is written into a single directory, so the URL path is
// flattened: separators become underscores and the extension is forced to
// .html. The mapping is deterministic; link resolution relies on deriving the
// same name for the same URL on every call.
package filename

import (
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	// Index is the name derived for the site root.
	Index = "index.html"

	// indexSuffix marks directory-like paths.
	indexSuffix = "_index"

	// htmlExt is the extension every derived name ends with.
	htmlExt = ".html"
)

// illegalChars are replaced by underscores; they are not allowed in file
// names on at least one supported platform.
var illegalChars = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
	`\`, "_",
)

// Derive returns the flat local file name for rawURL.
//
// Rules, in order:
//  1. An empty path or "/" yields "index.html"
//  2. Leading and trailing slashes are stripped
//  3. Paths without an extension, or ending in "/", get "_index" appended
//  4. Remaining slashes become underscores
//  5. The extension is forced to ".html"
//  6. Characters illegal in file names become underscores
//
// Derive never fails: an unparsable URL yields a timestamp based name.
func Derive(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback(time.Now())
	}
	return fromPath(u.Path)
}

// fromPath applies the flattening rules to a URL path.
func fromPath(p string) string {
	// Decoded paths can arrive in either Unicode normalization form
	// depending on the client that produced the link.
	p = norm.NFC.String(p)

	if p == "" || p == "/" {
		return Index
	}

	directory := strings.HasSuffix(p, "/")
	p = strings.Trim(p, "/")
	if p == "" {
		return Index
	}

	directory = directory || path.Ext(path.Base(p)) == ""
	if directory {
		p += indexSuffix
	}

	p = strings.ReplaceAll(p, "/", "_")

	if !directory {
		p = strings.TrimSuffix(p, path.Ext(p))
	}
	p += htmlExt

	return illegalChars.Replace(p)
}

// fallback builds a name from the current time for unparsable URLs.
func fallback(now time.Time) string {
	return "page_" + strconv.FormatInt(now.UnixMilli(), 10) + htmlExt
}

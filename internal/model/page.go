package model

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/sitecapture/internal/dom"
)

// DefaultTitle is used for pages without a <title>.
const DefaultTitle = "Untitled"

// Page is a captured page record.
//
// A Page is created by the page fetcher after a successful fetch, owned by the
// page store during the crawl, rewritten exactly once more by the link
// resolver and finally written to disk by the site materializer.
type Page struct {
	// URL is the normalized absolute URL the page was fetched from.
	URL string `json:"url"`

	// BaseURL is the URL relative references in the page resolve against:
	// the final URL after redirects. Empty means URL.
	BaseURL string `json:"-"`

	// Title is the page title, or DefaultTitle when the page has none.
	Title string `json:"title"`

	// Filename is the flat local file name derived from URL.
	Filename string `json:"filename"`

	// Depth is the number of link hops from the base URL.
	Depth int `json:"depth"`

	// Content is the serialized markup as rewritten so far.
	Content string `json:"-"`

	// Hash is the SHA3-256 hash of Content, computed after link resolution.
	Hash string `json:"hash,omitempty"`

	// Document is the parsed tree Content was rendered from.
	// It is kept so the link resolver does not have to parse the page again.
	Document *dom.Document `json:"-"`
}

// ComputeHash calculates and sets the SHA3-256 hash of the page content.
func (p *Page) ComputeHash() {
	if p.Content == "" {
		p.Hash = ""
		return
	}

	sum := sha3.Sum256([]byte(p.Content))
	p.Hash = hex.EncodeToString(sum[:])
}

// DisplayTitle returns Title, falling back to DefaultTitle.
func (p *Page) DisplayTitle() string {
	if p.Title == "" {
		return DefaultTitle
	}
	return p.Title
}

// Base returns the URL relative references in the page resolve against.
func (p *Page) Base() string {
	if p.BaseURL == "" {
		return p.URL
	}
	return p.BaseURL
}

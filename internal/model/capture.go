package model

import (
	"time"

	"github.com/google/uuid"
)

// URLMapping records which local file a crawled URL was saved as.
type URLMapping struct {
	// OriginalURL is the normalized absolute URL.
	OriginalURL string `json:"originalUrl"`

	// LocalFilename is the flat file name under the output directory.
	LocalFilename string `json:"localFilename"`
}

// Capture carries the state of one capture run between pipeline steps.
// It is created fresh per run and discarded once the run is archived.
type Capture struct {
	// ID uniquely identifies the run in the history database.
	ID string

	// BaseURL is the URL the crawl was seeded with.
	BaseURL string

	// OutputDir is the directory the replica is written to.
	OutputDir string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when materialization completed.
	FinishedAt time.Time

	// Pages are the captured page records in the order they were stored.
	Pages []*Page

	// URLMappings maps every captured URL (and alias) to its local file.
	URLMappings []URLMapping

	// AssetCount is the number of distinct assets saved locally.
	AssetCount int

	// Report is the summary built by the site materializer.
	Report *CaptureReport
}

// NewCapture creates a Capture for baseURL with a fresh run ID.
func NewCapture(baseURL, outputDir string) *Capture {
	return &Capture{
		ID:          uuid.NewString(),
		BaseURL:     baseURL,
		OutputDir:   outputDir,
		StartedAt:   time.Now(),
		Pages:       make([]*Page, 0),
		URLMappings: make([]URLMapping, 0),
	}
}

// FilenameIndex returns the URL→filename map as a lookup table.
func (c *Capture) FilenameIndex() map[string]string {
	index := make(map[string]string, len(c.URLMappings))
	for _, m := range c.URLMappings {
		index[m.OriginalURL] = m.LocalFilename
	}
	return index
}

// HasFilename reports whether any page record was derived to name.
func (c *Capture) HasFilename(name string) bool {
	for _, p := range c.Pages {
		if p.Filename == name {
			return true
		}
	}
	return false
}

package model

import "time"

// CaptureReport is the machine-readable summary of a capture run.
// Its JSON form is written to scraping_report.json and consumed by tools
// that replay or inspect the output directory, so field names are fixed.
type CaptureReport struct {
	// BaseURL is the URL the crawl was seeded with.
	BaseURL string `json:"baseUrl"`

	// TotalPages is the number of page files written.
	TotalPages int `json:"totalPages"`

	// TotalAssets is the number of distinct assets saved locally.
	TotalAssets int `json:"totalAssets"`

	// OutputDirectory is the directory the replica was written to.
	OutputDirectory string `json:"outputDirectory"`

	// ScrapingDate is when the report was built.
	ScrapingDate time.Time `json:"scrapingDate"`

	// Pages holds per-page metadata in capture order.
	Pages []PageSummary `json:"pages"`

	// URLMappings is the full URL→filename map.
	URLMappings []URLMapping `json:"urlMappings"`
}

// PageSummary is the per-page entry of a CaptureReport.
type PageSummary struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Depth    int    `json:"depth"`
}

// NewCaptureReport builds a report from the final state of a capture.
func NewCaptureReport(c *Capture) *CaptureReport {
	r := &CaptureReport{
		BaseURL:         c.BaseURL,
		TotalPages:      len(c.Pages),
		TotalAssets:     c.AssetCount,
		OutputDirectory: c.OutputDir,
		ScrapingDate:    time.Now(),
		Pages:           make([]PageSummary, 0, len(c.Pages)),
		URLMappings:     make([]URLMapping, 0, len(c.URLMappings)),
	}

	for _, p := range c.Pages {
		r.Pages = append(r.Pages, PageSummary{
			URL:      p.URL,
			Title:    p.DisplayTitle(),
			Filename: p.Filename,
			Depth:    p.Depth,
		})
	}
	r.URLMappings = append(r.URLMappings, c.URLMappings...)

	return r
}

// MaxDepth returns the deepest page depth in the report.
func (r *CaptureReport) MaxDepth() int {
	depth := 0
	for _, p := range r.Pages {
		if p.Depth > depth {
			depth = p.Depth
		}
	}
	return depth
}

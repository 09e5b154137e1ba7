// Package crawler captures the pages of a single site.
//
// # Architecture
//
// The Spider is the frontier. It runs a breadth-first crawl in small
// concurrent batches, pausing between batches, and records every captured
// page in a Store. Each dispatched URL goes through a Fetcher, which
// downloads the page, collects its same-site link candidates and rewrites
// stylesheet, script and image references to local asset copies.
//
// Anchors are deliberately left untouched here. They can only be rewritten
// once the crawl has finished and the full URL→filename map is known; that
// is the job of the resolver package.
//
// # Components
//
//   - Spider: batch scheduling, depth and page caps, pacing
//   - Fetcher: one page fetch plus in-page asset rewriting
//   - Store: visited and queued sets, page records, URL→filename map
//   - LinkFilter: which anchors are crawl candidates
//
// # Politeness
//
// At most one batch (3 pages by default) is in flight, followed by a fixed
// delay. This is the only rate limiting the crawler applies.
//
// # Usage
//
//	fetcher := crawler.NewFetcher(httpFetcher, assets, filter)
//	spider := crawler.NewSpider(fetcher, crawler.WithMaxDepth(3))
//	result, err := spider.Crawl(ctx, "https://example.com/")
package crawler

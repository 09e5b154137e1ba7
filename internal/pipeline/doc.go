// Package pipeline provides a framework for executing capture steps in sequence.
//
// A capture runs through four steps: crawl (the frontier fetches and
// rewrites pages), resolve (internal anchors are pointed at local files),
// materialize (pages, site map, home page and report are written) and,
// optionally, archive (the run is saved to the history database). Each step
// receives the shared capture state and may modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. Link resolution must run strictly after the crawl has finished, and an
// ordered list of steps makes that ordering explicit
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context between steps
package pipeline

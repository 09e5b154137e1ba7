// Package model defines the core data structures used throughout sitecapture.
//
// This package contains the following main types:
//   - Page: A captured page record, owned by the page store until written
//   - AssetKind: The coarse category of a downloaded resource
//   - Capture: The state of one capture run passed between pipeline steps
//   - CaptureReport: The machine-readable summary written as scraping_report.json
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, resolver, site, report and database packages all
// need these types, so centralizing them prevents import cycles.
package model

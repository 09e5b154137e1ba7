// Package database provides SQLite-based capture history for sitecapture.
//
// This package implements the CaptureDB, which stores:
//   - One row per completed capture run with its full report
//   - One row per captured page with its SHA3-256 content hash
//
// The history is write-only from the crawler's point of view: nothing is
// read back to resume or skip work in a later run.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database

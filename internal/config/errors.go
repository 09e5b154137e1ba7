package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no target URL is given.
	ErrNoTarget = errors.New("no target specified: provide the URL to capture")

	// ErrInvalidTargetURL is returned when the target is not an absolute
	// http or https URL.
	ErrInvalidTargetURL = errors.New("invalid target URL: must be an absolute http(s) URL")

	// ErrEmptyOutputDir is returned when the output directory is blank.
	ErrEmptyOutputDir = errors.New("invalid output directory: must not be empty")

	// ErrInvalidMaxDepth is returned when the depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page cap is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidDelay is returned when the batch delay is negative.
	// Use 0 for no delay between batches.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the body size limit is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrConflictingSummaryFormats is returned when both --json and --markdown
	// are specified. Only one summary format can be used at a time.
	ErrConflictingSummaryFormats = errors.New("conflicting summary formats: --json and --markdown cannot be used together")
)

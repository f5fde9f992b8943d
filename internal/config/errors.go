package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidDate is returned when a window bound is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date: expected YYYY-MM-DD")

	// ErrDateOrder is returned when the start date is after the end date.
	ErrDateOrder = errors.New("invalid date range: start date is after end date")

	// ErrInvalidRetryLimit is returned when the retry limit is not positive.
	ErrInvalidRetryLimit = errors.New("invalid retry limit: must be positive")

	// ErrInvalidRetryBackoff is returned for a negative backoff.
	ErrInvalidRetryBackoff = errors.New("invalid retry backoff: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownSource is returned for a source name no fetcher implements.
	ErrUnknownSource = errors.New("unknown source")

	// ErrUnknownSummarizer is returned for an unknown summarizer name.
	ErrUnknownSummarizer = errors.New("unknown summarizer")

	// ErrUnknownFormat is returned for an unknown output format.
	ErrUnknownFormat = errors.New("unknown output format")

	// ErrNoBrokerage is returned when the target brokerage set is empty.
	ErrNoBrokerage = errors.New("no target brokerage configured")

	// ErrInvalidWatchDays is returned when the rolling window is not positive.
	ErrInvalidWatchDays = errors.New("invalid watch window: days must be positive")
)

package crawler

import "errors"

// ErrNoReports is returned when the source has no result page for the
// requested date range.
var ErrNoReports = errors.New("no reports in the requested range")

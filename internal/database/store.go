package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/reportscan/internal/model"
)

// Store persists crawl runs. ReportDB and PGStore implement it.
type Store interface {
	// SaveRun stores run and its reports, replacing a previous save of
	// the same run.
	SaveRun(ctx context.Context, run *Run, reports []model.Report) error

	// GetRun returns the run with the given ID or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs first. limit <= 0 lists all.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// ReportsByRun returns the reports of a run in crawl order.
	ReportsByRun(ctx context.Context, runID string) ([]model.Report, error)

	// FindReports searches the reports of every run.
	FindReports(ctx context.Context, f ReportFilter) ([]model.Report, error)

	Close() error
}

// Run is one stored crawl.
type Run struct {
	// ID is a random UUID.
	ID string

	Source string

	// From and To are the requested window as YYYY-MM-DD.
	From string
	To   string

	StartedAt  time.Time
	FinishedAt time.Time

	// Outcome is the terminal crawler phase.
	Outcome string

	PagesFetched int
	ReportCount  int
}

// NewRun starts a run record with a fresh ID.
func NewRun(source, from, to string, startedAt time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Source:    source,
		From:      from,
		To:        to,
		StartedAt: startedAt,
	}
}

// Finish completes the run with the outcome of a crawl.
func (r *Run) Finish(outcome string, pagesFetched, reportCount int, finishedAt time.Time) {
	r.Outcome = outcome
	r.PagesFetched = pagesFetched
	r.ReportCount = reportCount
	r.FinishedAt = finishedAt
}

// ReportFilter selects stored reports. Empty fields match everything.
type ReportFilter struct {
	CompanyCode string
	Brokerage   string

	// From and To bound the report date, inclusive.
	From string
	To   string

	// DocumentHash finds the same document published under several links.
	DocumentHash string

	// Limit caps the result. Zero means no limit.
	Limit int
}

// timestampFormats contains the layouts a stored timestamp may come back in.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses s with every known layout; it returns the zero
// time when none matches.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// storedLayout has a fixed width so that stored timestamps sort as text.
const storedLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedLayout)
}

// Package source fetches paginated report listings from the research portals.
//
// A Source turns one result page into raw extract.Record values and reports
// the last page number. It does not interpret records; field rules live in
// the extract package. Every transport, status or decode failure is returned
// as an error, without distinguishing its kind, so that the crawler can
// retry it.
package source

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/reportscan/internal/extract"
	"github.com/nao1215/reportscan/internal/identity"
)

// Source names accepted on the command line.
const (
	NameHankyung  = "hankyung"
	NameConsensus = "consensus"
)

// ReportTypeCompany selects company (as opposed to industry) reports.
const ReportTypeCompany = "CO"

var (
	// ErrDecode is returned when a page cannot be decoded.
	ErrDecode = errors.New("failed to decode result page")

	// ErrUnknownSource is returned by New for an unknown source name.
	ErrUnknownSource = errors.New("unknown source")
)

// Page is one decoded result page.
type Page struct {
	// Number is the 1-based page number that was requested.
	Number int

	// LastPage is the last page number the portal reported on this page.
	LastPage int

	// Records are the raw report rows in page order.
	Records []extract.Record
}

// Source is a paginated report listing.
type Source interface {
	// Name returns the source name, e.g. "hankyung".
	Name() string

	// LastPage returns the number of result pages for the query.
	// Zero means the query has no reports.
	LastPage(ctx context.Context, id identity.Identity) (int, error)

	// FetchPage fetches and decodes one result page.
	FetchPage(ctx context.Context, page int, id identity.Identity) (*Page, error)
}

// Query holds the fixed request parameters of one crawl.
type Query struct {
	// From and To are the inclusive date range as YYYY-MM-DD.
	From string
	To   string

	// ReportType is the report type filter. Defaults to ReportTypeCompany.
	ReportType string

	// PageSize is the number of rows per page. Zero keeps the portal default.
	PageSize int
}

func (q Query) reportType() string {
	if q.ReportType == "" {
		return ReportTypeCompany
	}
	return q.ReportType
}

// options are shared by all sources.
type options struct {
	baseURL string
	logger  *slog.Logger
}

// Option configures a Source.
type Option func(*options)

// WithBaseURL overrides the endpoint URL.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(defaultURL string, opts []Option) options {
	o := options{baseURL: defaultURL, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

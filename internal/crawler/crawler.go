package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/reportscan/internal/analysis"
	"github.com/nao1215/reportscan/internal/category"
	"github.com/nao1215/reportscan/internal/extract"
	"github.com/nao1215/reportscan/internal/identity"
	"github.com/nao1215/reportscan/internal/model"
	"github.com/nao1215/reportscan/internal/source"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRetryLimit is the number of attempts made for one fetch.
	DefaultRetryLimit = 10

	// DefaultRetryBackoff is multiplied by the attempt number between retries.
	DefaultRetryBackoff = time.Second

	// DefaultWorkers analyzes the reports of a page one at a time.
	DefaultWorkers = 1
)

// DefaultBrokerages are the brokerages whose reports are collected when
// none are configured.
var DefaultBrokerages = []string{"대신증권", "유안타증권", "유진투자증권", "키움증권", "하이투자증권"}

// Analyzer reads the document behind a report link.
// *analysis.Analyzer implements it.
type Analyzer interface {
	Analyze(ctx context.Context, docRef string) (analysis.Result, error)
}

// Crawler runs crawls. Its configuration is fixed at construction, so one
// Crawler may run several crawls, one at a time or concurrently.
type Crawler struct {
	analyzer     Analyzer
	brokerages   []string
	lowerBound   string
	categories   *category.Table
	pool         identity.Pool
	retryLimit   int
	retryBackoff time.Duration
	workers      int
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithBrokerages sets the brokerages whose reports are collected.
func WithBrokerages(names []string) Option {
	return func(c *Crawler) {
		if len(names) > 0 {
			c.brokerages = names
		}
	}
}

// WithLowerBound sets the earliest report date (YYYY-MM-DD) collected.
// Reaching an older report ends the crawl.
func WithLowerBound(date string) Option {
	return func(c *Crawler) {
		c.lowerBound = date
	}
}

// WithCategories sets the table the industry category is looked up in.
func WithCategories(t *category.Table) Option {
	return func(c *Crawler) {
		c.categories = t
	}
}

// WithIdentityPool sets the identities rotated through on retries.
func WithIdentityPool(p identity.Pool) Option {
	return func(c *Crawler) {
		if len(p) > 0 {
			c.pool = p
		}
	}
}

// WithRetryLimit sets the number of attempts made for one fetch.
func WithRetryLimit(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.retryLimit = n
		}
	}
}

// WithRetryBackoff sets the backoff unit. Zero retries immediately.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Crawler) {
		if d >= 0 {
			c.retryBackoff = d
		}
	}
}

// WithWorkers sets how many reports of one page are analyzed concurrently.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithClock sets the clock used for Report.CollectedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Crawler that enriches accepted records with analyzer.
func New(analyzer Analyzer, opts ...Option) *Crawler {
	c := &Crawler{
		analyzer:     analyzer,
		brokerages:   DefaultBrokerages,
		pool:         identity.NewPool(nil),
		retryLimit:   DefaultRetryLimit,
		retryBackoff: DefaultRetryBackoff,
		workers:      DefaultWorkers,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the outcome of one crawl.
type Result struct {
	// Reports are the accepted reports in source page and record order.
	Reports []model.Report

	// Outcome is the terminal phase. Callers that only need the reports
	// can ignore it: every terminal phase returns what was accumulated.
	Outcome Phase

	// PagesFetched is the number of pages fetched successfully.
	PagesFetched int

	// Rejected counts skipped records by reason.
	Rejected map[string]int

	// State is the final loop state.
	State State
}

// Run crawls src until the last page, a report older than the lower bound,
// or retry exhaustion. It returns ErrNoReports when src has no page for the
// query. When ctx is canceled, the reports accumulated so far are returned
// together with ctx.Err().
func (c *Crawler) Run(ctx context.Context, src source.Source) (*Result, error) {
	ext := extract.New(c.brokerages, c.lowerBound)
	st := newState(c.pool.First())
	res := &Result{Rejected: make(map[string]int)}

	logger := c.logger.With("source", src.Name())

	lastPage, ok, err := c.resolveLastPage(ctx, src, &st)
	if err != nil {
		return c.finish(res, st), err
	}
	if !ok {
		logger.Warn("gave up resolving the last page", "attempts", st.Attempt)
		return c.finish(res, st), nil
	}
	if lastPage == 0 {
		return nil, ErrNoReports
	}
	st.resolve(lastPage)
	logger.Info("starting crawl", "last_page", st.LastPage, "lower_bound", c.lowerBound)

	for !st.Phase.Terminal() {
		if err := ctx.Err(); err != nil {
			return c.finish(res, st), err
		}

		page, err := src.FetchPage(ctx, st.Page, st.Identity)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return c.finish(res, st), ctxErr
			}
			if !st.fail(c.pool, c.retryLimit) {
				logger.Warn("retry limit reached, returning partial result",
					"page", st.Page, "attempts", st.Attempt, "error", err)
				break
			}
			logger.Debug("page fetch failed, retrying",
				"page", st.Page, "attempt", st.Attempt, "error", err)
			if err := c.sleep(ctx, st.Attempt); err != nil {
				return c.finish(res, st), err
			}
			continue
		}

		if page.LastPage != 0 && page.LastPage != st.LastPage {
			logger.Debug("source reports a different last page", "page", st.Page, "last_page", page.LastPage)
		}

		reports, exceeded, err := c.processPage(ctx, ext, &st, page, res.Rejected)
		res.Reports = append(res.Reports, reports...)
		st.Accepted = len(res.Reports)
		if err != nil {
			return c.finish(res, st), err
		}

		logger.Info("page processed", "page", st.Page, "last_page", st.LastPage,
			"records", len(page.Records), "accepted", len(reports))
		st.succeed(exceeded)
	}

	logger.Info("crawl finished", "outcome", st.Phase.String(),
		"pages", st.Fetched, "reports", st.Accepted)
	return c.finish(res, st), nil
}

func (c *Crawler) finish(res *Result, st State) *Result {
	res.Outcome = st.Phase
	res.PagesFetched = st.Fetched
	res.State = st
	return res
}

// resolveLastPage asks src for its last page with the retry policy of a
// page fetch. ok is false when the retry limit was reached.
func (c *Crawler) resolveLastPage(ctx context.Context, src source.Source, st *State) (int, bool, error) {
	for {
		n, err := src.LastPage(ctx, st.Identity)
		if err == nil {
			return n, true, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, false, ctxErr
		}
		if !st.fail(c.pool, c.retryLimit) {
			return 0, false, nil
		}
		c.logger.Debug("last page lookup failed, retrying", "attempt", st.Attempt, "error", err)
		if err := c.sleep(ctx, st.Attempt); err != nil {
			return 0, false, err
		}
	}
}

// sleep waits a linear backoff for the given attempt.
func (c *Crawler) sleep(ctx context.Context, attempt int) error {
	d := c.retryBackoff * time.Duration(attempt)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// processPage extracts the records of page in order, stopping at the first
// record older than the lower bound, and enriches the accepted candidates.
// The returned reports keep the record order.
func (c *Crawler) processPage(ctx context.Context, ext *extract.Extractor, st *State, page *source.Page, rejected map[string]int) ([]model.Report, bool, error) {
	var (
		candidates []model.Candidate
		exceeded   bool
	)
	for i, rec := range page.Records {
		if raw, ok := rec.Field(extract.FieldReportDate); ok {
			if date, ok := extract.NormalizeDate(raw); ok && st.observeDate(date) {
				c.logger.Warn("report dates are not in descending order",
					"page", page.Number, "record", i, "date", date, "oldest_seen", st.OldestDate)
			}
		}

		cand, reason := ext.Extract(rec)
		if reason == extract.RejectOutOfRange {
			c.logger.Debug("report predates the lower bound", "page", page.Number, "record", i)
			exceeded = true
			break
		}
		if reason != extract.RejectNone {
			rejected[reason.String()]++
			c.logger.Debug("record rejected", "page", page.Number, "record", i, "reason", reason.String())
			continue
		}
		candidates = append(candidates, cand)
	}

	slots := make([]*model.Report, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, cand := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = c.enrich(gctx, cand)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return collect(slots), exceeded, err
	}

	reports := collect(slots)
	if n := len(candidates) - len(reports); n > 0 {
		rejected["analysis"] += n
	}
	return reports, exceeded, nil
}

// enrich analyzes the document of cand and builds its report.
// It returns nil when the report cannot be completed.
func (c *Crawler) enrich(ctx context.Context, cand model.Candidate) *model.Report {
	res, err := c.analyzer.Analyze(ctx, cand.PDFLink)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("document analysis failed", "title", cand.Title, "pdf", cand.PDFLink, "error", err)
		}
		return nil
	}

	report, ok := cand.Complete(c.categories.Lookup(cand.CompanyCode), res.Enrichment(), c.now())
	if !ok {
		c.logger.Debug("no current price in document", "title", cand.Title, "pdf", cand.PDFLink)
		return nil
	}
	if err := report.Validate(); err != nil {
		c.logger.Debug("incomplete report", "title", cand.Title, "error", err)
		return nil
	}
	return &report
}

func collect(slots []*model.Report) []model.Report {
	out := make([]model.Report, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/reportscan/internal/analysis"
	"github.com/nao1215/reportscan/internal/category"
	"github.com/nao1215/reportscan/internal/extract"
	"github.com/nao1215/reportscan/internal/identity"
	"github.com/nao1215/reportscan/internal/source"
)

type mapRecord map[extract.Field]string

func (m mapRecord) Field(f extract.Field) (string, bool) {
	v, ok := m[f]
	return v, ok
}

func record(code, date, brokerage string) mapRecord {
	return mapRecord{
		extract.FieldTitle:       "삼성전자(" + code + ") 메모리 업황 회복",
		extract.FieldReportDate:  date,
		extract.FieldOpinion:     "매수",
		extract.FieldAuthor:      "홍길동",
		extract.FieldBrokerage:   brokerage,
		extract.FieldTargetPrice: "90,000",
		extract.FieldPDFLink:     "https://example.com/" + code + ".pdf",
	}
}

// fakeSource serves fixed pages. failures[n] failing fetches precede the
// first successful fetch of page n; a negative count fails forever.
type fakeSource struct {
	mu         sync.Mutex
	lastPage   int
	lastErrs   int
	pages      map[int][]extract.Record
	failures   map[int]int
	fetched    []int
	identities []identity.Identity
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) LastPage(_ context.Context, id identity.Identity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities = append(s.identities, id)
	if s.lastErrs != 0 {
		if s.lastErrs > 0 {
			s.lastErrs--
		}
		return 0, errors.New("connection reset")
	}
	return s.lastPage, nil
}

func (s *fakeSource) FetchPage(_ context.Context, page int, id identity.Identity) (*source.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = append(s.fetched, page)
	s.identities = append(s.identities, id)
	if n := s.failures[page]; n != 0 {
		if n > 0 {
			s.failures[page] = n - 1
		}
		return nil, fmt.Errorf("page %d: status 503", page)
	}
	return &source.Page{Number: page, LastPage: s.lastPage, Records: s.pages[page]}, nil
}

func (s *fakeSource) fetchedPages() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.fetched...)
}

// fakeAnalyzer finds a price in every document except those listed in
// noEstimate, and fails for those listed in broken.
type fakeAnalyzer struct {
	mu         sync.Mutex
	calls      int
	noEstimate map[string]bool
	broken     map[string]bool
	delay      time.Duration
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, docRef string) (analysis.Result, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.delay > 0 {
		select {
		case <-ctx.Done():
			return analysis.Result{}, ctx.Err()
		case <-time.After(a.delay):
		}
	}
	if a.broken[docRef] {
		return analysis.Result{}, analysis.ErrMalformedDocument
	}
	res := analysis.Result{Summary: "실적 개선이 기대된다.", DocumentHash: "abc"}
	if a.noEstimate[docRef] {
		return res, nil
	}
	price, date := 78000, "2024-05-09"
	res.CurrentEst = &price
	res.CurrentEstDate = &date
	return res, nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestCrawler(a Analyzer, opts ...Option) *Crawler {
	base := []Option{
		WithBrokerages([]string{"키움증권", "대신증권"}),
		WithRetryBackoff(0),
		WithLogger(discard),
	}
	return New(a, append(base, opts...)...)
}

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("collects every page in source order", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{
			lastPage: 2,
			pages: map[int][]extract.Record{
				1: {record("005930", "2024-05-10", "키움증권"), record("000660", "2024-05-10", "대신 증권")},
				2: {record("035420", "2024-05-09", "키움증권")},
			},
		}
		table := category.NewTable(map[string]string{"005930": "전기전자"})
		c := newTestCrawler(&fakeAnalyzer{}, WithCategories(table), WithLowerBound("2024-05-01"))

		res, err := c.Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Outcome != PhaseDone {
			t.Errorf("got outcome %s, expected done", res.Outcome)
		}
		var codes []string
		for _, r := range res.Reports {
			codes = append(codes, r.CompanyCode)
		}
		if fmt.Sprint(codes) != "[005930 000660 035420]" {
			t.Errorf("got codes %v", codes)
		}
		if res.Reports[0].Category != "전기전자" || res.Reports[1].Category != "" {
			t.Errorf("got categories %q and %q", res.Reports[0].Category, res.Reports[1].Category)
		}
		if res.Reports[0].Opinion != "BUY" {
			t.Errorf("got opinion %q", res.Reports[0].Opinion)
		}
		if res.PagesFetched != 2 || res.State.Accepted != 3 {
			t.Errorf("got %d pages and %d accepted", res.PagesFetched, res.State.Accepted)
		}
	})

	t.Run("accepted reports carry a code and non-negative prices", func(t *testing.T) {
		t.Parallel()
		rec := record("005930", "2024-05-10", "키움증권")
		rec[extract.FieldTargetPrice] = "N/A"
		src := &fakeSource{lastPage: 1, pages: map[int][]extract.Record{1: {rec}}}

		res, err := newTestCrawler(&fakeAnalyzer{}).Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Reports) != 1 {
			t.Fatalf("got %d reports, expected 1", len(res.Reports))
		}
		for _, r := range res.Reports {
			if !sixDigits.MatchString(r.CompanyCode) || r.TargetEst < 0 || r.CurrentEst < 0 {
				t.Errorf("invalid report %+v", r)
			}
		}
	})

	t.Run("skips reports of other brokerages", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{lastPage: 1, pages: map[int][]extract.Record{1: {
			record("005930", "2024-05-10", "미래에셋증권"),
			record("000660", "2024-05-10", "키움증권"),
		}}}

		res, err := newTestCrawler(&fakeAnalyzer{}).Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Reports) != 1 || res.Reports[0].CompanyCode != "000660" {
			t.Errorf("got %+v", res.Reports)
		}
		if res.Rejected["brokerage"] != 1 {
			t.Errorf("got rejections %v", res.Rejected)
		}
	})

	t.Run("stops at a report older than the lower bound", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{
			lastPage: 3,
			pages: map[int][]extract.Record{
				1: {record("005930", "2022-01-02", "키움증권")},
				2: {record("000660", "2022-01-01", "키움증권"), record("035420", "2021-12-31", "키움증권"), record("051910", "2022-01-01", "키움증권")},
				3: {record("068270", "2021-12-30", "키움증권")},
			},
		}
		c := newTestCrawler(&fakeAnalyzer{}, WithLowerBound("2022-01-01"))

		res, err := c.Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Outcome != PhaseAbortedRange || !res.State.ExceedRange {
			t.Errorf("got outcome %s, exceed %v", res.Outcome, res.State.ExceedRange)
		}
		if got := src.fetchedPages(); fmt.Sprint(got) != "[1 2]" {
			t.Errorf("fetched pages %v, expected [1 2]", got)
		}
		if len(res.Reports) != 2 {
			t.Errorf("got %d reports, expected 2", len(res.Reports))
		}
	})

	t.Run("foreign brokerages still end the range", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{
			lastPage: 2,
			pages: map[int][]extract.Record{
				1: {record("005930", "2021-12-31", "미래에셋증권")},
				2: {record("000660", "2021-12-30", "키움증권")},
			},
		}
		res, err := newTestCrawler(&fakeAnalyzer{}, WithLowerBound("2022-01-01")).Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Outcome != PhaseAbortedRange || len(src.fetchedPages()) != 1 {
			t.Errorf("got outcome %s after pages %v", res.Outcome, src.fetchedPages())
		}
	})

	t.Run("returns the partial result when a page keeps failing", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{
			lastPage: 3,
			pages: map[int][]extract.Record{
				1: {record("005930", "2024-05-10", "키움증권")},
				3: {record("000660", "2024-05-08", "키움증권")},
			},
			failures: map[int]int{2: -1},
		}

		res, err := newTestCrawler(&fakeAnalyzer{}).Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Outcome != PhaseExhausted {
			t.Errorf("got outcome %s, expected retry_exhausted", res.Outcome)
		}
		if len(res.Reports) != 1 || res.Reports[0].CompanyCode != "005930" {
			t.Errorf("got %+v", res.Reports)
		}
		pages := src.fetchedPages()
		if len(pages) != 1+DefaultRetryLimit {
			t.Errorf("got %d fetches, expected %d", len(pages), 1+DefaultRetryLimit)
		}
		for _, p := range pages {
			if p == 3 {
				t.Error("fetched a page after the failing one")
			}
		}
	})

	t.Run("rotates the identity between retries", func(t *testing.T) {
		t.Parallel()
		pool := identity.NewPool([]string{"ua-1", "ua-2", "ua-3"})
		src := &fakeSource{
			lastPage: 1,
			pages:    map[int][]extract.Record{1: {record("005930", "2024-05-10", "키움증권")}},
			failures: map[int]int{1: 3},
		}

		res, err := newTestCrawler(&fakeAnalyzer{}, WithIdentityPool(pool)).Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Reports) != 1 {
			t.Errorf("got %d reports, expected 1", len(res.Reports))
		}
		// LastPage, then four fetches of page 1.
		var got []string
		for _, id := range src.identities {
			got = append(got, id.UserAgent)
		}
		if fmt.Sprint(got) != "[ua-1 ua-1 ua-2 ua-3 ua-1]" {
			t.Errorf("got identities %v", got)
		}
	})

	t.Run("fails fast when the source has no page", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{lastPage: 0}
		_, err := newTestCrawler(&fakeAnalyzer{}).Run(context.Background(), src)
		if !errors.Is(err, ErrNoReports) {
			t.Errorf("got %v, expected ErrNoReports", err)
		}
		if len(src.fetchedPages()) != 0 {
			t.Error("fetched a page of an empty source")
		}
	})

	t.Run("retries the last page lookup", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{
			lastPage: 1,
			lastErrs: 2,
			pages:    map[int][]extract.Record{1: {record("005930", "2024-05-10", "키움증권")}},
		}
		res, err := newTestCrawler(&fakeAnalyzer{}).Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Reports) != 1 {
			t.Errorf("got %d reports, expected 1", len(res.Reports))
		}
	})

	t.Run("gives up when the last page cannot be resolved", func(t *testing.T) {
		t.Parallel()
		src := &fakeSource{lastPage: 1, lastErrs: -1}
		res, err := newTestCrawler(&fakeAnalyzer{}, WithRetryLimit(3)).Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Outcome != PhaseExhausted || len(res.Reports) != 0 {
			t.Errorf("got outcome %s with %d reports", res.Outcome, len(res.Reports))
		}
	})

	t.Run("skips documents without a price or failing analysis", func(t *testing.T) {
		t.Parallel()
		a := &fakeAnalyzer{
			noEstimate: map[string]bool{"https://example.com/005930.pdf": true},
			broken:     map[string]bool{"https://example.com/000660.pdf": true},
		}
		src := &fakeSource{lastPage: 1, pages: map[int][]extract.Record{1: {
			record("005930", "2024-05-10", "키움증권"),
			record("000660", "2024-05-10", "키움증권"),
			record("035420", "2024-05-10", "키움증권"),
		}}}

		res, err := newTestCrawler(a).Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Reports) != 1 || res.Reports[0].CompanyCode != "035420" {
			t.Errorf("got %+v", res.Reports)
		}
		if res.Rejected["analysis"] != 2 {
			t.Errorf("got rejections %v", res.Rejected)
		}
	})

	t.Run("keeps record order with several workers", func(t *testing.T) {
		t.Parallel()
		var recs []extract.Record
		var want []string
		for i := range 8 {
			code := fmt.Sprintf("%06d", i+1)
			recs = append(recs, record(code, "2024-05-10", "키움증권"))
			want = append(want, code)
		}
		src := &fakeSource{lastPage: 1, pages: map[int][]extract.Record{1: recs}}
		a := &fakeAnalyzer{delay: time.Millisecond}

		res, err := newTestCrawler(a, WithWorkers(4)).Run(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got []string
		for _, r := range res.Reports {
			got = append(got, r.CompanyCode)
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("got %v, expected %v", got, want)
		}
	})

	t.Run("returns accumulated reports on cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		src := &fakeSource{lastPage: 1, pages: map[int][]extract.Record{1: {record("005930", "2024-05-10", "키움증권")}}}

		res, err := newTestCrawler(&fakeAnalyzer{}).Run(ctx, src)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, expected context.Canceled", err)
		}
		if res == nil || len(res.Reports) != 0 {
			t.Errorf("got %+v", res)
		}
	})
}

func TestState(t *testing.T) {
	t.Parallel()

	t.Run("page number only increases", func(t *testing.T) {
		t.Parallel()
		st := newState(identity.Identity{})
		st.resolve(3)
		prev := st.Page
		for !st.Phase.Terminal() {
			st.succeed(false)
			if st.Page < prev {
				t.Fatalf("page went from %d to %d", prev, st.Page)
			}
			prev = st.Page
		}
		if st.Phase != PhaseDone || st.Fetched != 3 {
			t.Errorf("got phase %s after %d pages", st.Phase, st.Fetched)
		}
	})

	t.Run("range exceedance is sticky", func(t *testing.T) {
		t.Parallel()
		st := newState(identity.Identity{})
		st.resolve(5)
		st.succeed(true)
		st.succeed(false)
		if !st.ExceedRange || st.Phase != PhaseAbortedRange || st.Page != 1 {
			t.Errorf("got %+v", st)
		}
	})

	t.Run("a resolved empty crawl is done", func(t *testing.T) {
		t.Parallel()
		st := newState(identity.Identity{})
		st.resolve(0)
		if st.Phase != PhaseDone {
			t.Errorf("got phase %s", st.Phase)
		}
	})

	t.Run("a success resets the attempt count", func(t *testing.T) {
		t.Parallel()
		st := newState(identity.Identity{})
		st.resolve(2)
		st.fail(nil, 10)
		st.fail(nil, 10)
		st.succeed(false)
		if st.Attempt != 0 || st.Phase != PhaseFetching {
			t.Errorf("got %+v", st)
		}
	})

	t.Run("detects dates out of descending order", func(t *testing.T) {
		t.Parallel()
		st := newState(identity.Identity{})
		if st.observeDate("2024-05-10") || st.observeDate("2024-05-09") || st.observeDate("2024-05-09") {
			t.Error("descending dates flagged")
		}
		if !st.observeDate("2024-05-10") {
			t.Error("later date not flagged")
		}
	})
}

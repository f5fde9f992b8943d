// Package analysis enriches a report with values read from its document.
//
// For one document link the Analyzer downloads the PDF, extracts the text
// of its first pages and derives:
//   - the current price and its reference date (package estimate)
//   - the analyst opinion sentences and their summary (package summary)
//   - the most frequent keywords (package keywords)
//   - a SHA3-256 hash identifying the document
//
// A document without a recognizable price line is not an error: the
// estimate fields of the Result are nil and the caller decides what to do.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/reportscan/internal/estimate"
	"github.com/nao1215/reportscan/internal/httpclient"
	"github.com/nao1215/reportscan/internal/identity"
	"github.com/nao1215/reportscan/internal/keywords"
	"github.com/nao1215/reportscan/internal/model"
	"github.com/nao1215/reportscan/internal/summary"
)

var (
	// ErrMalformedDocument is returned when the document cannot be parsed.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrNoText is returned when the document carries no extractable text.
	ErrNoText = errors.New("document has no text")
)

// Result holds everything read from one document.
type Result struct {
	// CurrentEst is nil when no price line was found.
	CurrentEst *int

	// CurrentEstDate is nil exactly when CurrentEst is nil.
	CurrentEstDate *string

	// Summary is empty when CurrentEst is nil or no opinion was found.
	Summary string

	// Opinion is the selected analyst opinion text the summary is based on.
	Opinion string

	Keywords     []string
	DocumentHash string
}

// HasEstimate reports whether a current price was found.
func (r Result) HasEstimate() bool {
	return r.CurrentEst != nil && r.CurrentEstDate != nil
}

// Enrichment converts r into the model form.
func (r Result) Enrichment() model.Enrichment {
	return model.Enrichment{
		CurrentEst:     r.CurrentEst,
		CurrentEstDate: r.CurrentEstDate,
		Summary:        r.Summary,
		Keywords:       r.Keywords,
		DocumentHash:   r.DocumentHash,
	}
}

// Fetcher downloads documents. *httpclient.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, query url.Values, id identity.Identity) (*httpclient.Response, error)
}

// Analyzer analyzes report documents. It is safe for concurrent use as
// long as its Fetcher, TextExtractor and Summarizer are.
type Analyzer struct {
	fetcher      Fetcher
	extractor    TextExtractor
	summarizer   summary.Summarizer
	identity     identity.Identity
	maxRunes     int
	keywordLimit int
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTextExtractor replaces the PDF text extractor.
func WithTextExtractor(e TextExtractor) Option {
	return func(a *Analyzer) {
		if e != nil {
			a.extractor = e
		}
	}
}

// WithIdentity sets the identity used for document downloads.
func WithIdentity(id identity.Identity) Option {
	return func(a *Analyzer) {
		a.identity = id
	}
}

// WithMaxRunes sets how much of the body is analyzed.
func WithMaxRunes(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxRunes = n
		}
	}
}

// WithKeywordLimit sets the number of keywords kept.
func WithKeywordLimit(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.keywordLimit = n
		}
	}
}

// WithClock sets the clock that completes year-less dates.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Analyzer downloading with fetcher and summarizing with s.
func New(fetcher Fetcher, s summary.Summarizer, opts ...Option) *Analyzer {
	a := &Analyzer{
		fetcher:      fetcher,
		extractor:    PDFText{},
		summarizer:   s,
		identity:     identity.NewPool(nil).First(),
		maxRunes:     DefaultMaxRunes,
		keywordLimit: keywords.DefaultLimit,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze downloads and analyzes the document at docRef.
// Summarization is skipped for documents without a price estimate, since
// such reports are rejected anyway.
func (a *Analyzer) Analyze(ctx context.Context, docRef string) (Result, error) {
	resp, err := a.fetcher.Get(ctx, docRef, nil, a.identity)
	if err != nil {
		return Result{}, fmt.Errorf("failed to download document: %w", err)
	}

	res := Result{DocumentHash: DocumentHash(resp.Body)}

	raw, err := a.extractor.ExtractText(resp.Body, a.maxRunes)
	if err != nil {
		return Result{}, fmt.Errorf("failed to extract text: %w", err)
	}
	text := PrepareText(raw, a.maxRunes)
	res.Keywords = keywords.Extract(text, a.keywordLimit)

	est, err := estimate.Parse(text, a.now())
	if err != nil {
		a.logger.Debug("no current price in document", "document", docRef, "error", err)
		return res, nil
	}
	res.CurrentEst = &est.Price
	res.CurrentEstDate = &est.Date

	res.Opinion = OpinionText(text)
	if res.Opinion == "" {
		a.logger.Debug("no opinion sentences in document", "document", docRef)
		return res, nil
	}

	sum, err := a.summarizer.Summarize(ctx, res.Opinion)
	if err != nil {
		return Result{}, fmt.Errorf("failed to summarize: %w", err)
	}
	res.Summary = sum

	return res, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/reportscan/internal/analysis"
	"github.com/nao1215/reportscan/internal/category"
	"github.com/nao1215/reportscan/internal/config"
	"github.com/nao1215/reportscan/internal/crawler"
	"github.com/nao1215/reportscan/internal/database"
	"github.com/nao1215/reportscan/internal/httpclient"
	"github.com/nao1215/reportscan/internal/identity"
	"github.com/nao1215/reportscan/internal/model"
	"github.com/nao1215/reportscan/internal/source"
	"github.com/nao1215/reportscan/internal/summary"
)

// outcomeCanceled is stored for runs interrupted by a signal.
const outcomeCanceled = "canceled"

// crawlEnv holds what crawls share: the HTTP client, the analyzer, the
// category table and the store. watch reuses one crawlEnv for every run.
type crawlEnv struct {
	cfg        *config.Config
	client     *httpclient.Client
	analyzer   *analysis.Analyzer
	categories *category.Table
	pool       identity.Pool
	store      database.Store
	logger     *slog.Logger
	now        func() time.Time
}

// newCrawlEnv builds the components configured by cfg.
func newCrawlEnv(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*crawlEnv, error) {
	clientOpts := []httpclient.Option{
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithMaxBodySize(cfg.MaxBodySize),
	}
	if cfg.ProxyAddress != "" {
		clientOpts = append(clientOpts, httpclient.WithProxy(cfg.ProxyAddress))
	}
	client, err := httpclient.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	summarizer, err := summary.New(ctx, summary.Config{
		Name:      cfg.Summarizer,
		Model:     cfg.SummarizerModel,
		APIKey:    cfg.APIKey(),
		MaxTokens: cfg.SummarizerMaxTokens,
		BaseURL:   cfg.SummarizerBaseURL,
		Fallback:  cfg.SummarizerFallback,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create summarizer: %w", err)
	}

	env := &crawlEnv{
		cfg:    cfg,
		client: client,
		pool:   identity.NewPool(cfg.UserAgents),
		logger: logger,
		now:    time.Now,
	}
	env.analyzer = analysis.New(client, summarizer,
		analysis.WithIdentity(env.pool.First()),
		analysis.WithLogger(logger),
	)

	if cfg.CategoryFile != "" {
		env.categories, err = category.Load(cfg.CategoryFile)
		if err != nil {
			return nil, err
		}
		logger.Debug("category table loaded", "path", cfg.CategoryFile, "companies", env.categories.Len())
	}

	if cfg.SaveToDB {
		env.store, err = openStore(ctx, cfg, database.DefaultOptions(), logger)
		if err != nil {
			return nil, err
		}
	}

	return env, nil
}

// openStore opens PostgreSQL when a DSN is configured and the SQLite
// database with opts otherwise.
func openStore(ctx context.Context, cfg *config.Config, opts database.Options, logger *slog.Logger) (database.Store, error) {
	if cfg.DatabaseURL != "" {
		store, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug("database opened", "database_url", cfg.DatabaseURL)
		return store, nil
	}

	store, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", store.Path())
	return store, nil
}

// Close releases the store.
func (e *crawlEnv) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// crawl runs one crawl of [from, to] and stores it. The summary is nil
// only when nothing could be crawled; an interrupted crawl returns its
// partial summary together with the context error.
func (e *crawlEnv) crawl(ctx context.Context, from, to string) (*model.CrawlSummary, error) {
	cfg := e.cfg
	logger := e.logger.With("from", from, "to", to)

	src, err := source.New(cfg.Source, e.client,
		source.Query{From: from, To: to, PageSize: cfg.PageSize},
		source.WithBaseURL(cfg.BaseURL()),
		source.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	c := crawler.New(e.analyzer,
		crawler.WithBrokerages(cfg.Brokerages),
		crawler.WithLowerBound(from),
		crawler.WithCategories(e.categories),
		crawler.WithIdentityPool(e.pool),
		crawler.WithRetryLimit(cfg.RetryLimit),
		crawler.WithRetryBackoff(cfg.RetryBackoff),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithClock(e.now),
		crawler.WithLogger(logger),
	)

	run := database.NewRun(cfg.Source, from, to, e.now())
	res, err := c.Run(ctx, src)
	if errors.Is(err, crawler.ErrNoReports) {
		return nil, fmt.Errorf("no reports published between %s and %s: %w", from, to, err)
	}
	if res == nil {
		return nil, err
	}

	outcome := res.Outcome.String()
	if err != nil && ctx.Err() != nil {
		outcome = outcomeCanceled
	}
	run.Finish(outcome, res.PagesFetched, len(res.Reports), e.now())

	if len(res.Rejected) > 0 {
		logger.Info("records skipped", "reasons", res.Rejected)
	}

	s := model.NewCrawlSummary(cfg.Source, from, to, res.Reports)
	s.Outcome = outcome
	s.PagesFetched = res.PagesFetched
	s.StartedAt = run.StartedAt
	s.FinishedAt = run.FinishedAt

	if e.store != nil {
		// The run is stored even when the crawl was interrupted.
		if saveErr := e.store.SaveRun(context.WithoutCancel(ctx), run, res.Reports); saveErr != nil {
			return s, errors.Join(err, fmt.Errorf("failed to save run: %w", saveErr))
		}
		s.RunID = run.ID
		logger.Info("run saved", "run_id", run.ID, "reports", run.ReportCount)
	}

	return s, err
}

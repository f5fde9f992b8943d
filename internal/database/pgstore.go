package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nao1215/reportscan/internal/model"
)

// PGStore is the PostgreSQL Store.
type PGStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

// OpenPostgres connects to dsn and creates the schema when missing.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrMissingDSN
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.createTables(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		from_date DATE NOT NULL,
		to_date DATE NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		outcome TEXT,
		pages_fetched INTEGER DEFAULT 0,
		report_count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS reports (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		company_name TEXT NOT NULL,
		company_code CHAR(6) NOT NULL,
		category TEXT,
		report_date DATE NOT NULL,
		opinion TEXT NOT NULL,
		author TEXT NOT NULL,
		brokerage TEXT NOT NULL,
		target_est BIGINT NOT NULL,
		current_est BIGINT NOT NULL,
		current_est_date DATE NOT NULL,
		summary TEXT NOT NULL,
		pdf_link TEXT NOT NULL,
		keywords TEXT[],
		document_hash TEXT,
		collected_at TIMESTAMPTZ,
		UNIQUE(run_id, pdf_link)
	);

	CREATE INDEX IF NOT EXISTS idx_reports_code ON reports(company_code);
	CREATE INDEX IF NOT EXISTS idx_reports_date ON reports(report_date);
	CREATE INDEX IF NOT EXISTS idx_reports_hash ON reports(document_hash);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SaveRun implements Store. Reports are sent as one batch.
func (s *PGStore) SaveRun(ctx context.Context, run *Run, reports []model.Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
	INSERT INTO runs (id, source, from_date, to_date, started_at, finished_at, outcome, pages_fetched, report_count)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		finished_at = EXCLUDED.finished_at,
		outcome = EXCLUDED.outcome,
		pages_fetched = EXCLUDED.pages_fetched,
		report_count = EXCLUDED.report_count
	`,
		run.ID, run.Source, pgDate(run.From), pgDate(run.To), run.StartedAt, nullTime(run.FinishedAt),
		run.Outcome, run.PagesFetched, run.ReportCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	batch := &pgx.Batch{}
	for i, rep := range reports {
		batch.Queue(`
		INSERT INTO reports (run_id, position, title, company_name, company_code, category, report_date,
			opinion, author, brokerage, target_est, current_est, current_est_date, summary, pdf_link,
			keywords, document_hash, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (run_id, pdf_link) DO UPDATE SET
			position = EXCLUDED.position,
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			opinion = EXCLUDED.opinion,
			target_est = EXCLUDED.target_est,
			current_est = EXCLUDED.current_est,
			current_est_date = EXCLUDED.current_est_date,
			summary = EXCLUDED.summary,
			keywords = EXCLUDED.keywords,
			document_hash = EXCLUDED.document_hash,
			collected_at = EXCLUDED.collected_at
		`,
			run.ID, i, rep.Title, rep.CompanyName, rep.CompanyCode, rep.Category, pgDate(rep.ReportDate),
			rep.Opinion, rep.Author, rep.Brokerage, rep.TargetEst, rep.CurrentEst, pgDate(rep.CurrentEstDate),
			rep.Summary, rep.PDFLink, rep.Keywords, rep.DocumentHash, nullTime(rep.CollectedAt),
		)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save reports: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const pgRunColumns = `id, source, from_date::text, to_date::text, started_at, finished_at,
	COALESCE(outcome, ''), pages_fetched, report_count`

// GetRun implements Store.
func (s *PGStore) GetRun(ctx context.Context, id string) (*Run, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgRunColumns+` FROM runs WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run, err := pgx.CollectOneRow(rows, pgRowToRun)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns implements Store.
func (s *PGStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + pgRunColumns + ` FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, pgRowToRun)
	if err != nil {
		return nil, fmt.Errorf("failed to scan runs: %w", err)
	}
	return runs, nil
}

const pgReportColumns = `title, company_name, company_code, COALESCE(category, ''), report_date::text,
	opinion, author, brokerage, target_est, current_est, current_est_date::text, summary, pdf_link,
	COALESCE(keywords, '{}'), COALESCE(document_hash, ''), collected_at`

// ReportsByRun implements Store.
func (s *PGStore) ReportsByRun(ctx context.Context, runID string) ([]model.Report, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.queryReports(ctx,
		`SELECT `+pgReportColumns+` FROM reports WHERE run_id = $1 ORDER BY position`, runID)
}

// FindReports implements Store. Reports are ordered newest first.
func (s *PGStore) FindReports(ctx context.Context, f ReportFilter) ([]model.Report, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.CompanyCode != "" {
		add("company_code = $%d", f.CompanyCode)
	}
	if f.Brokerage != "" {
		add("brokerage = $%d", f.Brokerage)
	}
	if f.From != "" {
		add("report_date >= $%d", pgDate(f.From))
	}
	if f.To != "" {
		add("report_date <= $%d", pgDate(f.To))
	}
	if f.DocumentHash != "" {
		add("document_hash = $%d", f.DocumentHash)
	}

	query := `SELECT ` + pgReportColumns + ` FROM reports`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY report_date DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return s.queryReports(ctx, query, args...)
}

func (s *PGStore) queryReports(ctx context.Context, query string, args ...any) ([]model.Report, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	reports, err := pgx.CollectRows(rows, pgRowToReport)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reports: %w", err)
	}
	return reports, nil
}

func pgRowToRun(row pgx.CollectableRow) (Run, error) {
	var (
		run        Run
		finishedAt *time.Time
	)
	err := row.Scan(&run.ID, &run.Source, &run.From, &run.To, &run.StartedAt, &finishedAt,
		&run.Outcome, &run.PagesFetched, &run.ReportCount)
	if finishedAt != nil {
		run.FinishedAt = *finishedAt
	}
	return run, err
}

func pgRowToReport(row pgx.CollectableRow) (model.Report, error) {
	var (
		rep         model.Report
		collectedAt *time.Time
	)
	err := row.Scan(
		&rep.Title, &rep.CompanyName, &rep.CompanyCode, &rep.Category, &rep.ReportDate,
		&rep.Opinion, &rep.Author, &rep.Brokerage, &rep.TargetEst, &rep.CurrentEst,
		&rep.CurrentEstDate, &rep.Summary, &rep.PDFLink, &rep.Keywords, &rep.DocumentHash, &collectedAt,
	)
	if collectedAt != nil {
		rep.CollectedAt = *collectedAt
	}
	if len(rep.Keywords) == 0 {
		rep.Keywords = nil
	}
	return rep, err
}

// pgDate converts a YYYY-MM-DD string for a DATE parameter.
func pgDate(s string) any {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return t
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

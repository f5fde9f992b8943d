package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/reportscan/internal/model"
)

// FileName is the name of the SQLite file inside the database directory.
const FileName = "reportscan.db"

// ReportDB is the SQLite Store.
type ReportDB struct {
	db     *sql.DB
	dbPath string
}

var _ Store = (*ReportDB)(nil)

// Options configures ReportDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and the file when missing.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the ReportDB in dbDir.
func Open(dbDir string, opts Options) (*ReportDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		mode = "rw"
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ReportDB{db: db, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := rdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (r *ReportDB) Path() string {
	return r.dbPath
}

// Close closes the database connection.
func (r *ReportDB) Close() error {
	return r.db.Close()
}

func (r *ReportDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		outcome TEXT,
		pages_fetched INTEGER DEFAULT 0,
		report_count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		company_name TEXT NOT NULL,
		company_code TEXT NOT NULL,
		category TEXT,
		report_date TEXT NOT NULL,
		opinion TEXT NOT NULL,
		author TEXT NOT NULL,
		brokerage TEXT NOT NULL,
		target_est INTEGER NOT NULL,
		current_est INTEGER NOT NULL,
		current_est_date TEXT NOT NULL,
		summary TEXT NOT NULL,
		pdf_link TEXT NOT NULL,
		keywords TEXT,
		document_hash TEXT,
		collected_at TEXT,
		UNIQUE(run_id, pdf_link)
	);

	CREATE INDEX IF NOT EXISTS idx_reports_code ON reports(company_code);
	CREATE INDEX IF NOT EXISTS idx_reports_date ON reports(report_date);
	CREATE INDEX IF NOT EXISTS idx_reports_hash ON reports(document_hash);
	`

	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// SaveRun implements Store.
func (r *ReportDB) SaveRun(ctx context.Context, run *Run, reports []model.Report) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, source, from_date, to_date, started_at, finished_at, outcome, pages_fetched, report_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished_at = excluded.finished_at,
		outcome = excluded.outcome,
		pages_fetched = excluded.pages_fetched,
		report_count = excluded.report_count
	`,
		run.ID, run.Source, run.From, run.To,
		formatTimestamp(run.StartedAt), formatTimestamp(run.FinishedAt),
		run.Outcome, run.PagesFetched, run.ReportCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO reports (run_id, position, title, company_name, company_code, category, report_date,
		opinion, author, brokerage, target_est, current_est, current_est_date, summary, pdf_link,
		keywords, document_hash, collected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, pdf_link) DO UPDATE SET
		position = excluded.position,
		title = excluded.title,
		category = excluded.category,
		opinion = excluded.opinion,
		target_est = excluded.target_est,
		current_est = excluded.current_est,
		current_est_date = excluded.current_est_date,
		summary = excluded.summary,
		keywords = excluded.keywords,
		document_hash = excluded.document_hash,
		collected_at = excluded.collected_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare report insert: %w", err)
	}
	defer stmt.Close()

	for i, rep := range reports {
		keywords, err := json.Marshal(rep.Keywords)
		if err != nil {
			return fmt.Errorf("failed to serialize keywords: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			run.ID, i, rep.Title, rep.CompanyName, rep.CompanyCode, rep.Category, rep.ReportDate,
			rep.Opinion, rep.Author, rep.Brokerage, rep.TargetEst, rep.CurrentEst, rep.CurrentEstDate,
			rep.Summary, rep.PDFLink, string(keywords), rep.DocumentHash, formatTimestamp(rep.CollectedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save report %q: %w", rep.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, source, from_date, to_date, started_at, finished_at, outcome, pages_fetched, report_count`

// GetRun implements Store.
func (r *ReportDB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns implements Store.
func (r *ReportDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

const reportColumns = `title, company_name, company_code, category, report_date, opinion, author, brokerage,
	target_est, current_est, current_est_date, summary, pdf_link, keywords, document_hash, collected_at`

// ReportsByRun implements Store.
func (r *ReportDB) ReportsByRun(ctx context.Context, runID string) ([]model.Report, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return r.queryReports(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE run_id = ? ORDER BY position`, runID)
}

// FindReports implements Store. Reports are ordered newest first.
func (r *ReportDB) FindReports(ctx context.Context, f ReportFilter) ([]model.Report, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v string) {
		if v != "" {
			conds = append(conds, cond)
			args = append(args, v)
		}
	}
	add("company_code = ?", f.CompanyCode)
	add("brokerage = ?", f.Brokerage)
	add("report_date >= ?", f.From)
	add("report_date <= ?", f.To)
	add("document_hash = ?", f.DocumentHash)

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY report_date DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return r.queryReports(ctx, query, args...)
}

func (r *ReportDB) queryReports(ctx context.Context, query string, args ...any) ([]model.Report, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var (
			rep         model.Report
			category    sql.NullString
			keywords    sql.NullString
			hash        sql.NullString
			collectedAt sql.NullString
		)
		err := rows.Scan(
			&rep.Title, &rep.CompanyName, &rep.CompanyCode, &category, &rep.ReportDate,
			&rep.Opinion, &rep.Author, &rep.Brokerage, &rep.TargetEst, &rep.CurrentEst,
			&rep.CurrentEstDate, &rep.Summary, &rep.PDFLink, &keywords, &hash, &collectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		rep.Category = category.String
		rep.DocumentHash = hash.String
		rep.CollectedAt = parseTimestamp(collectedAt.String)
		if keywords.Valid && keywords.String != "" && keywords.String != "null" {
			if err := json.Unmarshal([]byte(keywords.String), &rep.Keywords); err != nil {
				return nil, fmt.Errorf("failed to parse keywords: %w", err)
			}
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
		outcome    sql.NullString
	)
	err := s.Scan(&run.ID, &run.Source, &run.From, &run.To, &startedAt, &finishedAt,
		&outcome, &run.PagesFetched, &run.ReportCount)
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt.String)
	run.Outcome = outcome.String
	return &run, nil
}

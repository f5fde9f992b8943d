package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nao1215/reportscan/internal/model"
)

// testDSNEnv names a PostgreSQL database the store tests may write to.
const testDSNEnv = "REPORTSCAN_TEST_DATABASE_URL"

func TestOpenPostgres(t *testing.T) {
	t.Parallel()

	t.Run("rejects an empty connection string", func(t *testing.T) {
		t.Parallel()
		if _, err := OpenPostgres(context.Background(), " "); !errors.Is(err, ErrMissingDSN) {
			t.Errorf("got %v, expected ErrMissingDSN", err)
		}
	})

	t.Run("rejects a malformed connection string", func(t *testing.T) {
		t.Parallel()
		if _, err := OpenPostgres(context.Background(), "postgres://%zz"); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestPGStore(t *testing.T) {
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", testDSNEnv)
	}

	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	run := NewRun("hankyung", "2024-05-01", "2024-05-10", time.Now())
	reports := []model.Report{
		testReport("005930", "2024-05-10", "https://example.com/pg-1.pdf"),
		testReport("000660", "2024-05-09", "https://example.com/pg-2.pdf"),
	}
	run.Finish("done", 1, len(reports), time.Now())
	if err := s.SaveRun(ctx, run, reports); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	got, err := s.ReportsByRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to load reports: %v", err)
	}
	if len(got) != 2 || got[0].CompanyCode != "005930" || got[1].ReportDate != "2024-05-09" {
		t.Errorf("got %+v", got)
	}

	stored, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to load run: %v", err)
	}
	if stored.From != "2024-05-01" || stored.Outcome != "done" {
		t.Errorf("got run %+v", stored)
	}

	found, err := s.FindReports(ctx, ReportFilter{DocumentHash: "hash-000660", From: "2024-05-01"})
	if err != nil {
		t.Fatalf("failed to find reports: %v", err)
	}
	if len(found) == 0 {
		t.Error("expected the saved report to be found")
	}

	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("got %v, expected ErrRunNotFound", err)
	}
}

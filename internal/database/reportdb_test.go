package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/reportscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *ReportDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testReport(code, date, link string) model.Report {
	return model.Report{
		Title:          "삼성전자(" + code + ") 메모리 업황 회복",
		CompanyName:    "삼성전자",
		CompanyCode:    code,
		Category:       "전기전자",
		ReportDate:     date,
		Opinion:        "BUY",
		Author:         "홍길동",
		Brokerage:      "키움증권",
		TargetEst:      90000,
		CurrentEst:     78000,
		CurrentEstDate: date,
		Summary:        "실적 개선이 기대된다.",
		PDFLink:        link,
		Keywords:       []string{"메모리", "반도체"},
		DocumentHash:   "hash-" + code,
		CollectedAt:    time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("got path %q", db.Path())
		}
	})

	t.Run("returns error when database does not exist and creation is off", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Fatalf("got %v, expected ErrDatabaseNotFound", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("opens an existing database without creation", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		run := NewRun("hankyung", "2024-05-01", "2024-05-10", time.Now())
		if err := db1.SaveRun(context.Background(), run, nil); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db2.Close()

		if _, err := db2.GetRun(context.Background(), run.ID); err != nil {
			t.Errorf("run did not persist: %v", err)
		}
	})
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists || !opts.EnableWAL {
		t.Errorf("got %+v", opts)
	}
}

func TestSaveRun(t *testing.T) {
	t.Parallel()

	t.Run("stores reports in crawl order", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		ctx := context.Background()

		run := NewRun("hankyung", "2024-05-01", "2024-05-10", time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC))
		reports := []model.Report{
			testReport("005930", "2024-05-10", "https://example.com/1.pdf"),
			testReport("000660", "2024-05-09", "https://example.com/2.pdf"),
		}
		run.Finish("done", 2, len(reports), time.Date(2024, 5, 10, 8, 5, 0, 0, time.UTC))

		if err := db.SaveRun(ctx, run, reports); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		got, err := db.ReportsByRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to load reports: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d reports, expected 2", len(got))
		}
		if got[0].CompanyCode != "005930" || got[1].CompanyCode != "000660" {
			t.Errorf("got order %s, %s", got[0].CompanyCode, got[1].CompanyCode)
		}
		if len(got[0].Keywords) != 2 || got[0].Keywords[0] != "메모리" {
			t.Errorf("got keywords %v", got[0].Keywords)
		}
		if !got[0].CollectedAt.Equal(reports[0].CollectedAt) {
			t.Errorf("got collected at %v", got[0].CollectedAt)
		}

		stored, err := db.GetRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to load run: %v", err)
		}
		if stored.Outcome != "done" || stored.ReportCount != 2 || stored.PagesFetched != 2 {
			t.Errorf("got run %+v", stored)
		}
		if !stored.FinishedAt.Equal(run.FinishedAt) {
			t.Errorf("got finished at %v", stored.FinishedAt)
		}
	})

	t.Run("saving a run twice updates it", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		ctx := context.Background()

		run := NewRun("hankyung", "2024-05-01", "2024-05-10", time.Now())
		rep := testReport("005930", "2024-05-10", "https://example.com/1.pdf")
		if err := db.SaveRun(ctx, run, []model.Report{rep}); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		rep.Summary = "수정된 요약."
		run.Finish("aborted_range", 1, 1, time.Now())
		if err := db.SaveRun(ctx, run, []model.Report{rep}); err != nil {
			t.Fatalf("failed to save run again: %v", err)
		}

		got, err := db.ReportsByRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to load reports: %v", err)
		}
		if len(got) != 1 || got[0].Summary != "수정된 요약." {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("reports keep empty keywords empty", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		ctx := context.Background()

		run := NewRun("consensus", "2024-05-01", "2024-05-10", time.Now())
		rep := testReport("005930", "2024-05-10", "https://example.com/1.pdf")
		rep.Keywords = nil
		if err := db.SaveRun(ctx, run, []model.Report{rep}); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		got, err := db.ReportsByRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to load reports: %v", err)
		}
		if got[0].Keywords != nil {
			t.Errorf("got keywords %v", got[0].Keywords)
		}
	})
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		run := NewRun("hankyung", "2024-05-01", "2024-05-10", base.Add(time.Duration(i)*time.Hour))
		if err := db.SaveRun(ctx, run, nil); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		ids = append(ids, run.ID)
	}

	t.Run("lists newest first", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 3 || runs[0].ID != ids[2] || runs[2].ID != ids[0] {
			t.Errorf("got %+v", runs)
		}
	})

	t.Run("honors the limit", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("got %d runs, expected 2", len(runs))
		}
	})
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("got %v, expected ErrRunNotFound", err)
	}
	if _, err := db.ReportsByRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("got %v, expected ErrRunNotFound", err)
	}
}

func TestFindReports(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run1 := NewRun("hankyung", "2024-05-01", "2024-05-10", time.Now())
	if err := db.SaveRun(ctx, run1, []model.Report{
		testReport("005930", "2024-05-10", "https://example.com/1.pdf"),
		testReport("000660", "2024-05-03", "https://example.com/2.pdf"),
	}); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	run2 := NewRun("hankyung", "2024-05-01", "2024-05-10", time.Now())
	other := testReport("005930", "2024-05-08", "https://example.com/3.pdf")
	other.Brokerage = "대신증권"
	if err := db.SaveRun(ctx, run2, []model.Report{other}); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	tests := []struct {
		name   string
		filter ReportFilter
		want   []string
	}{
		{"matches everything without a filter", ReportFilter{}, []string{"2024-05-10", "2024-05-08", "2024-05-03"}},
		{"filters by company code", ReportFilter{CompanyCode: "005930"}, []string{"2024-05-10", "2024-05-08"}},
		{"filters by brokerage", ReportFilter{Brokerage: "대신증권"}, []string{"2024-05-08"}},
		{"filters by date range", ReportFilter{From: "2024-05-04", To: "2024-05-09"}, []string{"2024-05-08"}},
		{"filters by document hash", ReportFilter{DocumentHash: "hash-000660"}, []string{"2024-05-03"}},
		{"honors the limit", ReportFilter{Limit: 1}, []string{"2024-05-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.FindReports(ctx, tt.filter)
			if err != nil {
				t.Fatalf("failed to find reports: %v", err)
			}
			var dates []string
			for _, r := range got {
				dates = append(dates, r.ReportDate)
			}
			if len(dates) != len(tt.want) {
				t.Fatalf("got %v, expected %v", dates, tt.want)
			}
			for i := range dates {
				if dates[i] != tt.want[i] {
					t.Errorf("got %v, expected %v", dates, tt.want)
					break
				}
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	for _, s := range []string{formatTimestamp(want), "2024-05-10T08:00:00Z", "2024-05-10 08:00:00"} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v", s, got)
		}
	}
	if !parseTimestamp("yesterday").IsZero() {
		t.Error("expected zero time for an unknown layout")
	}
	if formatTimestamp(time.Time{}) != "" {
		t.Error("expected empty string for the zero time")
	}
}

package model

import (
	"testing"
	"time"
)

func validReport() Report {
	return Report{
		Title:          "삼성전자(005930) 메모리 업황 회복",
		CompanyName:    "삼성전자",
		CompanyCode:    "005930",
		Category:       "반도체",
		ReportDate:     "2024-05-10",
		Opinion:        "BUY",
		Author:         "홍길동",
		Brokerage:      "키움증권",
		TargetEst:      90000,
		CurrentEst:     78000,
		CurrentEstDate: "2024-05-09",
		PDFLink:        "https://example.com/report.pdf",
		Summary:        "메모리 가격 반등이 이어질 전망이다.",
		CollectedAt:    time.Now(),
	}
}

// TestReportValidate tests the required field rules of Report.
func TestReportValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a complete report", func(t *testing.T) {
		t.Parallel()
		r := validReport()
		if err := r.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("accepts an empty category", func(t *testing.T) {
		t.Parallel()
		r := validReport()
		r.Category = ""
		if err := r.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("accepts a zero target price", func(t *testing.T) {
		t.Parallel()
		r := validReport()
		r.TargetEst = 0
		if err := r.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Report)
	}{
		{"rejects a missing title", func(r *Report) { r.Title = "" }},
		{"rejects a missing company name", func(r *Report) { r.CompanyName = "" }},
		{"rejects a short company code", func(r *Report) { r.CompanyCode = "5930" }},
		{"rejects a non numeric company code", func(r *Report) { r.CompanyCode = "00593A" }},
		{"rejects a dotted report date", func(r *Report) { r.ReportDate = "2024.05.10" }},
		{"rejects a missing opinion", func(r *Report) { r.Opinion = "" }},
		{"rejects a missing author", func(r *Report) { r.Author = "" }},
		{"rejects a missing brokerage", func(r *Report) { r.Brokerage = "" }},
		{"rejects a negative current price", func(r *Report) { r.CurrentEst = -1 }},
		{"rejects a missing current price date", func(r *Report) { r.CurrentEstDate = "" }},
		{"rejects a missing pdf link", func(r *Report) { r.PDFLink = "" }},
		{"rejects a missing summary", func(r *Report) { r.Summary = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := validReport()
			tt.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// TestCandidateComplete tests merging a candidate with its enrichment.
func TestCandidateComplete(t *testing.T) {
	t.Parallel()

	c := Candidate{
		Title:       "삼성전자(005930) 메모리 업황 회복",
		CompanyName: "삼성전자",
		CompanyCode: "005930",
		ReportDate:  "2024-05-10",
		Opinion:     "BUY",
		Author:      "홍길동",
		Brokerage:   "키움증권",
		TargetEst:   90000,
		PDFLink:     "https://example.com/report.pdf",
	}
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	t.Run("rejects an enrichment without a price estimate", func(t *testing.T) {
		t.Parallel()
		if _, ok := c.Complete("반도체", Enrichment{Summary: "요약"}, now); ok {
			t.Error("expected Complete to fail without CurrentEst")
		}
	})

	t.Run("copies every field into the report", func(t *testing.T) {
		t.Parallel()
		price := 78000
		date := "2024-05-09"
		r, ok := c.Complete("반도체", Enrichment{
			CurrentEst:     &price,
			CurrentEstDate: &date,
			Summary:        "요약",
			Keywords:       []string{"메모리"},
			DocumentHash:   "abc",
		}, now)
		if !ok {
			t.Fatal("expected Complete to succeed")
		}
		if r.CurrentEst != 78000 || r.CurrentEstDate != "2024-05-09" {
			t.Errorf("got current %d/%q", r.CurrentEst, r.CurrentEstDate)
		}
		if r.Category != "반도체" {
			t.Errorf("got category %q, expected 반도체", r.Category)
		}
		if r.CompanyCode != "005930" || r.Brokerage != "키움증권" {
			t.Errorf("candidate fields not copied: %+v", r)
		}
		if !r.CollectedAt.Equal(now) {
			t.Errorf("got CollectedAt %v, expected %v", r.CollectedAt, now)
		}
		if err := r.Validate(); err != nil {
			t.Errorf("completed report should be valid: %v", err)
		}
	})
}

// TestNewCrawlSummary tests aggregation of accepted reports.
func TestNewCrawlSummary(t *testing.T) {
	t.Parallel()

	a := validReport()
	a.Keywords = []string{"메모리", "반도체"}
	b := validReport()
	b.Opinion = "HOLD"
	b.Brokerage = "대신증권"
	b.Keywords = []string{"메모리"}
	c := validReport()
	c.Keywords = []string{"수요"}

	s := NewCrawlSummary("hankyung", "2024-05-01", "2024-05-10", []Report{a, b, c})

	t.Run("counts reports", func(t *testing.T) {
		t.Parallel()
		if s.ReportCount != 3 {
			t.Errorf("got %d, expected 3", s.ReportCount)
		}
	})

	t.Run("ranks opinions by frequency", func(t *testing.T) {
		t.Parallel()
		got := s.SortedOpinions()
		if len(got) != 2 || got[0] != "BUY" || got[1] != "HOLD" {
			t.Errorf("got %v, expected [BUY HOLD]", got)
		}
	})

	t.Run("ranks brokerages by frequency", func(t *testing.T) {
		t.Parallel()
		got := s.SortedBrokerages()
		if len(got) != 2 || got[0] != "키움증권" {
			t.Errorf("got %v, expected 키움증권 first", got)
		}
	})

	t.Run("ranks keywords with ties broken by name", func(t *testing.T) {
		t.Parallel()
		want := []string{"메모리", "반도체", "수요"}
		if len(s.TopKeywords) != len(want) {
			t.Fatalf("got %v, expected %v", s.TopKeywords, want)
		}
		for i := range want {
			if s.TopKeywords[i] != want[i] {
				t.Errorf("TopKeywords[%d] = %q, expected %q", i, s.TopKeywords[i], want[i])
			}
		}
	})
}

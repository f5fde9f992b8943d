package model

import (
	"sort"
	"time"
)

// CrawlSummary is a summarized, human-readable view of a crawl run.
// It is derived from the accepted reports and is what the text and
// markdown writers render.
type CrawlSummary struct {
	// RunID identifies the crawl run in the database (may be empty).
	RunID string `json:"run_id,omitempty"`

	// Source is the name of the page source that was crawled.
	Source string `json:"source"`

	// From and To are the requested date window (inclusive).
	From string `json:"from"`
	To   string `json:"to"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Outcome is the terminal crawler phase (done, aborted_range, retry_exhausted).
	Outcome string `json:"outcome"`

	// PagesFetched is the number of result pages that were fetched successfully.
	PagesFetched int `json:"pages_fetched"`

	// ReportCount is the number of accepted reports.
	ReportCount int `json:"report_count"`

	// OpinionCounts maps normalized opinions to their frequency.
	OpinionCounts map[string]int `json:"opinion_counts"`

	// BrokerageCounts maps brokerages to their report count.
	BrokerageCounts map[string]int `json:"brokerage_counts"`

	// TopKeywords are the most frequent keywords across all reports.
	TopKeywords []string `json:"top_keywords,omitempty"`

	// Reports are the accepted reports in source order.
	Reports []Report `json:"reports"`
}

// maxSummaryKeywords caps TopKeywords.
const maxSummaryKeywords = 20

// NewCrawlSummary aggregates the given reports.
func NewCrawlSummary(source, from, to string, reports []Report) *CrawlSummary {
	s := &CrawlSummary{
		Source:          source,
		From:            from,
		To:              to,
		ReportCount:     len(reports),
		OpinionCounts:   make(map[string]int),
		BrokerageCounts: make(map[string]int),
		Reports:         reports,
	}

	keywordCounts := make(map[string]int)
	for _, r := range reports {
		s.OpinionCounts[r.Opinion]++
		s.BrokerageCounts[r.Brokerage]++
		for _, k := range r.Keywords {
			keywordCounts[k]++
		}
	}
	s.TopKeywords = rankKeys(keywordCounts, maxSummaryKeywords)

	return s
}

// SortedOpinions returns the opinions ordered by descending count, then name.
func (s *CrawlSummary) SortedOpinions() []string {
	return rankKeys(s.OpinionCounts, 0)
}

// SortedBrokerages returns the brokerages ordered by descending count, then name.
func (s *CrawlSummary) SortedBrokerages() []string {
	return rankKeys(s.BrokerageCounts, 0)
}

// rankKeys orders map keys by descending value and ascending key.
// A limit of 0 means no limit.
func rankKeys(counts map[string]int, limit int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

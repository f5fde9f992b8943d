package model

import "time"

// Candidate is a report whose fields were located in a raw record but not
// yet enriched by document analysis.
type Candidate struct {
	Title       string
	CompanyName string
	CompanyCode string
	ReportDate  string
	Opinion     string
	Author      string
	Brokerage   string
	TargetEst   int
	PDFLink     string
}

// Enrichment holds the values produced by document analysis.
// The estimate fields are pointers so that "absent" differs from zero.
type Enrichment struct {
	// CurrentEst is nil when the document has no recognizable price line.
	CurrentEst *int

	// CurrentEstDate is nil when CurrentEst is nil.
	CurrentEstDate *string

	Summary      string
	Keywords     []string
	DocumentHash string
}

// HasEstimate reports whether the analysis found a current price estimate.
func (e Enrichment) HasEstimate() bool {
	return e.CurrentEst != nil && e.CurrentEstDate != nil
}

// Complete merges a candidate with its enrichment into a Report.
// It returns false when the enrichment carries no price estimate;
// the caller must still run Report.Validate for the remaining fields.
func (c Candidate) Complete(category string, e Enrichment, collectedAt time.Time) (Report, bool) {
	if !e.HasEstimate() {
		return Report{}, false
	}

	return Report{
		Title:          c.Title,
		CompanyName:    c.CompanyName,
		CompanyCode:    c.CompanyCode,
		Category:       category,
		ReportDate:     c.ReportDate,
		Opinion:        c.Opinion,
		Author:         c.Author,
		Brokerage:      c.Brokerage,
		TargetEst:      c.TargetEst,
		CurrentEst:     *e.CurrentEst,
		CurrentEstDate: *e.CurrentEstDate,
		PDFLink:        c.PDFLink,
		Summary:        e.Summary,
		Keywords:       e.Keywords,
		DocumentHash:   e.DocumentHash,
		CollectedAt:    collectedAt,
	}, true
}

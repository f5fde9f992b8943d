package model

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Report is one normalized analyst research record.
// A Report is only emitted by the crawler when Validate returns nil;
// records that cannot satisfy it are rejected one by one, never the page.
// Prices are whole won.
type Report struct {
	// Title is the report title as published by the portal.
	Title string `json:"title" validate:"required"`

	// CompanyName is the covered company without code or bracket annotations.
	CompanyName string `json:"company_name" validate:"required"`

	// CompanyCode is the 6-digit KRX stock code (zero padded).
	CompanyCode string `json:"company_code" validate:"required,len=6,numeric"`

	// Category is the industry label from the reference table.
	// It is empty when the code is not listed there.
	Category string `json:"category"`

	// ReportDate is the publication date in YYYY-MM-DD form.
	ReportDate string `json:"report_date" validate:"required,datetime=2006-01-02"`

	// Opinion is the normalized investment opinion (BUY, HOLD, NR, ...).
	Opinion string `json:"suggestion" validate:"required"`

	// Author is the analyst name(s).
	Author string `json:"writer" validate:"required"`

	// Brokerage is the issuing brokerage with whitespace removed.
	Brokerage string `json:"report_corp" validate:"required"`

	// TargetEst is the target price in won. Unparseable values become 0.
	TargetEst int `json:"target_est" validate:"gte=0"`

	// CurrentEst is the stock price quoted in the report body in won.
	CurrentEst int `json:"current_est" validate:"gte=0"`

	// CurrentEstDate is the reference date of CurrentEst in YYYY-MM-DD form.
	CurrentEstDate string `json:"current_est_date" validate:"required,datetime=2006-01-02"`

	// PDFLink is the source document link.
	PDFLink string `json:"pdf_link" validate:"required"`

	// Summary is the summary of the analyst opinion sentences.
	Summary string `json:"summary" validate:"required"`

	// Keywords are the most frequent noun-like tokens of the report body.
	Keywords []string `json:"keywords,omitempty"`

	// DocumentHash is a hex SHA3-256 of the downloaded document.
	// Identical PDFs published under different links share a hash.
	DocumentHash string `json:"document_hash,omitempty"`

	// CollectedAt is when the report was accepted by the crawler.
	CollectedAt time.Time `json:"collected_at"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// reportValidator returns the shared validator instance.
func reportValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks that every required field is present and well formed.
func (r *Report) Validate() error {
	return reportValidator().Struct(r)
}

package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/reportscan/internal/model"
)

// utf8BOM lets spreadsheet applications detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVHeader is the column order of the dataset. The first, unnamed column
// is the row index.
var CSVHeader = []string{
	"", "title", "company_name", "company_code", "category", "report_date", "suggestion",
	"writer", "report_corp", "target_est", "current_est", "current_est_date", "pdf_link",
	"summary", "keywords", "document_hash",
}

// CSVWriter writes one row per report.
type CSVWriter struct {
	baseWriter
	bom bool
}

// CSVWriterOption configures a CSVWriter.
type CSVWriterOption func(*CSVWriter)

// WithBOM controls the leading byte order mark. It is written by default.
func WithBOM(bom bool) CSVWriterOption {
	return func(w *CSVWriter) {
		w.bom = bom
	}
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer, opts ...CSVWriterOption) *CSVWriter {
	w := &CSVWriter{baseWriter: newBaseWriter(output), bom: true}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *CSVWriter) Write(summary *model.CrawlSummary) (int, error) {
	var buf bytes.Buffer
	if w.bom {
		buf.Write(utf8BOM)
	}

	cw := csv.NewWriter(&buf)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}
	for i, r := range summary.Reports {
		row := []string{
			strconv.Itoa(i),
			r.Title,
			r.CompanyName,
			r.CompanyCode,
			r.Category,
			r.ReportDate,
			r.Opinion,
			r.Author,
			r.Brokerage,
			strconv.Itoa(r.TargetEst),
			strconv.Itoa(r.CurrentEst),
			r.CurrentEstDate,
			r.PDFLink,
			r.Summary,
			strings.Join(r.Keywords, " "),
			r.DocumentHash,
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}

	return w.output.Write(buf.Bytes())
}

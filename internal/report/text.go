package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/reportscan/internal/model"
)

const ruleWidth = 70

// TextWriter outputs a plain text listing for terminal display.
type TextWriter struct {
	baseWriter

	// verbose adds the summary and the document link of each report.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables the per-report details.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *TextWriter) Write(summary *model.CrawlSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeDistribution(&sb, summary)
	w.writeReports(&sb, summary)

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeHeader(sb *strings.Builder, s *model.CrawlSummary) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                        REPORTSCAN RESULTS\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Source:   %s\n", s.Source)
	fmt.Fprintf(sb, "Window:   %s ~ %s\n", s.From, s.To)
	fmt.Fprintf(sb, "Pages:    %d\n", s.PagesFetched)
	fmt.Fprintf(sb, "Reports:  %d\n", s.ReportCount)
	switch s.Outcome {
	case "retry_exhausted":
		sb.WriteString("Status:   STOPPED AFTER FETCH FAILURES (partial results)\n")
	case "":
	default:
		fmt.Fprintf(sb, "Status:   %s\n", s.Outcome)
	}
	if s.RunID != "" {
		fmt.Fprintf(sb, "Run ID:   %s\n", s.RunID)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeDistribution(sb *strings.Builder, s *model.CrawlSummary) {
	if s.ReportCount == 0 {
		return
	}

	section(sb, "OPINIONS")
	for _, op := range s.SortedOpinions() {
		fmt.Fprintf(sb, "  %-10s %d\n", op, s.OpinionCounts[op])
	}
	sb.WriteString("\n")

	section(sb, "BROKERAGES")
	for _, b := range s.SortedBrokerages() {
		fmt.Fprintf(sb, "  %s: %d\n", b, s.BrokerageCounts[b])
	}
	sb.WriteString("\n")

	if len(s.TopKeywords) > 0 {
		section(sb, "KEYWORDS")
		fmt.Fprintf(sb, "  %s\n\n", strings.Join(s.TopKeywords, ", "))
	}
}

func (w *TextWriter) writeReports(sb *strings.Builder, s *model.CrawlSummary) {
	section(sb, "REPORTS")
	if len(s.Reports) == 0 {
		sb.WriteString("  No reports collected\n\n")
		return
	}

	for _, r := range s.Reports {
		fmt.Fprintf(sb, "  [%s] %s (%s) %s\n", r.ReportDate, r.CompanyName, r.CompanyCode, r.Brokerage)
		fmt.Fprintf(sb, "    %s  target %s  current %s (%s)  upside %s\n",
			r.Opinion, formatWon(r.TargetEst), formatWon(r.CurrentEst), r.CurrentEstDate, upside(r))
		if w.verbose {
			fmt.Fprintf(sb, "    Title:   %s\n", r.Title)
			if r.Category != "" {
				fmt.Fprintf(sb, "    Sector:  %s\n", r.Category)
			}
			fmt.Fprintf(sb, "    Summary: %s\n", r.Summary)
			fmt.Fprintf(sb, "    PDF:     %s\n", r.PDFLink)
		}
	}
	sb.WriteString("\n")
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

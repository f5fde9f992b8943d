package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/reportscan/internal/model"
)

// MarkdownWriter outputs the crawl as a Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(summary *model.CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeOpinions(md, summary)
	w.writeReports(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.CrawlSummary) {
	md.H1("Research Report Crawl")
	md.PlainText("")

	rows := [][]string{
		{"Source", markdown.Code(s.Source)},
		{"Window", s.From + " ~ " + s.To},
		{"Outcome", s.Outcome},
		{"Pages Fetched", strconv.Itoa(s.PagesFetched)},
		{"Reports", strconv.Itoa(s.ReportCount)},
	}
	if !s.StartedAt.IsZero() {
		rows = append(rows, []string{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")})
	}
	if s.RunID != "" {
		rows = append(rows, []string{"Run ID", markdown.Code(s.RunID)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case s.Outcome == "retry_exhausted":
		md.Caution("The crawl stopped after repeated fetch failures. The list below may be incomplete.")
	case s.ReportCount == 0:
		md.Warning("No report matched the target brokerages in this window.")
	case s.Outcome == "aborted_range":
		md.Note("The crawl stopped at the first report older than the window.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeOpinions(md *markdown.Markdown, s *model.CrawlSummary) {
	if s.ReportCount == 0 {
		return
	}

	md.H2("Opinions")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Investment Opinions"),
		piechart.WithShowData(true),
	)
	rows := make([][]string, 0, len(s.OpinionCounts))
	for _, op := range s.SortedOpinions() {
		n := s.OpinionCounts[op]
		chart.LabelAndIntValue(op, uint64(n)) //nolint:gosec // counts are non-negative
		rows = append(rows, []string{op, strconv.Itoa(n)})
	}
	md.Table(markdown.TableSet{Header: []string{"Opinion", "Reports"}, Rows: rows})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	md.H2("Brokerages")
	md.PlainText("")
	brokerages := make([]string, 0, len(s.BrokerageCounts))
	for _, b := range s.SortedBrokerages() {
		brokerages = append(brokerages, b+": "+strconv.Itoa(s.BrokerageCounts[b]))
	}
	md.BulletList(brokerages...)
	md.PlainText("")

	if len(s.TopKeywords) > 0 {
		md.H2("Keywords")
		md.PlainText("")
		md.PlainText(strings.Join(s.TopKeywords, ", "))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeReports(md *markdown.Markdown, s *model.CrawlSummary) {
	md.H2("Reports")
	md.PlainText("")

	if len(s.Reports) == 0 {
		md.PlainText("No reports collected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Reports))
	for i, r := range s.Reports {
		rows[i] = []string{
			r.ReportDate,
			r.CompanyName + " (" + r.CompanyCode + ")",
			orDash(r.Category),
			r.Brokerage,
			r.Opinion,
			formatWon(r.TargetEst),
			formatWon(r.CurrentEst),
			upside(r),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Date", "Company", "Category", "Brokerage", "Opinion", "Target", "Current", "Upside"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range s.Reports {
		body := r.Summary + "\n\n" + markdown.Link("PDF", r.PDFLink)
		md.Details(truncateRunes(r.Title, 60), body)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [reportscan](https://github.com/nao1215/reportscan)*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateRunes shortens s to maxRunes runes with an ellipsis.
func truncateRunes(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(r[:maxRunes])
	}
	return string(r[:maxRunes-3]) + "..."
}

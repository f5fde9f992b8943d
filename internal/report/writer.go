package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/reportscan/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Output formats accepted on the command line.
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// ErrUnknownFormat is returned by NewWriter for an unknown format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Writer renders a crawl summary.
type Writer interface {
	// Write renders summary and returns the number of bytes written.
	Write(summary *model.CrawlSummary) (int, error)
}

// Formats returns the accepted format names.
func Formats() []string {
	return []string{FormatCSV, FormatJSON, FormatMarkdown, FormatText}
}

// NewWriter returns the writer for format. version is embedded in JSON output.
func NewWriter(format string, output io.Writer, version string) (Writer, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(output), nil
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatText:
		return NewTextWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders summary with every writer and returns the total bytes
// written. It stops at the first error.
func (m *MultiWriter) Write(summary *model.CrawlSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// won formats prices with Korean digit grouping.
var won = message.NewPrinter(language.Korean)

func formatWon(n int) string {
	return won.Sprintf("%d", n)
}

// upside is the target premium over the current price in percent.
func upside(r model.Report) string {
	if r.CurrentEst <= 0 {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", float64(r.TargetEst-r.CurrentEst)*100/float64(r.CurrentEst))
}

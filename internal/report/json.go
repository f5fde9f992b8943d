package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/reportscan/internal/model"
)

// JSONWriter outputs the crawl summary as JSON.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output.
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *JSONWriter) Write(summary *model.CrawlSummary) (int, error) {
	return w.writeJSON(summary)
}

// writeJSON marshals v and writes it followed by a newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a summary with the version of the tool that produced it.
type JSONReport struct {
	Version string              `json:"version"`
	Summary *model.CrawlSummary `json:"summary"`
}

// FullJSONWriter outputs summaries wrapped in a JSONReport.
type FullJSONWriter struct {
	*JSONWriter
	version string
}

// NewFullJSONWriter creates a writer that records version in its output.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write implements Writer.
func (w *FullJSONWriter) Write(summary *model.CrawlSummary) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Summary: summary})
}

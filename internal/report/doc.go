// Package report renders the result of a crawl.
//
// Writers render a model.CrawlSummary:
//   - CSVWriter: one row per report, the dataset format (UTF-8 with BOM)
//   - JSONWriter / FullJSONWriter: structured output for other tools
//   - MarkdownWriter: a shareable document with an opinion pie chart
//   - TextWriter: terminal output
//
// Writers implement the Writer interface and can be combined with
// MultiWriter, e.g. to print to the terminal and write a file at once.
package report

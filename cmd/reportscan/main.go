// Package main provides the entry point for the reportscan CLI.
//
// reportscan collects company research reports published by Korean
// brokerages on the Hankyung consensus portal, reads the current price and
// the analyst's opinion out of each PDF, and writes the result as CSV,
// JSON, Markdown or text.
//
// Usage:
//
//	reportscan crawl --start-date 2024-05-01 --end-date 2024-05-10
//	reportscan watch --schedule "0 18 * * 1-5"
//	reportscan history
//
// See --help for all available options.
package main

func main() {
	Execute()
}

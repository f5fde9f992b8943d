// Package model defines the core data structures used throughout reportscan.
//
// This package contains the following main types:
//   - Report: One normalized analyst research record (the output unit)
//   - Candidate: A partially extracted record whose fields may be missing
//   - CrawlSummary: Aggregated counts of a crawl run for human-readable output
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The extractor, crawler, database and report packages all need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model

// Package config holds the settings of a crawl: the date window, the
// source portal, retry and worker limits, the summarizer, and where results
// are written. Values come from defaults, the .reportscan YAML file, the
// environment and command line flags, applied in that order.
package config

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/reportscan/internal/config"
	"github.com/nao1215/reportscan/internal/model"
	"github.com/nao1215/reportscan/internal/report"
)

// writeReport renders summary in the configured format to cfg.ReportFile,
// or to stdout when no file is set.
func writeReport(cfg *config.Config, summary *model.CrawlSummary, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	w, err := report.NewWriter(cfg.Format, output, getVersion())
	if err != nil {
		return err
	}
	if _, err := w.Write(summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/reportscan/internal/config"
	"github.com/nao1215/reportscan/internal/crawler"
	"github.com/nao1215/reportscan/internal/report"
	"github.com/nao1215/reportscan/internal/source"
	"github.com/nao1215/reportscan/internal/summary"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Collect research reports for a date window",
		Long: `Crawl fetches the report list for the date window page by page, keeps the
company reports of the target brokerages, and analyzes each report's PDF.

The crawl stops at the last page, at the first report older than the start
date, or when a page keeps failing after the retry limit. In the last case
the reports collected so far are still written.

Examples:
  # Reports of the last 7 days as a table on the terminal
  reportscan crawl

  # A fixed window as CSV (UTF-8 with BOM, opens in Excel)
  reportscan crawl -s 2024-05-01 -e 2024-05-10 -f csv -o reports.csv

  # Summaries by Gemini, industry categories from the KRX listing
  reportscan crawl --summarizer gemini --category-file corplist.csv

  # Only two brokerages, four PDFs analyzed at a time
  reportscan crawl --brokerage 키움증권 --brokerage 대신증권 -w 4`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringP("start-date", "s", "",
		fmt.Sprintf("First report date, YYYY-MM-DD (default: %d days ago)", config.DefaultWindowDays-1))
	cmd.Flags().StringP("end-date", "e", "", "Last report date, YYYY-MM-DD (default: today)")

	return cmd
}

// addCrawlFlags defines the flags shared by crawl and watch.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", source.NameHankyung,
		"Portal to crawl: "+strings.Join(source.Names(), ", "))
	cmd.Flags().StringSlice("brokerage", nil,
		"Target brokerage, repeatable (default: "+strings.Join(crawler.DefaultBrokerages, ", ")+")")
	cmd.Flags().String("category-file", "",
		"Listed-company CSV with 종목코드 and 업종 columns")
	cmd.Flags().Int("page-size", 0, "Rows per result page (default: portal default)")

	cmd.Flags().Int("retry", config.DefaultRetryLimit, "Fetch attempts per page")
	cmd.Flags().Duration("retry-backoff", config.DefaultRetryBackoff, "Backoff unit between attempts")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Reports of one page analyzed concurrently")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout of each request")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy (host:port or socks5://host:port)")

	cmd.Flags().String("summarizer", summary.NameExtractive,
		"Summarizer: "+strings.Join(summary.Names(), ", "))
	cmd.Flags().String("model", "", "Model of an LLM summarizer")
	cmd.Flags().Bool("no-fallback", false, "Fail instead of using the extractive summary when an LLM call fails")

	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Output format: "+strings.Join(report.Formats(), ", "))
	cmd.Flags().StringP("output", "o", "", "Write the report to a file (creates directories if needed)")

	cmd.Flags().String("db", "", "Database directory (default: "+config.XDGDataDir()+")")
	cmd.Flags().Bool("no-db", false, "Do not store the run")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .reportscan in current or home directory)")
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, time.Now())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := newCrawlEnv(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	crawled, crawlErr := env.crawl(ctx, cfg.StartDate, cfg.EndDate)
	if crawled == nil {
		return crawlErr
	}

	if err := writeReport(cfg, crawled, cmd.OutOrStdout()); err != nil {
		return errors.Join(crawlErr, err)
	}
	return crawlErr
}

// buildConfig creates a Config from defaults, the config file, the
// environment and the flags that were set, in that order.
func buildConfig(cmd *cobra.Command, now time.Time) (*config.Config, error) {
	cfg := config.NewConfig(now)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(f)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.Verbose = getVerboseFlag(cmd)

	err = errors.Join(
		stringFlag(cmd, "start-date", &cfg.StartDate),
		stringFlag(cmd, "end-date", &cfg.EndDate),
		stringFlag(cmd, "source", &cfg.Source),
		stringSliceFlag(cmd, "brokerage", &cfg.Brokerages),
		stringFlag(cmd, "category-file", &cfg.CategoryFile),
		intFlag(cmd, "page-size", &cfg.PageSize),
		intFlag(cmd, "retry", &cfg.RetryLimit),
		durationFlag(cmd, "retry-backoff", &cfg.RetryBackoff),
		intFlag(cmd, "workers", &cfg.Workers),
		durationFlag(cmd, "timeout", &cfg.Timeout),
		stringFlag(cmd, "proxy", &cfg.ProxyAddress),
		stringFlag(cmd, "summarizer", &cfg.Summarizer),
		stringFlag(cmd, "model", &cfg.SummarizerModel),
		stringFlag(cmd, "format", &cfg.Format),
		stringFlag(cmd, "output", &cfg.ReportFile),
		stringFlag(cmd, "db", &cfg.DBDir),
		stringFlag(cmd, "schedule", &cfg.WatchSchedule),
		intFlag(cmd, "days", &cfg.WatchDays),
	)
	if err != nil {
		return nil, err
	}

	if noFallback, _ := cmd.Flags().GetBool("no-fallback"); noFallback { //nolint:errcheck // false when undefined
		cfg.SummarizerFallback = false
	}
	if noDB, _ := cmd.Flags().GetBool("no-db"); noDB { //nolint:errcheck // false when undefined
		cfg.SaveToDB = false
	}

	return cfg, nil
}

func stringFlag(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func stringSliceFlag(cmd *cobra.Command, name string, dst *[]string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func intFlag(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func durationFlag(cmd *cobra.Command, name string, dst *time.Duration) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/reportscan/internal/config"
	"github.com/nao1215/reportscan/internal/crawler"
	"github.com/nao1215/reportscan/internal/scheduler"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Crawl on a schedule",
		Long: `Watch runs a crawl of a rolling window on a cron schedule until it is
interrupted. Each run covers the last --days days, today included, and is
stored like a crawl started by hand.

Schedules use five cron fields (minute hour day month weekday) or
descriptors such as @daily and "@every 6h", evaluated in Korea Standard Time.

When --output is set, each run writes a new file next to it named after the
run date, e.g. reports-2024-05-10.csv for --output reports.csv.

Examples:
  # Every weekday at 18:00 KST, today's reports
  reportscan watch

  # Every morning, the last three days, as Markdown
  reportscan watch --schedule "0 8 * * *" --days 3 -f markdown -o out/reports.md`,
		Args: cobra.NoArgs,
		RunE: runWatchCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().String("schedule", config.DefaultWatchSchedule, "Cron schedule in KST")
	cmd.Flags().Int("days", config.DefaultWatchDays, "Days covered by each run, today included")
	cmd.Flags().Bool("now", false, "Also run once immediately")

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, time.Now())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.ValidateWatch(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := scheduler.Validate(cfg.WatchSchedule); err != nil {
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

	job := watchJob(env, cmd)

	runNow, err := cmd.Flags().GetBool("now")
	if err != nil {
		return err
	}
	if runNow {
		if err := job(ctx); err != nil {
			logger.Error("crawl failed", "error", err)
		}
	}

	s := scheduler.New(scheduler.WithLogger(logger))
	if err := s.Add("crawl", cfg.WatchSchedule, job); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s on %q (%d day window). Press Ctrl+C to stop.\n",
		cfg.Source, cfg.WatchSchedule, cfg.WatchDays)
	return s.Run(ctx)
}

// watchJob returns the scheduled crawl. The window is computed at run time
// in KST.
func watchJob(env *crawlEnv, cmd *cobra.Command) scheduler.Job {
	return func(ctx context.Context) error {
		now := env.now().In(scheduler.KST)
		from, to := config.Window(now, env.cfg.WatchDays)

		crawled, err := env.crawl(ctx, from, to)
		if errors.Is(err, crawler.ErrNoReports) {
			// Holidays have no reports.
			env.logger.Info("no reports in window", "from", from, "to", to)
			return nil
		}
		if crawled == nil {
			return err
		}

		runCfg := *env.cfg
		runCfg.ReportFile = datedPath(env.cfg.ReportFile, to)
		if writeErr := writeReport(&runCfg, crawled, cmd.OutOrStdout()); writeErr != nil {
			return writeErr
		}
		return err
	}
}

// datedPath inserts date before the extension of path. Empty stays empty.
func datedPath(path, date string) string {
	if path == "" {
		return ""
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + date + ext
}

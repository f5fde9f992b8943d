package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/reportscan/internal/config"
	"github.com/nao1215/reportscan/internal/database"
	"github.com/nao1215/reportscan/internal/model"
	"github.com/nao1215/reportscan/internal/report"
	"github.com/spf13/cobra"
)

// sourceHistory is the summary source of a search over stored runs.
const sourceHistory = "history"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show stored crawl runs and reports",
		Long: `History reads the runs stored by crawl and watch.

Without arguments it lists the most recent runs. With a run ID it prints the
reports of that run in the chosen format. With search flags it finds reports
across all runs, newest first.

Examples:
  # The last 20 runs
  reportscan history

  # Reports of one run as CSV
  reportscan history 3f0c2a4e-... -f csv -o run.csv

  # Every stored report on Samsung Electronics since May
  reportscan history --company 005930 --from 2024-05-01

  # The same document published under several links
  reportscan history --hash 9b1c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs or reports (0 = all)")
	cmd.Flags().String("company", "", "Search by company code")
	cmd.Flags().String("firm", "", "Search by brokerage (securities firm)")
	cmd.Flags().String("from", "", "Search reports on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Search reports on or before this date (YYYY-MM-DD)")
	cmd.Flags().String("hash", "", "Search by document hash")

	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Output format for reports: "+strings.Join(report.Formats(), ", "))
	cmd.Flags().StringP("output", "o", "", "Write reports to a file")
	cmd.Flags().String("db", "", "Database directory (default: "+config.XDGDataDir()+")")
	cmd.Flags().StringP("config", "c", "", "Configuration file path")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, time.Now())
	if err != nil {
		return err
	}

	filter, err := historyFilter(cmd)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	logger := newLogger(cmd)

	store, err := openStore(ctx, cfg, database.Options{CreateIfNotExists: false, EnableWAL: true}, logger)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs stored yet.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'reportscan crawl' to collect reports.")
		return nil
	}
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case len(args) == 1:
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		reports, err := store.ReportsByRun(ctx, run.ID)
		if err != nil {
			return err
		}
		return writeReport(cfg, runSummary(run, reports), cmd.OutOrStdout())

	case filter != (database.ReportFilter{Limit: filter.Limit}):
		reports, err := store.FindReports(ctx, filter)
		if err != nil {
			return err
		}
		s := model.NewCrawlSummary(sourceHistory, filter.From, filter.To, reports)
		return writeReport(cfg, s, cmd.OutOrStdout())

	default:
		runs, err := store.ListRuns(ctx, filter.Limit)
		if err != nil {
			return err
		}
		return listRuns(cmd.OutOrStdout(), runs)
	}
}

// historyFilter reads the search flags.
func historyFilter(cmd *cobra.Command) (database.ReportFilter, error) {
	var f database.ReportFilter
	var err error
	if f.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return f, err
	}
	err = errors.Join(
		stringFlag(cmd, "company", &f.CompanyCode),
		stringFlag(cmd, "firm", &f.Brokerage),
		stringFlag(cmd, "from", &f.From),
		stringFlag(cmd, "to", &f.To),
		stringFlag(cmd, "hash", &f.DocumentHash),
	)
	if err != nil {
		return f, err
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return f, fmt.Errorf("%w: %q", config.ErrInvalidDate, d)
		}
	}
	return f, nil
}

// runSummary rebuilds the summary of a stored run.
func runSummary(run *database.Run, reports []model.Report) *model.CrawlSummary {
	s := model.NewCrawlSummary(run.Source, run.From, run.To, reports)
	s.RunID = run.ID
	s.Outcome = run.Outcome
	s.PagesFetched = run.PagesFetched
	s.StartedAt = run.StartedAt
	s.FinishedAt = run.FinishedAt
	return s
}

// listRuns prints one line per run.
func listRuns(w io.Writer, runs []database.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs stored yet.\n\nUse 'reportscan crawl' to collect reports.")
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Crawl runs (%d):\n\n", len(runs))
	fmt.Fprintf(&sb, "  %-36s  %-16s  %-23s  %-15s  %5s  %7s\n",
		"ID", "Started", "Window", "Outcome", "Pages", "Reports")
	sb.WriteString("  " + strings.Repeat("-", 112) + "\n")
	for _, r := range runs {
		fmt.Fprintf(&sb, "  %-36s  %-16s  %-23s  %-15s  %5d  %7d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.From+" ~ "+r.To,
			r.Outcome, r.PagesFetched, r.ReportCount)
	}
	sb.WriteString("\nUse 'reportscan history <id>' to show the reports of a run.\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nao1215/reportscan/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for reportscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reportscan",
		Short: "Collect Korean brokerage research reports",
		Long: `reportscan collects company research reports from the Hankyung consensus
portal for a date window and a set of target brokerages.

For every report it downloads the PDF, reads the current price quoted by
the analyst, selects the opinion sentences and summarizes them. Runs are
stored in a local SQLite database (or PostgreSQL when DATABASE_URL is set)
so that earlier crawls can be searched with "reportscan history".

API keys for LLM summarizers are read from GEMINI_API_KEY and
ANTHROPIC_API_KEY, also from a .env file in the current directory.`,
		Version:           getVersion(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadEnvFile,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("env-file", ".env", "Environment file with API keys and DATABASE_URL")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnvFile loads the --env-file into the process environment. Variables
// that are already set win. A missing default file is not an error.
func loadEnvFile(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("env-file")
	if err != nil || path == "" {
		return nil //nolint:nilerr // commands without the flag skip the file
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
			return nil
		}
		return fmt.Errorf("failed to load environment file %s: %w", path, err)
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger creates the logger selected by --verbose and --log-json.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonLogs, _ = cmd.Root().PersistentFlags().GetBool("log-json") //nolint:errcheck // false when undefined
	}
	if jsonLogs {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// commandContext returns the command context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

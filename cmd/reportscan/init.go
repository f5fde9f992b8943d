package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/reportscan/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/reportscan.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new reportscan configuration file",
		Long: `Initialize creates a new .reportscan configuration file in the current directory.

The generated file documents every option with its default value:
- the source portal and target brokerages
- retry, worker and timeout settings
- the summarizer, output format and database
- the schedule used by "reportscan watch"

Examples:
  # Create .reportscan in current directory
  reportscan init

  # Create config file at a specific path
  reportscan init -o ~/.config/reportscan/config.yaml

  # Force overwrite existing file
  reportscan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/reportscan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - Target brokerages and the category table")
	fmt.Fprintln(out, "  - The summarizer (set GEMINI_API_KEY or ANTHROPIC_API_KEY for LLMs)")
	fmt.Fprintln(out, "  - The output format and the watch schedule")

	return nil
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/reportscan/internal/config"
)

func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.DefValue != config.DefaultConfigFile {
			t.Errorf("expected default %q, got %q", config.DefaultConfigFile, flag.DefValue)
		}
	})

	t.Run("has force flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("force")
		if flag == nil || flag.Shorthand != "f" {
			t.Fatal("expected force flag with shorthand f")
		}
	})
}

func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates a config file that loads", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "nested", ".reportscan")

		var buf bytes.Buffer
		cmd := NewInitCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"-o", outputPath})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), outputPath) {
			t.Errorf("expected path in output: %s", buf.String())
		}

		f, err := config.LoadConfigFile(outputPath)
		if err != nil {
			t.Fatalf("template does not load: %v", err)
		}

		// The template documents the defaults, so applying it changes nothing.
		now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
		want := config.NewConfig(now)
		got := config.NewConfig(now)
		got.ApplyFile(f)
		if got.Source != want.Source || got.RetryLimit != want.RetryLimit ||
			got.RetryBackoff != want.RetryBackoff || got.Timeout != want.Timeout ||
			got.Summarizer != want.Summarizer || got.Format != want.Format ||
			got.WatchSchedule != want.WatchSchedule || got.WatchDays != want.WatchDays ||
			strings.Join(got.Brokerages, ",") != strings.Join(want.Brokerages, ",") {
			t.Errorf("template differs from defaults: %+v", got)
		}
		if err := got.Validate(); err != nil {
			t.Errorf("template config is invalid: %v", err)
		}
	})

	t.Run("fails if file exists without force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".reportscan")
		if err := os.WriteFile(outputPath, []byte("existing"), 0600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cmd := NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"-o", outputPath})
		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected 'already exists' error, got %v", err)
		}
	})

	t.Run("overwrites file with force flag", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".reportscan")
		if err := os.WriteFile(outputPath, []byte("existing"), 0600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cmd := NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"-o", outputPath, "-f"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if !strings.Contains(string(content), "brokerages:") {
			t.Error("expected template content")
		}
	})
}

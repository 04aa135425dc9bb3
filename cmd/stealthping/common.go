package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/stealthping/internal/config"
	"github.com/nao1215/stealthping/internal/cryptanalysis"
	"github.com/nao1215/stealthping/internal/language"
	securelog "github.com/nao1215/stealthping/internal/log"
	"github.com/nao1215/stealthping/internal/report"
)

// getGlobalBool retrieves a boolean global flag from the command or its parent.
func getGlobalBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getGlobalBool(cmd, "verbose")
}

// setupLogger creates the redacting logger used by every command and makes
// it the default.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	var logger *slog.Logger
	if getGlobalBool(cmd, "log-json") {
		logger = securelog.NewSecureJSONLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	} else {
		logger = securelog.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	}
	slog.SetDefault(logger)
	return logger
}

// loadConfigFile finds and loads the configuration file. It returns nil
// when no file exists and none was named explicitly.
func loadConfigFile(cmd *cobra.Command) (*config.File, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		if path, err = cmd.Root().PersistentFlags().GetString("config"); err != nil {
			return nil, err
		}
	}

	found := config.FindConfigFile(path)
	if found == "" {
		if path != "" {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, nil
	}

	f, err := config.LoadConfigFile(found)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
	}
	slog.Debug("configuration file loaded", "path", found)
	return f, nil
}

// signalContext returns a context cancelled by Ctrl-C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// applyReportFlags reads --json, --markdown and --output.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	return nil
}

// addReportFlags registers the report flags shared by several commands.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// addAnalysisFlags registers the cryptanalysis flags.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("profile", "p", nil,
		"Language profile, preferred first: built-in name or .yaml/.lua file (repeatable)")
	cmd.Flags().Float64("threshold", config.DefaultThreshold,
		"Share of the next language's score the preferred language must reach")
}

// applyAnalysisFlags reads the analysis flags that were set explicitly.
func applyAnalysisFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("profile") {
		profiles, err := cmd.Flags().GetStringSlice("profile")
		if err != nil {
			return err
		}
		cfg.Profiles = profiles
	}
	if cmd.Flags().Changed("threshold") {
		th, err := cmd.Flags().GetFloat64("threshold")
		if err != nil {
			return err
		}
		cfg.Threshold = th
	}
	return nil
}

// newAnalyzer resolves the configured profiles into an Analyzer.
func newAnalyzer(cfg *config.Config, logger *slog.Logger) (*cryptanalysis.Analyzer, error) {
	profiles, err := language.Resolve(cfg.Profiles)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		logger.Debug("language profile loaded", "name", p.Name(), "words", p.WordCount())
	}
	return cryptanalysis.New(profiles,
		cryptanalysis.WithThreshold(cfg.Threshold),
		cryptanalysis.WithConcurrency(cfg.Concurrency),
		cryptanalysis.WithLogger(logger),
	), nil
}

// openReportOutput returns the destination of the report: the configured
// file or stdout. The returned close function is always safe to call.
func openReportOutput(cmd *cobra.Command, cfg *config.Config) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports can contain recovered plaintext, so only the owner may read them.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter picks the report format.
func newReportWriter(cmd *cobra.Command, cfg *config.Config, w io.Writer, trials bool) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w, report.WithMarkdownTrials(trials))
	default:
		return report.NewSimpleWriter(w,
			report.WithTrials(trials),
			report.WithHighlight(!getGlobalBool(cmd, "no-color")))
	}
}

// withTerminalSummary also prints a short text report to the terminal when
// the full report goes to a file.
func withTerminalSummary(cmd *cobra.Command, cfg *config.Config, writer report.Writer, terminal io.Writer) report.Writer {
	if cfg.ReportFile == "" {
		return writer
	}
	summary := report.NewSimpleWriter(terminal,
		report.WithTrials(false),
		report.WithHighlight(!getGlobalBool(cmd, "no-color")))
	return report.NewMultiWriter(writer, summary)
}

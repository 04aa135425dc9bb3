package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/stealthping/internal/config"
	"github.com/nao1215/stealthping/internal/cryptanalysis"
	"github.com/nao1215/stealthping/internal/pipeline"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [ciphertext]",
		Short: "Recover the plaintext of a ciphertext without the key",
		Long: `Analyze decrypts the ciphertext under all 26 keys, scores every candidate
with each language profile and selects the most likely plaintext.

The first profile is preferred: it is selected while its best score is at
least --threshold (default 80%) of the next profile's best score.

Examples:
  # Analyze with the default profiles (spanish, english)
  stealthping analyze 'Khoor Zruog'

  # English only, with the full score table
  stealthping analyze --profile english --no-trials 'Khoor Zruog'

  # Custom profile file, Markdown report written to a file
  stealthping analyze -p french.yaml -p english --markdown -o report.md 'Bonjour'

  # Analyze every line of a file
  stealthping analyze --file messages.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAnalyzeCmd,
	}

	addAnalysisFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().Bool("no-trials", false, "Hide the score table of every key")
	cmd.Flags().StringP("file", "f", "", "Analyze each non-empty line of this file")
	cmd.Flags().Int("batch", 4, "Number of ciphertexts analyzed concurrently with --file")

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	cfg := config.NewConfig()
	file, err := loadConfigFile(cmd)
	if err != nil {
		return err
	}
	if file != nil {
		file.ApplyAnalysis(cfg)
	}
	if err := applyAnalysisFlags(cmd, cfg); err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	noTrials, err := cmd.Flags().GetBool("no-trials")
	if err != nil {
		return err
	}
	listFile, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}

	ciphertexts, err := analyzeInputs(args, listFile)
	if err != nil {
		return err
	}

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	output, closeOutput, err := openReportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // best-effort close of the report file
	writer := newReportWriter(cmd, cfg, output, !noTrials)

	if len(ciphertexts) == 1 {
		analysis, err := analyzer.Analyze(ctx, ciphertexts[0])
		if err != nil {
			return err
		}
		_, err = writer.WriteAnalysis(analysis)
		return err
	}

	batch, err := cmd.Flags().GetInt("batch")
	if err != nil {
		return err
	}
	bp := pipeline.NewBatchProcessor(analyzer,
		pipeline.WithConcurrency(batch),
		pipeline.WithBatchLogger(logger),
	)
	results, err := bp.ProcessBatch(ctx, ciphertexts)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %v\n", r.Index+1, r.Err)
			continue
		}
		if _, err := writer.WriteAnalysis(r.Report); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d ciphertexts could not be analyzed", failed, len(results))
	}
	return nil
}

// analyzeInputs returns the ciphertexts to analyze: the argument, or the
// non-empty lines of listFile.
func analyzeInputs(args []string, listFile string) ([]string, error) {
	switch {
	case listFile != "" && len(args) > 0:
		return nil, errors.New("give either a ciphertext argument or --file, not both")
	case len(args) == 1:
		if args[0] == "" {
			return nil, cryptanalysis.ErrEmptyCiphertext
		}
		return args, nil
	case listFile == "":
		return nil, errors.New("no ciphertext provided (pass it as an argument or use --file)")
	}

	f, err := os.Open(listFile) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", listFile, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", listFile, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s: %w", listFile, cryptanalysis.ErrEmptyCiphertext)
	}
	return lines, nil
}

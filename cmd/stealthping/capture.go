package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/stealthping/internal/config"
	"github.com/nao1215/stealthping/internal/database"
	"github.com/nao1215/stealthping/internal/intercept"
	"github.com/nao1215/stealthping/internal/intercept/live"
	"github.com/nao1215/stealthping/internal/pipeline"
	"github.com/nao1215/stealthping/internal/report"
)

// NewCaptureCmd creates the capture command.
func NewCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a hidden message from incoming Echo Requests",
		Long: `Capture listens for ICMP Echo Requests and records the first payload byte
of each by sequence number until a packet carrying the end marker arrives.
The message is then reassembled, analyzed, stored in the history database
and reported.

Press Ctrl-C to stop early; what was captured so far is still processed.

Sources:
  (default)     raw ICMP socket, needs root or CAP_NET_RAW
  --iface NAME  libpcap live capture on an interface, cgo builds only
  --pcap FILE   replay a pcap or pcapng file, no privileges needed

Examples:
  sudo stealthping capture
  sudo stealthping capture --iface eth0 --id 4242
  stealthping capture --pcap hello.pcap --json
  stealthping capture --simulate 'Khoor Zruog'`,
		Args: cobra.NoArgs,
		RunE: runCaptureCmd,
	}

	cmd.Flags().String("pcap", "", "Read packets from a pcap/pcapng file")
	cmd.Flags().String("iface", "", "Capture live on this interface with libpcap")
	cmd.Flags().Bool("promisc", false, "Enable promiscuous mode with --iface")
	cmd.Flags().Int("id", config.AutoIdentifier, "Only accept packets with this ICMP identifier")
	cmd.Flags().StringP("end-marker", "e", config.FormatEndMarker(config.DefaultEndMarker),
		"Data byte that ends the message: one ASCII character, 'c' or a hex byte like 0x0c")
	cmd.Flags().Duration("read-timeout", config.DefaultReadTimeout,
		"How long a read blocks before checking for Ctrl-C")
	cmd.Flags().Bool("no-analyze", false, "Do not analyze the captured message")
	cmd.Flags().Bool("no-save", false, "Do not store the session in the history database")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")
	cmd.Flags().String("simulate", "", "Analyze this ciphertext as if it had been captured")
	cmd.Flags().Bool("no-trials", false, "Hide the score table of every key")
	addAnalysisFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// buildCaptureConfig merges defaults, the config file and explicit flags.
func buildCaptureConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	file, err := loadConfigFile(cmd)
	if err != nil {
		return nil, err
	}
	if file != nil {
		if err := file.ApplyCapture(cfg); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("pcap") {
		if cfg.PcapFile, err = flags.GetString("pcap"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("iface") {
		if cfg.Interface, err = flags.GetString("iface"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("promisc") {
		if cfg.Promiscuous, err = flags.GetBool("promisc"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("id") {
		if cfg.Identifier, err = flags.GetInt("id"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("end-marker") {
		s, err := flags.GetString("end-marker")
		if err != nil {
			return nil, err
		}
		if cfg.EndMarker, err = config.ParseEndMarker(s); err != nil {
			return nil, err
		}
	}
	if flags.Changed("read-timeout") {
		if cfg.ReadTimeout, err = flags.GetDuration("read-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	if noSave {
		cfg.SaveToDB = false
	}

	if err := applyAnalysisFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func runCaptureCmd(cmd *cobra.Command, _ []string) error {
	logger := setupLogger(cmd)

	cfg, err := buildCaptureConfig(cmd)
	if err != nil {
		return err
	}
	noTrials, err := cmd.Flags().GetBool("no-trials")
	if err != nil {
		return err
	}
	noAnalyze, err := cmd.Flags().GetBool("no-analyze")
	if err != nil {
		return err
	}
	simulated, err := cmd.Flags().GetString("simulate")
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

	// Progress goes to stderr when a machine-readable report owns stdout.
	progress := cmd.OutOrStdout()
	if (cfg.JSONReport || cfg.MarkdownReport) && cfg.ReportFile == "" {
		progress = cmd.ErrOrStderr()
	}
	writer := withTerminalSummary(cmd, cfg, newReportWriter(cmd, cfg, output, !noTrials), progress)

	if simulated != "" {
		analyzer, err := newAnalyzer(cfg, logger)
		if err != nil {
			return err
		}
		analysis, err := analyzer.Analyze(ctx, simulated)
		if err != nil {
			return err
		}
		_, err = writer.WriteAnalysis(analysis)
		return err
	}

	source, name, err := openSource(cfg)
	if err != nil {
		return err
	}

	opts := []intercept.Option{
		intercept.WithEndMarker(cfg.EndMarker),
		intercept.WithLogger(logger),
		intercept.WithOnCapture(printCaptured(progress)),
	}
	var identifier uint16
	if cfg.HasIdentifier() {
		identifier = uint16(cfg.Identifier) //nolint:gosec // validated to 0-65535
		opts = append(opts, intercept.WithIdentifier(identifier))
	}

	fmt.Fprintf(progress, "Listening for ICMP Echo Requests on %s (end marker %s). Press Ctrl-C to stop.\n",
		name, report.FormatByte(cfg.EndMarker))

	// Run closes the source.
	result, err := intercept.New(source, opts...).Run(ctx)
	if err != nil {
		return err
	}

	if len(result.Bytes) == 0 {
		fmt.Fprintf(progress, "No message captured (%s).\n", result.Reason)
	}

	pc, closeStore, err := capturePipelineConfig(cfg, logger, writer, noAnalyze || len(result.Bytes) == 0)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck // best-effort close of the database

	rep := pipeline.NewCaptureReport(name, result, cfg.EndMarker, identifier)
	// The capture may have been ended by Ctrl-C; processing still runs.
	return pipeline.CapturePipeline(pc).Execute(context.WithoutCancel(ctx), rep)
}

// openSource opens the datagram source selected by cfg and names it for
// the report.
func openSource(cfg *config.Config) (intercept.Source, string, error) {
	switch {
	case cfg.PcapFile != "":
		src, err := intercept.OpenPcapFile(cfg.PcapFile)
		if err != nil {
			return nil, "", err
		}
		return src, "pcap:" + cfg.PcapFile, nil
	case cfg.Interface != "":
		src, err := live.OpenLive(cfg.Interface, cfg.Promiscuous, cfg.ReadTimeout)
		if err != nil {
			return nil, "", err
		}
		return src, "iface:" + cfg.Interface, nil
	default:
		src, err := intercept.NewRawSource(cfg.ReadTimeout)
		if err != nil {
			return nil, "", err
		}
		return src, "raw", nil
	}
}

// capturePipelineConfig assembles the post-capture steps. The returned
// close function releases the database and is always safe to call.
func capturePipelineConfig(cfg *config.Config, logger *slog.Logger, w report.Writer, skipAnalysis bool) (pipeline.CaptureConfig, func() error, error) {
	pc := pipeline.CaptureConfig{Writer: w, Logger: logger}
	closeFn := func() error { return nil }

	if !skipAnalysis {
		analyzer, err := newAnalyzer(cfg, logger)
		if err != nil {
			return pc, closeFn, err
		}
		pc.Analyzer = analyzer
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			// Losing history is not worth losing the capture.
			logger.Warn("history database unavailable, session will not be stored", "dir", cfg.DBDir, "error", err)
			return pc, closeFn, nil
		}
		pc.Store = db
		closeFn = db.Close
	}
	return pc, closeFn, nil
}

// printCaptured returns a callback printing each covert byte as it arrives.
func printCaptured(w io.Writer) func(intercept.Captured) {
	return func(c intercept.Captured) {
		switch {
		case c.EndMarker:
			fmt.Fprintf(w, "seq %-5d from %-15s end marker\n", c.Seq, c.Source)
		case c.Replaced:
			fmt.Fprintf(w, "seq %-5d from %-15s %s (replaces earlier byte)\n", c.Seq, c.Source, report.FormatByte(c.Data))
		default:
			fmt.Fprintf(w, "seq %-5d from %-15s %s\n", c.Seq, c.Source, report.FormatByte(c.Data))
		}
	}
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/nao1215/stealthping/internal/cipher"
	"github.com/nao1215/stealthping/internal/config"
	"github.com/nao1215/stealthping/internal/intercept"
	"github.com/nao1215/stealthping/internal/packet"
	"github.com/nao1215/stealthping/internal/pipeline"
	"github.com/nao1215/stealthping/internal/transmit"
)

// Documentation addresses (RFC 5737) stamped on demo packets.
var (
	demoSource      = net.IPv4(192, 0, 2, 1)
	demoDestination = net.IPv4(192, 0, 2, 2)
)

// NewDemoCmd creates the demo command.
func NewDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo <plaintext> <key>",
		Short: "Run encrypt, send, capture and analyze end to end in memory",
		Long: `Demo encrypts plaintext with key, builds the Echo Requests that send would
transmit, captures them back from an in-memory pcap and breaks the cipher
without using the key. No network access or privileges are needed.

Examples:
  stealthping demo 'Hello World' 3
  stealthping demo --profile english --no-trials 'attack at dawn' 13`,
		Args: cobra.ExactArgs(2),
		RunE: runDemoCmd,
	}

	cmd.Flags().String("variant", packet.Classic.String(),
		"Payload layout: classic (32 bytes) or timestamped (56 bytes)")
	cmd.Flags().StringP("end-marker", "e", config.FormatEndMarker(config.DefaultEndMarker),
		"Data byte of the final packet: one ASCII character, 'c' or a hex byte like 0x0c")
	cmd.Flags().Bool("no-trials", false, "Hide the score table of every key")
	addAnalysisFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

func runDemoCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	cfg := config.NewConfig()
	file, err := loadConfigFile(cmd)
	if err != nil {
		return err
	}
	if file != nil {
		file.ApplyAnalysis(cfg)
	}
	if cmd.Flags().Changed("variant") {
		s, err := cmd.Flags().GetString("variant")
		if err != nil {
			return err
		}
		if cfg.Variant, err = packet.ParseVariant(s); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("end-marker") {
		s, err := cmd.Flags().GetString("end-marker")
		if err != nil {
			return err
		}
		if cfg.EndMarker, err = config.ParseEndMarker(s); err != nil {
			return err
		}
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

	key, err := cipher.ParseKey(args[1])
	if err != nil {
		return fmt.Errorf("%q: %w", args[1], err)
	}
	ciphertext := cipher.Encrypt(args[0], key)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	progress := cmd.OutOrStdout()
	if (cfg.JSONReport || cfg.MarkdownReport) && cfg.ReportFile == "" {
		progress = cmd.ErrOrStderr()
	}
	fmt.Fprintf(progress, "Ciphertext: %s\n", ciphertext)

	var capture bytes.Buffer
	rec, err := transmit.NewPcapSender(&capture, demoSource, demoDestination)
	if err != nil {
		return err
	}
	summary, err := transmit.New(rec,
		transmit.WithInterval(0),
		transmit.WithEndMarker(cfg.EndMarker),
		transmit.WithVariant(cfg.Variant),
		transmit.WithLogger(logger),
	).Run(ctx, []byte(ciphertext))
	if err != nil {
		return err
	}
	if err := rec.Close(); err != nil {
		return err
	}
	fmt.Fprintf(progress, "Built %d packets (%d bytes of pcap)\n", summary.Sent, capture.Len())

	src, err := intercept.NewPcapReader(&capture)
	if err != nil {
		return err
	}
	result, err := intercept.New(src,
		intercept.WithEndMarker(cfg.EndMarker),
		intercept.WithIdentifier(summary.ID),
		intercept.WithLogger(logger),
	).Run(ctx)
	if err != nil {
		return err
	}

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return err
	}
	output, closeOutput, err := openReportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // best-effort close of the report file

	p := pipeline.CapturePipeline(pipeline.CaptureConfig{
		Analyzer: analyzer,
		Writer:   newReportWriter(cmd, cfg, output, !noTrials),
		Logger:   logger,
	})
	rep := pipeline.NewCaptureReport("demo", result, cfg.EndMarker, summary.ID)
	return p.Execute(context.WithoutCancel(ctx), rep)
}

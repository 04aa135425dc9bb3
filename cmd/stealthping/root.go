package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for stealthping.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stealthping",
		Short: "Covert messages over ICMP Echo Requests",
		Long: `stealthping sends a message as a series of ping packets, one hidden byte
per packet, and captures and decodes such a series on the receiving side.

Messages are meant to be Caesar-shifted first (see "encrypt"). The capture
side breaks the shift by trying all 26 keys and ranking the candidates with
language profiles, so the key never has to be shared.

Sending and live capture need raw sockets (root or CAP_NET_RAW).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .stealthping in current or home directory)")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON lines")
	cmd.PersistentFlags().Bool("no-color", false, "Disable styling in text reports")

	cmd.AddCommand(NewEncryptCmd())
	cmd.AddCommand(NewDecryptCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewSendCmd())
	cmd.AddCommand(NewCaptureCmd())
	cmd.AddCommand(NewDemoCmd())
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

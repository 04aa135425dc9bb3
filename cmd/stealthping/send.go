package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/stealthping/internal/cipher"
	"github.com/nao1215/stealthping/internal/config"
	"github.com/nao1215/stealthping/internal/packet"
	"github.com/nao1215/stealthping/internal/report"
	"github.com/nao1215/stealthping/internal/transmit"
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <target> <message>",
		Short: "Send a message hidden in ICMP Echo Requests",
		Long: `Send transmits message to target, one byte per Echo Request, followed by a
packet carrying the end marker. Packets look like those of the ping utility:
same header, same payload size and filler, one second apart.

The message is sent as given; shift it first with "encrypt", or pass --key
to have send do it.

Raw sockets need root or CAP_NET_RAW. Use --dry-run together with
--pcap-out to produce a capture file without privileges; "capture --pcap"
can replay it.

Examples:
  sudo stealthping send 10.0.0.2 'Khoor Zruog'
  sudo stealthping send --key 3 example.com 'Hello World'
  stealthping send --dry-run --interval 0 --pcap-out hello.pcap 127.0.0.1 'Khoor Zruog'`,
		Args: cobra.ExactArgs(2),
		RunE: runSendCmd,
	}

	cmd.Flags().DurationP("interval", "i", config.DefaultInterval,
		"Pause after each data packet")
	cmd.Flags().StringP("end-marker", "e", config.FormatEndMarker(config.DefaultEndMarker),
		"Data byte of the final packet: one ASCII character, 'c' or a hex byte like 0x0c")
	cmd.Flags().String("variant", packet.Classic.String(),
		"Payload layout: classic (32 bytes) or timestamped (56 bytes)")
	cmd.Flags().Int("id", config.AutoIdentifier,
		"ICMP identifier (default: process id)")
	cmd.Flags().StringP("key", "k", "", "Encrypt message with this key before sending")
	cmd.Flags().String("pcap-out", "", "Record every packet to this pcap file")
	cmd.Flags().Bool("dry-run", false, "Build packets without opening a raw socket")
	cmd.Flags().Bool("explain", false, "Describe the layout of a normal ping packet first")

	return cmd
}

// buildSendConfig merges defaults, the config file and explicit flags.
func buildSendConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	file, err := loadConfigFile(cmd)
	if err != nil {
		return nil, err
	}
	if file != nil {
		if err := file.ApplySend(cfg); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("interval") {
		if cfg.Interval, err = flags.GetDuration("interval"); err != nil {
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
	if flags.Changed("variant") {
		s, err := flags.GetString("variant")
		if err != nil {
			return nil, err
		}
		if cfg.Variant, err = packet.ParseVariant(s); err != nil {
			return nil, err
		}
	}
	if flags.Changed("id") {
		if cfg.Identifier, err = flags.GetInt("id"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("pcap-out") {
		if cfg.PcapOut, err = flags.GetString("pcap-out"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func runSendCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)
	out := cmd.OutOrStdout()

	cfg, err := buildSendConfig(cmd)
	if err != nil {
		return err
	}

	message := args[1]
	keyFlag, err := cmd.Flags().GetString("key")
	if err != nil {
		return err
	}
	if keyFlag != "" {
		key, err := cipher.ParseKey(keyFlag)
		if err != nil {
			return fmt.Errorf("%q: %w", keyFlag, err)
		}
		message = cipher.Encrypt(message, key)
	}

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	explain, err := cmd.Flags().GetBool("explain")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	// Resolve before opening anything, so a bad target sends nothing.
	dst, err := transmit.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	sender, err := openSender(cfg, dst, dryRun)
	if err != nil {
		return err
	}
	defer sender.Close()

	if explain {
		explainPing(out, cfg)
	}

	opts := []transmit.Option{
		transmit.WithInterval(cfg.Interval),
		transmit.WithEndMarker(cfg.EndMarker),
		transmit.WithVariant(cfg.Variant),
		transmit.WithLogger(logger),
		transmit.WithProgress(func(p transmit.Progress) {
			if p.EndMarker {
				fmt.Fprintf(out, "Packet %d/%d: end marker %s\n", p.Seq, p.Total, report.FormatByte(p.Data))
				return
			}
			fmt.Fprintf(out, "Packet %d/%d: %s\n", p.Seq, p.Total, report.FormatByte(p.Data))
		}),
	}
	if cfg.HasIdentifier() {
		opts = append(opts, transmit.WithID(uint16(cfg.Identifier))) //nolint:gosec // validated to 0-65535
	}
	tr := transmit.New(sender, opts...)

	mode := "Sending"
	if dryRun {
		mode = "Dry run:"
	}
	fmt.Fprintf(out, "%s %d bytes to %s (id %d, %s payload, %s apart)\n",
		mode, len(message), dst, tr.ID(), cfg.Variant, cfg.Interval)
	fmt.Fprintln(out, "--------------------------------------------------")

	summary, err := tr.Run(ctx, []byte(message))
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("interrupted after %d of %d packets", summary.Sent, summary.Total)
		}
		return err
	}

	fmt.Fprintln(out, "--------------------------------------------------")
	fmt.Fprintf(out, "Transmission complete: %d packets in %s\n", summary.Sent, summary.Elapsed.Round(time.Millisecond))
	if cfg.PcapOut != "" {
		fmt.Fprintf(out, "Packets recorded to %s\n", cfg.PcapOut)
	}
	return nil
}

// openSender returns the raw socket sender, a discarding one for dry runs,
// and records to cfg.PcapOut when set.
func openSender(cfg *config.Config, dst *net.IPAddr, dryRun bool) (transmit.Sender, error) {
	var senders []transmit.Sender

	if dryRun {
		senders = append(senders, transmit.Discard)
	} else {
		raw, err := transmit.NewRawSender(dst)
		if err != nil {
			if errors.Is(err, transmit.ErrPermission) {
				return nil, fmt.Errorf("%w (run as root, or use --dry-run with --pcap-out)", err)
			}
			return nil, err
		}
		senders = append(senders, raw)
	}

	if cfg.PcapOut != "" {
		rec, err := transmit.CreatePcapFile(cfg.PcapOut, localAddrFor(dst.IP), dst.IP)
		if err != nil {
			for _, s := range senders {
				_ = s.Close()
			}
			return nil, err
		}
		senders = append(senders, rec)
	}

	if len(senders) == 1 {
		return senders[0], nil
	}
	return transmit.Tee(senders...), nil
}

// localAddrFor returns the local address the kernel would use to reach dst.
// Connecting a UDP socket sends nothing.
func localAddrFor(dst net.IP) net.IP {
	conn, err := net.Dial("udp4", net.JoinHostPort(dst.String(), "9"))
	if err != nil {
		return net.IPv4zero
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP
	}
	return net.IPv4zero
}

// explainPing describes what an ordinary ping looks like and how the
// covert packets differ.
func explainPing(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "============================================================")
	fmt.Fprintln(w, "NORMAL PING PACKET STRUCTURE (for comparison)")
	fmt.Fprintln(w, "============================================================")
	fmt.Fprintln(w, "ICMP header (8 bytes):")
	fmt.Fprintln(w, "  Type:       8 (Echo Request)")
	fmt.Fprintln(w, "  Code:       0")
	fmt.Fprintln(w, "  Checksum:   RFC 1071 over header and payload")
	fmt.Fprintln(w, "  Identifier: process id")
	fmt.Fprintln(w, "  Sequence:   1, 2, 3, ...")
	fmt.Fprintf(w, "\nICMP payload (%d bytes, %s):\n", cfg.Variant.PayloadLen(), cfg.Variant)
	fmt.Fprintln(w, "  Byte 0:     message byte")
	if cfg.Variant == packet.Timestamped {
		fmt.Fprintln(w, "  Bytes 1-8:  send time, Unix nanoseconds")
		fmt.Fprintln(w, "  Bytes 9-55: filler 0x08, 0x09, 0x0a, ...")
	} else {
		fmt.Fprintln(w, "  Bytes 1-31: filler 0x08, 0x09, 0x0a, ...")
	}
	fmt.Fprintln(w, "\nThe header, payload size and timing match an ordinary ping. Only")
	fmt.Fprintln(w, "the first payload byte changes. The last packet carries the end")
	fmt.Fprintf(w, "marker %s.\n", report.FormatByte(cfg.EndMarker))
	fmt.Fprintln(w, "============================================================")
	fmt.Fprintln(w)
}

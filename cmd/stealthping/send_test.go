package main

import (
	"bytes"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/stealthping/internal/config"
	"github.com/nao1215/stealthping/internal/packet"
	"github.com/nao1215/stealthping/internal/transmit"
)

func TestNewSendCmd(t *testing.T) {
	t.Parallel()

	cmd := NewSendCmd()
	if cmd.Use != "send <target> <message>" {
		t.Errorf("unexpected Use: %q", cmd.Use)
	}

	defaults := map[string]string{
		"interval":   "1s",
		"end-marker": "b",
		"variant":    "classic",
		"id":         "-1",
		"dry-run":    "false",
		"explain":    "false",
	}
	for name, want := range defaults {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Errorf("expected flag %q", name)
			continue
		}
		if f.DefValue != want {
			t.Errorf("flag %q: default %q, want %q", name, f.DefValue, want)
		}
	}
}

func TestRunSendCmd(t *testing.T) {
	t.Parallel()

	t.Run("dry run records packets", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		pcapPath := filepath.Join(dir, "sent.pcap")

		res, err := runCLI(t, dir, "send", "--dry-run", "--interval", "0", "--id", "4242",
			"--pcap-out", pcapPath, "127.0.0.1", "Khoor")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, res.stderr)
		}

		for _, want := range []string{
			"Dry run: 5 bytes to 127.0.0.1 (id 4242",
			"Packet 1/6: 'K'",
			"Packet 5/6: 'r'",
			"Packet 6/6: end marker 'b'",
			"Transmission complete: 6 packets",
			"Packets recorded to " + pcapPath,
		} {
			if !strings.Contains(res.stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, res.stdout)
			}
		}

		info, err := os.Stat(pcapPath)
		if err != nil {
			t.Fatalf("pcap not written: %v", err)
		}
		if info.Size() == 0 {
			t.Error("pcap is empty")
		}
	})

	t.Run("key encrypts first", func(t *testing.T) {
		t.Parallel()
		res, err := runCLI(t, t.TempDir(), "send", "--dry-run", "--interval", "0", "--key", "3", "127.0.0.1", "Hi")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(res.stdout, "Packet 1/3: 'K'") || !strings.Contains(res.stdout, "Packet 2/3: 'l'") {
			t.Errorf("message was not encrypted:\n%s", res.stdout)
		}
	})

	t.Run("explain", func(t *testing.T) {
		t.Parallel()
		res, err := runCLI(t, t.TempDir(), "send", "--dry-run", "--explain", "--interval", "0",
			"--variant", "timestamped", "127.0.0.1", "x")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"NORMAL PING PACKET STRUCTURE", "56 bytes, timestamped", "Bytes 1-8"} {
			if !strings.Contains(res.stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, res.stdout)
			}
		}
	})

	t.Run("invalid end marker", func(t *testing.T) {
		t.Parallel()
		_, err := runCLI(t, t.TempDir(), "send", "--dry-run", "--end-marker", "bb", "127.0.0.1", "x")
		if !errors.Is(err, config.ErrInvalidEndMarker) {
			t.Errorf("expected ErrInvalidEndMarker, got %v", err)
		}
	})

	t.Run("bare multi-digit end marker is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := runCLI(t, t.TempDir(), "send", "--dry-run", "--end-marker", "12", "127.0.0.1", "x")
		if !errors.Is(err, config.ErrInvalidEndMarker) {
			t.Errorf("expected ErrInvalidEndMarker, got %v", err)
		}
	})

	t.Run("invalid identifier", func(t *testing.T) {
		t.Parallel()
		_, err := runCLI(t, t.TempDir(), "send", "--dry-run", "--id", "70000", "127.0.0.1", "x")
		if !errors.Is(err, config.ErrInvalidIdentifier) {
			t.Errorf("expected ErrInvalidIdentifier, got %v", err)
		}
	})

	t.Run("ipv6 target", func(t *testing.T) {
		t.Parallel()
		_, err := runCLI(t, t.TempDir(), "send", "--dry-run", "::1", "x")
		if !errors.Is(err, transmit.ErrUnresolvable) {
			t.Errorf("expected ErrUnresolvable, got %v", err)
		}
	})
}

func TestExplainPing(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := config.NewConfig()
	cfg.Variant = packet.Classic
	explainPing(&buf, cfg)

	out := buf.String()
	for _, want := range []string{"Type:       8 (Echo Request)", "32 bytes, classic", "Bytes 1-31", "marker 'b'"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestLocalAddrFor(t *testing.T) {
	t.Parallel()

	ip := localAddrFor(net.IPv4(127, 0, 0, 1))
	if ip == nil || ip.To4() == nil {
		t.Errorf("expected an IPv4 address, got %v", ip)
	}
}

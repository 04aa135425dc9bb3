package main

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "stealthping" {
			t.Errorf("expected use 'stealthping', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty short and long descriptions")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has global flags", func(t *testing.T) {
		t.Parallel()
		for name, short := range map[string]string{"verbose": "v", "config": "c", "log-json": "", "no-color": ""} {
			flag := cmd.PersistentFlags().Lookup(name)
			if flag == nil {
				t.Errorf("expected %s flag", name)
				continue
			}
			if flag.Shorthand != short {
				t.Errorf("flag %s: expected shorthand %q, got %q", name, short, flag.Shorthand)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := []string{"encrypt", "decrypt", "analyze", "send", "capture", "demo", "history", "init", "version"}
		have := make(map[string]bool)
		for _, sub := range cmd.Commands() {
			have[strings.Fields(sub.Use)[0]] = true
		}
		for _, name := range want {
			if !have[name] {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

func TestGetVerboseFlag(t *testing.T) {
	t.Parallel()

	t.Run("standalone command without the flag", func(t *testing.T) {
		t.Parallel()
		if getVerboseFlag(NewEncryptCmd()) {
			t.Error("expected false when the flag is not defined")
		}
	})

	t.Run("inherited from root", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		if err := root.PersistentFlags().Set("verbose", "true"); err != nil {
			t.Fatal(err)
		}
		sub, _, err := root.Find([]string{"analyze"})
		if err != nil {
			t.Fatal(err)
		}
		if !getVerboseFlag(sub) {
			t.Error("expected verbose from the root persistent flag")
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing path is an error", func(t *testing.T) {
		t.Parallel()
		_, err := runCLI(t, t.TempDir(), "--config", "/nonexistent/stealthping.yaml", "encrypt", "a", "1")
		// encrypt does not read the config file.
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = runCLI(t, t.TempDir(), "--config", "/nonexistent/stealthping.yaml", "analyze", "Khoor")
		if err == nil || !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected config not found error, got %v", err)
		}
	})

	t.Run("invalid values are reported", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		res, err := runCLI(t, dir, "analyze", "--threshold", "1.5", "Khoor")
		if err == nil || !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got %v (stdout %q)", err, res.stdout)
		}
	})
}

// TestGlobalFlags_LogJSON is not parallel: it inspects the default logger.
func TestGlobalFlags_LogJSON(t *testing.T) {
	res, err := runCLI(t, t.TempDir(), "--log-json", "-v", "analyze", "-p", "english", "Khoor Zruog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(res.stderr), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatal("expected debug logs on stderr")
	}
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		if _, ok := entry["msg"]; !ok {
			t.Errorf("log line without msg: %q", line)
		}
	}
}

func TestGlobalFlags_NoColor(t *testing.T) {
	t.Parallel()

	res, err := runCLI(t, t.TempDir(), "--no-color", "analyze", "-p", "english", "Khoor Zruog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(res.stdout, "\x1b[") {
		t.Errorf("expected no ANSI escapes:\n%q", res.stdout)
	}
	if !strings.Contains(res.stdout, "<= selected") {
		t.Errorf("expected the selected marker:\n%s", res.stdout)
	}
}

package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/nao1215/stealthping/internal/config"
	"github.com/nao1215/stealthping/internal/cryptanalysis"
	"github.com/nao1215/stealthping/internal/model"
	"github.com/nao1215/stealthping/internal/report"
)

func TestNewAnalyzeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()
	for flag, shorthand := range map[string]string{
		"profile":   "p",
		"threshold": "",
		"json":      "j",
		"markdown":  "m",
		"output":    "o",
		"file":      "f",
		"no-trials": "",
		"batch":     "",
	} {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}
}

func TestRunAnalyzeCmd(t *testing.T) {
	t.Parallel()

	t.Run("json report", func(t *testing.T) {
		t.Parallel()
		res, err := runCLI(t, t.TempDir(), "analyze", "--profile", "english", "--json", "Khoor Zruog")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got report.JSONReport
		if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, res.stdout)
		}
		a := got.Analysis
		if a == nil || a.Selected == nil {
			t.Fatalf("expected a selected candidate: %+v", a)
		}
		if a.Selected.Key != 3 || a.Selected.Text != "Hello World" {
			t.Errorf("selected = %+v", a.Selected)
		}
		if a.Verdict != model.VerdictPreferred {
			t.Errorf("verdict = %v", a.Verdict)
		}
		if len(a.Trials) != 26 {
			t.Errorf("got %d trials", len(a.Trials))
		}
	})

	t.Run("simple report", func(t *testing.T) {
		t.Parallel()
		res, err := runCLI(t, t.TempDir(), "analyze", "-p", "english", "Khoor Zruog")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"STEALTHPING ANALYSIS", "TRIALS", "Hello World"} {
			if !strings.Contains(res.stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, res.stdout)
			}
		}
	})

	t.Run("no-trials hides the key table", func(t *testing.T) {
		t.Parallel()
		res, err := runCLI(t, t.TempDir(), "analyze", "-p", "english", "--no-trials", "Khoor Zruog")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(res.stdout, "TRIALS") {
			t.Errorf("expected no trials section:\n%s", res.stdout)
		}
		if !strings.Contains(res.stdout, "Hello World") {
			t.Errorf("expected the selected plaintext:\n%s", res.stdout)
		}
	})

	t.Run("markdown report to file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "out", "report.md")
		res, err := runCLI(t, dir, "analyze", "-p", "english", "--markdown", "-o", path, "Khoor Zruog")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.stdout != "" {
			t.Errorf("expected nothing on stdout, got %q", res.stdout)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("report not written: %v", err)
		}
		if !strings.Contains(string(data), "# Stealthping Analysis") {
			t.Errorf("unexpected markdown:\n%s", data)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()
		_, err := runCLI(t, t.TempDir(), "analyze", "--json", "--markdown", "Khoor")
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("unknown profile", func(t *testing.T) {
		t.Parallel()
		if _, err := runCLI(t, t.TempDir(), "analyze", "-p", "klingon", "Khoor"); err == nil {
			t.Error("expected error for unknown profile")
		}
	})

	t.Run("batch from file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		list := filepath.Join(dir, "messages.txt")
		if err := os.WriteFile(list, []byte("Khoor Zruog\n\nUryyb Jbeyq\r\n"), 0600); err != nil {
			t.Fatal(err)
		}

		res, err := runCLI(t, dir, "analyze", "-p", "english", "--file", list)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := strings.Count(res.stdout, "STEALTHPING ANALYSIS"); n != 2 {
			t.Errorf("expected 2 reports, got %d:\n%s", n, res.stdout)
		}
		first := strings.Index(res.stdout, "Khoor Zruog")
		second := strings.Index(res.stdout, "Uryyb Jbeyq")
		if first < 0 || second < 0 || first > second {
			t.Errorf("reports are not in input order:\n%s", res.stdout)
		}
	})
}

func TestAnalyzeInputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blank := filepath.Join(dir, "blank.txt")
	if err := os.WriteFile(blank, []byte("\n  \n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		file    string
		want    int
		wantErr error
	}{
		{name: "argument", args: []string{"Khoor"}, want: 1},
		{name: "empty argument", args: []string{""}, wantErr: cryptanalysis.ErrEmptyCiphertext},
		{name: "blank file", file: blank, wantErr: cryptanalysis.ErrEmptyCiphertext},
		{name: "nothing", want: 0},
		{name: "both", args: []string{"Khoor"}, file: blank, want: 0},
		{name: "missing file", file: filepath.Join(dir, "missing.txt"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := analyzeInputs(tt.args, tt.file)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if tt.want == 0 {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d inputs, want %d", len(got), tt.want)
			}
		})
	}
}

var (
	ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	trialRow   = regexp.MustCompile(`^\s+(\d+)\s+-?\d+\.\d{2}\s{2}`)
)

func TestAnalyze_DefaultOutputListsEveryKey(t *testing.T) {
	t.Parallel()

	res, err := runCLI(t, t.TempDir(), "analyze", "-p", "english", "Khoor Zruog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := ansiEscape.ReplaceAllString(res.stdout, "")
	_, table, found := strings.Cut(out, "TRIALS")
	if !found {
		t.Fatalf("expected a TRIALS section:\n%s", out)
	}
	table, _, _ = strings.Cut(table, "BEST CANDIDATES")

	seen := make(map[int]bool)
	for _, line := range strings.Split(table, "\n") {
		m := trialRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key, err := strconv.Atoi(m[1])
		if err != nil {
			t.Fatalf("bad key in %q: %v", line, err)
		}
		seen[key] = true
	}

	for key := 0; key < 26; key++ {
		if !seen[key] {
			t.Errorf("key %d missing from the trials table:\n%s", key, table)
		}
	}
	if len(seen) != 26 {
		t.Errorf("got %d distinct keys, want 26", len(seen))
	}

	if !strings.Contains(table, "Hello World") {
		t.Errorf("expected the key 3 row to hold the plaintext:\n%s", table)
	}
}

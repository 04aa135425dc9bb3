package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nao1215/stealthping/internal/report"
)

func TestRunDemoCmd(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		res, err := runCLI(t, t.TempDir(), "demo", "-p", "english", "--json", "Hello World", "3")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, res.stderr)
		}
		if !strings.Contains(res.stderr, "Ciphertext: Khoor Zruog") {
			t.Errorf("expected ciphertext on stderr:\n%s", res.stderr)
		}

		var got report.JSONReport
		if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, res.stdout)
		}
		c := got.Capture
		if c == nil || c.Source != "demo" || c.Text != "Khoor Zruog" || !c.Complete() {
			t.Fatalf("capture = %+v", c)
		}
		if c.Analysis == nil || c.Analysis.Selected == nil || c.Analysis.Selected.Key != 3 {
			t.Errorf("analysis = %+v", c.Analysis)
		}
		if c.ID != 0 {
			t.Error("demo sessions are not stored")
		}
	})

	t.Run("timestamped variant and custom marker", func(t *testing.T) {
		t.Parallel()
		res, err := runCLI(t, t.TempDir(), "demo", "-p", "english", "--variant", "timestamped",
			"--end-marker", "0", "attack at dawn", "13")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(res.stdout, "attack at dawn") {
			t.Errorf("plaintext not recovered:\n%s", res.stdout)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		t.Parallel()
		if _, err := runCLI(t, t.TempDir(), "demo", "Hello", "x"); err == nil {
			t.Error("expected error for invalid key")
		}
	})
}

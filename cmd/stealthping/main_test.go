package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// cliResult holds what a command wrote.
type cliResult struct {
	stdout string
	stderr string
}

// testConfig writes a config file keeping the history database in dir, so
// tests never touch the user's files.
func testConfig(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "stealthping.yaml")
	content := "database:\n  dir: " + filepath.Join(dir, "db") + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// runCLI executes the root command with args and an isolated config.
func runCLI(t *testing.T, dir string, args ...string) (cliResult, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", testConfig(t, dir)}, args...))

	err := cmd.Execute()
	return cliResult{stdout: stdout.String(), stderr: stderr.String()}, err
}

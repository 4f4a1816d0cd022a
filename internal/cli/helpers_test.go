package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// quietConfig keeps backends fast and deterministic and silences logs.
const quietConfig = `
backend:
  min_latency: 0s
  max_latency: 0s
  failure_rate: 0
observe:
  logging:
    enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toolproxy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// execute runs the root command and captures its output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

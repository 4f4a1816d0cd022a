package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestGetExitCode(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", base, ExitFailure},
		{"command error", commandError("bad flag", nil), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("run: %w", &ExitError{Code: ExitFailure, Message: "x"}), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExitError_Message(t *testing.T) {
	base := errors.New("no such file")
	err := commandError("load config", base)
	if got, want := err.Error(), "load config: no such file"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Error("ExitError should unwrap to its cause")
	}
	if got := (&ExitError{Message: "only message"}).Error(); got != "only message" {
		t.Errorf("Error() = %q, want %q", got, "only message")
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	text := printer{format: "text", w: &buf}
	text.textf("hello %s\n", "there")
	if err := text.document(map[string]int{"a": 1}); err != nil {
		t.Fatalf("document() error = %v", err)
	}
	if got := buf.String(); got != "hello there\n" {
		t.Errorf("text output = %q, want %q", got, "hello there\n")
	}

	buf.Reset()
	js := printer{format: "json", w: &buf}
	js.textf("ignored\n")
	if err := js.document(map[string]int{"a": 1}); err != nil {
		t.Fatalf("document() error = %v", err)
	}
	if got, want := buf.String(), "{\n  \"a\": 1\n}\n"; got != want {
		t.Errorf("json output = %q, want %q", got, want)
	}
}

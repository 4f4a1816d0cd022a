package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func parseLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line as JSON: %v\nLine: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestLogger_IncludesOperationFields verifies operation fields are present in log output.
func TestLogger_IncludesOperationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.WithOperation(OperationMeta{Operation: "payment", Role: "free"}).
		Info(context.Background(), "test message")

	entries := parseLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["operation.type"] != "payment" {
		t.Errorf("expected operation.type=payment, got %v", entry["operation.type"])
	}
	if entry["operation.role"] != "free" {
		t.Errorf("expected operation.role=free, got %v", entry["operation.role"])
	}
	if entry["msg"] != "test message" || entry["level"] != "info" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["timestamp"].(string); !ok {
		t.Errorf("expected timestamp string, got %v", entry["timestamp"])
	}
}

// TestLogger_OmitsEmptyRole verifies role is left out when unknown.
func TestLogger_OmitsEmptyRole(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).
		WithOperation(OperationMeta{Operation: "report"}).
		Info(context.Background(), "m")

	entry := parseLines(t, &buf)[0]
	if _, ok := entry["operation.role"]; ok {
		t.Errorf("operation.role should be absent, got %v", entry["operation.role"])
	}
}

// TestLogger_WithOperationDoesNotMutateParent verifies scoping creates a copy.
func TestLogger_WithOperationDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.WithOperation(OperationMeta{Operation: "image"})

	parent.Info(context.Background(), "plain")

	entry := parseLines(t, &buf)[0]
	if _, ok := entry["operation.type"]; ok {
		t.Error("parent logger picked up child attributes")
	}
}

// TestLogger_Redaction verifies sensitive fields are redacted.
func TestLogger_Redaction(t *testing.T) {
	for _, key := range RedactedFields {
		t.Run(key, func(t *testing.T) {
			var buf bytes.Buffer
			NewLoggerWithWriter("info", &buf).Info(context.Background(), "m",
				Field{Key: key, Value: "sensitive"},
				Field{Key: "visible", Value: "plain"},
			)

			entry := parseLines(t, &buf)[0]
			if entry[key] != "[REDACTED]" {
				t.Errorf("%s = %v, want [REDACTED]", key, entry[key])
			}
			if entry["visible"] != "plain" {
				t.Errorf("visible = %v, want plain", entry["visible"])
			}
		})
	}
}

// TestLogger_LevelFiltering verifies entries below the level are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"debug", "info", "warn", "error"}},
		{"info", []string{"info", "warn", "error"}},
		{"warn", []string{"warn", "error"}},
		{"error", []string{"error"}},
		{"bogus", []string{"info", "warn", "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()
			logger.Debug(ctx, "d")
			logger.Info(ctx, "i")
			logger.Warn(ctx, "w")
			logger.Error(ctx, "e")

			entries := parseLines(t, &buf)
			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.want))
			}
			for i, e := range entries {
				if e["level"] != tt.want[i] {
					t.Errorf("entry %d level = %v, want %v", i, e["level"], tt.want[i])
				}
			}
		})
	}
}

// TestLogger_UnencodableFieldDropped verifies a bad entry is dropped silently.
func TestLogger_UnencodableFieldDropped(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Info(context.Background(), "m", Field{Key: "ch", Value: make(chan int)})

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

// TestLogger_ConcurrentWritesShareLock verifies scoped loggers never interleave lines.
func TestLogger_ConcurrentWritesShareLock(t *testing.T) {
	var buf bytes.Buffer
	root := NewLoggerWithWriter("info", &buf)
	a := root.WithOperation(OperationMeta{Operation: "payment"})
	b := root.WithOperation(OperationMeta{Operation: "report"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); a.Info(context.Background(), "a") }()
		go func() { defer wg.Done(); b.Info(context.Background(), "b") }()
	}
	wg.Wait()

	if got := len(parseLines(t, &buf)); got != 100 {
		t.Errorf("got %d lines, want 100", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if tt.in != "" && tt.in != "verbose" && ParseLogLevel(tt.in).String() != tt.in {
			t.Errorf("ParseLogLevel(%q).String() = %q", tt.in, ParseLogLevel(tt.in).String())
		}
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "invocation.payment")
	defer span.End()

	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	logger.Info(ctx, "inside span")
	logger.Info(context.Background(), "outside span")

	entries := parseLines(t, &buf)
	if got, want := entries[0]["trace_id"], span.SpanContext().TraceID().String(); got != want {
		t.Errorf("trace_id = %v, want %v", got, want)
	}
	if got, want := entries[0]["span_id"], span.SpanContext().SpanID().String(); got != want {
		t.Errorf("span_id = %v, want %v", got, want)
	}
	if _, ok := entries[1]["trace_id"]; ok {
		t.Error("trace_id present without a span")
	}
}

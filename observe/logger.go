package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel orders log severities.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

// ParseLogLevel parses a level name. Unknown names mean info.
func ParseLogLevel(s string) LogLevel {
	if i := slices.Index(levelNames[:], s); i >= 0 {
		return LogLevel(i)
	}
	return LevelInfo
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "info"
	}
	return levelNames[l]
}

// sink serializes whole lines from every logger sharing one writer.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(append(line, '\n'))
}

// jsonLogger writes one JSON object per line. Lines carry the span and
// trace ids when ctx carries a valid span context.
type jsonLogger struct {
	min   LogLevel
	out   *sink
	attrs []Field
}

// NewLogger creates a JSON logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &jsonLogger{min: ParseLogLevel(level), out: &sink{w: w}}
}

// WithOperation returns a logger whose lines name the operation and role.
func (l *jsonLogger) WithOperation(meta OperationMeta) Logger {
	attrs := append(slices.Clip(l.attrs), Field{Key: "operation.type", Value: meta.Operation})
	if meta.Role != "" {
		attrs = append(attrs, Field{Key: "operation.role", Value: meta.Role})
	}
	return &jsonLogger{min: l.min, out: l.out, attrs: attrs}
}

func (l *jsonLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelDebug, msg, fields)
}

func (l *jsonLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelInfo, msg, fields)
}

func (l *jsonLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelWarn, msg, fields)
}

func (l *jsonLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelError, msg, fields)
}

func (l *jsonLogger) write(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.min {
		return
	}

	line := make(map[string]any, len(l.attrs)+len(fields)+5)
	line["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	line["level"] = level.String()
	line["msg"] = msg
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		line["trace_id"] = sc.TraceID().String()
		line["span_id"] = sc.SpanID().String()
	}
	for _, f := range slices.Concat(l.attrs, fields) {
		if slices.Contains(RedactedFields, f.Key) {
			line[f.Key] = "[REDACTED]"
			continue
		}
		line[f.Key] = f.Value
	}

	data, err := json.Marshal(line)
	if err != nil {
		return
	}
	l.out.write(data)
}

var _ Logger = (*jsonLogger)(nil)

package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestNewTracingExporter(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{name: "stdout"},
		{name: "none"},
		{name: ""},
		{name: "otlp", wantErr: ErrEndpointNotConfigured},
		{name: "otlp", env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "http://localhost:4317"}},
		{name: "otlp", env: map[string]string{"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT": "http://localhost:4317"}},
		{name: "jaeger", wantErr: ErrEndpointNotConfigured},
		{name: "jaeger", env: map[string]string{"OTEL_EXPORTER_JAEGER_ENDPOINT": "http://localhost:4317"}},
		{name: "zipkin", wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
			t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
			t.Setenv("OTEL_EXPORTER_JAEGER_ENDPOINT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			exp, err := NewTracingExporter(context.Background(), tt.name, Options{})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewTracingExporter(%q) error = %v, want %v", tt.name, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTracingExporter(%q) error = %v", tt.name, err)
			}
			if exp == nil {
				t.Fatal("expected non-nil exporter")
			}
			_ = exp.Shutdown(context.Background())
		})
	}
}

func TestNewMetricsReader(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{name: "stdout"},
		{name: "none"},
		{name: "prometheus"},
		{name: "otlp", wantErr: ErrEndpointNotConfigured},
		{name: "otlp", env: map[string]string{"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT": "http://localhost:4317"}},
		{name: "statsd", wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
			t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			reader, err := NewMetricsReader(context.Background(), tt.name, Options{})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewMetricsReader(%q) error = %v, want %v", tt.name, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewMetricsReader(%q) error = %v", tt.name, err)
			}
			if reader == nil {
				t.Fatal("expected non-nil reader")
			}
		})
	}
}

func TestOptions_Writer(t *testing.T) {
	var buf bytes.Buffer
	if (Options{Writer: &buf}).writer() != &buf {
		t.Error("writer() did not return the configured writer")
	}
	if (Options{}).writer() == nil {
		t.Error("writer() default is nil")
	}
}

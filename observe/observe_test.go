package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ServiceName: "toolproxy",
			Version:     "1.0.0",
			Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
			Metrics:     MetricsConfig{Enabled: true, Exporter: "stdout"},
			Logging:     LoggingConfig{Enabled: true, Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, ErrMissingServiceName},
		{"unknown tracing exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }, ErrInvalidTracingExporter},
		{"sample pct too high", func(c *Config) { c.Tracing.SamplePct = 1.5 }, ErrInvalidSamplePct},
		{"sample pct negative", func(c *Config) { c.Tracing.SamplePct = -0.1 }, ErrInvalidSamplePct},
		{"unknown metrics exporter", func(c *Config) { c.Metrics.Exporter = "statsd" }, ErrInvalidMetricsExporter},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }, ErrInvalidLogLevel},
		{"disabled parts are not checked", func(c *Config) {
			c.Tracing = TracingConfig{Exporter: "zipkin", SamplePct: 7}
			c.Metrics = MetricsConfig{Exporter: "statsd"}
			c.Logging = LoggingConfig{Level: "trace"}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	if _, err := NewObserver(context.Background(), Config{}); !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("NewObserver() error = %v, want ErrMissingServiceName", err)
	}
}

func TestNewObserver_ExporterFailure(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	_, err := NewObserver(context.Background(), Config{
		ServiceName: "toolproxy",
		Tracing:     TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 1},
	})
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("NewObserver() error = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestNewObserver_Enabled(t *testing.T) {
	var out bytes.Buffer
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "toolproxy",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
		Output:      &out,
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}

	obs.Logger().Info(context.Background(), "hello")
	if out.Len() == 0 {
		t.Error("logger did not write to Output")
	}

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	if mw == nil {
		t.Fatal("MiddlewareFromObserver() = nil")
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

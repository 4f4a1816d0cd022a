package observe

import (
	"errors"

	"github.com/jonwraymond/toolproxy/observe/exporters"
)

// Errors returned by Config.Validate.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
)

var (
	// ErrNilObserver is returned when middleware is built from a nil Observer.
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrMissingOperation is returned for an OperationMeta without an operation.
	ErrMissingOperation = errors.New("observe: operation type is required")
)

// ErrEndpointNotConfigured indicates a required endpoint environment variable is not set.
var ErrEndpointNotConfigured = exporters.ErrEndpointNotConfigured

// Bounds for TracingConfig.SamplePct.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// Accepted names for exporters and log levels. Empty means the default.
var (
	ValidTracingExporters = []string{"otlp", "jaeger", "stdout", "none", ""}
	ValidMetricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}
	ValidLogLevels        = []string{"debug", "info", "warn", "error", ""}
)

// RedactedFields are log field keys whose values are replaced with
// "[REDACTED]". Invocation arguments are redacted along with credentials.
var RedactedFields = []string{
	"args",
	"positional",
	"keyword",
	"input",
	"inputs",
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"credential",
}

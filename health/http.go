package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// LivenessHandler returns an HTTP handler for liveness probes.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "OK")
	}
}

// ReadinessHandler returns an HTTP handler that runs all checks and answers
// 200 while every pipeline is serving (healthy or degraded).
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := agg.OverallStatus(agg.CheckAll(ctx))
		switch status {
		case StatusHealthy:
			writeText(w, http.StatusOK, "OK")
		case StatusDegraded:
			writeText(w, http.StatusOK, "DEGRADED")
		default:
			writeText(w, http.StatusServiceUnavailable, "UNHEALTHY")
		}
	}
}

// HealthResponse is the JSON response for the detailed health endpoint.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is the JSON response for a single health check.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// NewCheckResponse converts a Result into its JSON form.
func NewCheckResponse(result Result) CheckResponse {
	check := CheckResponse{
		Status:   result.Status.String(),
		Message:  result.Message,
		Duration: result.Duration.String(),
		Details:  result.Details,
	}
	if result.Error != nil {
		check.Error = result.Error.Error()
	}
	return check
}

// Report runs all checks and builds the detailed response.
func (a *Aggregator) Report(ctx context.Context) HealthResponse {
	results := a.CheckAll(ctx)

	response := HealthResponse{
		Status:    a.OverallStatus(results).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]CheckResponse, len(results)),
	}
	for name, result := range results {
		response.Checks[name] = NewCheckResponse(result)
	}
	return response
}

// DetailedHandler returns an HTTP handler that provides detailed health information.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		response := agg.Report(ctx)
		code := http.StatusOK
		if response.Status == StatusUnhealthy.String() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, response)
	}
}

// SingleCheckHandler returns an HTTP handler for checking a single component.
func SingleCheckHandler(agg *Aggregator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		result, err := agg.Check(ctx, name)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}

		code := http.StatusOK
		if !result.Status.Serving() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, NewCheckResponse(result))
	}
}

// CheckHandler serves the checker named by the {name} path value.
func CheckHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SingleCheckHandler(agg, r.PathValue("name"))(w, r)
	}
}

// RegisterHandlers mounts /healthz, /readyz, /health and /health/{name}.
// Checker names contain slashes, so the last route matches the rest of the
// path.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator) {
	mux.HandleFunc("GET /healthz", LivenessHandler())
	mux.HandleFunc("GET /readyz", ReadinessHandler(agg))
	mux.HandleFunc("GET /health", DetailedHandler(agg))
	mux.HandleFunc("GET /health/{name...}", CheckHandler(agg))
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolproxy/health"
)

// HealthOptions contains flags for the health command.
type HealthOptions struct {
	Serve bool
	Addr  string
}

// NewHealthCommand creates the health command.
func NewHealthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HealthOptions{}

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report breaker and rate limit health for every pipeline",
		Long: `Build a pipeline for every role and operation in the role table and
report the state of each circuit breaker and rate limiter.

With --serve the report is exposed over HTTP on /healthz, /readyz, /health
and /health/{check} until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Serve, "serve", false, "serve health endpoints over HTTP")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")

	return cmd
}

// aggregator builds a pipeline for every role and operation and registers
// its checkers.
func (a *app) aggregator(ctx context.Context) (*health.Aggregator, error) {
	agg := health.NewAggregator(health.AggregatorConfig{Timeout: a.cfg.Health.Timeout})
	for _, role := range a.cfg.RoleTable().Roles() {
		for _, op := range a.registry.Operations() {
			p, err := a.registry.Get(ctx, op, role)
			if err != nil {
				return nil, err
			}
			agg.Register(p.Name()+"/breaker", health.NewBreakerChecker(p.Name(), p.Breaker()))
			agg.Register(p.Name()+"/ratelimit", health.NewRateLimitChecker(p.Name(), p.Limiter()))
		}
	}
	return agg, nil
}

func runHealth(cmd *cobra.Command, rootOpts *RootOptions, opts *HealthOptions) (err error) {
	ctx := cmd.Context()
	a, err := newApp(ctx, rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.close())
	}()

	agg, err := a.aggregator(ctx)
	if err != nil {
		return commandError("build health checks", err)
	}

	if opts.Serve {
		addr := opts.Addr
		if addr == "" {
			addr = a.cfg.Health.Addr
		}
		return serveHealth(ctx, cmd, addr, agg)
	}

	report := agg.Report(ctx)
	out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
	if err := out.document(report); err != nil {
		return err
	}

	out.textf("%s\n", report.Status)
	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		check := report.Checks[name]
		out.textf("  %-28s %-9s %s\n", name, check.Status, check.Message)
	}

	if report.Status == health.StatusUnhealthy.String() {
		return &ExitError{Code: ExitFailure, Message: "unhealthy"}
	}
	return nil
}

func serveHealth(ctx context.Context, cmd *cobra.Command, addr string, agg *health.Aggregator) error {
	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(cmd.ErrOrStderr(), "serving health on %s\n", addr)

	select {
	case err := <-errCh:
		return commandError("serve health", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return commandError("shutdown health server", err)
	}
	return nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolproxy/auth"
	"github.com/jonwraymond/toolproxy/invocation"
	"github.com/jonwraymond/toolproxy/pipeline"
	"github.com/jonwraymond/toolproxy/resilience"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Keyword  []string
	Repeat   int
	Retry    bool
	Attempts int
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <operation> [positional args...]",
		Short: "Invoke an operation through its pipeline",
		Long: `Invoke an operation through the pipeline for the caller's role.

Argument values are parsed as JSON when possible (100, true, "x") and kept
as strings otherwise.

Example:
  toolproxy invoke payment --role free --arg user=a --arg amount=100 --repeat 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(cmd, opts, args[0], args[1:])
		},
	}

	cmd.Flags().StringArrayVar(&opts.Keyword, "arg", nil, "keyword argument as name=value (repeatable, order kept)")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 1, "number of identical calls")
	cmd.Flags().BoolVar(&opts.Retry, "retry", false, "wait out rate limits and open circuits")
	cmd.Flags().IntVar(&opts.Attempts, "attempts", 3, "attempts per call with --retry")

	return cmd
}

// callOutcome is one call as reported by invoke.
type callOutcome struct {
	Call    int    `json:"call"`
	Kind    string `json:"kind"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// pipelineSummary reports a pipeline's counters.
type pipelineSummary struct {
	Pipeline      string `json:"pipeline"`
	Allowed       bool   `json:"allowed"`
	BreakerState  string `json:"breaker_state"`
	Failures      int    `json:"failures"`
	CacheHits     int64  `json:"cache_hits"`
	RealCalls     int64  `json:"real_calls"`
	RateRemaining int    `json:"rate_remaining"`
	Logged        int    `json:"logged"`
}

func summarize(p *pipeline.Pipeline) pipelineSummary {
	m := p.BreakerMetrics()
	stats := p.CacheStats()
	return pipelineSummary{
		Pipeline:      p.Name(),
		Allowed:       p.Allowed(),
		BreakerState:  m.State.String(),
		Failures:      m.Failures,
		CacheHits:     stats.Hits,
		RealCalls:     stats.Calls,
		RateRemaining: p.Limiter().Remaining(),
		Logged:        p.Log().Len(),
	}
}

type invokeReport struct {
	Calls   []callOutcome   `json:"calls"`
	Summary pipelineSummary `json:"summary"`
}

func runInvoke(cmd *cobra.Command, opts *InvokeOptions, op string, positional []string) (err error) {
	if opts.Repeat < 1 {
		return commandError(fmt.Sprintf("--repeat must be at least 1, got %d", opts.Repeat), nil)
	}
	args, err := parseArgs(positional, opts.Keyword)
	if err != nil {
		return commandError("parse arguments", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.close())
	}()

	id, err := a.identity(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	p, err := a.registry.Get(ctx, invocation.OperationType(op), id.PrimaryRole())
	if err != nil {
		return commandError("select pipeline", err)
	}
	ctx = auth.WithIdentity(ctx, id)

	var inv invocation.Invoker = p
	if opts.Retry {
		inv = resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:      opts.Attempts,
			InitialDelay:     time.Second,
			MaxDelay:         a.cfg.RateLimit.Window,
			RetryUnavailable: true,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				fmt.Fprintf(cmd.ErrOrStderr(), "attempt %d: %v, retrying in %v\n", attempt, err, delay)
			},
		}).Wrap(p)
	}

	out := printer{format: opts.Format, w: cmd.OutOrStdout()}
	report := invokeReport{}
	failed := 0
	for i := 1; i <= opts.Repeat; i++ {
		res, callErr := inv.Invoke(ctx, args)
		kind := pipeline.Classify(res, callErr)
		outcome := callOutcome{Call: i, Kind: kind.String()}

		switch kind {
		case pipeline.KindNone:
			outcome.Value = res.Value
			out.textf("#%d ok: %v\n", i, res.Value)
		case pipeline.KindUnavailable:
			outcome.Message = res.Message
			out.textf("#%d unavailable: %s\n", i, res.Message)
		default:
			failed++
			outcome.Error = callErr.Error()
			out.textf("#%d %s: %v\n", i, kind, callErr)
		}
		report.Calls = append(report.Calls, outcome)
	}

	report.Summary = summarize(p)
	s := report.Summary
	out.textf("%s: breaker %s (%d failures), cache %d hits / %d real calls, %d calls left in window\n",
		s.Pipeline, s.BreakerState, s.Failures, s.CacheHits, s.RealCalls, s.RateRemaining)
	if err := out.document(report); err != nil {
		return err
	}

	if failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d of %d calls failed", failed, opts.Repeat)}
	}
	return nil
}

// parseArgs builds Args from positional values and name=value pairs.
func parseArgs(positional, keyword []string) (invocation.Args, error) {
	args := invocation.Args{}
	for _, raw := range positional {
		args.Positional = append(args.Positional, parseValue(raw))
	}
	for _, pair := range keyword {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return invocation.Args{}, fmt.Errorf("argument %q is not name=value", pair)
		}
		args = args.With(strings.TrimSpace(name), parseValue(raw))
	}
	return args, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolproxy/auth"
	"github.com/jonwraymond/toolproxy/backend"
	"github.com/jonwraymond/toolproxy/invocation"
	"github.com/jonwraymond/toolproxy/pipeline"
	"github.com/jonwraymond/toolproxy/resilience"
)

// scenario is one reference walk-through with a pass/fail check.
type scenario struct {
	ID    string
	Title string
	ops   func() []invocation.Operation
	run   func(ctx context.Context, reg *pipeline.Registry) (string, error)
}

var errBackendDown = errors.New("backend is down")

func reliableOps() []invocation.Operation {
	return backend.Operations(backend.Config{})
}

func failingOps() []invocation.Operation {
	down := invocation.InvokerFunc(func(context.Context, invocation.Args) (invocation.Result, error) {
		return invocation.Result{}, errBackendDown
	})
	return []invocation.Operation{
		{Type: backend.TypePayment, New: invocation.Static(down)},
		{Type: backend.TypeReport, New: invocation.Static(down)},
		{Type: backend.TypeImage, New: invocation.Static(down)},
	}
}

func expectKind(call int, res invocation.Result, err error, want pipeline.Kind) error {
	if got := pipeline.Classify(res, err); got != want {
		return fmt.Errorf("call %d: got %s (%v), want %s", call, got, err, want)
	}
	return nil
}

var scenarios = []scenario{
	{
		ID:    "A",
		Title: "free caller is denied the report operation",
		ops:   reliableOps,
		run: func(ctx context.Context, reg *pipeline.Registry) (string, error) {
			p, err := reg.Get(ctx, backend.TypeReport, "free")
			if err != nil {
				return "", err
			}
			for i := 1; i <= 3; i++ {
				res, err := p.Invoke(ctx, invocation.Keyword("report_id", 1))
				if err := expectKind(i, res, err, pipeline.KindAccessDenied); err != nil {
					return "", err
				}
			}
			if p.Constructed() {
				return "", errors.New("backend was constructed for a denied caller")
			}
			return "3 calls denied, backend never constructed", nil
		},
	},
	{
		ID:    "B",
		Title: "premium image calls are capped at 4 per window",
		ops:   reliableOps,
		run: func(ctx context.Context, reg *pipeline.Registry) (string, error) {
			p, err := reg.Get(ctx, backend.TypeImage, "premium")
			if err != nil {
				return "", err
			}
			args := invocation.Keyword("image", "cat.png")
			for i := 1; i <= 4; i++ {
				res, err := p.Invoke(ctx, args)
				if err := expectKind(i, res, err, pipeline.KindNone); err != nil {
					return "", err
				}
			}
			res, err := p.Invoke(ctx, args)
			if err := expectKind(5, res, err, pipeline.KindRateLimited); err != nil {
				return "", err
			}
			return fmt.Sprintf("4 calls served (%d real), fifth rate limited", p.CacheStats().Calls), nil
		},
	},
	{
		ID:    "C",
		Title: "denied calls against a failing backend open the circuit",
		ops:   failingOps,
		run: func(ctx context.Context, reg *pipeline.Registry) (string, error) {
			p, err := reg.Get(ctx, backend.TypeReport, "premium")
			if err != nil {
				return "", err
			}
			for i := 1; i <= 3; i++ {
				res, err := p.Invoke(ctx, invocation.Keyword("report_id", i))
				if err := expectKind(i, res, err, pipeline.KindAccessDenied); err != nil {
					return "", err
				}
			}
			if state := p.Breaker().State(); state != resilience.StateOpen {
				return "", fmt.Errorf("breaker is %s after 3 denials, want open", state)
			}
			res, err := p.Invoke(ctx, invocation.Keyword("report_id", 4))
			if err := expectKind(4, res, err, pipeline.KindUnavailable); err != nil {
				return "", err
			}
			return "circuit open after 3 denials, fourth call unavailable", nil
		},
	},
	{
		ID:    "D",
		Title: "identical payment calls are served from cache",
		ops:   reliableOps,
		run: func(ctx context.Context, reg *pipeline.Registry) (string, error) {
			p, err := reg.Get(ctx, backend.TypePayment, "free")
			if err != nil {
				return "", err
			}
			args := invocation.Keyword("user", "a", "amount", 100)
			r1, err := p.Invoke(ctx, args)
			if err != nil {
				return "", err
			}
			r2, err := p.Invoke(ctx, args)
			if err != nil {
				return "", err
			}
			if r1 != r2 {
				return "", fmt.Errorf("results differ: %v vs %v", r1.Value, r2.Value)
			}
			stats := p.CacheStats()
			if stats.Hits != 1 || stats.Calls != 1 {
				return "", fmt.Errorf("cache hits %d, real calls %d; want 1 and 1", stats.Hits, stats.Calls)
			}
			return "cache hits 1, real calls 1", nil
		},
	},
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [A|B|C|D...]",
		Short: "Run the reference scenarios",
		Long: `Run reference walk-throughs against fresh pipelines with the reference
role table and default limits. Without arguments every scenario runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, rootOpts, args)
		},
	}
	return cmd
}

type scenarioResult struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func selectScenarios(ids []string) ([]scenario, error) {
	if len(ids) == 0 {
		return scenarios, nil
	}
	var out []scenario
	for _, id := range ids {
		idx := slices.IndexFunc(scenarios, func(s scenario) bool { return strings.EqualFold(s.ID, id) })
		if idx < 0 {
			return nil, fmt.Errorf("unknown scenario %q", id)
		}
		out = append(out, scenarios[idx])
	}
	return out, nil
}

func runScenarios(cmd *cobra.Command, opts *RootOptions, ids []string) (err error) {
	selected, err := selectScenarios(ids)
	if err != nil {
		return commandError("select scenarios", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.close())
	}()

	out := printer{format: opts.Format, w: cmd.OutOrStdout()}
	results := make([]scenarioResult, 0, len(selected))
	failed := 0
	for _, s := range selected {
		reg, err := pipeline.NewRegistry(pipeline.Config{
			Roles:    auth.ReferenceRoleTable(),
			Observer: a.observer,
		}, s.ops()...)
		if err != nil {
			return err
		}

		detail, runErr := s.run(ctx, reg)
		r := scenarioResult{ID: s.ID, Title: s.Title, Passed: runErr == nil, Detail: detail}
		status := "PASS"
		if runErr != nil {
			failed++
			status = "FAIL"
			r.Detail = runErr.Error()
		}
		results = append(results, r)
		out.textf("%s %s: %s\n     %s\n", status, s.ID, s.Title, r.Detail)
	}

	if err := out.document(results); err != nil {
		return err
	}
	if failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d of %d scenarios failed", failed, len(selected))}
	}
	return nil
}

package cli

import (
	"context"
	"io"
	"time"

	"github.com/jonwraymond/toolproxy/auth"
	"github.com/jonwraymond/toolproxy/backend"
	"github.com/jonwraymond/toolproxy/config"
	"github.com/jonwraymond/toolproxy/invocation"
	"github.com/jonwraymond/toolproxy/observe"
	"github.com/jonwraymond/toolproxy/pipeline"
)

// app is the wiring shared by every command.
type app struct {
	cfg      *config.Config
	observer observe.Observer
	registry *pipeline.Registry
}

// newApp loads configuration and builds the pipeline registry. Logs and
// stdout exporters write to logs.
func newApp(ctx context.Context, opts *RootOptions, logs io.Writer, ops ...invocation.Operation) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, commandError("load config", err)
	}
	if opts.NoLatency {
		cfg.Backend.MinLatency, cfg.Backend.MaxLatency = 0, 0
	}

	obsCfg := cfg.ObserveConfig()
	obsCfg.Output = logs
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, commandError("start telemetry", err)
	}

	if len(ops) == 0 {
		ops = backend.Operations(cfg.BackendConfig())
	}
	tmpl := cfg.PipelineTemplate()
	tmpl.Observer = obs
	reg, err := pipeline.NewRegistry(tmpl, ops...)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, commandError("build pipelines", err)
	}

	return &app{cfg: cfg, observer: obs, registry: reg}, nil
}

// identity resolves the caller from --token, then --role.
func (a *app) identity(ctx context.Context, opts *RootOptions) (*auth.Identity, error) {
	if opts.Token != "" {
		authn, err := a.cfg.JWTAuthenticator(ctx, nil)
		if err != nil {
			return nil, commandError("token given", err)
		}
		id, err := authn.Authenticate(ctx, opts.Token)
		if err != nil {
			return nil, &ExitError{Code: ExitFailure, Message: "authenticate", Err: err}
		}
		return id, nil
	}
	if opts.Role == "" {
		return nil, commandError("a caller is required: pass --role or --token", nil)
	}
	return auth.RoleIdentity(opts.Role), nil
}

func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.observer.Shutdown(ctx)
}

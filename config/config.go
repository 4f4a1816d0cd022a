package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/toolproxy/auth"
	"github.com/jonwraymond/toolproxy/backend"
	"github.com/jonwraymond/toolproxy/observe"
	"github.com/jonwraymond/toolproxy/pipeline"
	"github.com/jonwraymond/toolproxy/resilience"
	"github.com/jonwraymond/toolproxy/secret"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TOOLPROXY"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the complete toolproxy configuration.
type Config struct {
	Breaker   BreakerConfig       `mapstructure:"breaker"`
	RateLimit RateLimitConfig     `mapstructure:"ratelimit"`
	Roles     map[string][]string `mapstructure:"roles"`
	Observe   ObserveConfig       `mapstructure:"observe"`
	Auth      AuthConfig          `mapstructure:"auth"`
	Backend   BackendConfig       `mapstructure:"backend"`
	Health    HealthConfig        `mapstructure:"health"`
}

// BreakerConfig stores circuit breaker settings.
type BreakerConfig struct {
	MaxFailures  int           `mapstructure:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
	Message      string        `mapstructure:"message"`
}

// RateLimitConfig stores the fixed-window quota.
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// ObserveConfig stores telemetry settings.
type ObserveConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Version     string        `mapstructure:"version"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// TracingConfig stores tracing settings.
type TracingConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Exporter  string  `mapstructure:"exporter"`
	SamplePct float64 `mapstructure:"sample_pct"`
}

// MetricsConfig stores metrics settings.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// LoggingConfig stores logging settings.
type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
}

// AuthConfig stores caller authentication settings.
type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig stores bearer token settings. Key may be a literal, a ${VAR}
// reference or a secretref.
type JWTConfig struct {
	Key            string `mapstructure:"key"`
	Issuer         string `mapstructure:"issuer"`
	Audience       string `mapstructure:"audience"`
	RoleClaim      string `mapstructure:"role_claim"`
	PrincipalClaim string `mapstructure:"principal_claim"`
}

// BackendConfig stores reference backend behavior.
type BackendConfig struct {
	MinLatency  time.Duration `mapstructure:"min_latency"`
	MaxLatency  time.Duration `mapstructure:"max_latency"`
	FailureRate float64       `mapstructure:"failure_rate"`
}

// HealthConfig stores the health endpoint settings.
type HealthConfig struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("breaker.max_failures", 3)
	v.SetDefault("breaker.reset_timeout", "10s")
	v.SetDefault("breaker.message", "")
	v.SetDefault("ratelimit.limit", 4)
	v.SetDefault("ratelimit.window", "60s")

	v.SetDefault("observe.service_name", "toolproxy")
	v.SetDefault("observe.version", "")
	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.tracing.exporter", "none")
	v.SetDefault("observe.tracing.sample_pct", 1.0)
	v.SetDefault("observe.metrics.enabled", false)
	v.SetDefault("observe.metrics.exporter", "none")
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")

	v.SetDefault("auth.jwt.key", "")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.audience", "")
	v.SetDefault("auth.jwt.role_claim", "role")
	v.SetDefault("auth.jwt.principal_claim", "sub")

	v.SetDefault("backend.min_latency", "500ms")
	v.SetDefault("backend.max_latency", "1500ms")
	v.SetDefault("backend.failure_rate", 0.5)

	v.SetDefault("health.addr", ":8081")
	v.SetDefault("health.timeout", "5s")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, _ := decode(v)
	return cfg
}

// Load reads path, or ./toolproxy.yaml when path is empty and that file
// exists, then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("toolproxy")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}
	return finish(v)
}

// Read parses YAML from r, then applies environment overrides and validates
// the result.
func Read(r io.Reader) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if len(cfg.Roles) == 0 {
		cfg.Roles = auth.ReferenceRoleTable()
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	if c.Breaker.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("breaker.max_failures must be at least 1, got %d", c.Breaker.MaxFailures))
	}
	if c.Breaker.ResetTimeout <= 0 {
		errs = append(errs, fmt.Errorf("breaker.reset_timeout must be positive, got %v", c.Breaker.ResetTimeout))
	}
	if c.RateLimit.Limit < 1 {
		errs = append(errs, fmt.Errorf("ratelimit.limit must be at least 1, got %d", c.RateLimit.Limit))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, fmt.Errorf("ratelimit.window must be positive, got %v", c.RateLimit.Window))
	}
	if err := c.RoleTable().Validate(); err != nil {
		errs = append(errs, err)
	}
	obs := c.ObserveConfig()
	if err := obs.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Backend.FailureRate < 0 || c.Backend.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("backend.failure_rate must be within [0, 1], got %v", c.Backend.FailureRate))
	}
	if c.Backend.MinLatency < 0 || c.Backend.MaxLatency < c.Backend.MinLatency {
		errs = append(errs, fmt.Errorf("backend latency range [%v, %v] is invalid", c.Backend.MinLatency, c.Backend.MaxLatency))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// RoleTable returns a copy of the role table.
func (c *Config) RoleTable() auth.RoleTable {
	return auth.RoleTable(c.Roles).Clone()
}

// BreakerConfig returns the circuit breaker settings.
func (c *Config) BreakerConfig() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		MaxFailures:  c.Breaker.MaxFailures,
		ResetTimeout: c.Breaker.ResetTimeout,
	}
}

// RateLimiterConfig returns the rate limiter settings.
func (c *Config) RateLimiterConfig() resilience.RateLimiterConfig {
	return resilience.RateLimiterConfig{
		Limit:  c.RateLimit.Limit,
		Window: c.RateLimit.Window,
	}
}

// ObserveConfig returns the telemetry settings.
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Observe.ServiceName,
		Version:     c.Observe.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.Tracing.Enabled,
			Exporter:  c.Observe.Tracing.Exporter,
			SamplePct: c.Observe.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.Metrics.Enabled,
			Exporter: c.Observe.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.Observe.Logging.Enabled,
			Level:   c.Observe.Logging.Level,
		},
	}
}

// BackendConfig returns the reference backend settings.
func (c *Config) BackendConfig() backend.Config {
	return backend.Config{
		MinLatency:  c.Backend.MinLatency,
		MaxLatency:  c.Backend.MaxLatency,
		FailureRate: c.Backend.FailureRate,
	}
}

// PipelineTemplate returns the settings shared by every pipeline. Operation,
// Role and telemetry are left for the caller.
func (c *Config) PipelineTemplate() pipeline.Config {
	return pipeline.Config{
		Roles:              c.RoleTable(),
		Breaker:            c.BreakerConfig(),
		RateLimit:          c.RateLimiterConfig(),
		UnavailableMessage: c.Breaker.Message,
	}
}

// JWTEnabled reports whether a token key is configured.
func (c *Config) JWTEnabled() bool {
	return c.Auth.JWT.Key != ""
}

// JWTAuthenticator resolves the token key through r and builds an
// authenticator. A nil r uses secret.DefaultResolver.
func (c *Config) JWTAuthenticator(ctx context.Context, r *secret.Resolver) (*auth.JWTAuthenticator, error) {
	if !c.JWTEnabled() {
		return nil, fmt.Errorf("%w: auth.jwt.key is not set", ErrInvalidConfig)
	}
	if r == nil {
		r = secret.DefaultResolver()
	}
	key, err := r.Resolve(ctx, c.Auth.JWT.Key)
	if err != nil {
		return nil, fmt.Errorf("config: resolve auth.jwt.key: %w", err)
	}

	return auth.NewJWTAuthenticator(auth.JWTConfig{
		Issuer:         c.Auth.JWT.Issuer,
		Audience:       c.Auth.JWT.Audience,
		PrincipalClaim: c.Auth.JWT.PrincipalClaim,
		RoleClaim:      c.Auth.JWT.RoleClaim,
	}, auth.NewStaticKeyProvider([]byte(key))), nil
}

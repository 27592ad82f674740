// Package config loads Symbolica's runtime configuration. Grounded on
// the teacher's internal/config/config.go viper wiring (defaults set
// before file load, environment variables overriding both), with the
// field set replaced: the teacher's HTTP/gRPC server limits have no
// counterpart here (the core has no server of its own, per spec.md §6),
// so the sections instead cover the engine, temporal store, backward
// chainer, and observability concerns spec.md §5 and §4.7 define limits
// for.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds Symbolica's full runtime configuration.
type Config struct {
	Engine        EngineConfig        `mapstructure:"engine"`
	Temporal      TemporalConfig      `mapstructure:"temporal"`
	Chain         ChainConfig         `mapstructure:"chain"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// EngineConfig governs one reason() call's resource model (spec.md §5).
type EngineConfig struct {
	// DeadlineMillis bounds one reason() call's wall-clock budget; 0
	// disables the deadline.
	DeadlineMillis int `mapstructure:"deadline_millis"`
	// Permissive demotes the fatal-by-default runtime failure kinds
	// (DivisionByZero, ArityMismatch, PromptUnavailable, PromptError,
	// UnknownFunction) to non-firing instead of aborting the call.
	Permissive bool `mapstructure:"permissive"`
	// MaxRules is the configured rule-count limit, mirroring the
	// teacher's MaxRules setting. Nothing in the module reads it:
	// CompileSet accepts a Rule Set of any size.
	MaxRules int `mapstructure:"max_rules"`
}

// Deadline returns the engine deadline as a time.Duration, zero meaning
// no deadline.
func (e EngineConfig) Deadline() time.Duration {
	if e.DeadlineMillis <= 0 {
		return 0
	}
	return time.Duration(e.DeadlineMillis) * time.Millisecond
}

// TemporalConfig governs the Temporal Store's per-key retention (spec.md
// §4.7).
type TemporalConfig struct {
	RetentionSeconds int `mapstructure:"retention_seconds"`
	MaxSamplesPerKey int `mapstructure:"max_samples_per_key"`
}

// Retention returns the configured retention horizon as a
// time.Duration, zero meaning unbounded (count cap still applies).
func (t TemporalConfig) Retention() time.Duration {
	if t.RetentionSeconds <= 0 {
		return 0
	}
	return time.Duration(t.RetentionSeconds) * time.Second
}

// ChainConfig holds the Backward Chainer's subgoal depth setting
// (spec.md §4.6). internal/chain does not read it; the chainer uses its
// own fixed depth bound of 64.
type ChainConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

// ObservabilityConfig governs logging, metrics, and tracing.
type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"` // not read by internal/observability, which uses OTEL_EXPORTER_OTLP_ENDPOINT or localhost:4317
}

// Load reads configuration from file and environment variables.
// Priority: env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// SYMBOLICA_ENGINE_DEADLINE_MILLIS, SYMBOLICA_TEMPORAL_RETENTION_SECONDS, etc.
	v.SetEnvPrefix("SYMBOLICA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.deadline_millis", 5000)
	v.SetDefault("engine.permissive", false)
	v.SetDefault("engine.max_rules", 100000)

	v.SetDefault("temporal.retention_seconds", 86400) // 24h
	v.SetDefault("temporal.max_samples_per_key", 10000)

	v.SetDefault("chain.max_depth", 64)

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.otlp_endpoint", "")
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Engine.Deadline())
	assert.False(t, cfg.Engine.Permissive)
	assert.Equal(t, 100000, cfg.Engine.MaxRules)

	assert.Equal(t, 24*time.Hour, cfg.Temporal.Retention())
	assert.Equal(t, 10000, cfg.Temporal.MaxSamplesPerKey)

	assert.Equal(t, 64, cfg.Chain.MaxDepth)

	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SYMBOLICA_ENGINE_DEADLINE_MILLIS", "1000")
	t.Setenv("SYMBOLICA_ENGINE_PERMISSIVE", "true")
	t.Setenv("SYMBOLICA_CHAIN_MAX_DEPTH", "8")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Engine.Deadline())
	assert.True(t, cfg.Engine.Permissive)
	assert.Equal(t, 8, cfg.Chain.MaxDepth)
}

func TestLoadFromFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "symbolica-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("engine:\n  deadline_millis: 2500\nobservability:\n  log_level: debug\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := Load(f.Name())
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, cfg.Engine.Deadline())
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	// Untouched defaults still apply alongside file-provided values.
	assert.Equal(t, 64, cfg.Chain.MaxDepth)
}

func TestEngineZeroDeadlineMeansNoDeadline(t *testing.T) {
	e := EngineConfig{DeadlineMillis: 0}
	assert.Equal(t, time.Duration(0), e.Deadline())
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/symbolica.yaml")
	assert.Error(t, err)
}

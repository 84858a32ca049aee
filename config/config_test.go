package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.MetricInterval)
	assert.Equal(t, 32, cfg.Engine.BTreeDegree)
	assert.Equal(t, 4, cfg.LoadTest.Workers)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, cfg.LoadTest.Instruments)
	assert.Equal(t, 10*time.Second, cfg.LoadTest.Duration)
	assert.Equal(t, time.Second, cfg.LoadTest.RequoteInterval)

	lg := cfg.LoadGen()
	assert.Equal(t, cfg.LoadTest.Instruments, lg.Instruments)
	assert.Equal(t, 10, lg.Quotes.Levels)
	assert.Equal(t, 1.0, lg.Flow.PriceBandPercent)
	assert.Equal(t, 0.15, lg.Flow.MarketRatio)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matchcore.yaml")
	content := `
log:
  level: debug
  format: pretty
engine:
  btree_degree: 8
loadtest:
  workers: 2
  instruments: [SOL-USD]
  duration: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "pretty", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Engine.BTreeDegree)
	assert.Equal(t, 2, cfg.LoadTest.Workers)
	assert.Equal(t, []string{"SOL-USD"}, cfg.LoadTest.Instruments)
	assert.Equal(t, 3*time.Second, cfg.LoadTest.Duration)

	lc := cfg.Logging(os.Stderr)
	assert.True(t, lc.Pretty)
	assert.Equal(t, "debug", lc.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MATCHCORE_LOG_LEVEL", "warn")
	t.Setenv("MATCHCORE_ENGINE_BTREE_DEGREE", "16")
	t.Setenv("MATCHCORE_TELEMETRY_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 16, cfg.Engine.BTreeDegree)
	assert.True(t, cfg.Otel().CollectorEnabled)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("MATCHCORE_LOG_FORMAT", "xml")
	_, err = Load("")
	assert.ErrorContains(t, err, "log.format")
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"degree", func(c *Config) { c.Engine.BTreeDegree = 1 }},
		{"workers", func(c *Config) { c.LoadTest.Workers = 0 }},
		{"rate", func(c *Config) { c.LoadTest.Rate = -1 }},
		{"instruments", func(c *Config) { c.LoadTest.Instruments = nil }},
		{"ratios", func(c *Config) { c.LoadTest.MarketRatio = 0.9 }},
		{"no bound", func(c *Config) { c.LoadTest.Duration = 0; c.LoadTest.MaxOrders = 0 }},
		{"price band", func(c *Config) { c.LoadTest.PriceBand = 0 }},
		{"sample ratio", func(c *Config) { c.Telemetry.SampleRatio = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.modify(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-log_level", "debug", "-log_format", "pretty", "-config", "x.yaml"}))
	assert.Equal(t, "x.yaml", f.ConfigPath)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, f.Apply(cfg))
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "pretty", cfg.Log.Format)

	f.LogFormat = "xml"
	assert.Error(t, f.Apply(cfg))
}

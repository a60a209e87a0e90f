package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultScan(), cfg.Scan)
	assert.Equal(t, CacheBackendFile, cfg.Cache.Backend)
	assert.NotEmpty(t, cfg.Cache.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesOnlyPresentKeys(t *testing.T) {
	p := writeConfig(t, `
scan:
  provider: sina
  mode: pullback
  above_days: 4
  include_bj: false
  timeout: 3s
cache:
  backend: sqlite
  path: /tmp/k.db
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, ProviderSina, cfg.Scan.Provider)
	assert.Equal(t, ModePullback, cfg.Scan.Mode)
	assert.Equal(t, 4, cfg.Scan.AboveDays)
	assert.False(t, cfg.Scan.IncludeBJ)
	assert.Equal(t, 3*time.Second, cfg.Scan.Timeout)
	// untouched keys keep defaults
	assert.Equal(t, defaultBelowDays, cfg.Scan.BelowDays)
	assert.True(t, cfg.Scan.SortDesc)
	assert.Equal(t, CacheBackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, SinaBarsURL, cfg.Endpoints().BarsURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := writeConfig(t, "scan:\n  max_in_flight: 4\n")
	t.Setenv("MASCAN_CONCURRENCY", "30")
	t.Setenv("MASCAN_TIMEOUT", "5s")
	t.Setenv("SMTP_SERVER", "smtp.example.com")
	t.Setenv("SMTP_USER", "bot@example.com")
	t.Setenv("SMTP_TO", "me@example.com")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Scan.MaxInFlight)
	assert.Equal(t, 5*time.Second, cfg.Scan.Timeout)
	assert.Equal(t, "bot@example.com", cfg.Mail.From, "From falls back to User")
	assert.True(t, cfg.Mail.Enabled())
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeConfig(t, "scan: [not a map")
	_, err := Load(p)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.Scan.Provider = "yahoo" }},
		{"unknown mode", func(c *Config) { c.Scan.Mode = "sideways" }},
		{"unknown sort key", func(c *Config) { c.Scan.SortKey = "volume" }},
		{"zero in flight", func(c *Config) { c.Scan.MaxInFlight = 0 }},
		{"zero timeout", func(c *Config) { c.Scan.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.Scan.MaxRetries = -1 }},
		{"pullback without window", func(c *Config) { c.Scan.Mode = ModePullback; c.Scan.AboveDays = 0 }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"csv output", func(c *Config) { c.Output.Format = "csv" }},
		{"schedule without specs", func(c *Config) { c.Schedule.Enabled = true; c.Schedule.Specs = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestScanDerivedValues(t *testing.T) {
	s := DefaultScan()
	assert.Equal(t, 0, s.EffectiveAboveDays())
	assert.Equal(t, 3, s.WindowDays())
	assert.Equal(t, 3+5+1, s.MinCachedBars())
	assert.Equal(t, 40, s.BarsLimit())

	s.Mode = ModePullback
	s.AboveDays = 30
	assert.Equal(t, 30, s.EffectiveAboveDays())
	assert.Equal(t, 30, s.WindowDays())
	assert.Equal(t, 45, s.BarsLimit())
}

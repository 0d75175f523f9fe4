package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"covidanalyzer/internal/config"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "fixed", cfg.RateLimit.Policy)
	require.Equal(t, 5, cfg.RateLimit.Limit)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.Equal(t, "skip", cfg.Source.Normalizer.Policy)
	require.Equal(t, "codice_regione", cfg.Source.Normalizer.RegionCodeField)
	require.Contains(t, cfg.Source.URL, "pcm-dpc")
	require.Empty(t, cfg.Source.File)
	require.Equal(t, 10*time.Second, cfg.GracefulShutdownTimeout)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
timezone: UTC
http:
  addr: ":9090"
  trustForwardedFor: true
source:
  file: ./data.json
  normalizer:
    policy: strict
rateLimit:
  policy: sliding
  limit: 10
  window: 30s
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.True(t, cfg.HTTP.TrustForwardedFor)
	require.Equal(t, "./data.json", cfg.Source.File)
	require.Equal(t, "strict", cfg.Source.Normalizer.Policy)
	require.Equal(t, "sliding", cfg.RateLimit.Policy)
	require.Equal(t, 10, cfg.RateLimit.Limit)
	require.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	// untouched keys keep their defaults
	require.Equal(t, time.Minute, cfg.HTTP.RequestTimeout)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_LIMIT", "2")
	t.Setenv("SOURCE_FILE", "/tmp/data.json")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	require.Equal(t, 2, cfg.RateLimit.Limit)
	require.Equal(t, "/tmp/data.json", cfg.Source.File)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestLoad_InvalidPolicies(t *testing.T) {
	tests := map[string]string{
		"SOURCE_NORMALIZER_POLICY": "lenient",
		"RATE_LIMIT_POLICY":        "leaky",
	}

	for env, value := range tests {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, value)

			_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
			require.ErrorContains(t, err, value)
		})
	}
}

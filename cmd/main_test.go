package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"covidanalyzer/internal/config"

	"github.com/stretchr/testify/require"
)

const dataset = `[
  {"data": "2021-01-01T17:00:00", "codice_regione": 3, "denominazione_regione": "Lombardia", "totale_casi": 100},
  {"data": "2021-01-02T17:00:00", "codice_regione": 3, "denominazione_regione": "Lombardia", "totale_casi": 50},
  {"data": "2021-01-01T17:00:00", "codice_regione": 5, "denominazione_regione": "Veneto", "totale_casi": 30},
  {"data": "2021-01-01T17:00:00", "denominazione_regione": "Nowhere", "totale_casi": 7}
]`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := rootCommand(&app{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"-c", filepath.Join(t.TempDir(), "missing.yml")}, args...))
	err := cmd.Execute()

	return out.String(), err
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(dataset), 0o600))

	return path
}

func TestReport_PrintsAndExports(t *testing.T) {
	xlsx := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := run(t,
		"--file", writeDataset(t),
		"--date_start", "2021-01-01",
		"--date_end", "2021-01-02",
		"--excel",
		"--excel-output", xlsx,
	)
	require.NoError(t, err)
	require.Contains(t, out, "COVID-19 Cases by Region (Data for 2021-01-01 -> 2021-01-02)")
	require.Contains(t, out, "Lombardia")
	require.Contains(t, out, "180")
	require.NotContains(t, out, "Nowhere")
	require.Contains(t, out, "Data exported to "+xlsx)
	require.FileExists(t, xlsx)
}

func TestReport_EmptyWindow(t *testing.T) {
	xlsx := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := run(t,
		"--file", writeDataset(t),
		"--date_start", "2020-03-01",
		"--date_end", "2020-03-01",
		"--excel",
		"--excel-output", xlsx,
	)
	require.NoError(t, err)
	require.Contains(t, out, "No data available (Data for 2020-03-01).")
	require.NoFileExists(t, xlsx)
}

func TestReport_Errors(t *testing.T) {
	tests := map[string][]string{
		"inverted window": {"--file", "unused.json", "--date_start", "2021-01-03", "--date_end", "2021-01-01"},
		"bad date":        {"--file", "unused.json", "--date_start", "yesterday"},
		"missing file":    {"--file", filepath.Join(os.TempDir(), "does-not-exist.json")},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, args...)
			require.Error(t, err)
		})
	}
}

func TestReport_WritesTraces(t *testing.T) {
	traces := filepath.Join(t.TempDir(), "traces.json")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_OUTPUT", traces)

	_, err := run(t, "--file", writeDataset(t), "--date_start", "2021-01-01", "--date_end", "2021-01-02")
	require.NoError(t, err)

	b, err := os.ReadFile(traces)
	require.NoError(t, err)
	require.Contains(t, string(b), `"Name":"cache.reload"`)
	require.Contains(t, string(b), serviceName)
}

func TestNewClock_EmbeddedTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Europe/Rome")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	clk, loc, err := newClock(cfg)
	require.NoError(t, err)
	require.Equal(t, "Europe/Rome", loc.String())
	require.Equal(t, loc, clk.Now().Location())
}

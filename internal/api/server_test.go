package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"covidanalyzer/internal/analyzer"
	mockanalyzer "covidanalyzer/internal/analyzer/mock"
	"covidanalyzer/internal/api"
	"covidanalyzer/internal/api/handler/v1handler"
	"covidanalyzer/internal/config"
	"covidanalyzer/pkg/clock"
	"covidanalyzer/pkg/domain"
	"covidanalyzer/pkg/metrics"
	"covidanalyzer/pkg/ratelimit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestServer(t *testing.T) (*mockanalyzer.MockAnalyzer, *httptest.Server) {
	t.Helper()

	ctrl := gomock.NewController(t)
	an := mockanalyzer.NewMockAnalyzer(ctrl)
	c := clock.NewFake(time.Date(2021, time.January, 2, 12, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()
	l, err := ratelimit.New(ratelimit.Deps{Clock: c, Metrics: metrics.New(reg)},
		ratelimit.Options{Limit: 2, Window: time.Minute})
	require.NoError(t, err)

	cfg, err := config.Load("does-not-exist.yml")
	require.NoError(t, err)
	opts := api.NewOptions(cfg)

	srv, err := api.NewServer(api.Deps{
		Deps:       v1handler.Deps{Analyzer: an, Limiter: l, Clock: c},
		Registerer: reg,
		Gatherer:   reg,
	}, opts)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return an, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	res, err := http.Get(url) //nolint: noctx
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res, string(b)
}

func TestServer_CovidDataAndMetrics(t *testing.T) {
	an, ts := newTestServer(t)
	an.EXPECT().RegionTotals(gomock.Any(), gomock.Any()).Return(&analyzer.Report{
		Regions: []domain.RegionAggregate{{Region: "Lombardia", TotalCases: 50}},
	}, nil).Times(2)

	for range 2 {
		res, body := get(t, ts.URL+"/covid-data?date_start=2021-01-02")
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.JSONEq(t, `{"regions":[{"region":"Lombardia","total_cases":50}]}`, body)
		require.NotEmpty(t, res.Header.Get("Access-Control-Allow-Origin"))
	}

	res, _ := get(t, ts.URL+"/covid-data?date_start=2021-01-02")
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	require.NotEmpty(t, res.Header.Get("Retry-After"))

	res, body := get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body, "covid_data_requests")
	require.Contains(t, body, `covid_analyzer_rate_limit_decisions_total{decision="denied"} 1`)
}

func TestServer_AmbientRoutes(t *testing.T) {
	an, ts := newTestServer(t)
	an.EXPECT().Loaded().Return(nil)

	res, body := get(t, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, body)

	res, body = get(t, ts.URL+"/specs/v1.yaml")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/yaml", res.Header.Get("Content-Type"))
	require.Contains(t, body, "/covid-data")

	res, _ = get(t, ts.URL+"/docs/")
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = get(t, ts.URL+"/debug/pprof/")
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestServer_OptionsFromConfig(t *testing.T) {
	cfg, err := config.Load("does-not-exist.yml")
	require.NoError(t, err)
	cfg.HTTP.TrustForwardedFor = true

	opts := api.NewOptions(cfg)
	require.Equal(t, ":8080", opts.Addr)
	require.Equal(t, "/metrics", opts.MetricsPath)
	require.True(t, opts.HandlerOptions.TrustForwardedFor)
}

// Package api configures and exposes the HTTP server, routes,
// metrics, docs and related middleware for the COVID-19 data service.
package api

import (
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"covidanalyzer/internal/api/handler/v1handler"
	"covidanalyzer/internal/config"
	"covidanalyzer/pkg/controller"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// v1Spec contains the embedded OpenAPI specification for version 1 of the API.
//
//go:embed specs/v1.yaml
var v1Spec []byte

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
// All durations are used to configure server timeouts, and zero values
// should be considered as using the defaults provided by net/http where applicable.
type Options struct {
	// HandlerOptions configures the v1 handlers.
	HandlerOptions v1handler.Options

	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the global timeout applied via http.TimeoutHandler for handling requests.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
}

// NewOptions constructs an Options value from the provided application configuration.
// It maps HTTP server-related settings from config.Config to the Options used by the API server.
func NewOptions(cfg *config.Config) Options {
	return Options{
		HandlerOptions: v1handler.NewOptions(cfg),

		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
	}
}

type Deps struct {
	v1handler.Deps

	// Registerer and Gatherer back the metrics endpoint. The process wide
	// Prometheus registry is used when they are nil.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// It sets up:
// - Prometheus metrics endpoint (MetricsPath)
// - OpenTelemetry metrics exporter (Prometheus) feeding the handler instruments
// - Embedded OpenAPI v1 spec and Swagger UI
// - the /covid-data route and a /healthz probe
// - pprof endpoints for profiling
// It also wraps the mux with CORS and logging middlewares and applies a request timeout.
func NewServer(deps Deps, opts Options) (*http.Server, error) {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()

	// prometheus metrics server
	mux.Handle(opts.MetricsPath, promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	// otel
	exp, err := otelprom.New(otelprom.WithRegisterer(deps.Registerer))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	if deps.Meter == nil {
		deps.Meter = mp.Meter("covidanalyzer/internal/api")
	}

	// v1 specs file
	mux.HandleFunc("/specs/v1.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(v1Spec)
	})
	// v1 api swagger playground
	mux.Handle("/docs/", v5emb.New(
		"COVID-19 Regional Cases",
		"/specs/v1.yaml",
		"/docs/",
	))

	// v1 api
	h, err := v1handler.New(deps.Deps, opts.HandlerOptions)
	if err != nil {
		return nil, fmt.Errorf("could not create v1 handler: %w", err)
	}
	mux.HandleFunc(v1handler.CovidDataPath, h.CovidData)
	mux.HandleFunc(v1handler.HealthPath, h.Health)

	// pprof
	mux.Handle(controller.PprofPrefix, controller.PprofMux())

	// cors
	handler := controller.WithCORS(mux)

	// logger
	handler = controller.WithLogger(handler)

	if opts.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, opts.RequestTimeout, `{"code":"INTERNAL","error":"request timed out"}`)
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}, nil
}

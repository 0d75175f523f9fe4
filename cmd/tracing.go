package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"covidanalyzer/internal/config"
	"covidanalyzer/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const serviceName = "covid-analyzer"

// setupTracing installs the global tracer provider when tracing is enabled.
// Spans are batched and written as JSON to cfg.Tracing.Output or stderr. The
// returned function flushes pending spans and releases the output.
func setupTracing(cfg *config.Config) (func(ctx context.Context), error) {
	if !cfg.Tracing.Enabled {
		return func(context.Context) {}, nil
	}

	var w io.WriteCloser = nopCloser{os.Stderr}
	if cfg.Tracing.Output != "" {
		f, err := os.OpenFile(cfg.Tracing.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open trace output: %w", err)
		}
		w = f
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("could not create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn(ctx, "could not flush traces", zap.Error(err))
		}
		if err := w.Close(); err != nil {
			logger.Warn(ctx, "could not close trace output", zap.Error(err))
		}
	}, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

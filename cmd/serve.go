package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"covidanalyzer/internal/api"
	"covidanalyzer/internal/api/handler/v1handler"
	"covidanalyzer/internal/config"
	"covidanalyzer/pkg/clock"
	"covidanalyzer/pkg/logger"
	"covidanalyzer/pkg/metrics"
	"covidanalyzer/pkg/ratelimit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// setupServer starts the webserver in the background. Listen failures are
// reported on the returned channel.
func setupServer(ctx context.Context, cfg *config.Config, deps api.Deps) (func(ctx context.Context), <-chan error, error) {
	server, err := api.NewServer(deps, api.NewOptions(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("could not create webserver: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("could not start webserver: %w", err)
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}, errCh, nil
}

// newLimiter builds the configured rate limiter along with a cleanup function
// closing its Redis client, if any.
func newLimiter(ctx context.Context, cfg *config.Config, clk clock.Clock, m *metrics.Collectors) (ratelimit.Limiter, func(), error) {
	deps := ratelimit.Deps{Clock: clk, Metrics: m}
	cleanup := func() {}

	if ratelimit.Policy(cfg.RateLimit.Policy) == ratelimit.PolicyRedis {
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis is unreachable, requests are admitted until it recovers", zap.Error(err))
		}
		deps.Redis = client
		cleanup = func() {
			logger.Info(ctx, "closing redis client...")
			if err := client.Close(); err != nil {
				logger.Warn(ctx, "could not close redis client", zap.Error(err))
			}
		}
	}

	l, err := ratelimit.New(deps, ratelimit.Options{
		Policy:    ratelimit.Policy(cfg.RateLimit.Policy),
		Limit:     cfg.RateLimit.Limit,
		Window:    cfg.RateLimit.Window,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return l, cleanup, nil
}

// serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// gracefully.
func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk, loc, err := newClock(a.cfg)
	if err != nil {
		return err
	}

	stopTracing, err := setupTracing(a.cfg)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	limiter, closeLimiter, err := newLimiter(ctx, a.cfg, clk, m)
	if err != nil {
		return err
	}
	defer closeLimiter()
	ratelimit.StartJanitor(ctx, clk, limiter, a.cfg.RateLimit.CleanupInterval)

	stopWebserver, errCh, err := setupServer(ctx, a.cfg, api.Deps{
		Deps: v1handler.Deps{
			Analyzer: newAnalyzer(a.cfg, clk, loc, m),
			Limiter:  limiter,
			Clock:    clk,
		},
	})
	if err != nil {
		return err
	}

	// wait for interrupt
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.GracefulShutdownTimeout)
	defer cancel()
	stopWebserver(shutdownCtx)
	stopTracing(shutdownCtx)

	return err
}

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP API server, same as --server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

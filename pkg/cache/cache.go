// Package cache keeps the most recently loaded dataset of every source in
// memory and reloads it at most once per calendar day.
//
// Concurrency: entries live in a map guarded by an RWMutex and are replaced
// by pointer, so readers see either the old or the new dataset, never a mix.
// Reloads of the same source go through a singleflight group: when an entry
// is stale or absent, exactly one load runs and every concurrent caller
// waits for its result. Callers never get the stale entry back.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"covidanalyzer/pkg/clock"
	"covidanalyzer/pkg/domain"
	"covidanalyzer/pkg/logger"
	"covidanalyzer/pkg/metrics"
	"covidanalyzer/pkg/source"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options configure the cache.
type Options struct {
	// Location is the time zone whose calendar decides freshness. Defaults to time.Local.
	Location *time.Location
	// LoadTimeout bounds a reload independently of the caller that triggered
	// it. Zero leaves the bound to the loader.
	LoadTimeout time.Duration
}

// Deps are the collaborators of the cache.
type Deps struct {
	Loader source.Loader
	Clock  clock.Clock
	// Metrics is optional.
	Metrics *metrics.Collectors
	// Tracer is optional; defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

// entry owns one dataset. It is never mutated after installation.
type entry struct {
	dataset *domain.Dataset
}

// Cache is a per-source dataset cache. Construct it with New.
type Cache struct {
	options Options
	deps    Deps

	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group
}

// New creates an empty cache.
func New(deps Deps, options Options) *Cache {
	if deps.Clock == nil {
		deps.Clock = clock.System(nil)
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("covidanalyzer/pkg/cache")
	}
	if options.Location == nil {
		options.Location = time.Local
	}

	return &Cache{
		options: options,
		deps:    deps,
		entries: make(map[string]*entry),
	}
}

// Get returns the dataset of src, loading it when the cached entry is absent
// or was loaded on an earlier calendar day. Load errors are returned as is and
// leave the cache unchanged.
func (c *Cache) Get(ctx context.Context, src domain.Source) (*domain.Dataset, error) {
	key := src.Key()
	if ds := c.fresh(key); ds != nil {
		c.deps.Metrics.CacheResult(true)

		return ds, nil
	}
	c.deps.Metrics.CacheResult(false)

	ch := c.group.DoChan(key, func() (any, error) {
		// another caller may have finished a reload between our check and now
		if ds := c.fresh(key); ds != nil {
			return ds, nil
		}

		return c.reload(context.WithoutCancel(ctx), src)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for dataset %s: %w", src, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.(*domain.Dataset), nil //nolint: forcetypeassert
	}
}

// Peek returns the cached dataset of src regardless of freshness, or nil.
func (c *Cache) Peek(src domain.Source) *domain.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[src.Key()]; ok {
		return e.dataset
	}

	return nil
}

// fresh returns the cached dataset for key if it was loaded today.
func (c *Cache) fresh(key string) *domain.Dataset {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.isFresh(e.dataset) {
		return nil
	}

	return e.dataset
}

// isFresh reports whether ds was loaded on the current calendar day.
func (c *Cache) isFresh(ds *domain.Dataset) bool {
	today := domain.DateOf(c.deps.Clock.Now().In(c.options.Location))
	loaded := domain.DateOf(ds.LoadedAt.In(c.options.Location))

	return today.Equal(loaded)
}

// reload loads src and installs the result. Nothing is installed on error.
func (c *Cache) reload(ctx context.Context, src domain.Source) (*domain.Dataset, error) {
	ctx, span := c.deps.Tracer.Start(ctx, "cache.reload",
		trace.WithAttributes(attribute.String("source", src.Key())))
	defer span.End()

	if c.options.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.LoadTimeout)
		defer cancel()
	}

	logger.Debug(ctx, "reloading dataset", zap.Stringer("source", src))
	ds, err := c.deps.Loader.Load(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn(ctx, "could not reload dataset", zap.Stringer("source", src), zap.Error(err))

		return nil, err
	}
	span.SetAttributes(attribute.Int("records", len(ds.Records)))

	c.mu.Lock()
	c.entries[src.Key()] = &entry{dataset: ds}
	c.mu.Unlock()

	return ds, nil
}

// Package analyzer answers region total queries from the cached dataset.
package analyzer

import (
	"context"
	"errors"

	"covidanalyzer/internal/config"
	"covidanalyzer/pkg/aggregate"
	"covidanalyzer/pkg/domain"
	"covidanalyzer/pkg/serrors"
)

// Options configure which dataset the analyzer reads.
type Options struct {
	// Source is the dataset every query is answered from.
	Source domain.Source
}

// NewOptions constructs an Options value from the provided application config.
// A configured file takes precedence over the remote URL.
func NewOptions(cfg *config.Config) Options {
	if cfg.Source.File != "" {
		return Options{Source: domain.FileSource(cfg.Source.File)}
	}

	return Options{Source: domain.RemoteSource(cfg.Source.URL)}
}

// Datasets hands out the current dataset of a source.
type Datasets interface {
	Get(ctx context.Context, src domain.Source) (*domain.Dataset, error)
	Peek(src domain.Source) *domain.Dataset
}

// analyzer is the concrete implementation of the Analyzer interface.
type analyzer struct {
	options  Options
	datasets Datasets
}

// RegionTotals aggregates the dataset over window. Failing to obtain the
// dataset is reported as an upstream error that keeps the loader's kind in
// its chain. A caller giving up while waiting gets its own context error back.
func (a analyzer) RegionTotals(ctx context.Context, window domain.DateWindow) (*Report, error) {
	ds, err := a.datasets.Get(ctx, a.options.Source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}

		return nil, serrors.Wrap(serrors.ErrUpstream, err, "could not load dataset from %s", a.options.Source)
	}

	return &Report{
		Window:   window,
		Regions:  aggregate.Aggregate(ds, window),
		LoadedAt: ds.LoadedAt,
		Checksum: ds.Checksum,
	}, nil
}

func (a analyzer) Loaded() *domain.Dataset {
	return a.datasets.Peek(a.options.Source)
}

// New creates a new Analyzer reading from datasets.
func New(datasets Datasets, options Options) Analyzer {
	return analyzer{
		options:  options,
		datasets: datasets,
	}
}

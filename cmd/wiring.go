package main

import (
	"time"

	"covidanalyzer/internal/analyzer"
	"covidanalyzer/internal/config"
	"covidanalyzer/pkg/cache"
	"covidanalyzer/pkg/clock"
	"covidanalyzer/pkg/metrics"
	"covidanalyzer/pkg/source"
)

// newClock returns the system clock in the configured timezone.
func newClock(cfg *config.Config) (clock.Clock, *time.Location, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	return clock.System(loc), loc, nil
}

// newAnalyzer wires the loader, the dataset cache and the analyzer. m may be nil.
func newAnalyzer(cfg *config.Config, clk clock.Clock, loc *time.Location, m *metrics.Collectors) analyzer.Analyzer {
	n := cfg.Source.Normalizer
	loader := source.New(source.Deps{
		Clock:   clk,
		Metrics: m,
	}, source.Options{
		Timeout:         cfg.Source.Timeout,
		UserAgent:       cfg.Source.UserAgent,
		MaxPayloadBytes: cfg.Source.MaxPayloadBytes,
		Schema: source.Schema{
			DateField:       n.DateField,
			RegionCodeField: n.RegionCodeField,
			RegionNameField: n.RegionNameField,
			CasesField:      n.CasesField,
		},
		Policy: source.Policy(n.Policy),
	})

	datasets := cache.New(cache.Deps{
		Loader:  loader,
		Clock:   clk,
		Metrics: m,
	}, cache.Options{
		Location:    loc,
		LoadTimeout: cfg.Cache.LoadTimeout,
	})

	return analyzer.New(datasets, analyzer.NewOptions(cfg))
}

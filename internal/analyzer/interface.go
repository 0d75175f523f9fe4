package analyzer

import (
	"context"
	"time"

	"covidanalyzer/pkg/domain"
)

// Report is the per-region breakdown of one date window.
type Report struct {
	Window  domain.DateWindow
	Regions []domain.RegionAggregate
	// LoadedAt and Checksum identify the dataset the report was computed from.
	LoadedAt time.Time
	Checksum uint64
}

//go:generate mockgen -package mockanalyzer -source=interface.go -destination=mock/mockanalyzer.go *
type Analyzer interface {
	RegionTotals(ctx context.Context, window domain.DateWindow) (*Report, error)
	// Loaded returns the dataset queries are answered from, stale or not, or
	// nil before the first successful load.
	Loaded() *domain.Dataset
}

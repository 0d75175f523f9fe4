// Package source loads raw datasets from a remote endpoint or a local file
// and normalizes them into typed records.
package source

import (
	"context"

	"covidanalyzer/pkg/domain"
)

// Loader fetches and normalizes a dataset. Implementations make a single
// attempt per call and never retry.
//
//go:generate mockgen -package mocksource -source=interface.go -destination=mock/mocksource.go *
type Loader interface {
	// Load obtains src and returns its normalized dataset.
	Load(ctx context.Context, src domain.Source) (*domain.Dataset, error)
}

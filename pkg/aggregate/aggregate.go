// Package aggregate computes per-region case totals over a date window.
package aggregate

import (
	"cmp"
	"slices"

	"covidanalyzer/pkg/domain"
)

// group accumulates the in-window records of one region.
type group struct {
	code  string
	name  string
	total int64
}

// Aggregate filters ds to the records dated within window, groups them by
// region code and sums their cases. Negative corrections are included in the
// sum and each region total is then clamped at zero.
//
// The result holds one entry per region with at least one record in the
// window, ordered by total descending, then region name and region code
// ascending. A window without records yields an empty, non-nil slice. ds is
// not modified.
func Aggregate(ds *domain.Dataset, window domain.DateWindow) []domain.RegionAggregate {
	if ds == nil {
		return []domain.RegionAggregate{}
	}

	byCode := make(map[string]*group)
	for _, rec := range ds.Records {
		if !window.Contains(rec.Date) {
			continue
		}
		g, ok := byCode[rec.RegionCode]
		if !ok {
			g = &group{code: rec.RegionCode, name: rec.RegionName}
			byCode[rec.RegionCode] = g
		}
		g.total += rec.NewCases
	}

	groups := make([]*group, 0, len(byCode))
	for _, g := range byCode {
		groups = append(groups, g)
	}
	slices.SortFunc(groups, func(a, b *group) int {
		return cmp.Or(
			cmp.Compare(clamp(b.total), clamp(a.total)),
			cmp.Compare(a.name, b.name),
			cmp.Compare(a.code, b.code),
		)
	})

	out := make([]domain.RegionAggregate, 0, len(groups))
	for _, g := range groups {
		out = append(out, domain.RegionAggregate{Region: g.name, TotalCases: clamp(g.total)})
	}

	return out
}

// Total sums the totals of aggs.
func Total(aggs []domain.RegionAggregate) int64 {
	var total int64
	for _, a := range aggs {
		total += a.TotalCases
	}

	return total
}

func clamp(v int64) int64 {
	return max(v, 0)
}

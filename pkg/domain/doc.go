// Package domain contains the core domain entities used by the analyzer:
// calendar dates and windows, raw daily records, loaded datasets and the
// per-region aggregates computed from them. These types are free of
// infrastructure concerns so they can be shared across packages.
package domain

package domain

import "time"

// SourceKind tells the loader where a dataset comes from.
type SourceKind string

const (
	// SourceRemote is a dataset served over HTTP(S).
	SourceRemote SourceKind = "remote"
	// SourceFile is a dataset read from the local filesystem.
	SourceFile SourceKind = "file"
)

// Source identifies a dataset origin. A remote URL and a file path are
// mutually exclusive per Source.
type Source struct {
	Kind     SourceKind
	Location string
}

// RemoteSource returns a Source for the given URL.
func RemoteSource(url string) Source { return Source{Kind: SourceRemote, Location: url} }

// FileSource returns a Source for the given local path.
func FileSource(path string) Source { return Source{Kind: SourceFile, Location: path} }

// Key returns the cache key of the source.
func (s Source) Key() string { return string(s.Kind) + ":" + s.Location }

func (s Source) String() string { return s.Key() }

// RawRecord is one day's observation for one region. NewCases may be
// negative when the publisher corrects earlier figures.
type RawRecord struct {
	Date       Date   `json:"date"`
	RegionCode string `json:"regionCode"`
	RegionName string `json:"regionName"`
	NewCases   int64  `json:"newCases"`
}

// Dataset is an immutable, normalized snapshot of a source. Records are not
// sorted; every record has a valid date and a non-empty region code.
type Dataset struct {
	// Source is where the dataset was loaded from.
	Source Source
	// Records holds the normalized records in payload order.
	Records []RawRecord
	// LoadedAt is when the dataset was fetched.
	LoadedAt time.Time
	// Checksum is the xxhash64 of the raw payload bytes.
	Checksum uint64
	// Dropped counts malformed payload elements skipped by the normalizer.
	Dropped int
}

// RegionAggregate is the total case count of one region over a date window.
type RegionAggregate struct {
	Region     string `json:"region"`
	TotalCases int64  `json:"total_cases"`
}

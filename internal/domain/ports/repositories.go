package ports

import (
	"context"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// CachedGeocode is a persisted geocoding result keyed by the normalized
// query string.
type CachedGeocode struct {
	Key         string
	Coordinate  shared.Coordinate
	DisplayName string
	Confidence  float64
	Provider    string
	CreatedAt   time.Time
}

// GeocodeCacheRepository persists geocoding results across restarts so
// repeated addresses skip the upstream provider.
type GeocodeCacheRepository interface {
	// Find returns the cached result for a normalized key, or nil when
	// absent.
	Find(ctx context.Context, key string) (*CachedGeocode, error)

	// Save stores or refreshes a result.
	Save(ctx context.Context, entry *CachedGeocode) error

	// Count returns the number of cached entries.
	Count(ctx context.Context) (int64, error)
}

// AssignmentRecord is the audit row written after every dispatch
// decision. It feeds the stats endpoint; the dispatch core never reads
// it back during a decision.
type AssignmentRecord struct {
	ID             string
	BatchID        string
	OrderID        string
	VehicleID      string
	Assigned       bool
	FailureReason  string
	TotalScore     float64
	CandidateCount int
	FastMode       bool
	DurationMs     int64
	CreatedAt      time.Time
}

// AssignmentStats summarizes the decision history.
type AssignmentStats struct {
	Total         int64
	Assigned      int64
	Unassigned    int64
	ByReason      map[string]int64
	AvgDurationMs float64
}

// AssignmentRecordRepository persists dispatch decision audit rows.
type AssignmentRecordRepository interface {
	Save(ctx context.Context, record *AssignmentRecord) error
	Stats(ctx context.Context) (*AssignmentStats, error)
}

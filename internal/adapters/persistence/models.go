package persistence

import (
	"time"
)

// GeocodeCacheModel represents the geocode_cache table. One row per
// normalized query string; repeated addresses skip the upstream
// provider entirely.
type GeocodeCacheModel struct {
	CacheKey    string    `gorm:"column:cache_key;primaryKey"`
	Lat         float64   `gorm:"column:lat;not null"`
	Lon         float64   `gorm:"column:lon;not null"`
	DisplayName string    `gorm:"column:display_name"`
	Confidence  float64   `gorm:"column:confidence;not null"`
	Provider    string    `gorm:"column:provider"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (GeocodeCacheModel) TableName() string {
	return "geocode_cache"
}

// AssignmentRecordModel represents the assignment_records table. One
// row per dispatch verdict (single call or batch item); the stats
// endpoint aggregates over it.
type AssignmentRecordModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	BatchID        string    `gorm:"column:batch_id;index"`
	OrderID        string    `gorm:"column:order_id;not null;index"`
	VehicleID      string    `gorm:"column:vehicle_id"`
	Assigned       bool      `gorm:"column:assigned;not null"`
	FailureReason  string    `gorm:"column:failure_reason"`
	TotalScore     float64   `gorm:"column:total_score"`
	CandidateCount int       `gorm:"column:candidate_count"`
	FastMode       bool      `gorm:"column:fast_mode"`
	DurationMs     int64     `gorm:"column:duration_ms"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index"`
}

func (AssignmentRecordModel) TableName() string {
	return "assignment_records"
}

package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
)

// GormAssignmentRecordRepository implements AssignmentRecordRepository using GORM
type GormAssignmentRecordRepository struct {
	db *gorm.DB
}

// NewGormAssignmentRecordRepository creates a new GORM assignment record repository
func NewGormAssignmentRecordRepository(db *gorm.DB) *GormAssignmentRecordRepository {
	return &GormAssignmentRecordRepository{db: db}
}

// Save persists one dispatch verdict
func (r *GormAssignmentRecordRepository) Save(ctx context.Context, record *ports.AssignmentRecord) error {
	model := recordToModel(record)
	if model.ID == "" {
		model.ID = uuid.New().String()
	}

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save assignment record: %w", result.Error)
	}

	return nil
}

// Stats aggregates the decision history
func (r *GormAssignmentRecordRepository) Stats(ctx context.Context) (*ports.AssignmentStats, error) {
	stats := &ports.AssignmentStats{
		ByReason: make(map[string]int64),
	}

	err := r.db.WithContext(ctx).
		Model(&AssignmentRecordModel{}).
		Count(&stats.Total).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count assignment records: %w", err)
	}

	err = r.db.WithContext(ctx).
		Model(&AssignmentRecordModel{}).
		Where("assigned = ?", true).
		Count(&stats.Assigned).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count assigned records: %w", err)
	}
	stats.Unassigned = stats.Total - stats.Assigned

	var reasons []struct {
		FailureReason string
		Count         int64
	}
	err = r.db.WithContext(ctx).
		Model(&AssignmentRecordModel{}).
		Select("failure_reason, COUNT(*) as count").
		Where("assigned = ? AND failure_reason <> ''", false).
		Group("failure_reason").
		Scan(&reasons).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group failure reasons: %w", err)
	}
	for _, row := range reasons {
		stats.ByReason[row.FailureReason] = row.Count
	}

	var avg struct {
		AvgMs float64
	}
	err = r.db.WithContext(ctx).
		Model(&AssignmentRecordModel{}).
		Select("COALESCE(AVG(duration_ms), 0) as avg_ms").
		Scan(&avg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to average durations: %w", err)
	}
	stats.AvgDurationMs = avg.AvgMs

	return stats, nil
}

func recordToModel(record *ports.AssignmentRecord) *AssignmentRecordModel {
	return &AssignmentRecordModel{
		ID:             record.ID,
		BatchID:        record.BatchID,
		OrderID:        record.OrderID,
		VehicleID:      record.VehicleID,
		Assigned:       record.Assigned,
		FailureReason:  record.FailureReason,
		TotalScore:     record.TotalScore,
		CandidateCount: record.CandidateCount,
		FastMode:       record.FastMode,
		DurationMs:     record.DurationMs,
		CreatedAt:      record.CreatedAt,
	}
}

var _ ports.AssignmentRecordRepository = (*GormAssignmentRecordRepository)(nil)

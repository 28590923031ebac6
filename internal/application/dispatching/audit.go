package dispatching

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/andrescamacho/dispatch-go/internal/domain/dispatch"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// recordDecision appends one dispatch verdict to the audit trail.
// Best-effort: a failed write is logged and never fails the request.
func recordDecision(
	ctx context.Context,
	repo ports.AssignmentRecordRepository,
	clock shared.Clock,
	batchID string,
	result *dispatch.Result,
) {
	if repo == nil || result == nil {
		return
	}

	record := &ports.AssignmentRecord{
		ID:             uuid.New().String(),
		BatchID:        batchID,
		OrderID:        result.OrderID,
		VehicleID:      result.AssignedVehicleID,
		Assigned:       result.Assigned(),
		FailureReason:  string(result.FailureReason),
		CandidateCount: result.CandidateCount(),
		FastMode:       result.FastMode,
		DurationMs:     result.Elapsed.Milliseconds(),
		CreatedAt:      clock.Now().UTC(),
	}
	if result.Winning != nil {
		record.TotalScore = result.Winning.Total
	}

	if err := repo.Save(ctx, record); err != nil {
		log.Printf("Warning: failed to record assignment for order %s: %v", result.OrderID, err)
	}
}

package dispatching

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/andrescamacho/dispatch-go/internal/adapters/metrics"
	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/domain/dispatch"
	"github.com/andrescamacho/dispatch-go/internal/domain/fleet"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// AssignBatchCommand represents a command to assign a set of orders
// against one shared fleet snapshot.
type AssignBatchCommand struct {
	Orders   []*order.Order
	Vehicles fleet.Fleet
	Options  dispatch.BatchOptions
}

// AssignBatchResponse carries the per-order verdicts and the summary.
type AssignBatchResponse struct {
	BatchID string
	Batch   *dispatch.BatchResult
}

// AssignBatchHandler handles the AssignBatch command.
type AssignBatchHandler struct {
	batch       *dispatch.BatchDispatcher
	assignments ports.AssignmentRecordRepository
	counters    *common.Counters
	clock       shared.Clock
}

// NewAssignBatchHandler creates a new AssignBatchHandler.
func NewAssignBatchHandler(
	batch *dispatch.BatchDispatcher,
	assignments ports.AssignmentRecordRepository,
	counters *common.Counters,
	clock shared.Clock,
) *AssignBatchHandler {
	return &AssignBatchHandler{
		batch:       batch,
		assignments: assignments,
		counters:    counters,
		clock:       clock,
	}
}

// Handle executes the AssignBatch command.
func (h *AssignBatchHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*AssignBatchCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *AssignBatchCommand")
	}

	for i, o := range cmd.Orders {
		if o == nil {
			return nil, shared.NewValidationError("orders", fmt.Sprintf("order at index %d is nil", i))
		}
	}

	h.counters.BatchSeen(len(cmd.Orders))

	batchID := uuid.New().String()
	result, err := h.batch.Run(ctx, cmd.Orders, cmd.Vehicles, cmd.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to run batch %s: %w", batchID, err)
	}

	for _, res := range result.Results {
		recordDecision(ctx, h.assignments, h.clock, batchID, res)
		recordDecisionMetrics(res)
	}
	metrics.RecordBatch(result.Summary.Total, result.Summary.Assigned, result.Summary.Elapsed.Seconds())

	log.Printf("Batch %s: %d/%d orders assigned in %s",
		batchID, result.Summary.Assigned, result.Summary.Total, result.Summary.Elapsed)

	return &AssignBatchResponse{BatchID: batchID, Batch: result}, nil
}

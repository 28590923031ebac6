// Package dispatching exposes the dispatch use cases as mediator
// commands: single-order assignment, batch assignment and route
// resequencing.
package dispatching

import (
	"context"
	"fmt"

	"github.com/andrescamacho/dispatch-go/internal/adapters/metrics"
	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/domain/dispatch"
	"github.com/andrescamacho/dispatch-go/internal/domain/fleet"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// AssignOrderCommand represents a command to assign one order to the
// best vehicle of the provided fleet snapshot.
type AssignOrderCommand struct {
	Order    *order.Order
	Vehicles fleet.Fleet
	Options  dispatch.Options
}

// AssignOrderResponse carries the dispatch verdict.
type AssignOrderResponse struct {
	Result *dispatch.Result
}

// AssignOrderHandler handles the AssignOrder command.
type AssignOrderHandler struct {
	dispatcher  *dispatch.Dispatcher
	assignments ports.AssignmentRecordRepository
	counters    *common.Counters
	clock       shared.Clock
}

// NewAssignOrderHandler creates a new AssignOrderHandler. The audit
// repository and counters may be nil; decisions then go unrecorded.
func NewAssignOrderHandler(
	dispatcher *dispatch.Dispatcher,
	assignments ports.AssignmentRecordRepository,
	counters *common.Counters,
	clock shared.Clock,
) *AssignOrderHandler {
	return &AssignOrderHandler{
		dispatcher:  dispatcher,
		assignments: assignments,
		counters:    counters,
		clock:       clock,
	}
}

// Handle executes the AssignOrder command.
func (h *AssignOrderHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*AssignOrderCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *AssignOrderCommand")
	}

	if cmd.Order == nil {
		return nil, shared.NewValidationError("order", "order cannot be nil")
	}

	h.counters.DispatchSeen()

	result, err := h.dispatcher.Dispatch(ctx, cmd.Order, cmd.Vehicles, cmd.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch order %s: %w", cmd.Order.ID(), err)
	}

	recordDecision(ctx, h.assignments, h.clock, "", result)
	recordDecisionMetrics(result)

	return &AssignOrderResponse{Result: result}, nil
}

// recordDecisionMetrics feeds the verdict to the global dispatch
// collector. A no-op when metrics are disabled.
func recordDecisionMetrics(res *dispatch.Result) {
	winning := 0.0
	if res.Winning != nil {
		winning = res.Winning.Total
	}
	metrics.RecordDecision(res.Assigned(), string(res.FailureReason), res.FastMode,
		res.Elapsed.Seconds(), res.CandidateCount(), winning)
}

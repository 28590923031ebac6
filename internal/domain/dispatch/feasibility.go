package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/domain/fleet"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
)

// FeasibilityResult reports whether a vehicle can absorb a new order
// and the two durations the interference score is built from.
type FeasibilityResult struct {
	Feasible            bool
	BaselineDurationMin float64
	WithNewDurationMin  float64
	// ViolatingOrderID names the earliest stop missing its deadline in
	// the best insertion plan; empty when feasible.
	ViolatingOrderID string
	// Route is the best insertion plan including the new order.
	Route *routing.Route
	// Notes carry rare conditions worth surfacing, such as a baseline
	// that already missed deadlines before the new order arrived.
	Notes []string
}

// Evaluator decides whether inserting an order into a vehicle's
// committed work keeps every deadline satisfied. The sequencer is the
// authority on insertion order.
type Evaluator struct {
	sequencer *routing.Sequencer
}

// NewEvaluator creates a feasibility evaluator.
func NewEvaluator(sequencer *routing.Sequencer) *Evaluator {
	return &Evaluator{sequencer: sequencer}
}

// Evaluate sequences the vehicle's committed orders with and without
// the new order. A baseline that is already infeasible does not reject
// the insertion: the verdict follows the combined plan, and the
// condition is reported as a note.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	vehicle *fleet.Vehicle,
	newOrder *order.Order,
	at time.Time,
	opts routing.Options,
) (*FeasibilityResult, error) {
	committed := vehicle.CurrentOrders()
	combined := append(committed, newOrder)

	withNew, err := e.sequencer.Sequence(ctx, vehicle.Location(), combined, at, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to sequence insertion for vehicle %s: %w", vehicle.ID(), err)
	}

	result := &FeasibilityResult{
		Feasible:           withNew.Feasible,
		WithNewDurationMin: withNew.Route.TotalDurationMin,
		ViolatingOrderID:   withNew.ViolatingOrderID,
		Route:              withNew.Route,
	}

	if len(committed) == 0 {
		return result, nil
	}

	baseline, err := e.sequencer.Sequence(ctx, vehicle.Location(), committed, at, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to sequence baseline for vehicle %s: %w", vehicle.ID(), err)
	}
	result.BaselineDurationMin = baseline.Route.TotalDurationMin

	if !baseline.Feasible {
		note := "baseline route already misses deadlines"
		if baseline.ViolatingOrderID != "" {
			note = fmt.Sprintf("baseline route already misses the deadline of order %s", baseline.ViolatingOrderID)
		}
		result.Notes = append(result.Notes, note)
	}
	return result, nil
}

package dispatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/domain/fleet"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// BatchResult carries one verdict per input order plus the aggregate
// summary.
type BatchResult struct {
	// Results sit in the same positions as the input orders regardless
	// of priority sorting.
	Results []*Result
	Summary BatchSummary
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total      int
	Assigned   int
	Unassigned int
	ByReason   map[FailureReason]int
	Elapsed    time.Duration
}

// BatchDispatcher applies the single-order dispatcher to many orders
// against one shared fleet. The outer loop is sequential: each
// successful assignment mutates the fleet that later orders see, so
// the outcome for order k is a function of the verdicts before it.
type BatchDispatcher struct {
	dispatcher *Dispatcher
	clock      shared.Clock
}

// NewBatchDispatcher creates a batch dispatcher around a single-order
// dispatcher.
func NewBatchDispatcher(dispatcher *Dispatcher, clock shared.Clock) *BatchDispatcher {
	return &BatchDispatcher{dispatcher: dispatcher, clock: clock}
}

// Run dispatches every order under one wall-clock budget, committing
// each successful assignment to the fleet before moving on. Orders past
// the budget, or past a context cancellation, are marked unassigned
// with a time-budget-exceeded reason; assignments already made are
// preserved.
func (b *BatchDispatcher) Run(
	ctx context.Context,
	orders []*order.Order,
	vehicles fleet.Fleet,
	opts BatchOptions,
) (*BatchResult, error) {
	opts = opts.withDefaults()
	started := b.clock.Now()
	deadline := started.Add(opts.Budget)

	results := make([]*Result, len(orders))
	for _, idx := range processingOrder(orders, opts.PrioritySort) {
		o := orders[idx]

		if ctx.Err() != nil || !b.clock.Now().Before(deadline) {
			results[idx] = &Result{
				OrderID:       o.ID(),
				FailureReason: FailureTimeBudgetExceeded,
				FastMode:      opts.Dispatch.FastMode,
			}
			continue
		}

		res, err := b.dispatcher.Dispatch(ctx, o, vehicles, opts.Dispatch)
		if err != nil {
			return nil, fmt.Errorf("failed to dispatch order %s: %w", o.ID(), err)
		}
		if res.Assigned() {
			if err := b.commit(res, o, vehicles); err != nil {
				return nil, err
			}
		}
		results[idx] = res
	}

	return &BatchResult{
		Results: results,
		Summary: summarize(results, b.clock.Now().Sub(started)),
	}, nil
}

// commit appends the order to the winning vehicle's committed work and
// advances the order lifecycle. Both mutations happen on the batch
// loop, never inside the parallel evaluations.
func (b *BatchDispatcher) commit(res *Result, o *order.Order, vehicles fleet.Fleet) error {
	vehicle := vehicles.FindByID(res.AssignedVehicleID)
	if vehicle == nil {
		return fmt.Errorf("dispatch picked unknown vehicle %s for order %s", res.AssignedVehicleID, o.ID())
	}
	if err := vehicle.Assign(o); err != nil {
		return fmt.Errorf("failed to commit order %s to vehicle %s: %w", o.ID(), vehicle.ID(), err)
	}
	if err := o.Assign(); err != nil {
		return fmt.Errorf("failed to mark order %s assigned: %w", o.ID(), err)
	}
	return nil
}

// processingOrder returns input indexes in dispatch order: unchanged,
// or priority buckets first with earlier deadlines breaking ties.
func processingOrder(orders []*order.Order, prioritySort bool) []int {
	indexes := make([]int, len(orders))
	for i := range indexes {
		indexes[i] = i
	}
	if !prioritySort {
		return indexes
	}
	sort.SliceStable(indexes, func(a, b int) bool {
		oa, ob := orders[indexes[a]], orders[indexes[b]]
		if oa.Priority().Rank() != ob.Priority().Rank() {
			return oa.Priority().Rank() > ob.Priority().Rank()
		}
		return oa.Deadline().Before(ob.Deadline())
	})
	return indexes
}

func summarize(results []*Result, elapsed time.Duration) BatchSummary {
	summary := BatchSummary{
		Total:    len(results),
		ByReason: make(map[FailureReason]int),
		Elapsed:  elapsed,
	}
	for _, r := range results {
		if r.Assigned() {
			summary.Assigned++
			continue
		}
		summary.Unassigned++
		summary.ByReason[r.FailureReason]++
	}
	return summary
}

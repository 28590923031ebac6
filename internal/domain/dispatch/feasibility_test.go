package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

func newTestEvaluator(clock shared.Clock) *Evaluator {
	network := &stubNetwork{minutesPerKm: testPace}
	return NewEvaluator(routing.NewSequencer(network, clock))
}

func TestEvaluateEmptyVehicle(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	evaluator := newTestEvaluator(clock)

	v := mustVehicle(t, "V1", depotLoc, 4, 50, 0.8)
	o := mustOrder(t, "ORD-1", kmNorthOf(depotLoc, 3), testNow.Add(time.Hour), shared.PriorityNormal, 1)

	res, err := evaluator.Evaluate(context.Background(), v, o, testNow, routing.Options{})
	require.NoError(t, err)

	assert.True(t, res.Feasible)
	assert.Zero(t, res.BaselineDurationMin)
	assert.Greater(t, res.WithNewDurationMin, 0.0)
	assert.Empty(t, res.Notes)
	require.NotNil(t, res.Route)
	assert.Equal(t, 1, res.Route.DeliveryCount())
}

func TestEvaluateDurationDelta(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	evaluator := newTestEvaluator(clock)

	v := mustVehicle(t, "V1", depotLoc, 4, 50, 0.8)
	require.NoError(t, v.Assign(mustOrder(t, "COMMITTED-1", kmNorthOf(depotLoc, 2), testNow.Add(3*time.Hour), shared.PriorityNormal, 1)))
	o := mustOrder(t, "ORD-1", kmNorthOf(depotLoc, 4), testNow.Add(3*time.Hour), shared.PriorityNormal, 1)

	res, err := evaluator.Evaluate(context.Background(), v, o, testNow, routing.Options{})
	require.NoError(t, err)

	require.True(t, res.Feasible)
	// Baseline is one 2 km leg plus service; the extension adds the
	// 2 km hop onward plus another service stop.
	assert.InDelta(t, 9.0, res.BaselineDurationMin, 0.1)
	assert.InDelta(t, 18.0, res.WithNewDurationMin, 0.1)
	assert.Equal(t, 2, res.Route.DeliveryCount())
}

func TestEvaluateNotesAlreadyBrokenBaseline(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	evaluator := newTestEvaluator(clock)

	v := mustVehicle(t, "V1", depotLoc, 4, 50, 0.8)
	// This commitment can no longer be met: 10 km out with five
	// minutes on the clock.
	stale := mustOrder(t, "STALE-1", kmNorthOf(depotLoc, 10), testNow.Add(5*time.Minute), shared.PriorityNormal, 1)
	require.NoError(t, v.Assign(stale))
	o := mustOrder(t, "ORD-1", kmNorthOf(depotLoc, 1), testNow.Add(4*time.Hour), shared.PriorityNormal, 1)

	res, err := evaluator.Evaluate(context.Background(), v, o, testNow, routing.Options{})
	require.NoError(t, err)

	require.NotEmpty(t, res.Notes)
	assert.Contains(t, res.Notes[0], "STALE-1")
	assert.Greater(t, res.BaselineDurationMin, 0.0)
}

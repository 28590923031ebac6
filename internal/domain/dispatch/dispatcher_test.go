package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/dispatch-go/internal/domain/fleet"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/internal/domain/zones"
)

type stubGeocoder struct {
	result *ports.GeocodeResult
	err    error
	calls  int
}

func (g *stubGeocoder) Geocode(context.Context, shared.Address) (*ports.GeocodeResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func (g *stubGeocoder) ReverseGeocode(context.Context, shared.Coordinate) (*shared.Address, error) {
	return nil, ports.ErrAddressNotFound
}

// tickingClock advances on every reading, simulating elapsing wall time
// without sleeping.
type tickingClock struct {
	current time.Time
	tick    time.Duration
}

func (c *tickingClock) Now() time.Time {
	now := c.current
	c.current = c.current.Add(c.tick)
	return now
}

func (c *tickingClock) Sleep(d time.Duration) { c.current = c.current.Add(d) }

func newTestDispatcher(pace float64, clock shared.Clock, geocoder ports.Geocoder, partition *zones.Partition) *Dispatcher {
	network := &stubNetwork{minutesPerKm: pace}
	scorer := NewScorer(network, NewEvaluator(routing.NewSequencer(network, clock)))
	return NewDispatcher(scorer, geocoder, partition, clock)
}

func TestDispatchEmptyFleetVehicleWinsOnInterference(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	dispatcher := newTestDispatcher(testPace, clock, nil, nil)

	orderLoc := shared.Coordinate{Lat: -34.60, Lon: -58.38}
	o := mustOrder(t, "ORD-1", orderLoc, testNow.Add(2*time.Hour), shared.PriorityNormal, 2.8)

	v1 := mustVehicle(t, "V1", shared.Coordinate{Lat: -34.59, Lon: -58.37}, 6, 30, 0.92)

	v2 := mustVehicle(t, "V2", orderLoc, 8, 150, 0.88)
	for i, deadline := range []time.Duration{30 * time.Minute, 60 * time.Minute, 105 * time.Minute} {
		committed := mustOrder(t, fmt.Sprintf("COMMITTED-%d", i+1),
			kmSouthOf(orderLoc, float64(i+1)*10), testNow.Add(deadline), shared.PriorityNormal, 1)
		require.NoError(t, v2.Assign(committed))
	}

	res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{v1, v2}, Options{})
	require.NoError(t, err)

	require.True(t, res.Assigned())
	assert.Equal(t, "V1", res.AssignedVehicleID)
	assert.InDelta(t, 1.0, res.Winning.Sub.Interference, 1e-9)
	require.NotNil(t, res.Route)
	assert.Equal(t, 1, res.Route.DeliveryCount())

	require.Len(t, res.Scores, 2)
	var v2Score *AssignmentScore
	for _, s := range res.Scores {
		if s.VehicleID == "V2" {
			v2Score = s
		}
	}
	require.NotNil(t, v2Score)
	assert.True(t, v2Score.Feasible)
	assert.Less(t, v2Score.Sub.Interference, 1.0)
}

func TestDispatchInfeasibleAllNamesViolatedOrder(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	// A slightly quicker network: the far order is reachable on its
	// own, so the failure lands on the committed stop it would push
	// past its deadline.
	dispatcher := newTestDispatcher(1.5, clock, nil, nil)

	v := mustVehicle(t, "V1", depotLoc, 4, 50, 0.9)
	committed := mustOrder(t, "COMMITTED-1", kmNorthOf(depotLoc, 2), testNow.Add(30*time.Minute), shared.PriorityNormal, 1)
	require.NoError(t, v.Assign(committed))

	o := mustOrder(t, "ORD-FAR", kmNorthOf(depotLoc, 12), testNow.Add(25*time.Minute), shared.PriorityNormal, 1)

	res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{v}, Options{})
	require.NoError(t, err)

	assert.False(t, res.Assigned())
	assert.Empty(t, res.AssignedVehicleID)
	assert.Equal(t, FailureInfeasibleAll, res.FailureReason)

	require.Len(t, res.Scores, 1)
	assert.Zero(t, res.Scores[0].Total)
	require.NotEmpty(t, res.Scores[0].Reasoning)
	assert.Contains(t, res.Scores[0].Reasoning[0], "COMMITTED-1")
}

func TestDispatchZoneFilter(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	partition := zones.DefaultMontevideo()
	dispatcher := newTestDispatcher(testPace, clock, nil, partition)

	t.Run("far suburb vehicle is excluded unevaluated", func(t *testing.T) {
		o := mustOrder(t, "ORD-1", shared.Coordinate{Lat: -34.900, Lon: -56.185}, testNow.Add(2*time.Hour), shared.PriorityNormal, 1)
		inZone := mustVehicle(t, "V-CENTRO", shared.Coordinate{Lat: -34.901, Lon: -56.180}, 4, 50, 0.8)
		farSuburb := mustVehicle(t, "V-FAR", shared.Coordinate{Lat: -34.75, Lon: -56.00}, 4, 50, 0.8)

		res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{inZone, farSuburb}, Options{})
		require.NoError(t, err)

		require.True(t, res.Assigned())
		assert.Equal(t, "V-CENTRO", res.AssignedVehicleID)
		require.Len(t, res.Scores, 1)
		assert.Equal(t, "V-CENTRO", res.Scores[0].VehicleID)

		require.Len(t, res.Rejections, 1)
		assert.Equal(t, "V-FAR", res.Rejections[0].VehicleID)
		assert.Equal(t, RejectionOutOfZone, res.Rejections[0].Kind)
	})

	t.Run("non-adjacent zone vehicle is excluded", func(t *testing.T) {
		o := mustOrder(t, "ORD-2", shared.Coordinate{Lat: -34.88, Lon: -56.12}, testNow.Add(2*time.Hour), shared.PriorityNormal, 1)
		este := mustVehicle(t, "V-ESTE", shared.Coordinate{Lat: -34.89, Lon: -56.13}, 4, 50, 0.8)
		oeste := mustVehicle(t, "V-OESTE", shared.Coordinate{Lat: -34.85, Lon: -56.21}, 4, 50, 0.8)

		res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{este, oeste}, Options{})
		require.NoError(t, err)

		require.True(t, res.Assigned())
		assert.Equal(t, "V-ESTE", res.AssignedVehicleID)
		require.Len(t, res.Rejections, 1)
		assert.Equal(t, "V-OESTE", res.Rejections[0].VehicleID)
	})

	t.Run("filter that would empty the set is skipped", func(t *testing.T) {
		o := mustOrder(t, "ORD-3", shared.Coordinate{Lat: -34.88, Lon: -56.12}, testNow.Add(3*time.Hour), shared.PriorityNormal, 1)
		oeste := mustVehicle(t, "V-OESTE", shared.Coordinate{Lat: -34.85, Lon: -56.21}, 4, 50, 0.8)

		res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{oeste}, Options{})
		require.NoError(t, err)

		require.True(t, res.Assigned())
		assert.Equal(t, "V-OESTE", res.AssignedVehicleID)
		require.NotEmpty(t, res.Warnings)
		assert.Contains(t, res.Warnings[0], "zone filter skipped")
	})

	t.Run("order outside coverage disables the filter", func(t *testing.T) {
		o := mustOrder(t, "ORD-4", shared.Coordinate{Lat: -34.60, Lon: -58.38}, testNow.Add(2*time.Hour), shared.PriorityNormal, 1)
		v := mustVehicle(t, "V-CENTRO", shared.Coordinate{Lat: -34.901, Lon: -56.180}, 4, 50, 0.8)

		res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{v}, Options{})
		require.NoError(t, err)

		assert.True(t, res.Assigned())
		assert.Empty(t, res.Rejections)
	})
}

func TestDispatchUnresolvedAddress(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	freeText := shared.Address{FreeText: "Av. 18 de Julio 1234"}

	t.Run("geocoder finds nothing", func(t *testing.T) {
		geocoder := &stubGeocoder{err: ports.ErrAddressNotFound}
		dispatcher := newTestDispatcher(testPace, clock, geocoder, nil)
		o, err := order.NewOrder("ORD-1", freeText, testNow.Add(time.Hour), shared.PriorityNormal, 1, 0, testNow.Add(-time.Hour))
		require.NoError(t, err)
		v := mustVehicle(t, "V1", depotLoc, 4, 50, 0.8)

		res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{v}, Options{})
		require.NoError(t, err)

		assert.False(t, res.Assigned())
		assert.Equal(t, FailureUnresolvedAddress, res.FailureReason)
		assert.Empty(t, res.Scores)
		assert.Equal(t, 1, geocoder.calls)
	})

	t.Run("no geocoder wired counts as exhausted", func(t *testing.T) {
		dispatcher := newTestDispatcher(testPace, clock, nil, nil)
		o, err := order.NewOrder("ORD-2", freeText, testNow.Add(time.Hour), shared.PriorityNormal, 1, 0, testNow.Add(-time.Hour))
		require.NoError(t, err)
		v := mustVehicle(t, "V1", depotLoc, 4, 50, 0.8)

		res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{v}, Options{})
		require.NoError(t, err)
		assert.Equal(t, FailureUnresolvedAddress, res.FailureReason)
	})

	t.Run("successful resolution feeds the pipeline", func(t *testing.T) {
		target := kmNorthOf(depotLoc, 2)
		geocoder := &stubGeocoder{result: &ports.GeocodeResult{Coordinate: target, DisplayName: "Av. 18 de Julio 1234, Montevideo", Confidence: 0.9}}
		dispatcher := newTestDispatcher(testPace, clock, geocoder, nil)
		o, err := order.NewOrder("ORD-3", freeText, testNow.Add(time.Hour), shared.PriorityNormal, 1, 0, testNow.Add(-time.Hour))
		require.NoError(t, err)
		v := mustVehicle(t, "V1", depotLoc, 4, 50, 0.8)

		res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{v}, Options{})
		require.NoError(t, err)

		assert.True(t, res.Assigned())
		require.NotNil(t, o.Location())
		assert.InDelta(t, target.Lat, o.Location().Lat, 1e-9)
	})
}

func TestDispatchNoCapacity(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	dispatcher := newTestDispatcher(testPace, clock, nil, nil)

	full := mustVehicle(t, "V-FULL", depotLoc, 1, 50, 0.8)
	require.NoError(t, full.Assign(mustOrder(t, "BUSY-1", kmNorthOf(depotLoc, 1), testNow.Add(2*time.Hour), shared.PriorityNormal, 1)))

	heavy := mustVehicle(t, "V-HEAVY", depotLoc, 4, 5, 0.8)
	require.NoError(t, heavy.Assign(mustOrder(t, "BUSY-2", kmNorthOf(depotLoc, 1), testNow.Add(2*time.Hour), shared.PriorityNormal, 4)))

	o := mustOrder(t, "ORD-1", kmNorthOf(depotLoc, 3), testNow.Add(2*time.Hour), shared.PriorityNormal, 3)

	res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{full, heavy}, Options{})
	require.NoError(t, err)

	assert.False(t, res.Assigned())
	assert.Equal(t, FailureNoCapacity, res.FailureReason)
	require.Len(t, res.Rejections, 2)

	kinds := map[string]RejectionKind{}
	for _, r := range res.Rejections {
		kinds[r.VehicleID] = r.Kind
	}
	assert.Equal(t, RejectionNoCapacity, kinds["V-FULL"])
	assert.Equal(t, RejectionOverWeight, kinds["V-HEAVY"])
}

func TestDispatchDeterministicTieBreak(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	dispatcher := newTestDispatcher(testPace, clock, nil, nil)

	// Identical twins: every sub-score ties, so the vehicle id decides.
	vb := mustVehicle(t, "V-b", depotLoc, 4, 50, 0.8)
	va := mustVehicle(t, "V-a", depotLoc, 4, 50, 0.8)
	o := mustOrder(t, "ORD-1", kmNorthOf(depotLoc, 3), testNow.Add(2*time.Hour), shared.PriorityNormal, 1)

	for i := 0; i < 100; i++ {
		res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{vb, va}, Options{})
		require.NoError(t, err)
		require.True(t, res.Assigned())
		assert.Equal(t, "V-a", res.AssignedVehicleID)
	}
}

func TestDispatchFastMode(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	dispatcher := newTestDispatcher(testPace, clock, nil, nil)

	orderLoc := depotLoc
	o := mustOrder(t, "ORD-1", orderLoc, testNow.Add(3*time.Hour), shared.PriorityNormal, 1)

	vehicles := make(fleet.Fleet, 0, 10)
	for i := 1; i <= 10; i++ {
		vehicles = append(vehicles,
			mustVehicle(t, fmt.Sprintf("V%02d", i), kmNorthOf(orderLoc, float64(i)), 4, 50, 0.8))
	}

	fullRes, err := dispatcher.Dispatch(context.Background(), o, vehicles, Options{})
	require.NoError(t, err)
	require.True(t, fullRes.Assigned())

	fastRes, err := dispatcher.Dispatch(context.Background(), o, vehicles, Options{FastMode: true})
	require.NoError(t, err)
	require.True(t, fastRes.Assigned())

	// The full-mode winner is the closest vehicle, inside the top-3 by
	// proximity, so fast mode must agree with it.
	assert.Equal(t, fullRes.AssignedVehicleID, fastRes.AssignedVehicleID)
	assert.False(t, fastRes.Winning.Approximate)
	assert.True(t, fastRes.FastMode)

	approximates := 0
	for _, s := range fastRes.Scores {
		if s.Approximate {
			approximates++
		}
	}
	assert.Equal(t, 7, approximates)
}

func TestDispatchFastModePromotesWhenTopKInfeasible(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	dispatcher := newTestDispatcher(1.5, clock, nil, nil)

	orderLoc := depotLoc
	o := mustOrder(t, "ORD-1", orderLoc, testNow.Add(25*time.Minute), shared.PriorityNormal, 1)

	// The three closest vehicles each carry a commitment the insertion
	// would break; the fourth is farther but free.
	vehicles := make(fleet.Fleet, 0, 4)
	for i := 1; i <= 3; i++ {
		v := mustVehicle(t, fmt.Sprintf("V-TIGHT-%d", i), kmNorthOf(orderLoc, float64(i)+1), 4, 50, 0.8)
		committed := mustOrder(t, fmt.Sprintf("COMMITTED-%d", i),
			kmSouthOf(v.Location(), 10), testNow.Add(20*time.Minute), shared.PriorityNormal, 1)
		require.NoError(t, v.Assign(committed))
		vehicles = append(vehicles, v)
	}
	free := mustVehicle(t, "V-FREE", kmNorthOf(orderLoc, 6), 4, 50, 0.8)
	vehicles = append(vehicles, free)

	res, err := dispatcher.Dispatch(context.Background(), o, vehicles, Options{FastMode: true})
	require.NoError(t, err)

	require.True(t, res.Assigned())
	assert.Equal(t, "V-FREE", res.AssignedVehicleID)
	assert.False(t, res.Winning.Approximate)
	require.NotNil(t, res.Route)
}

func TestDispatchTimeBudgetExceeded(t *testing.T) {
	clock := &tickingClock{current: testNow, tick: time.Second}
	dispatcher := newTestDispatcher(testPace, clock, nil, nil)

	v := mustVehicle(t, "V1", depotLoc, 4, 50, 0.8)
	o := mustOrder(t, "ORD-1", kmNorthOf(depotLoc, 3), testNow.Add(2*time.Hour), shared.PriorityNormal, 1)

	res, err := dispatcher.Dispatch(context.Background(), o, fleet.Fleet{v}, Options{TimeBudget: time.Second})
	require.NoError(t, err)

	assert.False(t, res.Assigned())
	assert.Equal(t, FailureTimeBudgetExceeded, res.FailureReason)
}

func TestDispatchAlternativesAndSortedScores(t *testing.T) {
	clock := shared.NewMockClock(testNow)
	dispatcher := newTestDispatcher(testPace, clock, nil, nil)

	o := mustOrder(t, "ORD-1", depotLoc, testNow.Add(2*time.Hour), shared.PriorityNormal, 1)
	vehicles := fleet.Fleet{
		mustVehicle(t, "V-NEAR", kmNorthOf(depotLoc, 1), 4, 50, 0.8),
		mustVehicle(t, "V-MID", kmNorthOf(depotLoc, 5), 4, 50, 0.8),
		mustVehicle(t, "V-FAR", kmNorthOf(depotLoc, 12), 4, 50, 0.8),
	}

	res, err := dispatcher.Dispatch(context.Background(), o, vehicles, Options{})
	require.NoError(t, err)

	require.True(t, res.Assigned())
	assert.Equal(t, "V-NEAR", res.AssignedVehicleID)

	require.Len(t, res.Scores, 3)
	for i := 1; i < len(res.Scores); i++ {
		assert.GreaterOrEqual(t, res.Scores[i-1].Total, res.Scores[i].Total)
	}

	require.Len(t, res.Alternatives, 2)
	assert.Equal(t, "V-MID", res.Alternatives[0].VehicleID)
	assert.Equal(t, "V-FAR", res.Alternatives[1].VehicleID)
}

package routing

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// stubNetwork estimates every leg as a straight line at a fixed pace.
type stubNetwork struct {
	minutesPerKm float64
	approximate  bool
}

func (s *stubNetwork) TravelTime(_ context.Context, from, to shared.Coordinate) (TravelEstimate, error) {
	km := from.DistanceKm(to)
	return TravelEstimate{Minutes: km * s.minutesPerKm, DistanceKm: km, Approximate: s.approximate}, nil
}

func (s *stubNetwork) TravelTimeMatrix(ctx context.Context, points []shared.Coordinate) ([][]TravelEstimate, error) {
	m := make([][]TravelEstimate, len(points))
	for i := range points {
		m[i] = make([]TravelEstimate, len(points))
		for j := range points {
			if i == j {
				continue
			}
			m[i][j], _ = s.TravelTime(ctx, points[i], points[j])
		}
	}
	return m, nil
}

var (
	departAt = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	startLoc = shared.Coordinate{Lat: -34.9000, Lon: -56.1600}
)

// kmNorth places a point the given number of kilometers north of the
// start location.
func kmNorth(km float64) shared.Coordinate {
	return shared.Coordinate{Lat: startLoc.Lat + km/111.32, Lon: startLoc.Lon}
}

func stopOrder(t *testing.T, id string, loc shared.Coordinate, deadlineMin float64) *order.Order {
	t.Helper()
	addr := shared.Address{Street: "test", Location: &loc}
	o, err := order.NewOrder(id, addr, departAt.Add(minutes(deadlineMin)), shared.PriorityNormal, 1, 0, departAt.Add(-time.Hour))
	require.NoError(t, err)
	return o
}

func newTestSequencer(net NetworkProvider) *Sequencer {
	return NewSequencer(net, shared.NewMockClock(departAt))
}

func TestSequenceEmpty(t *testing.T) {
	s := newTestSequencer(&stubNetwork{minutesPerKm: 1.5})

	res, err := s.Sequence(context.Background(), startLoc, nil, departAt, Options{})
	require.NoError(t, err)

	assert.True(t, res.Feasible)
	assert.True(t, res.Exact)
	require.Len(t, res.Route.Stops, 1)
	assert.True(t, res.Route.Stops[0].IsStart)
	assert.Equal(t, 0.0, res.Route.TotalDurationMin)
}

func TestSequenceExactPicksShortestFeasible(t *testing.T) {
	s := newTestSequencer(&stubNetwork{minutesPerKm: 1.5})

	// Three stops on a line north of the start; visiting in line order
	// is the unique shortest plan.
	orders := []*order.Order{
		stopOrder(t, "C", kmNorth(3), 240),
		stopOrder(t, "A", kmNorth(1), 240),
		stopOrder(t, "B", kmNorth(2), 240),
	}

	res, err := s.Sequence(context.Background(), startLoc, orders, departAt, Options{})
	require.NoError(t, err)

	assert.True(t, res.Feasible)
	assert.True(t, res.Exact)
	assert.Equal(t, []string{"A", "B", "C"}, res.Route.OrderIDs())
	// Three 1 km legs at 1.5 min/km plus 5 min of service per stop.
	assert.InDelta(t, 19.5, res.Route.TotalDurationMin, 0.2)
	assert.InDelta(t, 3.0, res.Route.TotalDistanceKm, 0.05)
	assert.True(t, res.Route.AllOnTime)
}

func TestSequencePreservesStopMultiset(t *testing.T) {
	s := newTestSequencer(&stubNetwork{minutesPerKm: 1.5})

	ids := []string{"F", "B", "D", "A", "E", "C"}
	orders := make([]*order.Order, len(ids))
	for i, id := range ids {
		orders[i] = stopOrder(t, id, kmNorth(float64(i+1)*0.7), 480)
	}

	res, err := s.Sequence(context.Background(), startLoc, orders, departAt, Options{})
	require.NoError(t, err)

	got := res.Route.OrderIDs()
	sort.Strings(got)
	want := append([]string(nil), ids...)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestSequenceETAMonotonicity(t *testing.T) {
	s := newTestSequencer(&stubNetwork{minutesPerKm: 1.5})

	orders := []*order.Order{
		stopOrder(t, "A", kmNorth(0.2), 240),
		stopOrder(t, "B", kmNorth(0.4), 240),
		stopOrder(t, "C", kmNorth(5), 240),
		stopOrder(t, "D", kmNorth(2), 240),
	}

	res, err := s.Sequence(context.Background(), startLoc, orders, departAt, Options{})
	require.NoError(t, err)

	stops := res.Route.Stops
	for i := 1; i < len(stops); i++ {
		assert.GreaterOrEqual(t, stops[i].ETAMin, stops[i-1].ETAMin+DefaultServiceTimeMin,
			"stop %d must finish at least one service time after stop %d", i, i-1)
	}
}

func TestSequenceInfeasiblePlans(t *testing.T) {
	s := newTestSequencer(&stubNetwork{minutesPerKm: 1.5})

	t.Run("single stop past its deadline", func(t *testing.T) {
		o := stopOrder(t, "LATE", kmNorth(12), 10)

		res, err := s.Sequence(context.Background(), startLoc, []*order.Order{o}, departAt, Options{})
		require.NoError(t, err)

		assert.False(t, res.Feasible)
		assert.Equal(t, 1, res.Violations)
		assert.Equal(t, "LATE", res.ViolatingOrderID)
		assert.False(t, res.Route.AllOnTime)
	})

	t.Run("violation report follows the earliest-deadline plan", func(t *testing.T) {
		// Serving NEW first (deadline 25) leaves COMMITTED (deadline 30)
		// late; serving COMMITTED first leaves NEW late. Both plans have
		// one violation, so the earliest-deadline-first plan is kept and
		// the committed stop is reported.
		committed := stopOrder(t, "COMMITTED", kmNorth(2), 30)
		newStop := stopOrder(t, "NEW", kmNorth(12), 25)

		res, err := s.Sequence(context.Background(), startLoc, []*order.Order{committed, newStop}, departAt, Options{})
		require.NoError(t, err)

		assert.False(t, res.Feasible)
		assert.Equal(t, 1, res.Violations)
		assert.Equal(t, []string{"NEW", "COMMITTED"}, res.Route.OrderIDs())
		assert.Equal(t, "COMMITTED", res.ViolatingOrderID)
	})
}

func TestSequenceHeuristicPath(t *testing.T) {
	s := newTestSequencer(&stubNetwork{minutesPerKm: 1.5})

	// Ten stops forces the heuristic. On a line, nearest-neighbor alone
	// finds the optimal visiting order.
	orders := make([]*order.Order, 10)
	for i := range orders {
		orders[i] = stopOrder(t, string(rune('A'+i)), kmNorth(float64(i+1)), 480)
	}

	res, err := s.Sequence(context.Background(), startLoc, orders, departAt, Options{})
	require.NoError(t, err)

	assert.False(t, res.Exact)
	assert.True(t, res.Feasible)
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}, res.Route.OrderIDs())
	// Ten 1 km legs plus ten service stops.
	assert.InDelta(t, 65.0, res.Route.TotalDurationMin, 0.5)
}

// tickingClock advances a fixed amount on every Now call so budget
// checks inside search loops observe time passing.
type tickingClock struct {
	current time.Time
	tick    time.Duration
}

func (c *tickingClock) Now() time.Time {
	c.current = c.current.Add(c.tick)
	return c.current
}

func (c *tickingClock) Sleep(d time.Duration) {
	c.current = c.current.Add(d)
}

func TestSequenceBudgetExpiryReturnsBestSoFar(t *testing.T) {
	s := NewSequencer(&stubNetwork{minutesPerKm: 1.5}, &tickingClock{current: departAt, tick: time.Second})

	orders := make([]*order.Order, 8)
	for i := range orders {
		orders[i] = stopOrder(t, string(rune('A'+i)), kmNorth(float64(i+1)), 480)
	}

	res, err := s.Sequence(context.Background(), startLoc, orders, departAt, Options{Budget: 500 * time.Millisecond})
	require.NoError(t, err)

	assert.False(t, res.Exact, "an expired search must not claim exactness")
	assert.Equal(t, 8, res.Route.DeliveryCount())
}

func TestSequenceApproximateLegsMarkRoute(t *testing.T) {
	s := newTestSequencer(&stubNetwork{minutesPerKm: 2.0, approximate: true})

	orders := []*order.Order{stopOrder(t, "A", kmNorth(3), 240)}
	res, err := s.Sequence(context.Background(), startLoc, orders, departAt, Options{})
	require.NoError(t, err)

	assert.True(t, res.Route.Approximate)
}

func TestSequenceRejectsUnresolvedStops(t *testing.T) {
	s := newTestSequencer(&stubNetwork{minutesPerKm: 1.5})

	addr := shared.Address{Street: "Av. Italia", Number: "3000"}
	o, err := order.NewOrder("NOLOC", addr, departAt.Add(2*time.Hour), shared.PriorityNormal, 1, 0, departAt.Add(-time.Hour))
	require.NoError(t, err)

	_, err = s.Sequence(context.Background(), startLoc, []*order.Order{o}, departAt, Options{})
	assert.Error(t, err)
}

package routing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

const (
	// exactSearchLimit is the largest stop count solved by full
	// permutation enumeration. Above it the sequencer switches to the
	// nearest-neighbor plus 2-opt heuristic.
	exactSearchLimit = 8

	// DefaultBudget bounds the wall-clock time of one sequencing call.
	DefaultBudget = 5 * time.Second

	// budgetCheckMask throttles clock and context checks inside the
	// search loops to one check every 2048 steps.
	budgetCheckMask = 2047
)

// Options tune one sequencing call. Zero values select the defaults.
type Options struct {
	ServiceTimeMin float64
	Budget         time.Duration
}

// Result carries the best visiting plan the sequencer found.
type Result struct {
	Route      *Route
	Feasible   bool
	Violations int
	// ViolatingOrderID names the earliest stop in the returned plan
	// that misses its deadline; empty when feasible.
	ViolatingOrderID string
	// Exact is true when the full permutation space was enumerated.
	Exact bool
}

// Sequencer orders delivery stops to minimize total duration subject to
// deadlines.
type Sequencer struct {
	network NetworkProvider
	clock   shared.Clock
}

// NewSequencer creates a sequencer backed by the given road network.
func NewSequencer(network NetworkProvider, clock shared.Clock) *Sequencer {
	return &Sequencer{network: network, clock: clock}
}

// Sequence plans the visiting order for the given stops starting from
// the start coordinate at departAt.
//
// Stop counts up to 8 are solved exactly. The enumeration begins at the
// earliest-deadline-first ordering and only a strictly better plan
// replaces the incumbent, so when every plan violates some deadline the
// earliest-deadline ordering decides which violation gets reported.
// Larger stop counts use nearest-neighbor construction plus 2-opt.
// On budget expiry the best plan seen so far is returned.
func (s *Sequencer) Sequence(
	ctx context.Context,
	start shared.Coordinate,
	orders []*order.Order,
	departAt time.Time,
	opts Options,
) (*Result, error) {
	serviceTime := opts.ServiceTimeMin
	if serviceTime <= 0 {
		serviceTime = DefaultServiceTimeMin
	}
	budget := opts.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	if len(orders) == 0 {
		return &Result{
			Route: &Route{
				Stops:     []Stop{startStop(start)},
				AllOnTime: true,
			},
			Feasible: true,
			Exact:    true,
		}, nil
	}

	points := make([]shared.Coordinate, 0, len(orders)+1)
	points = append(points, start)
	for _, o := range orders {
		loc := o.Location()
		if loc == nil {
			return nil, shared.NewValidationError("orders",
				fmt.Sprintf("order %s has no resolved location", o.ID()))
		}
		points = append(points, *loc)
	}

	matrix, err := s.network.TravelTimeMatrix(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("failed to build travel time matrix: %w", err)
	}

	plan := &searchPlan{
		orders:         orders,
		matrix:         matrix,
		serviceTimeMin: serviceTime,
		departAt:       departAt,
	}
	base := deadlineOrdering(orders)
	searchDeadline := s.clock.Now().Add(budget)

	var (
		seq     []int
		sim     simResult
		partial bool
		exact   = len(orders) <= exactSearchLimit
	)
	if exact {
		seq, sim, partial = s.exactSearch(ctx, plan, base, searchDeadline)
	} else {
		seq, sim, partial = s.heuristicSearch(ctx, plan, base, searchDeadline)
	}

	result := &Result{
		Route:      plan.buildRoute(start, seq),
		Feasible:   sim.violations == 0,
		Violations: sim.violations,
		Exact:      exact && !partial,
	}
	if sim.firstViolation >= 0 {
		result.ViolatingOrderID = orders[seq[sim.firstViolation]].ID()
	}
	return result, nil
}

// searchPlan is the immutable state shared by every candidate
// simulation in one Sequence call.
type searchPlan struct {
	orders         []*order.Order
	matrix         [][]TravelEstimate
	serviceTimeMin float64
	departAt       time.Time
}

type simResult struct {
	totalMin       float64
	totalKm        float64
	violations     int
	firstViolation int
	approximate    bool
}

// simulate replays the cumulative ETA recurrence over one visiting
// order. ETAs include each stop's service and handling time; a stop is
// violated when its completion time passes the deadline.
func (p *searchPlan) simulate(seq []int) simResult {
	res := simResult{firstViolation: -1}
	eta := 0.0
	prev := 0
	for pos, idx := range seq {
		leg := p.matrix[prev][idx+1]
		o := p.orders[idx]
		eta += leg.Minutes + p.serviceTimeMin + o.EstimatedDurationMin()
		res.totalKm += leg.DistanceKm
		if leg.Approximate {
			res.approximate = true
		}
		completion := p.departAt.Add(minutes(eta))
		if completion.After(o.Deadline()) {
			res.violations++
			if res.firstViolation < 0 {
				res.firstViolation = pos
			}
		}
		prev = idx + 1
	}
	res.totalMin = eta
	return res
}

// buildRoute materializes the stop list for a visiting order.
func (p *searchPlan) buildRoute(start shared.Coordinate, seq []int) *Route {
	route := &Route{
		Stops:     make([]Stop, 0, len(seq)+1),
		AllOnTime: true,
	}
	route.Stops = append(route.Stops, startStop(start))

	eta := 0.0
	prev := 0
	for _, idx := range seq {
		leg := p.matrix[prev][idx+1]
		o := p.orders[idx]
		eta += leg.Minutes + p.serviceTimeMin + o.EstimatedDurationMin()
		route.TotalDistanceKm += leg.DistanceKm
		if leg.Approximate {
			route.Approximate = true
		}
		onTime := !p.departAt.Add(minutes(eta)).After(o.Deadline())
		if !onTime {
			route.AllOnTime = false
		}
		route.Stops = append(route.Stops, Stop{
			OrderID:  o.ID(),
			Location: *o.Location(),
			ETAMin:   eta,
			Deadline: o.Deadline(),
			OnTime:   onTime,
		})
		prev = idx + 1
	}
	route.TotalDurationMin = eta
	return route
}

// better reports whether plan a should replace incumbent b. Feasible
// plans compete on total duration. Infeasible plans compete on
// violation count alone: the first plan found at the lowest count wins,
// which keeps the violation report anchored to the earliest-deadline
// ordering the enumeration starts from.
func better(a, b simResult) bool {
	if a.violations != b.violations {
		return a.violations < b.violations
	}
	if a.violations == 0 {
		return a.totalMin < b.totalMin
	}
	return false
}

// betterHeuristic is the 2-opt acceptance rule: fewer violations first,
// then shorter total duration.
func betterHeuristic(a, b simResult) bool {
	if a.violations != b.violations {
		return a.violations < b.violations
	}
	return a.totalMin < b.totalMin
}

func (s *Sequencer) exactSearch(
	ctx context.Context,
	plan *searchPlan,
	base []int,
	deadline time.Time,
) ([]int, simResult, bool) {
	search := &exactSearcher{
		ctx:      ctx,
		clock:    s.clock,
		plan:     plan,
		deadline: deadline,
		seq:      append([]int(nil), base...),
	}
	search.permute(0)
	if search.best == nil {
		// Budget expired before the first full permutation; fall back
		// to the deadline-sorted ordering.
		seq := append([]int(nil), base...)
		return seq, plan.simulate(seq), true
	}
	return search.best, search.bestSim, search.aborted
}

type exactSearcher struct {
	ctx      context.Context
	clock    shared.Clock
	plan     *searchPlan
	deadline time.Time
	seq      []int
	best     []int
	bestSim  simResult
	hasBest  bool
	steps    uint64
	aborted  bool
}

func (e *exactSearcher) permute(k int) {
	if e.aborted {
		return
	}
	e.steps++
	if e.steps&budgetCheckMask == 0 {
		if e.ctx.Err() != nil || e.clock.Now().After(e.deadline) {
			e.aborted = true
			return
		}
	}
	if k == len(e.seq) {
		sim := e.plan.simulate(e.seq)
		if !e.hasBest || better(sim, e.bestSim) {
			e.best = append(e.best[:0], e.seq...)
			e.bestSim = sim
			e.hasBest = true
		}
		return
	}
	for i := k; i < len(e.seq); i++ {
		e.seq[k], e.seq[i] = e.seq[i], e.seq[k]
		e.permute(k + 1)
		e.seq[k], e.seq[i] = e.seq[i], e.seq[k]
		if e.aborted {
			return
		}
	}
}

func (s *Sequencer) heuristicSearch(
	ctx context.Context,
	plan *searchPlan,
	base []int,
	deadline time.Time,
) ([]int, simResult, bool) {
	seq := nearestNeighbor(plan)
	sim := plan.simulate(seq)

	// The deadline-sorted ordering is a cheap second seed; it often
	// beats pure proximity when deadlines are tight.
	if eddSim := plan.simulate(base); betterHeuristic(eddSim, sim) {
		seq = append(seq[:0], base...)
		sim = eddSim
	}

	var steps uint64
	improved := true
	for improved {
		improved = false
		for i := 0; i < len(seq)-1; i++ {
			for j := i + 1; j < len(seq); j++ {
				steps++
				if steps&budgetCheckMask == 0 {
					if ctx.Err() != nil || s.clock.Now().After(deadline) {
						return seq, sim, true
					}
				}
				reverseSegment(seq, i, j)
				if cand := plan.simulate(seq); betterHeuristic(cand, sim) {
					sim = cand
					improved = true
				} else {
					reverseSegment(seq, i, j)
				}
			}
		}
	}
	return seq, sim, false
}

// nearestNeighbor builds an initial visiting order by always driving to
// the closest unvisited stop.
func nearestNeighbor(plan *searchPlan) []int {
	n := len(plan.orders)
	seq := make([]int, 0, n)
	visited := make([]bool, n)
	prev := 0
	for len(seq) < n {
		bestIdx := -1
		bestMin := 0.0
		for idx := 0; idx < n; idx++ {
			if visited[idx] {
				continue
			}
			legMin := plan.matrix[prev][idx+1].Minutes
			if bestIdx < 0 || legMin < bestMin {
				bestIdx = idx
				bestMin = legMin
			}
		}
		visited[bestIdx] = true
		seq = append(seq, bestIdx)
		prev = bestIdx + 1
	}
	return seq
}

func reverseSegment(seq []int, i, j int) {
	for i < j {
		seq[i], seq[j] = seq[j], seq[i]
		i++
		j--
	}
}

// deadlineOrdering returns stop indices sorted by deadline, breaking
// ties by order id so the search start is deterministic.
func deadlineOrdering(orders []*order.Order) []int {
	base := make([]int, len(orders))
	for i := range base {
		base[i] = i
	}
	sort.SliceStable(base, func(a, b int) bool {
		da, db := orders[base[a]].Deadline(), orders[base[b]].Deadline()
		if !da.Equal(db) {
			return da.Before(db)
		}
		return orders[base[a]].ID() < orders[base[b]].ID()
	})
	return base
}

func startStop(start shared.Coordinate) Stop {
	return Stop{
		OrderID:  StartStopID,
		Location: start,
		OnTime:   true,
		IsStart:  true,
	}
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

package steps

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/dispatch-go/internal/adapters/persistence"
	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/application/dispatching"
	"github.com/andrescamacho/dispatch-go/internal/domain/dispatch"
	"github.com/andrescamacho/dispatch-go/internal/domain/fleet"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/internal/domain/zones"
	"github.com/andrescamacho/dispatch-go/pkg/geoutil"
	"github.com/andrescamacho/dispatch-go/test/helpers"
)

// depot is the reference point every "km north of the depot" offset in
// the features is measured from.
var depot = shared.Coordinate{Lat: -34.9000, Lon: -56.1600}

// fleetBaseTime is where the scenario clock starts before any "the
// current time is" step runs.
var fleetBaseTime = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

// fleetContext drives the dispatch and batch features: it assembles the
// scoring stack over mocked geography and sends commands through the
// mediator, with real GORM repositories on the shared test database.
type fleetContext struct {
	clock    *shared.MockClock
	network  *helpers.MockNetworkProvider
	geocoder *helpers.MockGeocoder
	records  *persistence.GormAssignmentRecordRepository
	counters *common.Counters

	zoneList  []zones.Zone
	adjacency map[string][]string

	vehicles fleet.Fleet
	orders   []*order.Order
	current  *order.Order

	// tick, when set, swaps the frozen clock for one that advances on
	// every reading, so budget scenarios burn simulated wall clock.
	tick time.Duration

	response      *dispatching.AssignOrderResponse
	batchResponse *dispatching.AssignBatchResponse
	err           error
}

func (c *fleetContext) reset() {
	if err := helpers.TruncateAllTables(); err != nil {
		panic(fmt.Errorf("failed to truncate tables: %w", err))
	}

	c.clock = shared.NewMockClock(fleetBaseTime)
	c.network = helpers.NewMockNetworkProvider()
	c.geocoder = helpers.NewMockGeocoder()
	c.records = persistence.NewGormAssignmentRecordRepository(helpers.SharedTestDB)
	c.counters = common.NewCounters()

	c.zoneList = nil
	c.adjacency = make(map[string][]string)
	c.vehicles = nil
	c.orders = nil
	c.current = nil
	c.tick = 0
	c.response = nil
	c.batchResponse = nil
	c.err = nil
}

// offsetFrom translates "N km north" style offsets into coordinates
// around the depot.
func offsetFrom(base shared.Coordinate, km float64, direction string) (shared.Coordinate, error) {
	switch direction {
	case "north":
		return shared.Coordinate{Lat: base.Lat + km/111.32, Lon: base.Lon}, nil
	case "south":
		return shared.Coordinate{Lat: base.Lat - km/111.32, Lon: base.Lon}, nil
	case "east":
		return shared.Coordinate{Lat: base.Lat, Lon: base.Lon + km/(111.32*math.Cos(geoutil.Radians(base.Lat)))}, nil
	case "west":
		return shared.Coordinate{Lat: base.Lat, Lon: base.Lon - km/(111.32*math.Cos(geoutil.Radians(base.Lat)))}, nil
	default:
		return shared.Coordinate{}, fmt.Errorf("unknown direction %q", direction)
	}
}

// Given steps

func (c *fleetContext) theCurrentTimeIs(timeStr string) error {
	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return fmt.Errorf("invalid time format: %w", err)
	}
	c.clock.SetTime(t)
	return nil
}

func (c *fleetContext) addVehicle(id string, loc shared.Coordinate, capacity int, maxWeightKg float64) error {
	perf := 0.8
	v, err := fleet.NewVehicle(id, "driver "+id, loc, capacity, maxWeightKg, &perf)
	if err != nil {
		return err
	}
	c.vehicles = append(c.vehicles, v)
	return nil
}

func (c *fleetContext) aVehicleOffsetWithCapacity(id string, km float64, direction string, capacity int) error {
	loc, err := offsetFrom(depot, km, direction)
	if err != nil {
		return err
	}
	return c.addVehicle(id, loc, capacity, 100.0)
}

func (c *fleetContext) aVehicleOffsetWithCapacityAndMaxWeight(id string, km float64, direction string, capacity int, maxWeightKg float64) error {
	loc, err := offsetFrom(depot, km, direction)
	if err != nil {
		return err
	}
	return c.addVehicle(id, loc, capacity, maxWeightKg)
}

func (c *fleetContext) aVehicleAtTheDepotWithCapacity(id string, capacity int) error {
	return c.addVehicle(id, depot, capacity, 100.0)
}

func (c *fleetContext) aVehicleAtWithCapacity(id string, lat, lon float64, capacity int) error {
	coord, err := shared.NewCoordinate(lat, lon)
	if err != nil {
		return err
	}
	return c.addVehicle(id, coord, capacity, 100.0)
}

func (c *fleetContext) vehicleAlreadyCarriesADelivery(vehicleID string, km float64, direction string, dueInMin int) error {
	v := c.vehicles.FindByID(vehicleID)
	if v == nil {
		return fmt.Errorf("vehicle %s not set up in test", vehicleID)
	}
	loc, err := offsetFrom(depot, km, direction)
	if err != nil {
		return err
	}
	id := fmt.Sprintf("%s-LOAD-%d", vehicleID, v.CurrentLoad()+1)
	o, err := order.NewOrder(id, shared.Address{Location: &loc},
		c.clock.Now().Add(time.Duration(dueInMin)*time.Minute), shared.PriorityNormal, 2.0, 0, c.clock.Now())
	if err != nil {
		return err
	}
	return helpers.CommitOrder(v, o)
}

func (c *fleetContext) newOrder(id string, addr shared.Address, dueInMin int, priority shared.Priority, weightKg float64) error {
	o, err := order.NewOrder(id, addr, c.clock.Now().Add(time.Duration(dueInMin)*time.Minute),
		priority, weightKg, 0, c.clock.Now())
	if err != nil {
		return err
	}
	c.current = o
	c.orders = append(c.orders, o)
	return nil
}

func (c *fleetContext) anOrderAtTheDepotDueIn(id string, dueInMin int) error {
	loc := depot
	return c.newOrder(id, shared.Address{Location: &loc}, dueInMin, shared.PriorityNormal, 2.0)
}

func (c *fleetContext) anOrderAtTheDepotDueInWeighing(id string, dueInMin int, weightKg float64) error {
	loc := depot
	return c.newOrder(id, shared.Address{Location: &loc}, dueInMin, shared.PriorityNormal, weightKg)
}

func (c *fleetContext) anOrderOffsetDueIn(id string, km float64, direction string, dueInMin int) error {
	loc, err := offsetFrom(depot, km, direction)
	if err != nil {
		return err
	}
	return c.newOrder(id, shared.Address{Location: &loc}, dueInMin, shared.PriorityNormal, 2.0)
}

func (c *fleetContext) anOrderAtDueIn(id string, lat, lon float64, dueInMin int) error {
	coord, err := shared.NewCoordinate(lat, lon)
	if err != nil {
		return err
	}
	return c.newOrder(id, shared.Address{Location: &coord}, dueInMin, shared.PriorityNormal, 2.0)
}

func (c *fleetContext) anOrderAddressedDueIn(id, text string, dueInMin int) error {
	return c.newOrder(id, shared.Address{FreeText: text}, dueInMin, shared.PriorityNormal, 2.0)
}

func (c *fleetContext) theGeocoderKnows(text string, km float64, direction string) error {
	loc, err := offsetFrom(depot, km, direction)
	if err != nil {
		return err
	}
	c.geocoder.Know(text, loc)
	return nil
}

func (c *fleetContext) aZoneBounded(name string, north, south, east, west float64) error {
	box, err := shared.NewBoundingBox(north, south, east, west)
	if err != nil {
		return err
	}
	c.zoneList = append(c.zoneList, zones.Zone{Name: name, Box: box})
	return nil
}

func (c *fleetContext) zonesAreAdjacent(a, b string) error {
	c.adjacency[a] = append(c.adjacency[a], b)
	c.adjacency[b] = append(c.adjacency[b], a)
	return nil
}

// When steps

// clockSource picks the scenario clock: frozen by default, ticking when
// a budget scenario asked for simulated wall clock.
func (c *fleetContext) clockSource() shared.Clock {
	if c.tick > 0 {
		return &tickingClock{current: c.clock.Now(), tick: c.tick}
	}
	return c.clock
}

// buildMediator assembles the full dispatch stack the daemon would run,
// over the scenario's mocked geography and zones.
func (c *fleetContext) buildMediator() (common.Mediator, error) {
	clock := c.clockSource()

	var partition *zones.Partition
	if len(c.zoneList) > 0 {
		p, err := zones.NewPartition(c.zoneList, c.adjacency)
		if err != nil {
			return nil, err
		}
		partition = p
	}

	sequencer := routing.NewSequencer(c.network, clock)
	scorer := dispatch.NewScorer(c.network, dispatch.NewEvaluator(sequencer))
	dispatcher := dispatch.NewDispatcher(scorer, c.geocoder, partition, clock)
	batch := dispatch.NewBatchDispatcher(dispatcher, clock)

	med := common.NewMediator()
	if err := common.RegisterHandler[*dispatching.AssignOrderCommand](med,
		dispatching.NewAssignOrderHandler(dispatcher, c.records, c.counters, clock)); err != nil {
		return nil, err
	}
	if err := common.RegisterHandler[*dispatching.AssignBatchCommand](med,
		dispatching.NewAssignBatchHandler(batch, c.records, c.counters, clock)); err != nil {
		return nil, err
	}
	return med, nil
}

func (c *fleetContext) dispatchWith(opts dispatch.Options) error {
	if c.current == nil {
		return fmt.Errorf("no order set up in test")
	}
	med, err := c.buildMediator()
	if err != nil {
		return err
	}

	resp, err := med.Send(context.Background(), &dispatching.AssignOrderCommand{
		Order:    c.current,
		Vehicles: c.vehicles,
		Options:  opts,
	})
	c.err = err
	if err == nil {
		c.response = resp.(*dispatching.AssignOrderResponse)
	}
	return nil
}

func (c *fleetContext) iDispatchTheOrder() error {
	return c.dispatchWith(dispatch.Options{})
}

func (c *fleetContext) iDispatchTheOrderInFastMode(maxCandidates int) error {
	return c.dispatchWith(dispatch.Options{FastMode: true, MaxCandidates: maxCandidates})
}

// Then steps

func (c *fleetContext) result() (*dispatch.Result, error) {
	if c.err != nil {
		return nil, fmt.Errorf("dispatch failed: %v", c.err)
	}
	if c.response == nil || c.response.Result == nil {
		return nil, fmt.Errorf("no dispatch verdict captured")
	}
	return c.response.Result, nil
}

func (c *fleetContext) theOrderIsAssignedToVehicle(vehicleID string) error {
	res, err := c.result()
	if err != nil {
		return err
	}
	if !res.Assigned() {
		return fmt.Errorf("expected an assignment but dispatch failed with reason %q", res.FailureReason)
	}
	if res.AssignedVehicleID != vehicleID {
		return fmt.Errorf("expected vehicle %s, got %s", vehicleID, res.AssignedVehicleID)
	}
	return nil
}

func (c *fleetContext) theOrderIsNotAssigned() error {
	res, err := c.result()
	if err != nil {
		return err
	}
	if res.Assigned() {
		return fmt.Errorf("expected no assignment but order went to %s", res.AssignedVehicleID)
	}
	return nil
}

func (c *fleetContext) theFailureReasonIs(reason string) error {
	res, err := c.result()
	if err != nil {
		return err
	}
	if string(res.FailureReason) != reason {
		return fmt.Errorf("expected failure reason %q, got %q", reason, res.FailureReason)
	}
	return nil
}

func (c *fleetContext) candidatesWereScored(count int) error {
	res, err := c.result()
	if err != nil {
		return err
	}
	if len(res.Scores) != count {
		return fmt.Errorf("expected %d scored candidates, got %d", count, len(res.Scores))
	}
	return nil
}

func (c *fleetContext) noCandidateWasRejected() error {
	res, err := c.result()
	if err != nil {
		return err
	}
	if len(res.Rejections) != 0 {
		return fmt.Errorf("expected no rejections, got %v", res.Rejections)
	}
	return nil
}

func (c *fleetContext) vehicleWasRejectedFor(vehicleID, kind string) error {
	res, err := c.result()
	if err != nil {
		return err
	}
	for _, r := range res.Rejections {
		if r.VehicleID == vehicleID {
			if string(r.Kind) != kind {
				return fmt.Errorf("vehicle %s rejected for %q, expected %q", vehicleID, r.Kind, kind)
			}
			return nil
		}
	}
	return fmt.Errorf("vehicle %s is not in the rejection list %v", vehicleID, res.Rejections)
}

func (c *fleetContext) theWinningRouteHasDeliveryStops(count int) error {
	res, err := c.result()
	if err != nil {
		return err
	}
	if res.Route == nil {
		return fmt.Errorf("verdict carries no route")
	}
	if got := res.Route.DeliveryCount(); got != count {
		return fmt.Errorf("expected %d delivery stops, got %d", count, got)
	}
	return nil
}

func (c *fleetContext) vehicleIsListedAsFeasibleAlternative(vehicleID string) error {
	res, err := c.result()
	if err != nil {
		return err
	}
	for _, alt := range res.Alternatives {
		if alt.VehicleID == vehicleID {
			return nil
		}
	}
	return fmt.Errorf("vehicle %s is not among the alternatives %v", vehicleID, res.Alternatives)
}

func (c *fleetContext) exactlyCandidatesWereFullyEvaluated(count int) error {
	res, err := c.result()
	if err != nil {
		return err
	}
	full := 0
	for _, s := range res.Scores {
		if !s.Approximate {
			full++
		}
	}
	if full != count {
		return fmt.Errorf("expected %d full evaluations, got %d", count, full)
	}
	return nil
}

func (c *fleetContext) theVerdictWarnsZoneFilterSkipped() error {
	res, err := c.result()
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		if strings.Contains(w, "zone filter skipped") {
			return nil
		}
	}
	return fmt.Errorf("no zone filter warning in %v", res.Warnings)
}

func (c *fleetContext) theDecisionLogHoldsRecords(count int) error {
	stats, err := c.records.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read decision log: %w", err)
	}
	if stats.Total != int64(count) {
		return fmt.Errorf("expected %d decision records, got %d", count, stats.Total)
	}
	return nil
}

// InitializeDispatchScenarios registers the steps for the dispatch and
// batch features. Both share one fleet context.
func InitializeDispatchScenarios(sc *godog.ScenarioContext) {
	fc := &fleetContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		fc.reset()
		return ctx, nil
	})

	sc.Step(`^the current time is "([^"]*)"$`, fc.theCurrentTimeIs)

	sc.Step(`^a vehicle "([^"]*)" ([0-9.]+) km (north|south|east|west) of the depot with capacity (\d+)$`, fc.aVehicleOffsetWithCapacity)
	sc.Step(`^a vehicle "([^"]*)" ([0-9.]+) km (north|south|east|west) of the depot with capacity (\d+) and max weight ([0-9.]+) kg$`, fc.aVehicleOffsetWithCapacityAndMaxWeight)
	sc.Step(`^a vehicle "([^"]*)" at the depot with capacity (\d+)$`, fc.aVehicleAtTheDepotWithCapacity)
	sc.Step(`^a vehicle "([^"]*)" at latitude (-?[0-9.]+) longitude (-?[0-9.]+) with capacity (\d+)$`, fc.aVehicleAtWithCapacity)
	sc.Step(`^vehicle "([^"]*)" already carries a delivery ([0-9.]+) km (north|south|east|west) of the depot due in (\d+) minutes$`, fc.vehicleAlreadyCarriesADelivery)

	sc.Step(`^an order "([^"]*)" at the depot due in (\d+) minutes$`, fc.anOrderAtTheDepotDueIn)
	sc.Step(`^an order "([^"]*)" at the depot due in (\d+) minutes weighing ([0-9.]+) kg$`, fc.anOrderAtTheDepotDueInWeighing)
	sc.Step(`^an order "([^"]*)" ([0-9.]+) km (north|south|east|west) of the depot due in (\d+) minutes$`, fc.anOrderOffsetDueIn)
	sc.Step(`^an order "([^"]*)" at latitude (-?[0-9.]+) longitude (-?[0-9.]+) due in (\d+) minutes$`, fc.anOrderAtDueIn)
	sc.Step(`^an order "([^"]*)" addressed "([^"]*)" due in (\d+) minutes$`, fc.anOrderAddressedDueIn)
	sc.Step(`^the geocoder knows "([^"]*)" as ([0-9.]+) km (north|south|east|west) of the depot$`, fc.theGeocoderKnows)

	sc.Step(`^a zone "([^"]*)" bounded north (-?[0-9.]+) south (-?[0-9.]+) east (-?[0-9.]+) west (-?[0-9.]+)$`, fc.aZoneBounded)
	sc.Step(`^zones "([^"]*)" and "([^"]*)" are adjacent$`, fc.zonesAreAdjacent)

	sc.Step(`^I dispatch the order$`, fc.iDispatchTheOrder)
	sc.Step(`^I dispatch the order in fast mode with at most (\d+) candidates$`, fc.iDispatchTheOrderInFastMode)

	sc.Step(`^the order is assigned to vehicle "([^"]*)"$`, fc.theOrderIsAssignedToVehicle)
	sc.Step(`^the order is not assigned$`, fc.theOrderIsNotAssigned)
	sc.Step(`^the failure reason is "([^"]*)"$`, fc.theFailureReasonIs)
	sc.Step(`^(\d+) candidates? (?:was|were) scored$`, fc.candidatesWereScored)
	sc.Step(`^no candidate was rejected$`, fc.noCandidateWasRejected)
	sc.Step(`^vehicle "([^"]*)" was rejected for "([^"]*)"$`, fc.vehicleWasRejectedFor)
	sc.Step(`^the winning route has (\d+) delivery stops?$`, fc.theWinningRouteHasDeliveryStops)
	sc.Step(`^vehicle "([^"]*)" is listed as a feasible alternative$`, fc.vehicleIsListedAsFeasibleAlternative)
	sc.Step(`^exactly (\d+) candidates were fully evaluated$`, fc.exactlyCandidatesWereFullyEvaluated)
	sc.Step(`^the verdict warns that the zone filter was skipped$`, fc.theVerdictWarnsZoneFilterSkipped)
	sc.Step(`^the decision log holds (\d+) records?$`, fc.theDecisionLogHoldsRecords)

	registerBatchSteps(sc, fc)
}

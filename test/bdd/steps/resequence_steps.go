package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/application/dispatching"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/test/helpers"
)

// resequenceContext drives the route replanning feature through the
// mediator, over the straight-line mock network.
type resequenceContext struct {
	clock    *shared.MockClock
	network  *helpers.MockNetworkProvider
	geocoder *helpers.MockGeocoder

	vehicleID string
	start     shared.Coordinate
	orders    []*order.Order

	response *dispatching.ResequenceRouteResponse
	err      error
}

func (c *resequenceContext) reset() {
	c.clock = shared.NewMockClock(fleetBaseTime)
	c.network = helpers.NewMockNetworkProvider()
	c.geocoder = helpers.NewMockGeocoder()
	c.vehicleID = ""
	c.start = depot
	c.orders = nil
	c.response = nil
	c.err = nil
}

// Given steps

func (c *resequenceContext) theClockReads(timeStr string) error {
	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return fmt.Errorf("invalid time format: %w", err)
	}
	c.clock.SetTime(t)
	return nil
}

func (c *resequenceContext) aVehicleParkedAtTheDepot(id string) error {
	c.vehicleID = id
	c.start = depot
	return nil
}

func (c *resequenceContext) addDelivery(id string, addr shared.Address, dueInMin int) error {
	o, err := order.NewOrder(id, addr, c.clock.Now().Add(time.Duration(dueInMin)*time.Minute),
		shared.PriorityNormal, 2.0, 0, c.clock.Now())
	if err != nil {
		return err
	}
	c.orders = append(c.orders, o)
	return nil
}

func (c *resequenceContext) aPendingDeliveryOffsetDueIn(id string, km float64, direction string, dueInMin int) error {
	loc, err := offsetFrom(depot, km, direction)
	if err != nil {
		return err
	}
	return c.addDelivery(id, shared.Address{Location: &loc}, dueInMin)
}

func (c *resequenceContext) pendingDeliveriesSpacedGoingNorth(count int, spacingKm float64, dueInMin int) error {
	for i := 1; i <= count; i++ {
		loc, err := offsetFrom(depot, float64(i)*spacingKm, "north")
		if err != nil {
			return err
		}
		if err := c.addDelivery(fmt.Sprintf("ORD-%d", i), shared.Address{Location: &loc}, dueInMin); err != nil {
			return err
		}
	}
	return nil
}

func (c *resequenceContext) theGeocoderCanResolve(text string, km float64, direction string) error {
	loc, err := offsetFrom(depot, km, direction)
	if err != nil {
		return err
	}
	c.geocoder.Know(text, loc)
	return nil
}

func (c *resequenceContext) aPendingDeliveryAddressedDueIn(id, text string, dueInMin int) error {
	return c.addDelivery(id, shared.Address{FreeText: text}, dueInMin)
}

// When steps

func (c *resequenceContext) iReplanTheRouteWithServiceTime(serviceTimeMin float64) error {
	med := common.NewMediator()
	handler := dispatching.NewResequenceRouteHandler(
		routing.NewSequencer(c.network, c.clock), c.geocoder, c.clock)
	if err := common.RegisterHandler[*dispatching.ResequenceRouteCommand](med, handler); err != nil {
		return err
	}

	resp, err := med.Send(context.Background(), &dispatching.ResequenceRouteCommand{
		VehicleID: c.vehicleID,
		Start:     c.start,
		Orders:    c.orders,
		Options:   routing.Options{ServiceTimeMin: serviceTimeMin},
	})
	c.err = err
	if err == nil {
		c.response = resp.(*dispatching.ResequenceRouteResponse)
	}
	return nil
}

func (c *resequenceContext) iTryToReplanTheRouteWithServiceTime(serviceTimeMin float64) error {
	return c.iReplanTheRouteWithServiceTime(serviceTimeMin)
}

// Then steps

func (c *resequenceContext) plan() (*routing.Result, error) {
	if c.err != nil {
		return nil, fmt.Errorf("replan failed: %v", c.err)
	}
	if c.response == nil || c.response.Plan == nil {
		return nil, fmt.Errorf("no plan captured")
	}
	return c.response.Plan, nil
}

// deliveryStops returns the planned stops without the starting
// position.
func (c *resequenceContext) deliveryStops() ([]routing.Stop, error) {
	plan, err := c.plan()
	if err != nil {
		return nil, err
	}
	stops := make([]routing.Stop, 0, len(plan.Route.Stops))
	for _, s := range plan.Route.Stops {
		if s.IsStart {
			continue
		}
		stops = append(stops, s)
	}
	return stops, nil
}

func (c *resequenceContext) thePlanIsFeasible() error {
	plan, err := c.plan()
	if err != nil {
		return err
	}
	if !plan.Feasible {
		return fmt.Errorf("plan is infeasible, %d violation(s), first %s", plan.Violations, plan.ViolatingOrderID)
	}
	return nil
}

func (c *resequenceContext) thePlanIsNotFeasible() error {
	plan, err := c.plan()
	if err != nil {
		return err
	}
	if plan.Feasible {
		return fmt.Errorf("expected an infeasible plan, got a feasible one")
	}
	return nil
}

func (c *resequenceContext) thePlanIsExact() error {
	plan, err := c.plan()
	if err != nil {
		return err
	}
	if !plan.Exact {
		return fmt.Errorf("expected an exact plan, got a heuristic one")
	}
	return nil
}

func (c *resequenceContext) thePlanIsHeuristic() error {
	plan, err := c.plan()
	if err != nil {
		return err
	}
	if plan.Exact {
		return fmt.Errorf("expected a heuristic plan, got an exact one")
	}
	return nil
}

func (c *resequenceContext) theRouteVisitsThen(first, second string) error {
	stops, err := c.deliveryStops()
	if err != nil {
		return err
	}
	if len(stops) < 2 {
		return fmt.Errorf("route has only %d delivery stops", len(stops))
	}
	if stops[0].OrderID != first || stops[1].OrderID != second {
		return fmt.Errorf("route visits %s then %s, expected %s then %s",
			stops[0].OrderID, stops[1].OrderID, first, second)
	}
	return nil
}

func (c *resequenceContext) theRouteVisitsFirst(orderID string) error {
	stops, err := c.deliveryStops()
	if err != nil {
		return err
	}
	if len(stops) == 0 {
		return fmt.Errorf("route has no delivery stops")
	}
	if stops[0].OrderID != orderID {
		return fmt.Errorf("route visits %s first, expected %s", stops[0].OrderID, orderID)
	}
	return nil
}

func (c *resequenceContext) everyStopIsOnTime() error {
	plan, err := c.plan()
	if err != nil {
		return err
	}
	if !plan.Route.AllOnTime {
		return fmt.Errorf("route is not all on time")
	}
	for _, s := range plan.Route.Stops {
		if !s.OnTime {
			return fmt.Errorf("stop %s misses its deadline", s.OrderID)
		}
	}
	return nil
}

func (c *resequenceContext) theViolatingOrderIs(orderID string) error {
	plan, err := c.plan()
	if err != nil {
		return err
	}
	if plan.ViolatingOrderID != orderID {
		return fmt.Errorf("violating order is %q, expected %q", plan.ViolatingOrderID, orderID)
	}
	return nil
}

func (c *resequenceContext) theRouteHasDeliveryStops(count int) error {
	stops, err := c.deliveryStops()
	if err != nil {
		return err
	}
	if len(stops) != count {
		return fmt.Errorf("expected %d delivery stops, got %d", count, len(stops))
	}
	return nil
}

func (c *resequenceContext) stopIsLate(orderID string) error {
	stops, err := c.deliveryStops()
	if err != nil {
		return err
	}
	for _, s := range stops {
		if s.OrderID == orderID {
			if s.OnTime {
				return fmt.Errorf("stop %s is on time, expected it late", orderID)
			}
			return nil
		}
	}
	return fmt.Errorf("stop %s is not in the route", orderID)
}

func (c *resequenceContext) theReplanFailsWithMessage(substr string) error {
	if c.err == nil {
		return fmt.Errorf("expected the replan to fail, but it succeeded")
	}
	if !strings.Contains(c.err.Error(), substr) {
		return fmt.Errorf("error %q does not contain %q", c.err.Error(), substr)
	}
	return nil
}

// InitializeResequenceScenarios registers the steps for the route
// resequencing feature.
func InitializeResequenceScenarios(sc *godog.ScenarioContext) {
	rc := &resequenceContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		rc.reset()
		return ctx, nil
	})

	sc.Step(`^the clock reads "([^"]*)"$`, rc.theClockReads)
	sc.Step(`^a vehicle "([^"]*)" parked at the depot$`, rc.aVehicleParkedAtTheDepot)
	sc.Step(`^a pending delivery "([^"]*)" ([0-9.]+) km (north|south|east|west) of the depot due in (\d+) minutes$`, rc.aPendingDeliveryOffsetDueIn)
	sc.Step(`^(\d+) pending deliveries spaced ([0-9.]+) km apart going north, all due in (\d+) minutes$`, rc.pendingDeliveriesSpacedGoingNorth)
	sc.Step(`^the geocoder can resolve "([^"]*)" to ([0-9.]+) km (north|south|east|west) of the depot$`, rc.theGeocoderCanResolve)
	sc.Step(`^a pending delivery "([^"]*)" addressed "([^"]*)" due in (\d+) minutes$`, rc.aPendingDeliveryAddressedDueIn)

	sc.Step(`^I replan the route with a service time of ([0-9.]+) minutes? per stop$`, rc.iReplanTheRouteWithServiceTime)
	sc.Step(`^I try to replan the route with a service time of ([0-9.]+) minutes? per stop$`, rc.iTryToReplanTheRouteWithServiceTime)

	sc.Step(`^the plan is feasible$`, rc.thePlanIsFeasible)
	sc.Step(`^the plan is not feasible$`, rc.thePlanIsNotFeasible)
	sc.Step(`^the plan is exact$`, rc.thePlanIsExact)
	sc.Step(`^the plan is heuristic$`, rc.thePlanIsHeuristic)
	sc.Step(`^the route visits "([^"]*)" then "([^"]*)"$`, rc.theRouteVisitsThen)
	sc.Step(`^the route visits "([^"]*)" first$`, rc.theRouteVisitsFirst)
	sc.Step(`^every stop is on time$`, rc.everyStopIsOnTime)
	sc.Step(`^the violating order is "([^"]*)"$`, rc.theViolatingOrderIs)
	sc.Step(`^the route (?:still )?has (\d+) delivery stops$`, rc.theRouteHasDeliveryStops)
	sc.Step(`^stop "([^"]*)" is late$`, rc.stopIsLate)
	sc.Step(`^the replan fails with a message containing "([^"]*)"$`, rc.theReplanFailsWithMessage)
}

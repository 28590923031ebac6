package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/cucumber/messages/go/v21"

	"github.com/andrescamacho/dispatch-go/internal/adapters/persistence"
	"github.com/andrescamacho/dispatch-go/internal/application/dispatching"
	"github.com/andrescamacho/dispatch-go/internal/domain/dispatch"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/test/helpers"
)

// tickingClock advances a fixed amount on every reading, so batch
// budget scenarios consume simulated wall clock without sleeping.
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

// cellValue reads one cell of a data-table row by header name; the
// table's first row is the header.
func cellValue(table *godog.Table, row *messages.PickleTableRow, column string) string {
	for i, header := range table.Rows[0].Cells {
		if header.Value == column && i < len(row.Cells) {
			return row.Cells[i].Value
		}
	}
	return ""
}

// Given steps

func (c *fleetContext) thesePendingOrdersDueIn(dueInMin int, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("orders table needs a header and at least one row")
	}
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != 2 {
			return fmt.Errorf("expected columns |id|km north|, got %d cells", len(row.Cells))
		}
		var km float64
		if _, err := fmt.Sscanf(row.Cells[1].Value, "%f", &km); err != nil {
			return fmt.Errorf("invalid km value %q: %w", row.Cells[1].Value, err)
		}
		if err := c.anOrderOffsetDueIn(row.Cells[0].Value, km, "north", dueInMin); err != nil {
			return err
		}
	}
	return nil
}

func (c *fleetContext) thesePendingOrders(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("orders table needs a header and at least one row")
	}
	for _, row := range table.Rows[1:] {
		id := cellValue(table, row, "id")
		if id == "" {
			return fmt.Errorf("orders table needs an id column")
		}
		var km float64
		if _, err := fmt.Sscanf(cellValue(table, row, "km north"), "%f", &km); err != nil {
			return fmt.Errorf("invalid km value for order %s: %w", id, err)
		}
		var dueInMin int
		if _, err := fmt.Sscanf(cellValue(table, row, "due in minutes"), "%d", &dueInMin); err != nil {
			return fmt.Errorf("invalid due in value for order %s: %w", id, err)
		}
		priority, err := shared.ParsePriority(cellValue(table, row, "priority"))
		if err != nil {
			return err
		}

		loc, err := offsetFrom(depot, km, "north")
		if err != nil {
			return err
		}
		if err := c.newOrder(id, shared.Address{Location: &loc}, dueInMin, priority, 2.0); err != nil {
			return err
		}
	}
	return nil
}

func (c *fleetContext) aPendingOrderAddressedDueIn(id, text string, dueInMin int) error {
	return c.newOrder(id, shared.Address{FreeText: text}, dueInMin, shared.PriorityNormal, 2.0)
}

func (c *fleetContext) eachDispatchBurnsSeconds(seconds int) error {
	c.tick = time.Duration(seconds) * time.Second
	return nil
}

// When steps

func (c *fleetContext) dispatchBatchWith(opts dispatch.BatchOptions) error {
	if len(c.orders) == 0 {
		return fmt.Errorf("no orders set up in test")
	}
	med, err := c.buildMediator()
	if err != nil {
		return err
	}

	resp, err := med.Send(context.Background(), &dispatching.AssignBatchCommand{
		Orders:   c.orders,
		Vehicles: c.vehicles,
		Options:  opts,
	})
	c.err = err
	if err == nil {
		c.batchResponse = resp.(*dispatching.AssignBatchResponse)
	}
	return nil
}

func (c *fleetContext) iDispatchTheBatch() error {
	return c.dispatchBatchWith(dispatch.BatchOptions{})
}

func (c *fleetContext) iDispatchTheBatchSortedByPriority() error {
	return c.dispatchBatchWith(dispatch.BatchOptions{PrioritySort: true})
}

func (c *fleetContext) iDispatchTheBatchWithBudget(seconds int) error {
	return c.dispatchBatchWith(dispatch.BatchOptions{Budget: time.Duration(seconds) * time.Second})
}

// Then steps

func (c *fleetContext) batchResult() (*dispatch.BatchResult, error) {
	if c.err != nil {
		return nil, fmt.Errorf("batch dispatch failed: %v", c.err)
	}
	if c.batchResponse == nil || c.batchResponse.Batch == nil {
		return nil, fmt.Errorf("no batch verdict captured")
	}
	return c.batchResponse.Batch, nil
}

func (c *fleetContext) orderVerdict(orderID string) (*dispatch.Result, error) {
	batch, err := c.batchResult()
	if err != nil {
		return nil, err
	}
	for _, r := range batch.Results {
		if r.OrderID == orderID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no verdict for order %s", orderID)
}

func (c *fleetContext) theBatchSummaryCounts(total, assigned int) error {
	batch, err := c.batchResult()
	if err != nil {
		return err
	}
	if batch.Summary.Total != total {
		return fmt.Errorf("expected %d orders in summary, got %d", total, batch.Summary.Total)
	}
	if batch.Summary.Assigned != assigned {
		return fmt.Errorf("expected %d assigned, got %d", assigned, batch.Summary.Assigned)
	}
	if batch.Summary.Unassigned != total-assigned {
		return fmt.Errorf("summary does not add up: %d assigned + %d unassigned != %d total",
			batch.Summary.Assigned, batch.Summary.Unassigned, batch.Summary.Total)
	}
	return nil
}

func (c *fleetContext) theVerdictsComeBackInSubmissionOrder() error {
	batch, err := c.batchResult()
	if err != nil {
		return err
	}
	if len(batch.Results) != len(c.orders) {
		return fmt.Errorf("expected %d verdicts, got %d", len(c.orders), len(batch.Results))
	}
	for i, r := range batch.Results {
		if r.OrderID != c.orders[i].ID() {
			return fmt.Errorf("verdict %d is for %s, expected %s", i, r.OrderID, c.orders[i].ID())
		}
	}
	return nil
}

func (c *fleetContext) noVehicleExceedsItsCapacity() error {
	for _, v := range c.vehicles {
		if v.CurrentLoad() > v.Capacity() {
			return fmt.Errorf("vehicle %s carries %d orders over capacity %d", v.ID(), v.CurrentLoad(), v.Capacity())
		}
	}
	return nil
}

func (c *fleetContext) everyAssignedOrderIsCommitted() error {
	batch, err := c.batchResult()
	if err != nil {
		return err
	}
	if inFlight := c.vehicles.TotalInFlight(); inFlight != batch.Summary.Assigned {
		return fmt.Errorf("fleet carries %d orders, summary says %d assigned", inFlight, batch.Summary.Assigned)
	}
	for i, r := range batch.Results {
		if !r.Assigned() {
			continue
		}
		if c.orders[i].Status() != order.StatusAssigned {
			return fmt.Errorf("order %s is %s, expected assigned", r.OrderID, c.orders[i].Status())
		}
		v := c.vehicles.FindByID(r.AssignedVehicleID)
		if v == nil {
			return fmt.Errorf("verdict names unknown vehicle %s", r.AssignedVehicleID)
		}
		carried := false
		for _, o := range v.CurrentOrders() {
			if o.ID() == r.OrderID {
				carried = true
				break
			}
		}
		if !carried {
			return fmt.Errorf("vehicle %s does not carry order %s", v.ID(), r.OrderID)
		}
	}
	return nil
}

func (c *fleetContext) orderIsAssignedToVehicle(orderID, vehicleID string) error {
	r, err := c.orderVerdict(orderID)
	if err != nil {
		return err
	}
	if r.AssignedVehicleID != vehicleID {
		return fmt.Errorf("order %s went to %q, expected %s", orderID, r.AssignedVehicleID, vehicleID)
	}
	return nil
}

func (c *fleetContext) orderFailsWithReason(orderID, reason string) error {
	r, err := c.orderVerdict(orderID)
	if err != nil {
		return err
	}
	if r.Assigned() {
		return fmt.Errorf("order %s was assigned to %s, expected failure %q", orderID, r.AssignedVehicleID, reason)
	}
	if string(r.FailureReason) != reason {
		return fmt.Errorf("order %s failed with %q, expected %q", orderID, r.FailureReason, reason)
	}
	return nil
}

func (c *fleetContext) ordersFailWithReason(orderIDs, reason string) error {
	for _, id := range strings.Split(orderIDs, ",") {
		if err := c.orderFailsWithReason(strings.TrimSpace(id), reason); err != nil {
			return err
		}
	}
	return nil
}

func (c *fleetContext) theDecisionLogHoldsRecordsUnderOneBatchID(count int) error {
	if _, err := c.batchResult(); err != nil {
		return err
	}
	if c.batchResponse.BatchID == "" {
		return fmt.Errorf("batch response carries no batch id")
	}

	var n int64
	if err := helpers.SharedTestDB.Model(&persistence.AssignmentRecordModel{}).
		Where("batch_id = ?", c.batchResponse.BatchID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to count batch records: %w", err)
	}
	if n != int64(count) {
		return fmt.Errorf("expected %d records for batch %s, got %d", count, c.batchResponse.BatchID, n)
	}
	return nil
}

// registerBatchSteps wires the batch feature steps onto the shared
// fleet context.
func registerBatchSteps(sc *godog.ScenarioContext, fc *fleetContext) {
	sc.Step(`^these pending orders due in (\d+) minutes:$`, fc.thesePendingOrdersDueIn)
	sc.Step(`^these pending orders:$`, fc.thesePendingOrders)
	sc.Step(`^a pending order "([^"]*)" addressed "([^"]*)" due in (\d+) minutes$`, fc.aPendingOrderAddressedDueIn)
	sc.Step(`^each dispatch burns (\d+) seconds? of wall clock$`, fc.eachDispatchBurnsSeconds)

	sc.Step(`^I dispatch the batch$`, fc.iDispatchTheBatch)
	sc.Step(`^I dispatch the batch sorted by priority$`, fc.iDispatchTheBatchSortedByPriority)
	sc.Step(`^I dispatch the batch with a budget of (\d+) seconds$`, fc.iDispatchTheBatchWithBudget)

	sc.Step(`^the batch summary counts (\d+) orders with (\d+) assigned$`, fc.theBatchSummaryCounts)
	sc.Step(`^the verdicts come back in submission order$`, fc.theVerdictsComeBackInSubmissionOrder)
	sc.Step(`^no vehicle exceeds its capacity$`, fc.noVehicleExceedsItsCapacity)
	sc.Step(`^every assigned order is committed to its vehicle$`, fc.everyAssignedOrderIsCommitted)
	sc.Step(`^order "([^"]*)" is assigned to vehicle "([^"]*)"$`, fc.orderIsAssignedToVehicle)
	sc.Step(`^order "([^"]*)" fails with reason "([^"]*)"$`, fc.orderFailsWithReason)
	sc.Step(`^orders "([^"]*)" fail with reason "([^"]*)"$`, fc.ordersFailWithReason)
	sc.Step(`^the decision log holds (\d+) records under one batch id$`, fc.theDecisionLogHoldsRecordsUnderOneBatchID)
}

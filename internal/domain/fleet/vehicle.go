// Package fleet models delivery vehicles and the working set the
// dispatcher draws candidates from.
package fleet

import (
	"fmt"

	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// DefaultPerformanceScore is assumed for vehicles without driver history.
const DefaultPerformanceScore = 0.70

// Vehicle is a delivery unit available for assignment.
//
// Invariants:
//   - Capacity and maximum load weight are positive.
//   - The number of in-flight orders never exceeds capacity.
//   - Committed weight never exceeds the maximum load weight.
//   - The performance score stays within [0, 1].
type Vehicle struct {
	id               string
	driverName       string
	location         shared.Coordinate
	capacity         int
	maxWeightKg      float64
	performanceScore float64
	currentOrders    []*order.Order
}

// NewVehicle creates a vehicle with validation. A nil performanceScore
// falls back to DefaultPerformanceScore; out-of-range values are clamped
// into [0, 1].
func NewVehicle(
	id string,
	driverName string,
	location shared.Coordinate,
	capacity int,
	maxWeightKg float64,
	performanceScore *float64,
) (*Vehicle, error) {
	perf := DefaultPerformanceScore
	if performanceScore != nil {
		perf = clamp01(*performanceScore)
	}

	v := &Vehicle{
		id:               id,
		driverName:       driverName,
		location:         location,
		capacity:         capacity,
		maxWeightKg:      maxWeightKg,
		performanceScore: perf,
		currentOrders:    nil,
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vehicle) validate() error {
	if v.id == "" {
		return shared.NewInvalidVehicleDataError(v.id, "vehicle id cannot be empty")
	}
	if v.capacity <= 0 {
		return shared.NewInvalidVehicleDataError(v.id,
			fmt.Sprintf("capacity %d must be positive", v.capacity))
	}
	if v.maxWeightKg <= 0 {
		return shared.NewInvalidVehicleDataError(v.id,
			fmt.Sprintf("max weight %.1f kg must be positive", v.maxWeightKg))
	}
	return nil
}

// ID returns the vehicle identifier
func (v *Vehicle) ID() string { return v.id }

// DriverName returns the assigned driver's display name
func (v *Vehicle) DriverName() string { return v.driverName }

// Location returns the vehicle's current position
func (v *Vehicle) Location() shared.Coordinate { return v.location }

// Capacity returns the maximum number of simultaneous orders
func (v *Vehicle) Capacity() int { return v.capacity }

// MaxWeightKg returns the maximum total load weight
func (v *Vehicle) MaxWeightKg() float64 { return v.maxWeightKg }

// PerformanceScore returns the driver's historical score in [0, 1]
func (v *Vehicle) PerformanceScore() float64 { return v.performanceScore }

// CurrentOrders returns a copy of the committed, undelivered orders.
func (v *Vehicle) CurrentOrders() []*order.Order {
	out := make([]*order.Order, len(v.currentOrders))
	copy(out, v.currentOrders)
	return out
}

// CurrentLoad returns how many orders the vehicle is carrying.
func (v *Vehicle) CurrentLoad() int { return len(v.currentOrders) }

// AvailableSlots returns how many more orders fit.
func (v *Vehicle) AvailableSlots() int { return v.capacity - len(v.currentOrders) }

// HasCapacity reports whether at least one order slot is free.
func (v *Vehicle) HasCapacity() bool { return v.AvailableSlots() > 0 }

// CommittedWeightKg returns the total weight of in-flight orders.
func (v *Vehicle) CommittedWeightKg() float64 {
	total := 0.0
	for _, o := range v.currentOrders {
		total += o.WeightKg()
	}
	return total
}

// AvailableWeightKg returns the remaining load budget.
func (v *Vehicle) AvailableWeightKg() float64 {
	return v.maxWeightKg - v.CommittedWeightKg()
}

// CanCarry reports whether the given extra weight still fits.
func (v *Vehicle) CanCarry(weightKg float64) bool {
	return v.AvailableWeightKg() >= weightKg
}

// MoveTo updates the vehicle's current position.
func (v *Vehicle) MoveTo(location shared.Coordinate) {
	v.location = location
}

// Assign commits an order to this vehicle. Capacity and weight limits
// are enforced, and the same order cannot be committed twice.
func (v *Vehicle) Assign(o *order.Order) error {
	if o == nil {
		return shared.NewInvalidVehicleDataError(v.id, "cannot assign a nil order")
	}
	if !v.HasCapacity() {
		return shared.NewCapacityExceededError(v.id, v.capacity, len(v.currentOrders))
	}
	if !v.CanCarry(o.WeightKg()) {
		return shared.NewWeightExceededError(v.id, v.maxWeightKg, v.CommittedWeightKg(), o.WeightKg())
	}
	for _, existing := range v.currentOrders {
		if existing.ID() == o.ID() {
			return shared.NewVehicleError(v.id,
				fmt.Sprintf("order %s is already committed to vehicle %s", o.ID(), v.id))
		}
	}
	v.currentOrders = append(v.currentOrders, o)
	return nil
}

// Clone returns a deep copy of the vehicle, including copies of its
// committed orders.
func (v *Vehicle) Clone() *Vehicle {
	clone := *v
	clone.currentOrders = make([]*order.Order, len(v.currentOrders))
	for i, o := range v.currentOrders {
		clone.currentOrders[i] = o.Clone()
	}
	return &clone
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("vehicle %s at %s (%d/%d orders, %.1f/%.1f kg)",
		v.id, v.location, len(v.currentOrders), v.capacity, v.CommittedWeightKg(), v.maxWeightKg)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

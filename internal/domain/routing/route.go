package routing

import (
	"fmt"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// DefaultServiceTimeMin is the fixed per-delivery overhead in minutes:
// parking, handover and paperwork at the door.
const DefaultServiceTimeMin = 5.0

// DefaultAvgSpeedKph is the urban average speed assumed whenever travel
// time must be estimated from great-circle distance.
const DefaultAvgSpeedKph = 30.0

// StartStopID identifies the synthetic stop at the vehicle's current
// location.
const StartStopID = "start"

// Stop is one visit in a sequenced route. ETAMin is cumulative minutes
// from the route start and includes the stop's own service and handling
// time, so it is the moment the driver finishes the stop.
type Stop struct {
	OrderID  string            `json:"order_id"`
	Location shared.Coordinate `json:"location"`
	ETAMin   float64           `json:"eta_min"`
	Deadline time.Time         `json:"deadline,omitempty"`
	OnTime   bool              `json:"on_time"`
	IsStart  bool              `json:"is_start,omitempty"`
}

// Route is an ordered visiting plan for one vehicle.
type Route struct {
	Stops            []Stop  `json:"stops"`
	TotalDistanceKm  float64 `json:"total_distance_km"`
	TotalDurationMin float64 `json:"total_duration_min"`
	AllOnTime        bool    `json:"all_on_time"`
	// Approximate is set when any leg fell back to great-circle
	// estimation instead of a road-network path.
	Approximate bool `json:"approximate,omitempty"`
}

// DeliveryCount returns the number of delivery stops, excluding the
// start.
func (r *Route) DeliveryCount() int {
	count := 0
	for _, s := range r.Stops {
		if !s.IsStart {
			count++
		}
	}
	return count
}

// OrderIDs returns the delivery order ids in visiting order.
func (r *Route) OrderIDs() []string {
	ids := make([]string, 0, len(r.Stops))
	for _, s := range r.Stops {
		if !s.IsStart {
			ids = append(ids, s.OrderID)
		}
	}
	return ids
}

func (r *Route) String() string {
	return fmt.Sprintf("route with %d stops, %.1f km, %.1f min, on_time=%v",
		r.DeliveryCount(), r.TotalDistanceKm, r.TotalDurationMin, r.AllOnTime)
}

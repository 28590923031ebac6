package helpers

import (
	"github.com/andrescamacho/dispatch-go/internal/domain/fleet"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
)

// CommitOrder marks an order assigned and loads it onto the vehicle,
// as a previous dispatch round would have.
func CommitOrder(v *fleet.Vehicle, o *order.Order) error {
	if err := o.Assign(); err != nil {
		return err
	}
	return v.Assign(o)
}

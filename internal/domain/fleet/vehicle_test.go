package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

var testLoc = shared.Coordinate{Lat: -34.90, Lon: -56.16}

func testOrder(t *testing.T, id string, weightKg float64) *order.Order {
	t.Helper()
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	addr := shared.Address{Street: "Colonia", Number: "1234", Location: &shared.Coordinate{Lat: -34.905, Lon: -56.19}}
	o, err := order.NewOrder(id, addr, now.Add(2*time.Hour), shared.PriorityNormal, weightKg, 5, now)
	require.NoError(t, err)
	return o
}

func TestNewVehicle(t *testing.T) {
	t.Run("creates an empty vehicle", func(t *testing.T) {
		v, err := NewVehicle("V1", "Ana", testLoc, 6, 30, nil)
		require.NoError(t, err)
		assert.Equal(t, "V1", v.ID())
		assert.Equal(t, 0, v.CurrentLoad())
		assert.Equal(t, 6, v.AvailableSlots())
		assert.Equal(t, DefaultPerformanceScore, v.PerformanceScore())
	})

	t.Run("clamps performance score into range", func(t *testing.T) {
		high := 1.7
		v, err := NewVehicle("V2", "Bruno", testLoc, 4, 20, &high)
		require.NoError(t, err)
		assert.Equal(t, 1.0, v.PerformanceScore())

		low := -0.3
		v, err = NewVehicle("V3", "Carla", testLoc, 4, 20, &low)
		require.NoError(t, err)
		assert.Equal(t, 0.0, v.PerformanceScore())
	})

	t.Run("rejects nonpositive capacity", func(t *testing.T) {
		_, err := NewVehicle("V4", "Dana", testLoc, 0, 20, nil)
		assert.Error(t, err)
	})

	t.Run("rejects nonpositive max weight", func(t *testing.T) {
		_, err := NewVehicle("V5", "Eva", testLoc, 4, 0, nil)
		assert.Error(t, err)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := NewVehicle("", "Fito", testLoc, 4, 20, nil)
		assert.Error(t, err)
	})
}

func TestVehicleAssign(t *testing.T) {
	t.Run("assignment adds exactly one order and its weight", func(t *testing.T) {
		v, err := NewVehicle("V1", "Ana", testLoc, 2, 10, nil)
		require.NoError(t, err)

		o := testOrder(t, "ORD-1", 2.8)
		require.NoError(t, v.Assign(o))

		assert.Equal(t, 1, v.CurrentLoad())
		assert.InDelta(t, 2.8, v.CommittedWeightKg(), 1e-9)
		assert.InDelta(t, 7.2, v.AvailableWeightKg(), 1e-9)
	})

	t.Run("rejects when slots are full", func(t *testing.T) {
		v, err := NewVehicle("V1", "Ana", testLoc, 1, 10, nil)
		require.NoError(t, err)
		require.NoError(t, v.Assign(testOrder(t, "ORD-1", 1)))

		err = v.Assign(testOrder(t, "ORD-2", 1))
		require.Error(t, err)
		var capErr *shared.CapacityExceededError
		assert.ErrorAs(t, err, &capErr)
	})

	t.Run("rejects when weight budget is exceeded", func(t *testing.T) {
		v, err := NewVehicle("V1", "Ana", testLoc, 5, 5, nil)
		require.NoError(t, err)
		require.NoError(t, v.Assign(testOrder(t, "ORD-1", 4)))

		err = v.Assign(testOrder(t, "ORD-2", 2))
		require.Error(t, err)
		var weightErr *shared.WeightExceededError
		assert.ErrorAs(t, err, &weightErr)
	})

	t.Run("rejects the same order twice", func(t *testing.T) {
		v, err := NewVehicle("V1", "Ana", testLoc, 5, 50, nil)
		require.NoError(t, err)
		o := testOrder(t, "ORD-1", 1)
		require.NoError(t, v.Assign(o))
		assert.Error(t, v.Assign(o))
	})
}

func TestVehicleClone(t *testing.T) {
	v, err := NewVehicle("V1", "Ana", testLoc, 4, 20, nil)
	require.NoError(t, err)
	require.NoError(t, v.Assign(testOrder(t, "ORD-1", 2)))

	clone := v.Clone()
	require.NoError(t, clone.Assign(testOrder(t, "ORD-2", 2)))

	assert.Equal(t, 1, v.CurrentLoad())
	assert.Equal(t, 2, clone.CurrentLoad())
}

func TestFleet(t *testing.T) {
	newVehicle := func(t *testing.T, id string) *Vehicle {
		v, err := NewVehicle(id, "", testLoc, 4, 20, nil)
		require.NoError(t, err)
		return v
	}

	t.Run("find by id", func(t *testing.T) {
		f := Fleet{newVehicle(t, "V1"), newVehicle(t, "V2")}
		assert.Equal(t, "V2", f.FindByID("V2").ID())
		assert.Nil(t, f.FindByID("V3"))
	})

	t.Run("clone isolates mutations", func(t *testing.T) {
		f := Fleet{newVehicle(t, "V1")}
		clone := f.Clone()
		require.NoError(t, clone[0].Assign(testOrder(t, "ORD-1", 1)))

		assert.Equal(t, 0, f.TotalInFlight())
		assert.Equal(t, 1, clone.TotalInFlight())
	})

	t.Run("ids preserve fleet order", func(t *testing.T) {
		f := Fleet{newVehicle(t, "V2"), newVehicle(t, "V1")}
		assert.Equal(t, []string{"V2", "V1"}, f.IDs())
	})
}

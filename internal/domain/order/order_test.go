package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

func testAddress() shared.Address {
	return shared.Address{
		Street:   "Av. 18 de Julio",
		Number:   "1234",
		City:     "Montevideo",
		Country:  "Uruguay",
		Location: &shared.Coordinate{Lat: -34.9055, Lon: -56.1860},
	}
}

func TestNewOrder(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	t.Run("creates a pending order", func(t *testing.T) {
		o, err := NewOrder("ORD-1", testAddress(), now.Add(2*time.Hour), shared.PriorityNormal, 2.8, 5, now)
		require.NoError(t, err)
		assert.Equal(t, "ORD-1", o.ID())
		assert.Equal(t, StatusPending, o.Status())
		assert.Equal(t, 2.8, o.WeightKg())
		assert.Equal(t, 5.0, o.EstimatedDurationMin())
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := NewOrder("", testAddress(), now.Add(time.Hour), shared.PriorityNormal, 1, 0, now)
		assert.Error(t, err)
	})

	t.Run("rejects deadline before creation", func(t *testing.T) {
		_, err := NewOrder("ORD-2", testAddress(), now.Add(-time.Minute), shared.PriorityNormal, 1, 0, now)
		assert.Error(t, err)
	})

	t.Run("rejects deadline equal to creation", func(t *testing.T) {
		_, err := NewOrder("ORD-3", testAddress(), now, shared.PriorityNormal, 1, 0, now)
		assert.Error(t, err)
	})

	t.Run("rejects negative weight", func(t *testing.T) {
		_, err := NewOrder("ORD-4", testAddress(), now.Add(time.Hour), shared.PriorityNormal, -1, 0, now)
		assert.Error(t, err)
	})

	t.Run("rejects unresolvable address", func(t *testing.T) {
		empty := shared.Address{City: "Montevideo"}
		_, err := NewOrder("ORD-5", empty, now.Add(time.Hour), shared.PriorityNormal, 1, 0, now)
		assert.Error(t, err)
	})
}

func TestOrderLifecycle(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	newOrder := func(t *testing.T) *Order {
		o, err := NewOrder("ORD-9", testAddress(), now.Add(time.Hour), shared.PriorityHigh, 1.5, 3, now)
		require.NoError(t, err)
		return o
	}

	t.Run("pending to assigned to delivered", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.Assign())
		assert.Equal(t, StatusAssigned, o.Status())
		require.NoError(t, o.MarkDelivered())
		assert.Equal(t, StatusDelivered, o.Status())
	})

	t.Run("pending cannot be delivered directly", func(t *testing.T) {
		o := newOrder(t)
		assert.Error(t, o.MarkDelivered())
	})

	t.Run("delivered is terminal", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.Assign())
		require.NoError(t, o.MarkDelivered())
		assert.Error(t, o.MarkFailed())
		assert.Error(t, o.Assign())
	})

	t.Run("either state can fail before delivery", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.MarkFailed())
		assert.Equal(t, StatusFailed, o.Status())
	})
}

func TestOrderSlack(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	o, err := NewOrder("ORD-7", testAddress(), now.Add(45*time.Minute), shared.PriorityNormal, 1, 0, now)
	require.NoError(t, err)

	assert.InDelta(t, 45.0, o.SlackMinutes(now), 1e-9)
	assert.InDelta(t, -15.0, o.SlackMinutes(now.Add(time.Hour)), 1e-9)
}

func TestOrderClone(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	o, err := NewOrder("ORD-8", testAddress(), now.Add(time.Hour), shared.PriorityNormal, 1, 0, now)
	require.NoError(t, err)

	clone := o.Clone()
	clone.SetLocation(shared.Coordinate{Lat: -34.80, Lon: -56.00})

	assert.NotEqual(t, o.Location().Lat, clone.Location().Lat)
	assert.Equal(t, o.ID(), clone.ID())
}

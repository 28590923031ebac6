package geoutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		d := HaversineMeters(-34.9067, -56.1996, -34.9067, -56.1996)
		assert.Equal(t, 0.0, d)
	})

	t.Run("known distance across Montevideo", func(t *testing.T) {
		// Plaza Independencia to Pocitos beach, roughly 4.6 km.
		d := HaversineMeters(-34.9067, -56.1996, -34.9167, -56.1500)
		assert.InDelta(t, 4660, d, 100)
	})

	t.Run("symmetric", func(t *testing.T) {
		ab := HaversineMeters(-34.90, -56.20, -34.85, -56.15)
		ba := HaversineMeters(-34.85, -56.15, -34.90, -56.20)
		assert.InDelta(t, ab, ba, 1e-9)
	})

	t.Run("one degree of latitude is about 111 km", func(t *testing.T) {
		d := HaversineKm(-34.0, -56.0, -35.0, -56.0)
		assert.InDelta(t, 111.2, d, 0.5)
	})
}

func TestInitialBearingDegrees(t *testing.T) {
	t.Run("due north", func(t *testing.T) {
		b := InitialBearingDegrees(-34.90, -56.20, -34.80, -56.20)
		assert.InDelta(t, 0.0, b, 0.01)
	})

	t.Run("due south", func(t *testing.T) {
		b := InitialBearingDegrees(-34.80, -56.20, -34.90, -56.20)
		assert.InDelta(t, 180.0, b, 0.01)
	})

	t.Run("due east", func(t *testing.T) {
		b := InitialBearingDegrees(-34.90, -56.20, -34.90, -56.10)
		assert.InDelta(t, 90.0, b, 0.2)
	})

	t.Run("range is always [0, 360)", func(t *testing.T) {
		b := InitialBearingDegrees(-34.90, -56.10, -34.90, -56.20)
		assert.GreaterOrEqual(t, b, 0.0)
		assert.Less(t, b, 360.0)
		assert.InDelta(t, 270.0, b, 0.2)
	})
}

func TestTravelMinutesAt(t *testing.T) {
	t.Run("30 kph covers 5 km in 10 minutes", func(t *testing.T) {
		assert.InDelta(t, 10.0, TravelMinutesAt(5000, 30), 1e-9)
	})

	t.Run("nonpositive speed falls back to walking pace", func(t *testing.T) {
		m := TravelMinutesAt(1000, 0)
		assert.InDelta(t, 12.0, m, 1e-9)
	})
}

func TestEuclideanDegrees(t *testing.T) {
	d := EuclideanDegrees(0, 0, 3, 4)
	assert.InDelta(t, 5.0, d, 1e-9)
}

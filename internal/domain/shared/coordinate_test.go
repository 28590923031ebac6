package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoordinate(t *testing.T) {
	t.Run("accepts valid coordinates", func(t *testing.T) {
		c, err := NewCoordinate(-34.9011, -56.1645)
		require.NoError(t, err)
		assert.Equal(t, -34.9011, c.Lat)
		assert.Equal(t, -56.1645, c.Lon)
	})

	t.Run("rejects latitude out of range", func(t *testing.T) {
		_, err := NewCoordinate(-91.0, -56.0)
		assert.Error(t, err)
	})

	t.Run("rejects longitude out of range", func(t *testing.T) {
		_, err := NewCoordinate(-34.0, 181.0)
		assert.Error(t, err)
	})
}

func TestCoordinateDistance(t *testing.T) {
	a := Coordinate{Lat: -34.9067, Lon: -56.1996}
	b := Coordinate{Lat: -34.9167, Lon: -56.1500}

	t.Run("distance matches haversine", func(t *testing.T) {
		assert.InDelta(t, 4.66, a.DistanceKm(b), 0.1)
		assert.InDelta(t, a.DistanceMeters(b), a.DistanceKm(b)*1000, 1e-6)
	})

	t.Run("bearing points roughly southeast", func(t *testing.T) {
		bearing := a.BearingTo(b)
		assert.Greater(t, bearing, 90.0)
		assert.Less(t, bearing, 180.0)
	})
}

func TestBoundingBox(t *testing.T) {
	box, err := NewBoundingBox(-34.80, -34.92, -56.10, -56.22)
	require.NoError(t, err)

	t.Run("contains interior point", func(t *testing.T) {
		assert.True(t, box.Contains(Coordinate{Lat: -34.90, Lon: -56.18}))
	})

	t.Run("contains edge point", func(t *testing.T) {
		assert.True(t, box.Contains(Coordinate{Lat: -34.80, Lon: -56.18}))
	})

	t.Run("excludes outside point", func(t *testing.T) {
		assert.False(t, box.Contains(Coordinate{Lat: -34.60, Lon: -58.38}))
	})

	t.Run("center is the midpoint", func(t *testing.T) {
		center := box.Center()
		assert.InDelta(t, -34.86, center.Lat, 1e-9)
		assert.InDelta(t, -56.16, center.Lon, 1e-9)
	})

	t.Run("rejects inverted edges", func(t *testing.T) {
		_, err := NewBoundingBox(-34.92, -34.80, -56.10, -56.22)
		assert.Error(t, err)
	})
}

func TestBoundingBoxAround(t *testing.T) {
	center := Coordinate{Lat: -34.90, Lon: -56.16}
	box := BoundingBoxAround(center, 5000)

	assert.True(t, box.Contains(center))
	// 5 km of latitude is about 0.045 degrees.
	assert.InDelta(t, 0.0449, box.North-center.Lat, 0.001)
	// Longitude widens with the cosine of the latitude.
	assert.Greater(t, box.East-center.Lon, box.North-center.Lat)
}

package shared

import (
	"fmt"
	"math"

	"github.com/andrescamacho/dispatch-go/pkg/geoutil"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewCoordinate creates a coordinate with range validation
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return Coordinate{}, NewValidationError("coordinate", "latitude and longitude must be numbers")
	}
	if lat < -90 || lat > 90 {
		return Coordinate{}, NewValidationError("lat", fmt.Sprintf("latitude %.6f out of range [-90, 90]", lat))
	}
	if lon < -180 || lon > 180 {
		return Coordinate{}, NewValidationError("lon", fmt.Sprintf("longitude %.6f out of range [-180, 180]", lon))
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}

// DistanceMeters returns the great-circle distance to another coordinate.
func (c Coordinate) DistanceMeters(other Coordinate) float64 {
	return geoutil.HaversineMeters(c.Lat, c.Lon, other.Lat, other.Lon)
}

// DistanceKm returns the great-circle distance in kilometers.
func (c Coordinate) DistanceKm(other Coordinate) float64 {
	return geoutil.HaversineKm(c.Lat, c.Lon, other.Lat, other.Lon)
}

// BearingTo returns the initial compass bearing in degrees toward another
// coordinate.
func (c Coordinate) BearingTo(other Coordinate) float64 {
	return geoutil.InitialBearingDegrees(c.Lat, c.Lon, other.Lat, other.Lon)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.5f, %.5f)", c.Lat, c.Lon)
}

// BoundingBox is an axis-aligned area in WGS84 coordinates.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// NewBoundingBox creates a bounding box with orientation validation
func NewBoundingBox(north, south, east, west float64) (BoundingBox, error) {
	if north <= south {
		return BoundingBox{}, NewValidationError("north", "north edge must be above south edge")
	}
	if east <= west {
		return BoundingBox{}, NewValidationError("east", "east edge must be right of west edge")
	}
	if north > 90 || south < -90 {
		return BoundingBox{}, NewValidationError("bbox", "latitude edges out of range [-90, 90]")
	}
	if east > 180 || west < -180 {
		return BoundingBox{}, NewValidationError("bbox", "longitude edges out of range [-180, 180]")
	}
	return BoundingBox{North: north, South: south, East: east, West: west}, nil
}

// Contains reports whether the coordinate falls inside the box,
// edges included.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.South && c.Lat <= b.North &&
		c.Lon >= b.West && c.Lon <= b.East
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Coordinate {
	return Coordinate{
		Lat: (b.North + b.South) / 2,
		Lon: (b.East + b.West) / 2,
	}
}

// BoundingBoxAround builds a box centered on a coordinate with roughly
// the given radius in meters on each side.
func BoundingBoxAround(center Coordinate, radiusMeters float64) BoundingBox {
	latDelta := radiusMeters / 111320.0
	lonScale := math.Cos(geoutil.Radians(center.Lat))
	if lonScale < 0.01 {
		lonScale = 0.01
	}
	lonDelta := radiusMeters / (111320.0 * lonScale)
	return BoundingBox{
		North: center.Lat + latDelta,
		South: center.Lat - latDelta,
		East:  center.Lon + lonDelta,
		West:  center.Lon - lonDelta,
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%.5f,%.5f,%.5f,%.5f]", b.South, b.West, b.North, b.East)
}

// Package geoutil provides great-circle geometry helpers shared by the
// routing and dispatch layers.
package geoutil

import "math"

// EarthRadiusMeters is the mean earth radius used for great-circle math.
const EarthRadiusMeters = 6371000.0

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// HaversineMeters returns the great-circle distance in meters between
// two WGS84 points.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := Radians(lat1)
	phi2 := Radians(lat2)
	dPhi := Radians(lat2 - lat1)
	dLambda := Radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// HaversineKm returns the great-circle distance in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineMeters(lat1, lon1, lat2, lon2) / 1000.0
}

// InitialBearingDegrees returns the initial compass bearing in degrees
// [0, 360) to travel from the first point to the second.
func InitialBearingDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := Radians(lat1)
	phi2 := Radians(lat2)
	dLambda := Radians(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	bearing := Degrees(math.Atan2(y, x))
	return math.Mod(bearing+360.0, 360.0)
}

// TravelMinutesAt estimates travel time in minutes for a distance at a
// constant speed. Nonpositive speeds fall back to walking pace so the
// estimate stays finite.
func TravelMinutesAt(distanceMeters, speedKph float64) float64 {
	if speedKph <= 0 {
		speedKph = 5.0
	}
	metersPerMinute := speedKph * 1000.0 / 60.0
	return distanceMeters / metersPerMinute
}

// EuclideanDegrees returns the straight-line distance between two points
// in raw coordinate-degree space. Only useful for cheap relative
// comparisons over a small area, never for real distances.
func EuclideanDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

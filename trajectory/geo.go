package trajectory

import "math"

// EarthRadiusMeters is the spherical Earth approximation used for all
// distance calculations.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two fixes
// using the haversine formula. It is symmetric, returns 0 for coincident
// points and performs no range validation on its inputs.
func Distance(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

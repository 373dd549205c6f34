// Package geo holds the distance math and nearest-office selection used by
// attendance logging and the proximity check.
package geo

import "math"

const earthRadiusM = 6371000.0

type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// ValidCoordinates: lat [-90,90], lon [-180,180], inclusive. NaN ditolak.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Distance returns the Haversine great-circle distance in meters.
func Distance(a, b Coordinate) float64 {
	phi1 := toRad(a.Latitude)
	phi2 := toRad(b.Latitude)
	dPhi := toRad(b.Latitude - a.Latitude)
	dLambda := toRad(b.Longitude - a.Longitude)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	if h <= 0 {
		return 0
	}
	// rounding can push h a hair above 1 near antipodes
	if h > 1 {
		h = 1
	}
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(d float64) float64 { return d * math.Pi / 180 }

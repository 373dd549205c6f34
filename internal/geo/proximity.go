package geo

import "geoabsensi/internal/models"

// ProximityVerdict is recomputed per request and never stored.
type ProximityVerdict struct {
	Location          models.Location
	DistanceMeters    float64
	IsWithinThreshold bool
}

// DistanceOutside is how far past the location's radius the point is (0 when inside).
func (v ProximityVerdict) DistanceOutside() float64 {
	if v.IsWithinThreshold {
		return 0
	}
	return v.DistanceMeters - v.Location.ProximityThreshold
}

func Verdict(p Coordinate, loc models.Location) ProximityVerdict {
	d := Distance(p, Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude})
	return ProximityVerdict{
		Location:          loc,
		DistanceMeters:    d,
		IsWithinThreshold: d <= loc.ProximityThreshold,
	}
}

// ResolveWithinThreshold picks the nearest active location whose radius
// contains p. Equal distances go to the lowest location ID.
func ResolveWithinThreshold(p Coordinate, locations []models.Location) (ProximityVerdict, bool) {
	return nearest(p, locations, true)
}

// ResolveNearestAny picks the nearest active location regardless of radius.
// It only reports false when there is no active candidate at all.
func ResolveNearestAny(p Coordinate, locations []models.Location) (ProximityVerdict, bool) {
	return nearest(p, locations, false)
}

func nearest(p Coordinate, locations []models.Location, withinOnly bool) (ProximityVerdict, bool) {
	var best ProximityVerdict
	found := false
	for _, loc := range locations {
		if !loc.IsActive {
			continue
		}
		v := Verdict(p, loc)
		if withinOnly && !v.IsWithinThreshold {
			continue
		}
		if !found || better(v, best) {
			best = v
			found = true
		}
	}
	return best, found
}

func better(a, b ProximityVerdict) bool {
	if a.DistanceMeters != b.DistanceMeters {
		return a.DistanceMeters < b.DistanceMeters
	}
	return a.Location.ID < b.Location.ID
}

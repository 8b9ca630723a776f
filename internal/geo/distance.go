package geo

import (
	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
)

// Mean earth radius in kilometers, used by the spherical fallback.
const earthRadiusKm = 6371.0088

// GreatCircle computes the spherical great-circle distance in kilometers.
// It is slightly less accurate than Vincenty but total: it produces a finite
// result for every pair of valid coordinates, including antipodes.
func GreatCircle(a, b Coordinate) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lon)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return la.Distance(lb).Radians() * earthRadiusKm
}

// Distance returns the geodesic distance in kilometers between a and b.
// The ellipsoidal solver is always attempted first; only on a convergence
// failure does the result come from the great-circle fallback. This is the
// single entry point all scoring and estimation code must use.
func Distance(a, b Coordinate) float64 {
	km, err := Vincenty(a, b)
	if err != nil {
		return GreatCircle(a, b)
	}
	return km
}

// DistanceChecked is Distance with the fallback made visible: it reports
// whether the great-circle path was taken. Used where the caller wants to
// count fallbacks.
func DistanceChecked(a, b Coordinate) (float64, bool) {
	km, err := Vincenty(a, b)
	if eris.Is(err, ErrNoConvergence) {
		return GreatCircle(a, b), true
	}
	return km, false
}

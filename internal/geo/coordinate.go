// Package geo provides coordinate types and geodesic distance computation
// with an ellipsoidal primary solver and a spherical fallback.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// Coordinate precision for persisted output (decimal degrees).
const roundDecimals = 6

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinate lies within the valid
// latitude/longitude ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Round returns the coordinate rounded to six decimal degrees, the precision
// used for all persisted locations.
func (c Coordinate) Round() Coordinate {
	scale := math.Pow10(roundDecimals)
	return Coordinate{
		Lat: math.Round(c.Lat*scale) / scale,
		Lon: math.Round(c.Lon*scale) / scale,
	}
}

// Validate returns an error describing the out-of-range component, if any.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return eris.Errorf("geo: latitude %f out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return eris.Errorf("geo: longitude %f out of range [-180, 180]", c.Lon)
	}
	return nil
}

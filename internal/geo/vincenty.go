package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// WGS-84 ellipsoid parameters.
const (
	semiMajorKm = 6378.137
	semiMinorKm = 6356.7523142
	flattening  = 1 / 298.257223563
)

const (
	vincentyMaxIterations = 200
	vincentyTolerance     = 1e-12
)

// ErrNoConvergence is returned by Vincenty when the inverse solver fails to
// converge, which happens for nearly antipodal point pairs. Callers fall back
// to GreatCircle.
var ErrNoConvergence = eris.New("geo: vincenty iteration did not converge")

// Vincenty computes the geodesic distance in kilometers between two points on
// the WGS-84 ellipsoid using Vincenty's inverse formula. Coincident points
// return 0 without iterating.
func Vincenty(a, b Coordinate) (float64, error) {
	if a == b {
		return 0, nil
	}

	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	u1 := math.Atan((1 - flattening) * math.Tan(phi1))
	u2 := math.Atan((1 - flattening) * math.Tan(phi2))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := dLon
	var sinSigma, cosSigma, sigma, sinAlpha, cosSqAlpha, cos2SigmaM float64

	for i := 0; i < vincentyMaxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Sqrt(
			(cosU2*sinLambda)*(cosU2*sinLambda) +
				(cosU1*sinU2-sinU1*cosU2*cosLambda)*(cosU1*sinU2-sinU1*cosU2*cosLambda),
		)
		if sinSigma == 0 {
			// Coincident or numerically indistinguishable points.
			return 0, nil
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha = cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha == 0 {
			// Equatorial line.
			cos2SigmaM = 0
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}

		c := flattening / 16 * cosSqAlpha * (4 + flattening*(4-3*cosSqAlpha))
		prev := lambda
		lambda = dLon + (1-c)*flattening*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambda-prev) < vincentyTolerance {
			uSq := cosSqAlpha * (semiMajorKm*semiMajorKm - semiMinorKm*semiMinorKm) / (semiMinorKm * semiMinorKm)
			bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
			bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
			deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*
				(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
					bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
			return semiMinorKm * bigA * (sigma - deltaSigma), nil
		}
	}

	return 0, ErrNoConvergence
}

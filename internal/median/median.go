// Package median computes robust geographic home locations from per-user
// point clouds using a geodesic geometric median.
package median

import (
	"sort"

	"go.uber.org/zap"

	"github.com/networkdynamics/geoinf/internal/geo"
)

// Defaults mirror the production estimator configuration.
const (
	DefaultMinPoints     = 3    // minimum GPS points required per user
	DefaultMaxMADKm      = 30   // acceptable median absolute deviation (km)
	DefaultConvergenceM  = 1    // Weiszfeld stop threshold (meters)
	DefaultMaxIterations = 1000 // Weiszfeld iteration cap
)

// Reason explains why an estimate was rejected.
type Reason string

const (
	ReasonAccepted     Reason = "accepted"
	ReasonTooFewPoints Reason = "too_few_points"
	ReasonDispersed    Reason = "dispersed"
)

// Result is the outcome of estimating one user's home location.
type Result struct {
	Coord  geo.Coordinate
	OK     bool
	Reason Reason
}

// Options configures an Estimator. The zero value is not usable; construct
// through New.
type Options struct {
	// MinPoints rejects users with fewer observed coordinates.
	MinPoints int
	// MaxMADKm rejects users whose points are too dispersed around the
	// candidate median.
	MaxMADKm float64
	// ConvergenceM stops Weiszfeld iteration once successive estimates move
	// less than this many meters.
	ConvergenceM float64
	// MaxIterations caps Weiszfeld iteration. Hitting the cap is non-fatal.
	MaxIterations int
	// Snap restricts the median to one of the user's own observed points.
	Snap bool
}

// DefaultOptions returns the snap-to-point configuration used for gold
// location generation.
func DefaultOptions() Options {
	return Options{
		MinPoints:     DefaultMinPoints,
		MaxMADKm:      DefaultMaxMADKm,
		ConvergenceM:  DefaultConvergenceM,
		MaxIterations: DefaultMaxIterations,
		Snap:          true,
	}
}

// Estimator computes geometric medians under a fixed configuration.
type Estimator struct {
	opts Options
	log  *zap.Logger
}

// New creates an Estimator. Zero-valued options fall back to defaults.
func New(opts Options) *Estimator {
	if opts.MinPoints <= 0 {
		opts.MinPoints = DefaultMinPoints
	}
	if opts.MaxMADKm <= 0 {
		opts.MaxMADKm = DefaultMaxMADKm
	}
	if opts.ConvergenceM <= 0 {
		opts.ConvergenceM = DefaultConvergenceM
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Estimator{opts: opts, log: zap.L().Named("median")}
}

// Estimate returns the robust median of a user's observed coordinates.
// userID is used only for diagnostics.
func (e *Estimator) Estimate(userID string, points []geo.Coordinate) Result {
	if len(points) < e.opts.MinPoints {
		return Result{OK: false, Reason: ReasonTooFewPoints}
	}

	var candidate geo.Coordinate
	if e.opts.Snap {
		candidate = snapMedian(points)
	} else {
		candidate = e.weiszfeld(userID, points)
	}

	if mad := medianAbsoluteDeviation(points, candidate); mad > e.opts.MaxMADKm {
		return Result{OK: false, Reason: ReasonDispersed}
	}

	return Result{Coord: candidate.Round(), OK: true, Reason: ReasonAccepted}
}

// snapMedian returns the observed point minimizing the summed geodesic
// distance to all points. Ties break toward the earliest point in input
// order, which keeps output stable for identical inputs.
func snapMedian(points []geo.Coordinate) geo.Coordinate {
	best := points[0]
	bestSum := objective(points[0], points)
	for _, p := range points[1:] {
		if sum := objective(p, points); sum < bestSum {
			bestSum = sum
			best = p
		}
	}
	return best
}

// weiszfeld iterates the weighted-average update from the arithmetic mean.
// Points coincident with the current estimate contribute zero weight; they
// already satisfy the local optimum there and would otherwise divide by zero.
func (e *Estimator) weiszfeld(userID string, points []geo.Coordinate) geo.Coordinate {
	estimate := arithmeticMean(points)
	if objective(estimate, points) == 0 {
		// All points identical.
		return estimate
	}

	var residualM float64
	for i := 0; i < e.opts.MaxIterations; i++ {
		var nextLat, nextLon, denom float64
		for _, p := range points {
			d := geo.Distance(estimate, p)
			if d == 0 {
				continue
			}
			w := 1 / d
			nextLat += p.Lat * w
			nextLon += p.Lon * w
			denom += w
		}
		if denom == 0 {
			// Every remaining point coincides with the estimate.
			return estimate
		}

		next := geo.Coordinate{Lat: nextLat / denom, Lon: nextLon / denom}
		residualM = geo.Distance(estimate, next) * 1000
		estimate = next
		if residualM < e.opts.ConvergenceM {
			return estimate
		}
	}

	e.log.Warn("weiszfeld iteration cap reached",
		zap.String("user_id", userID),
		zap.Int("iterations", e.opts.MaxIterations),
		zap.Float64("residual_m", residualM),
	)
	return estimate
}

// objective is the summed geodesic distance from candidate to every point.
func objective(candidate geo.Coordinate, points []geo.Coordinate) float64 {
	var sum float64
	for _, p := range points {
		sum += geo.Distance(candidate, p)
	}
	return sum
}

func arithmeticMean(points []geo.Coordinate) geo.Coordinate {
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return geo.Coordinate{Lat: lat / n, Lon: lon / n}
}

// medianAbsoluteDeviation is the median of the distances (km) from each point
// to the candidate median.
func medianAbsoluteDeviation(points []geo.Coordinate, candidate geo.Coordinate) float64 {
	distances := make([]float64, len(points))
	for i, p := range points {
		distances[i] = geo.Distance(candidate, p)
	}
	sort.Float64s(distances)
	n := len(distances)
	if n%2 == 1 {
		return distances[n/2]
	}
	return (distances[n/2-1] + distances[n/2]) / 2
}

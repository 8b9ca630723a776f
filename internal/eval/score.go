package eval

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/networkdynamics/geoinf/internal/geo"
	"github.com/networkdynamics/geoinf/internal/method"
)

// FoldScore summarizes one fold's scored rows.
type FoldScore struct {
	Tested      int
	Unscoreable int
	MeanKm      float64
	MedianKm    float64
}

// scoreFold writes one row per user the method newly resolved during the
// fold, and returns the aggregate error statistics. Users present in the
// initial state are the method's prior knowledge and never scored. Users
// without a gold location count as unscoreable.
func scoreFold(initial, final method.Locations, gold Gold, w *ResultsWriter) (*FoldScore, error) {
	newly := make([]string, 0, len(final))
	for uid := range final {
		if _, known := initial[uid]; known {
			continue
		}
		newly = append(newly, uid)
	}
	sort.Strings(newly)

	score := &FoldScore{}
	var distances []float64
	for _, uid := range newly {
		pred := final[uid]
		known, ok := gold[uid]
		if !ok {
			if err := w.WriteUnscoreable(uid, pred); err != nil {
				return nil, err
			}
			score.Unscoreable++
			continue
		}
		km := geo.Distance(known, pred)
		if err := w.WriteScored(uid, known, pred, km); err != nil {
			return nil, err
		}
		distances = append(distances, km)
		score.Tested++
	}

	if len(distances) > 0 {
		sum := 0.0
		for _, d := range distances {
			sum += d
		}
		score.MeanKm = sum / float64(len(distances))
		sort.Float64s(distances)
		mid := len(distances) / 2
		if len(distances)%2 == 0 {
			score.MedianKm = (distances[mid-1] + distances[mid]) / 2
		} else {
			score.MedianKm = distances[mid]
		}
	}
	return score, nil
}

// validateState rejects training output that breaks the state contract: the
// final location set must contain everything the initial set did.
func validateState(initial, final method.Locations) error {
	for uid := range initial {
		if _, ok := final[uid]; !ok {
			return eris.Errorf("eval: user %s present initially but missing from final state", uid)
		}
	}
	return nil
}

package predictor

import (
	"math/rand"
	"sort"

	"github.com/patrickwarner/adselect/internal/models"
)

// randFn supplies the sampling draw. Tests may replace it.
var randFn = rand.Float64

// SampleAdFromPredictors draws one ad with probability proportional to its
// score. When every score is zero the draw is uniform, so fresh catalogs
// with no signal still rotate fairly. Returns nil when the map is empty.
func SampleAdFromPredictors[T models.CreativeAdVariant](predictors models.AdPredictorMap[T]) *T {
	if len(predictors) == 0 {
		return nil
	}

	// Fixed iteration order so the draw maps to a stable cumulative range.
	ids := make([]string, 0, len(predictors))
	for id := range predictors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var total float64
	for _, id := range ids {
		total += predictors[id].Score
	}

	if total <= 0 {
		idx := int(randFn() * float64(len(ids)))
		if idx >= len(ids) {
			idx = len(ids) - 1
		}
		p := predictors[ids[idx]]
		return &p.CreativeAd
	}

	target := randFn() * total
	var cumulative float64
	for _, id := range ids {
		cumulative += predictors[id].Score
		if target < cumulative {
			p := predictors[id]
			return &p.CreativeAd
		}
	}

	// Floating point drift can leave target just above the last bound.
	p := predictors[ids[len(ids)-1]]
	return &p.CreativeAd
}

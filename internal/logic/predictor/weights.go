// Package predictor scores eligible ads against a signal model built from
// the user's segments and past ad events. Each score is a weighted linear
// combination of match and recency features, scaled by the ad's pass
// through rate, and feeds the proportional sampler that picks the winner.
package predictor

import (
	"fmt"
	"math"
)

// WeightCount is the number of scoring weights the model carries.
const WeightCount = 7

// Weights holds the coefficients applied to each predictor feature.
type Weights struct {
	IntentSegmentChild    float64
	IntentSegmentParent   float64
	InterestSegmentChild  float64
	InterestSegmentParent float64
	AdLastSeen            float64
	AdvertiserLastSeen    float64
	Priority              float64
}

// DefaultWeights mirrors the shipped model coefficients.
func DefaultWeights() Weights {
	return Weights{
		IntentSegmentChild:    1.0,
		IntentSegmentParent:   1.0,
		InterestSegmentChild:  1.0,
		InterestSegmentParent: 1.0,
		AdLastSeen:            1.0,
		AdvertiserLastSeen:    1.0,
		Priority:              1.0,
	}
}

// WeightsFromSlice validates and converts a parsed weight list. The list
// must contain exactly WeightCount finite, non-negative values.
func WeightsFromSlice(vals []float64) (Weights, error) {
	if len(vals) != WeightCount {
		return Weights{}, fmt.Errorf("predictor weights: expected %d values, got %d", WeightCount, len(vals))
	}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Weights{}, fmt.Errorf("predictor weights: value %d (%v) must be a non-negative number", i, v)
		}
	}
	return Weights{
		IntentSegmentChild:    vals[0],
		IntentSegmentParent:   vals[1],
		InterestSegmentChild:  vals[2],
		InterestSegmentParent: vals[3],
		AdLastSeen:            vals[4],
		AdvertiserLastSeen:    vals[5],
		Priority:              vals[6],
	}, nil
}

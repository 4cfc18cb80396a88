package predictor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsFromSlice(t *testing.T) {
	w, err := WeightsFromSlice([]float64{1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, err)
	assert.Equal(t, Weights{
		IntentSegmentChild:    1,
		IntentSegmentParent:   2,
		InterestSegmentChild:  3,
		InterestSegmentParent: 4,
		AdLastSeen:            5,
		AdvertiserLastSeen:    6,
		Priority:              7,
	}, w)
}

func TestWeightsFromSliceWrongLength(t *testing.T) {
	_, err := WeightsFromSlice([]float64{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 7 values")
}

func TestWeightsFromSliceRejectsBadValues(t *testing.T) {
	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		vals := []float64{1, 1, 1, 1, 1, 1, 1}
		vals[3] = bad
		_, err := WeightsFromSlice(vals)
		assert.Error(t, err, "value %v must be rejected", bad)
	}
}

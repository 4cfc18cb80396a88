package predictor

import (
	"github.com/patrickwarner/adselect/internal/models"
)

// ComputeScore evaluates the weighted feature sum for a single predictor.
// Child segment matches take precedence over parent matches, so an ad never
// collects both terms for the same signal. The final sum is scaled by the
// ad's pass through rate.
func ComputeScore[T models.CreativeAdVariant](p models.AdPredictor[T], weights Weights) float64 {
	creative := p.CreativeAd.Creative()

	var score float64
	if p.DoesMatchIntentChildSegments {
		score += weights.IntentSegmentChild
	} else if p.DoesMatchIntentParentSegments {
		score += weights.IntentSegmentParent
	}

	if p.DoesMatchInterestChildSegments {
		score += weights.InterestSegmentChild
	} else if p.DoesMatchInterestParentSegments {
		score += weights.InterestSegmentParent
	}

	// Exposures older than a day carry no recency weight.
	if p.AdLastSeenHoursAgo > 0 && p.AdLastSeenHoursAgo <= 24 {
		score += weights.AdLastSeen * float64(p.AdLastSeenHoursAgo) / 24.0
	}
	if p.AdvertiserLastSeenHoursAgo > 0 && p.AdvertiserLastSeenHoursAgo <= 24 {
		score += weights.AdvertiserLastSeen * float64(p.AdvertiserLastSeenHoursAgo) / 24.0
	}

	if creative.Priority > 0 {
		score += weights.Priority / float64(creative.Priority)
	}

	return score * creative.Ptr
}

// ComputeFeaturesAndScores runs the full feature and scoring pass over a
// predictor map and returns a new map with scores attached.
func ComputeFeaturesAndScores[T models.CreativeAdVariant](predictors models.AdPredictorMap[T], signals Signals, weights Weights) models.AdPredictorMap[T] {
	scored := make(models.AdPredictorMap[T], len(predictors))
	for id, p := range predictors {
		p = ComputeFeatures(p, signals)
		p.Score = ComputeScore(p, weights)
		scored[id] = p
	}
	return scored
}

// GroupEligibleAdsByCreativeInstanceID builds the initial predictor map for
// a candidate list. Ads sharing a creative instance accumulate each
// occurrence's segment, so multi-segment instances match on any of them.
func GroupEligibleAdsByCreativeInstanceID[T models.CreativeAdVariant](ads []T) models.AdPredictorMap[T] {
	predictors := make(models.AdPredictorMap[T])
	for _, ad := range ads {
		creative := ad.Creative()
		p, ok := predictors[creative.CreativeInstanceID]
		if !ok {
			p = models.AdPredictor[T]{CreativeAd: ad}
		}
		p.Segments = append(p.Segments, creative.Segment)
		predictors[creative.CreativeInstanceID] = p
	}
	return predictors
}

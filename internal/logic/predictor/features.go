package predictor

import (
	"time"

	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/segments"
)

// Signals carries the per-user inputs the feature computation reads.
type Signals struct {
	IntentSegments   models.SegmentList
	InterestSegments models.SegmentList
	AdEvents         models.AdEventList
}

var nowFn = time.Now

// ComputeFeatures fills in the match and recency features of the predictor
// and returns the updated copy. The input predictor is not modified.
func ComputeFeatures[T models.CreativeAdVariant](p models.AdPredictor[T], signals Signals) models.AdPredictor[T] {
	creative := p.CreativeAd.Creative()

	p.DoesMatchIntentChildSegments = segmentsIntersect(p.Segments, signals.IntentSegments)
	p.DoesMatchInterestChildSegments = segmentsIntersect(p.Segments, signals.InterestSegments)

	// A parent match fires only when the ad itself targets a parent-level
	// segment; an ad on a sibling child segment does not qualify.
	parentInterestSegments := segments.GetParentSegments(signals.InterestSegments)
	p.DoesMatchIntentParentSegments = segmentsIntersect(p.Segments, parentInterestSegments)
	p.DoesMatchInterestParentSegments = segmentsIntersect(p.Segments, parentInterestSegments)

	now := nowFn()
	p.AdLastSeenHoursAgo = hoursSince(models.LastSeenAdTime(signals.AdEvents, creative), now)
	p.AdvertiserLastSeenHoursAgo = hoursSince(models.LastSeenAdvertiserTime(signals.AdEvents, creative), now)

	return p
}

func segmentsIntersect(a, b models.SegmentList) bool {
	return len(segments.SetIntersection(a, b)) > 0
}

// hoursSince returns the whole hours since t, or 0 when t is unset or in
// the future. Scoring decides how much recency weight the value carries.
func hoursSince(t, now time.Time) int {
	if t.IsZero() {
		return 0
	}
	delta := now.Sub(t)
	if delta < 0 {
		return 0
	}
	return int(delta / time.Hour)
}

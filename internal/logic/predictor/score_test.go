package predictor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/adselect/internal/models"
)

func TestComputeScoreChildPrecedence(t *testing.T) {
	weights := Weights{IntentSegmentChild: 4, IntentSegmentParent: 2}

	p := adPredictor("travel")
	p.DoesMatchIntentChildSegments = true
	p.DoesMatchIntentParentSegments = true
	assert.InDelta(t, 4.0, ComputeScore(p, weights), 1e-9,
		"a child match must not also collect the parent term")

	p.DoesMatchIntentChildSegments = false
	assert.InDelta(t, 2.0, ComputeScore(p, weights), 1e-9)
}

func TestComputeScoreRecencyTerms(t *testing.T) {
	weights := Weights{AdLastSeen: 1, AdvertiserLastSeen: 1}

	p := adPredictor("travel")
	p.AdLastSeenHoursAgo = 12
	p.AdvertiserLastSeenHoursAgo = 6
	assert.InDelta(t, 12.0/24+6.0/24, ComputeScore(p, weights), 1e-9)

	p.AdLastSeenHoursAgo = 24
	p.AdvertiserLastSeenHoursAgo = 25
	assert.InDelta(t, 1.0, ComputeScore(p, weights), 1e-9,
		"exactly a day still counts, anything older collects nothing")

	p.AdLastSeenHoursAgo = 0
	p.AdvertiserLastSeenHoursAgo = 0
	assert.Zero(t, ComputeScore(p, weights), "never-seen ads collect no recency terms")
}

func TestComputeScorePriorityTerm(t *testing.T) {
	weights := Weights{Priority: 1}

	p := adPredictor("travel")
	p.CreativeAd.Priority = 4
	assert.InDelta(t, 0.25, ComputeScore(p, weights), 1e-9)

	p.CreativeAd.Priority = 0
	assert.Zero(t, ComputeScore(p, weights), "unprioritized ads collect no priority term")
}

func TestComputeScorePtrScalesEverything(t *testing.T) {
	weights := DefaultWeights()

	p := adPredictor("travel")
	p.DoesMatchIntentChildSegments = true
	p.DoesMatchInterestChildSegments = true

	p.CreativeAd.Ptr = 0.5
	assert.InDelta(t, 1.0, ComputeScore(p, weights), 1e-9)

	p.CreativeAd.Ptr = 0
	assert.Zero(t, ComputeScore(p, weights), "a zero pass-through rate zeroes the score")
}

func TestComputeFeaturesAndScoresDoesNotMutateInput(t *testing.T) {
	pinNow(t)

	in := models.AdPredictorMap[models.CreativeNotificationAd]{
		"ad-1": adPredictor("travel-hotels"),
	}
	out := ComputeFeaturesAndScores(in, Signals{
		InterestSegments: models.SegmentList{"travel-hotels"},
	}, DefaultWeights())

	assert.Zero(t, in["ad-1"].Score)
	assert.False(t, in["ad-1"].DoesMatchInterestChildSegments)
	assert.Greater(t, out["ad-1"].Score, 0.0)
}

// Two ads targeting sibling children of the same parent: the exact child
// match must outscore the parent-level match under default weights.
func TestScoringPrefersExactChildMatch(t *testing.T) {
	pinNow(t)

	exact := adPredictor("technology & computing-software")
	exact.CreativeAd.CreativeInstanceID = "ad-exact"
	sibling := adPredictor("technology & computing-windows")
	sibling.CreativeAd.CreativeInstanceID = "ad-sibling"

	signals := Signals{InterestSegments: models.SegmentList{"technology & computing-software"}}
	in := models.AdPredictorMap[models.CreativeNotificationAd]{
		"ad-exact":   exact,
		"ad-sibling": sibling,
	}
	out := ComputeFeaturesAndScores(in, signals, DefaultWeights())
	assert.Greater(t, out["ad-exact"].Score, out["ad-sibling"].Score)
	assert.Zero(t, out["ad-sibling"].Score,
		"a sibling child neither child- nor parent-matches, so it collects no segment terms")
}

func TestGroupEligibleAdsByCreativeInstanceID(t *testing.T) {
	ads := []models.CreativeNotificationAd{
		{CreativeAd: models.CreativeAd{CreativeInstanceID: "ad-1", Segment: "travel"}},
		{CreativeAd: models.CreativeAd{CreativeInstanceID: "ad-1", Segment: "travel-hotels"}},
		{CreativeAd: models.CreativeAd{CreativeInstanceID: "ad-2", Segment: "sports"}},
	}
	grouped := GroupEligibleAdsByCreativeInstanceID(ads)

	require.Len(t, grouped, 2)
	assert.Equal(t, models.SegmentList{"travel", "travel-hotels"}, grouped["ad-1"].Segments)
	assert.Equal(t, models.SegmentList{"sports"}, grouped["ad-2"].Segments)
}

func TestRecencyRaisesScore(t *testing.T) {
	pinNow(t)

	fresh := adPredictor("travel")
	fresh.CreativeAd.CreativeInstanceID = "ad-fresh"
	seen := adPredictor("travel")
	seen.CreativeAd.CreativeInstanceID = "ad-seen"
	seen.CreativeAd.AdvertiserID = "adv-seen"

	signals := Signals{AdEvents: models.AdEventList{
		{CreativeInstanceID: "ad-seen", AdvertiserID: "adv-seen",
			EventType: models.EventTypeViewed, Timestamp: featureNow.Add(-20 * time.Hour)},
	}}
	in := models.AdPredictorMap[models.CreativeNotificationAd]{
		"ad-fresh": fresh,
		"ad-seen":  seen,
	}
	out := ComputeFeaturesAndScores(in, signals, DefaultWeights())
	assert.Greater(t, out["ad-seen"].Score, out["ad-fresh"].Score,
		"hours-ago grows toward the end of the day, favoring ads not seen recently")
}

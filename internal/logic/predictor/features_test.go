package predictor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/patrickwarner/adselect/internal/models"
)

var featureNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func pinNow(t *testing.T) {
	t.Helper()
	nowFn = func() time.Time { return featureNow }
	t.Cleanup(func() { nowFn = time.Now })
}

func adPredictor(segments ...string) models.AdPredictor[models.CreativeNotificationAd] {
	return models.AdPredictor[models.CreativeNotificationAd]{
		CreativeAd: models.CreativeNotificationAd{
			CreativeAd: models.CreativeAd{
				CreativeInstanceID: "ad-1",
				AdvertiserID:       "adv-1",
				Ptr:                1.0,
			},
		},
		Segments: segments,
	}
}

func TestComputeFeaturesChildMatches(t *testing.T) {
	pinNow(t)

	p := ComputeFeatures(adPredictor("technology & computing-software"), Signals{
		IntentSegments:   models.SegmentList{"technology & computing-software"},
		InterestSegments: models.SegmentList{"technology & computing-software"},
	})
	assert.True(t, p.DoesMatchIntentChildSegments)
	assert.True(t, p.DoesMatchInterestChildSegments)
}

func TestComputeFeaturesParentMatches(t *testing.T) {
	pinNow(t)

	// The ad targets the parent level itself, so the parent flags fire.
	p := ComputeFeatures(adPredictor("technology & computing"), Signals{
		InterestSegments: models.SegmentList{"technology & computing-software"},
	})
	assert.False(t, p.DoesMatchInterestChildSegments)
	assert.True(t, p.DoesMatchInterestParentSegments)
	assert.True(t, p.DoesMatchIntentParentSegments,
		"both parent flags derive from the interest parent intersection")
}

func TestComputeFeaturesSiblingChildDoesNotParentMatch(t *testing.T) {
	pinNow(t)

	// An ad on a sibling child shares a parent with the interest segment
	// but does not target it, so neither flag fires.
	p := ComputeFeatures(adPredictor("technology & computing-windows"), Signals{
		InterestSegments: models.SegmentList{"technology & computing-software"},
	})
	assert.False(t, p.DoesMatchInterestChildSegments)
	assert.False(t, p.DoesMatchInterestParentSegments)
	assert.False(t, p.DoesMatchIntentParentSegments)
}

func TestComputeFeaturesNoMatch(t *testing.T) {
	pinNow(t)

	p := ComputeFeatures(adPredictor("travel"), Signals{
		IntentSegments:   models.SegmentList{"food & drink"},
		InterestSegments: models.SegmentList{"sports"},
	})
	assert.False(t, p.DoesMatchIntentChildSegments)
	assert.False(t, p.DoesMatchIntentParentSegments)
	assert.False(t, p.DoesMatchInterestChildSegments)
	assert.False(t, p.DoesMatchInterestParentSegments)
}

func TestComputeFeaturesRecency(t *testing.T) {
	pinNow(t)

	events := models.AdEventList{
		{CreativeInstanceID: "ad-1", AdvertiserID: "adv-1",
			EventType: models.EventTypeViewed, Timestamp: featureNow.Add(-6 * time.Hour)},
		{CreativeInstanceID: "ad-other", AdvertiserID: "adv-1",
			EventType: models.EventTypeViewed, Timestamp: featureNow.Add(-2 * time.Hour)},
	}
	p := ComputeFeatures(adPredictor("travel"), Signals{AdEvents: events})
	assert.Equal(t, 6, p.AdLastSeenHoursAgo)
	assert.Equal(t, 2, p.AdvertiserLastSeenHoursAgo, "advertiser recency spans all its creatives")
}

func TestComputeFeaturesRecencyKeepsRawHours(t *testing.T) {
	pinNow(t)

	events := models.AdEventList{
		// Over a day old: the feature stays raw, scoring drops it.
		{CreativeInstanceID: "ad-1", AdvertiserID: "adv-1",
			EventType: models.EventTypeViewed, Timestamp: featureNow.Add(-30 * time.Hour)},
		// Served events don't count as exposures.
		{CreativeInstanceID: "ad-1", AdvertiserID: "adv-1",
			EventType: models.EventTypeServed, Timestamp: featureNow.Add(-time.Hour)},
	}
	p := ComputeFeatures(adPredictor("travel"), Signals{AdEvents: events})
	assert.Equal(t, 30, p.AdLastSeenHoursAgo)
	assert.Equal(t, 30, p.AdvertiserLastSeenHoursAgo)
}

func TestHoursSince(t *testing.T) {
	assert.Zero(t, hoursSince(time.Time{}, featureNow))
	assert.Zero(t, hoursSince(featureNow.Add(time.Hour), featureNow), "future exposures are ignored")
	assert.Equal(t, 0, hoursSince(featureNow.Add(-30*time.Minute), featureNow))
	assert.Equal(t, 23, hoursSince(featureNow.Add(-23*time.Hour-30*time.Minute), featureNow))
	assert.Equal(t, 25, hoursSince(featureNow.Add(-25*time.Hour), featureNow))
}

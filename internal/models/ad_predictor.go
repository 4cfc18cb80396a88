package models

// AdPredictor wraps a candidate creative with the features and score used
// for ranking. Instances are built fresh per selection call and discarded
// after sampling.
type AdPredictor[T CreativeAdVariant] struct {
	CreativeAd T
	// Segments the ad targets, resolved when candidates are grouped.
	Segments SegmentList

	DoesMatchIntentChildSegments    bool
	DoesMatchIntentParentSegments   bool
	DoesMatchInterestChildSegments  bool
	DoesMatchInterestParentSegments bool

	// Hours since the ad / advertiser was last seen, 0 if never.
	AdLastSeenHoursAgo         int
	AdvertiserLastSeenHoursAgo int

	Score float64
}

// AdPredictorMap keys predictors by creative instance id.
type AdPredictorMap[T CreativeAdVariant] map[string]AdPredictor[T]

package models

import "time"

// Ad event confirmation types recorded against the event store.
const (
	EventTypeServed    = "served"
	EventTypeViewed    = "viewed"
	EventTypeClicked   = "clicked"
	EventTypeDismissed = "dismissed"
)

// AdEvent is an immutable record of an ad being served, viewed or clicked.
// Events are append-only; retention is the event store's concern.
type AdEvent struct {
	ID                 string    `json:"id"`
	AdType             string    `json:"ad_type"`
	CreativeInstanceID string    `json:"creative_instance_id"`
	CreativeSetID      string    `json:"creative_set_id"`
	CampaignID         string    `json:"campaign_id"`
	AdvertiserID       string    `json:"advertiser_id"`
	EventType          string    `json:"event_type"`
	Timestamp          time.Time `json:"timestamp"`
}

// AdEventList is an ordered list of ad events.
type AdEventList []AdEvent

// LastSeenAdTime returns the timestamp of the most recent viewed event for
// the given creative instance, or the zero time if it was never seen.
func LastSeenAdTime(events AdEventList, ad CreativeAd) time.Time {
	var last time.Time
	for _, ev := range events {
		if ev.EventType != EventTypeViewed {
			continue
		}
		if ev.CreativeInstanceID != ad.CreativeInstanceID {
			continue
		}
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
	}
	return last
}

// LastSeenAdvertiserTime returns the timestamp of the most recent viewed
// event for the ad's advertiser, or the zero time if never seen.
func LastSeenAdvertiserTime(events AdEventList, ad CreativeAd) time.Time {
	var last time.Time
	for _, ev := range events {
		if ev.EventType != EventTypeViewed {
			continue
		}
		if ev.AdvertiserID != ad.AdvertiserID {
			continue
		}
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
	}
	return last
}

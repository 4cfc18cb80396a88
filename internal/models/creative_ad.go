package models

import (
	"time"
)

// Ad types understood by the engine. Each ad type runs its own eligibility
// instance with its own seen-ads rotation memory.
const (
	AdTypeNotification  = "ad_notification"
	AdTypeInlineContent = "inline_content_ad"
)

// Daypart restricts delivery to parts of the day. Dow lists the weekday
// digits the window applies to ("0123456", Sunday = 0); an empty Dow means
// every day. Minutes are measured from midnight local time.
type Daypart struct {
	Dow         string `json:"dow"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

// Matches reports whether the daypart covers the given time.
func (d Daypart) Matches(t time.Time) bool {
	if d.Dow != "" {
		dow := byte('0' + int(t.Weekday()))
		found := false
		for i := 0; i < len(d.Dow); i++ {
			if d.Dow[i] == dow {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= d.StartMinute && minute <= d.EndMinute
}

// CreativeAd is a catalog entry describing one deliverable creative. It
// carries the targeting segment, delivery caps and the pass-through weight
// used by the predictor. Entities are owned by the external catalog feed and
// expire at EndAt.
type CreativeAd struct {
	CreativeInstanceID string    `json:"creative_instance_id"`
	CreativeSetID      string    `json:"creative_set_id"`
	CampaignID         string    `json:"campaign_id"`
	AdvertiserID       string    `json:"advertiser_id"`
	Segment            string    `json:"segment"`
	// Priority orders candidates before scoring: lower values are considered
	// first, 0 means unprioritized.
	Priority int `json:"priority"`
	// Ptr is the predicted transaction ratio, a non-negative multiplicative
	// weight applied to the final predictor score.
	Ptr float64 `json:"ptr"`
	// Delivery caps per creative set measured against the ad-event history.
	PerDay   int `json:"per_day"`
	PerWeek  int `json:"per_week"`
	PerMonth int `json:"per_month"`
	// TotalMax caps the campaign over its lifetime, DailyCap per day.
	TotalMax int `json:"total_max"`
	DailyCap int `json:"daily_cap"`
	// Active flight window.
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	// GeoTargets holds country ("US") or country-subdivision ("US-CA")
	// codes. Empty means all regions.
	GeoTargets []string  `json:"geo_targets"`
	Dayparts   []Daypart `json:"dayparts"`
	TargetURL  string    `json:"target_url"`
}

// IsEmpty reports whether the ad is the zero value. Used to represent "no
// last served ad" without an extra sentinel.
func (c CreativeAd) IsEmpty() bool {
	return c.CreativeInstanceID == ""
}

// CreativeAdList is an ordered list of base creative ads.
type CreativeAdList []CreativeAd

// CreativeNotificationAd is a push-notification style creative.
type CreativeNotificationAd struct {
	CreativeAd
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Creative returns the embedded base ad.
func (a CreativeNotificationAd) Creative() CreativeAd { return a.CreativeAd }

// CreativeInlineContentAd is an in-feed creative with fixed dimensions such
// as "900x750".
type CreativeInlineContentAd struct {
	CreativeAd
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Dimensions  string `json:"dimensions"`
	CTAText     string `json:"cta_text"`
}

// Creative returns the embedded base ad.
func (a CreativeInlineContentAd) Creative() CreativeAd { return a.CreativeAd }

// CreativeAdVariant constrains the generic eligibility pipeline to the
// supported creative kinds.
type CreativeAdVariant interface {
	Creative() CreativeAd
}

// Package exclusion holds the eligibility predicates applied during
// frequency capping. Each rule independently answers "should this candidate
// be excluded?" for one creative ad; the rule set combines them with a
// short-circuiting OR, so evaluation order only affects performance.
package exclusion

import (
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/geo"
	"github.com/patrickwarner/adselect/internal/models"
)

// nowFn is used to get the current time. Tests replace it to pin cap
// windows and dayparts.
var nowFn = time.Now

// Rule is a single eligibility predicate. The returned reason is logged
// when the rule excludes an ad.
type Rule interface {
	ShouldExclude(ad models.CreativeAd) (bool, string)
}

// activeWindowRule excludes ads outside their [StartAt, EndAt] flight.
type activeWindowRule struct{}

func (activeWindowRule) ShouldExclude(ad models.CreativeAd) (bool, string) {
	now := nowFn()
	if !ad.StartAt.IsZero() && now.Before(ad.StartAt) {
		return true, "not_started"
	}
	if !ad.EndAt.IsZero() && now.After(ad.EndAt) {
		return true, "expired"
	}
	return false, ""
}

// daypartRule excludes ads outside their configured day-part windows. Ads
// without dayparts serve at any time.
type daypartRule struct{}

func (daypartRule) ShouldExclude(ad models.CreativeAd) (bool, string) {
	if len(ad.Dayparts) == 0 {
		return false, ""
	}
	now := nowFn()
	for _, dp := range ad.Dayparts {
		if dp.Matches(now) {
			return false, ""
		}
	}
	return true, "outside_daypart"
}

// subdivisionRule excludes ads whose geo targets do not include the
// resolved subdivision. An ad with no geo targets serves in all regions; a
// target naming only the country matches every subdivision of it.
type subdivisionRule struct {
	subdivision string
}

func (r subdivisionRule) ShouldExclude(ad models.CreativeAd) (bool, string) {
	if len(ad.GeoTargets) == 0 {
		return false, ""
	}
	country := geo.CountryOf(r.subdivision)
	for _, target := range ad.GeoTargets {
		if target == r.subdivision || target == country {
			return false, ""
		}
	}
	return true, "subdivision_mismatch"
}

// antiTargetingRule excludes advertisers listed against sites the user has
// recently visited.
type antiTargetingRule struct {
	resource AntiTargetingResource
	visited  []string
}

// AntiTargetingResource is the slice of the resources package the rule
// needs.
type AntiTargetingResource interface {
	HasVisitedSite(advertiserID string, visited []string) bool
}

func (r antiTargetingRule) ShouldExclude(ad models.CreativeAd) (bool, string) {
	if r.resource == nil || len(r.visited) == 0 {
		return false, ""
	}
	if r.resource.HasVisitedSite(ad.AdvertiserID, r.visited) {
		return true, "anti_targeted"
	}
	return false, ""
}

// capRule is the generic frequency cap: it excludes an ad once the count of
// matching served events within the rolling window meets the configured
// cap. A zero window means lifetime; a cap func returning 0 disables the
// rule for that ad.
type capRule struct {
	name   string
	window time.Duration
	cap    func(ad models.CreativeAd) int
	match  func(ad models.CreativeAd, ev models.AdEvent) bool
	events models.AdEventList
}

func (r capRule) ShouldExclude(ad models.CreativeAd) (bool, string) {
	cap := r.cap(ad)
	if cap <= 0 {
		return false, ""
	}
	var cutoff time.Time
	if r.window > 0 {
		cutoff = nowFn().Add(-r.window)
	}
	count := 0
	for _, ev := range r.events {
		if ev.EventType != models.EventTypeServed {
			continue
		}
		if !r.match(ad, ev) {
			continue
		}
		if r.window > 0 && ev.Timestamp.Before(cutoff) {
			continue
		}
		count++
		if count >= cap {
			return true, r.name
		}
	}
	return false, ""
}

func matchCreativeSet(ad models.CreativeAd, ev models.AdEvent) bool {
	return ev.CreativeSetID == ad.CreativeSetID
}

func matchCampaign(ad models.CreativeAd, ev models.AdEvent) bool {
	return ev.CampaignID == ad.CampaignID
}

func matchAdvertiser(ad models.CreativeAd, ev models.AdEvent) bool {
	return ev.AdvertiserID == ad.AdvertiserID
}

// RuleSet evaluates the full ordered rule collection for one selection
// pass. Build a fresh set per pass so the rules close over that pass's ad
// events and browsing history.
type RuleSet struct {
	rules []Rule
}

// Params carries the per-pass inputs the rules close over.
type Params struct {
	// SubdivisionCode is the resolved "US-CA" style region code, empty
	// when geo resolution is unavailable.
	SubdivisionCode string
	AntiTargeting   AntiTargetingResource
	AdEvents        models.AdEventList
	BrowsingHistory models.BrowsingHistoryList
	// AdvertiserPerDay is the global daily cap on serves per advertiser;
	// 0 disables it.
	AdvertiserPerDay int
}

// NewRuleSet builds the ordered rule collection. Cheap structural rules
// run before the event-scanning cap rules.
func NewRuleSet(p Params) *RuleSet {
	visited := make([]string, 0, len(p.BrowsingHistory))
	for _, e := range p.BrowsingHistory {
		visited = append(visited, e.URL)
	}

	const day = 24 * time.Hour
	advertiserPerDay := p.AdvertiserPerDay
	rules := []Rule{
		activeWindowRule{},
		daypartRule{},
		subdivisionRule{subdivision: p.SubdivisionCode},
		antiTargetingRule{resource: p.AntiTargeting, visited: visited},
		capRule{name: "per_day_cap", window: day,
			cap:   func(ad models.CreativeAd) int { return ad.PerDay },
			match: matchCreativeSet, events: p.AdEvents},
		capRule{name: "per_week_cap", window: 7 * day,
			cap:   func(ad models.CreativeAd) int { return ad.PerWeek },
			match: matchCreativeSet, events: p.AdEvents},
		capRule{name: "per_month_cap", window: 30 * day,
			cap:   func(ad models.CreativeAd) int { return ad.PerMonth },
			match: matchCreativeSet, events: p.AdEvents},
		capRule{name: "daily_cap", window: day,
			cap:   func(ad models.CreativeAd) int { return ad.DailyCap },
			match: matchCampaign, events: p.AdEvents},
		capRule{name: "total_max_cap", window: 0,
			cap:   func(ad models.CreativeAd) int { return ad.TotalMax },
			match: matchCampaign, events: p.AdEvents},
		capRule{name: "advertiser_per_day_cap", window: day,
			cap:   func(models.CreativeAd) int { return advertiserPerDay },
			match: matchAdvertiser, events: p.AdEvents},
	}
	return &RuleSet{rules: rules}
}

// ShouldExcludeAd reports whether any rule excludes the ad, stopping at the
// first exclusion.
func (s *RuleSet) ShouldExcludeAd(ad models.CreativeAd) bool {
	for _, rule := range s.rules {
		if excluded, reason := rule.ShouldExclude(ad); excluded {
			zap.L().Debug("ad excluded",
				zap.String("creative_instance_id", ad.CreativeInstanceID),
				zap.String("reason", reason))
			return true
		}
	}
	return false
}

// ExclusionReason returns the first matching exclusion reason, or an empty
// string when the ad is eligible. Used by the dry-run tooling.
func (s *RuleSet) ExclusionReason(ad models.CreativeAd) string {
	for _, rule := range s.rules {
		if excluded, reason := rule.ShouldExclude(ad); excluded {
			return reason
		}
	}
	return ""
}

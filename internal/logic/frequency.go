package logic

import (
	"github.com/patrickwarner/adselect/internal/logic/exclusion"
	"github.com/patrickwarner/adselect/internal/models"
)

// ShouldCapLastServedAd reports whether the last-served ad should be
// excluded from this pass. A single remaining candidate must still be
// selectable, so the check is skipped for one-element lists.
func ShouldCapLastServedAd[T models.CreativeAdVariant](ads []T) bool {
	return len(ads) != 1
}

// ApplyFrequencyCapping removes ads excluded by the rule set and the
// last-served ad by instance id. Pass an empty lastServed to skip the
// last-served check.
func ApplyFrequencyCapping[T models.CreativeAdVariant](ads []T, lastServed models.CreativeAd, rules *exclusion.RuleSet) []T {
	var out []T
	for _, ad := range ads {
		creative := ad.Creative()
		if !lastServed.IsEmpty() && creative.CreativeInstanceID == lastServed.CreativeInstanceID {
			continue
		}
		if rules.ShouldExcludeAd(creative) {
			continue
		}
		out = append(out, ad)
	}
	return out
}

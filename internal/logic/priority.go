package logic

import (
	"math/rand"

	"github.com/patrickwarner/adselect/internal/models"
)

// ShuffleFn shuffles ads in place before the highest-priority group is
// picked, so ties within a group don't favor catalog order. Replaced in
// tests for determinism.
var ShuffleFn = func(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// PrioritizeAds keeps only the highest-priority group of ads. Lower
// numbers serve first; ads with priority 0 are unprioritized and only
// serve when no prioritized ad survives.
func PrioritizeAds[T models.CreativeAdVariant](ads []T) []T {
	if len(ads) == 0 {
		return ads
	}

	shuffled := make([]T, len(ads))
	copy(shuffled, ads)
	ShuffleFn(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	groups := make(map[int][]T)
	best := 0
	for _, ad := range shuffled {
		p := ad.Creative().Priority
		groups[p] = append(groups[p], ad)
		if p > 0 && (best == 0 || p < best) {
			best = p
		}
	}

	if best == 0 {
		// Nothing prioritized, fall back to the unprioritized group.
		return groups[0]
	}
	return groups[best]
}

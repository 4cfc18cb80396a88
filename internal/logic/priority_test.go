package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patrickwarner/adselect/internal/models"
)

func priorityAd(instanceID string, priority int) models.CreativeNotificationAd {
	ad := notificationAd(instanceID, "set-"+instanceID, "adv-"+instanceID)
	ad.Priority = priority
	return ad
}

// noShuffle keeps input order so group membership assertions are stable.
func noShuffle(t *testing.T) {
	t.Helper()
	orig := ShuffleFn
	ShuffleFn = func(n int, swap func(i, j int)) {}
	t.Cleanup(func() { ShuffleFn = orig })
}

func ids(ads []models.CreativeNotificationAd) []string {
	out := make([]string, 0, len(ads))
	for _, ad := range ads {
		out = append(out, ad.CreativeInstanceID)
	}
	return out
}

func TestPrioritizeAdsKeepsLowestPriorityGroup(t *testing.T) {
	noShuffle(t)

	out := PrioritizeAds([]models.CreativeNotificationAd{
		priorityAd("ad-1", 3),
		priorityAd("ad-2", 1),
		priorityAd("ad-3", 1),
		priorityAd("ad-4", 2),
	})
	assert.ElementsMatch(t, []string{"ad-2", "ad-3"}, ids(out))
}

func TestPrioritizeAdsUnprioritizedOnlyWhenAlone(t *testing.T) {
	noShuffle(t)

	out := PrioritizeAds([]models.CreativeNotificationAd{
		priorityAd("ad-1", 0),
		priorityAd("ad-2", 5),
	})
	assert.Equal(t, []string{"ad-2"}, ids(out), "a prioritized ad beats an unprioritized one")

	out = PrioritizeAds([]models.CreativeNotificationAd{
		priorityAd("ad-1", 0),
		priorityAd("ad-2", 0),
	})
	assert.ElementsMatch(t, []string{"ad-1", "ad-2"}, ids(out))
}

func TestPrioritizeAdsEmpty(t *testing.T) {
	out := PrioritizeAds([]models.CreativeNotificationAd{})
	assert.Empty(t, out)
}

func TestPrioritizeAdsDoesNotMutateInput(t *testing.T) {
	// Reverse shuffle exercises the copy.
	orig := ShuffleFn
	ShuffleFn = func(n int, swap func(i, j int)) {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			swap(i, j)
		}
	}
	t.Cleanup(func() { ShuffleFn = orig })

	in := []models.CreativeNotificationAd{
		priorityAd("ad-1", 1),
		priorityAd("ad-2", 1),
	}
	_ = PrioritizeAds(in)
	assert.Equal(t, []string{"ad-1", "ad-2"}, ids(in))
}

// Package logic contains the eligibility pipeline stages applied between
// the catalog query and the predictor. Stages filter into fresh slices and
// never mutate their input.
package logic

import (
	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/observability"
)

// FilterSeenAdvertisersAndRoundRobinIfNeeded drops ads whose advertiser was
// already served in the current rotation. When that would drop every
// candidate the rotation memory is cleared and the full list passes, giving
// round-robin semantics across advertisers.
func FilterSeenAdvertisersAndRoundRobinIfNeeded[T models.CreativeAdVariant](store *db.RedisStore, ads []T, adType string) ([]T, error) {
	if store == nil || store.Client == nil {
		return nil, ErrNilRedisStore
	}
	if len(ads) == 0 {
		return ads, nil
	}

	seen, err := store.SeenAdvertisers(adType)
	if err != nil {
		zap.L().Error("redis seen advertisers", zap.Error(err))
		// Fail open — serve from the full list if Redis is down or slow
		return ads, nil
	}

	unseen := filterUnseen(ads, seen, func(ad models.CreativeAd) string { return ad.AdvertiserID })
	if len(unseen) == 0 {
		zap.L().Debug("all advertisers seen, resetting rotation", zap.String("ad_type", adType))
		if err := store.ResetSeenAdvertisers(adType); err != nil {
			zap.L().Error("redis reset seen advertisers", zap.Error(err))
		}
		observability.RotationResets.WithLabelValues(adType, "advertisers").Inc()
		return ads, nil
	}
	return unseen, nil
}

// FilterSeenAdsAndRoundRobinIfNeeded applies the same round-robin policy at
// the individual creative granularity.
func FilterSeenAdsAndRoundRobinIfNeeded[T models.CreativeAdVariant](store *db.RedisStore, ads []T, adType string) ([]T, error) {
	if store == nil || store.Client == nil {
		return nil, ErrNilRedisStore
	}
	if len(ads) == 0 {
		return ads, nil
	}

	seen, err := store.SeenAds(adType)
	if err != nil {
		zap.L().Error("redis seen ads", zap.Error(err))
		return ads, nil
	}

	unseen := filterUnseen(ads, seen, func(ad models.CreativeAd) string { return ad.CreativeInstanceID })
	if len(unseen) == 0 {
		zap.L().Debug("all ads seen, resetting rotation", zap.String("ad_type", adType))
		if err := store.ResetSeenAds(adType); err != nil {
			zap.L().Error("redis reset seen ads", zap.Error(err))
		}
		observability.RotationResets.WithLabelValues(adType, "ads").Inc()
		return ads, nil
	}
	return unseen, nil
}

func filterUnseen[T models.CreativeAdVariant](ads []T, seen map[string]struct{}, key func(models.CreativeAd) string) []T {
	var out []T
	for _, ad := range ads {
		if _, ok := seen[key(ad.Creative())]; ok {
			continue
		}
		out = append(out, ad)
	}
	return out
}

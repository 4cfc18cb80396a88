package logic

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/models"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *db.RedisStore) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	store := &db.RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
		Ctx:    context.Background(),
	}
	return s, store
}

func notificationAd(instanceID, setID, advertiserID string) models.CreativeNotificationAd {
	return models.CreativeNotificationAd{
		CreativeAd: models.CreativeAd{
			CreativeInstanceID: instanceID,
			CreativeSetID:      setID,
			CampaignID:         "campaign-" + advertiserID,
			AdvertiserID:       advertiserID,
			Segment:            "technology & computing",
		},
	}
}

func TestFilterSeenAdvertisersDropsSeen(t *testing.T) {
	_, store := setupTestRedis(t)

	ads := []models.CreativeNotificationAd{
		notificationAd("ad-1", "set-1", "adv-1"),
		notificationAd("ad-2", "set-2", "adv-2"),
	}
	require.NoError(t, store.MarkAdAsSeen(models.AdTypeNotification, "ad-1", "adv-1"))

	out, err := FilterSeenAdvertisersAndRoundRobinIfNeeded(store, ads, models.AdTypeNotification)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "adv-2", out[0].AdvertiserID)
}

func TestFilterSeenAdvertisersRoundRobinReset(t *testing.T) {
	_, store := setupTestRedis(t)

	ads := []models.CreativeNotificationAd{
		notificationAd("ad-1", "set-1", "adv-1"),
		notificationAd("ad-2", "set-2", "adv-2"),
	}
	require.NoError(t, store.MarkAdAsSeen(models.AdTypeNotification, "ad-1", "adv-1"))
	require.NoError(t, store.MarkAdAsSeen(models.AdTypeNotification, "ad-2", "adv-2"))

	out, err := FilterSeenAdvertisersAndRoundRobinIfNeeded(store, ads, models.AdTypeNotification)
	require.NoError(t, err)
	assert.Len(t, out, 2, "when every advertiser is seen the rotation resets and all pass")

	seen, err := store.SeenAdvertisers(models.AdTypeNotification)
	require.NoError(t, err)
	assert.Empty(t, seen, "rotation memory should be cleared after the reset")
}

func TestFilterSeenAdsDropsSeen(t *testing.T) {
	_, store := setupTestRedis(t)

	ads := []models.CreativeNotificationAd{
		notificationAd("ad-1", "set-1", "adv-1"),
		notificationAd("ad-2", "set-2", "adv-2"),
	}
	require.NoError(t, store.MarkAdAsSeen(models.AdTypeNotification, "ad-1", "adv-1"))

	out, err := FilterSeenAdsAndRoundRobinIfNeeded(store, ads, models.AdTypeNotification)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ad-2", out[0].CreativeInstanceID)
}

func TestFilterSeenAdsRoundRobinReset(t *testing.T) {
	_, store := setupTestRedis(t)

	ads := []models.CreativeNotificationAd{
		notificationAd("ad-1", "set-1", "adv-1"),
	}
	require.NoError(t, store.MarkAdAsSeen(models.AdTypeNotification, "ad-1", "adv-1"))

	out, err := FilterSeenAdsAndRoundRobinIfNeeded(store, ads, models.AdTypeNotification)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	seen, err := store.SeenAds(models.AdTypeNotification)
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestFilterSeenIsolatedPerAdType(t *testing.T) {
	_, store := setupTestRedis(t)

	require.NoError(t, store.MarkAdAsSeen(models.AdTypeNotification, "ad-1", "adv-1"))

	ads := []models.CreativeNotificationAd{notificationAd("ad-1", "set-1", "adv-1")}
	out, err := FilterSeenAdsAndRoundRobinIfNeeded(store, ads, models.AdTypeInlineContent)
	require.NoError(t, err)
	assert.Len(t, out, 1, "inline content rotation must not see notification state")
}

func TestFilterSeenNilStore(t *testing.T) {
	ads := []models.CreativeNotificationAd{notificationAd("ad-1", "set-1", "adv-1")}

	_, err := FilterSeenAdsAndRoundRobinIfNeeded(nil, ads, models.AdTypeNotification)
	assert.ErrorIs(t, err, ErrNilRedisStore)

	_, err = FilterSeenAdvertisersAndRoundRobinIfNeeded(nil, ads, models.AdTypeNotification)
	assert.ErrorIs(t, err, ErrNilRedisStore)
}

func TestFilterSeenEmptyInput(t *testing.T) {
	_, store := setupTestRedis(t)

	out, err := FilterSeenAdsAndRoundRobinIfNeeded(store, []models.CreativeNotificationAd{}, models.AdTypeNotification)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFilterSeenFailsOpenOnRedisError(t *testing.T) {
	ms, store := setupTestRedis(t)
	ms.SetError("redis down")

	ads := []models.CreativeNotificationAd{
		notificationAd("ad-1", "set-1", "adv-1"),
		notificationAd("ad-2", "set-2", "adv-2"),
	}
	out, err := FilterSeenAdsAndRoundRobinIfNeeded(store, ads, models.AdTypeNotification)
	require.NoError(t, err)
	assert.Len(t, out, 2, "a Redis read failure must not block serving")
}

package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/config"
	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/events"
	"github.com/patrickwarner/adselect/internal/history"
	"github.com/patrickwarner/adselect/internal/logic"
	"github.com/patrickwarner/adselect/internal/logic/predictor"
	"github.com/patrickwarner/adselect/internal/logic/selectors"
	"github.com/patrickwarner/adselect/internal/models"
)

func newOpsServer(t *testing.T, ads ...models.CreativeNotificationAd) *opsServer {
	t.Helper()
	catalog := models.NewCatalogStore()
	catalog.SetNotificationAds(ads)

	ms, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(ms.Close)
	store := &db.RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: ms.Addr()}),
		Ctx:    context.Background(),
	}

	cfg := config.Config{
		PredictorWeights:        predictor.DefaultWeights(),
		PacingMode:              logic.PacingASAP,
		BrowsingHistoryMaxCount: 100,
		BrowsingHistoryDaysAgo:  30,
	}
	notification := selectors.NewEligibleAds[models.CreativeNotificationAd](
		models.AdTypeNotification, selectors.NotificationCatalogStore{Catalog: catalog},
		store, events.NewMemory(), history.NewMemory(), cfg)
	inlineContent := selectors.NewEligibleAds[models.CreativeInlineContentAd](
		models.AdTypeInlineContent, selectors.InlineContentCatalogStore{Catalog: catalog},
		store, events.NewMemory(), history.NewMemory(), cfg)

	return &opsServer{
		catalog:       catalog,
		notification:  notification,
		inlineContent: inlineContent,
		logger:        zap.NewNop(),
	}
}

func testAd(id, segment string) models.CreativeNotificationAd {
	return models.CreativeNotificationAd{
		CreativeAd: models.CreativeAd{
			CreativeInstanceID: id,
			CreativeSetID:      "set-" + id,
			AdvertiserID:       "adv-" + id,
			Segment:            segment,
			Ptr:                1.0,
		},
	}
}

func TestCatalogStats(t *testing.T) {
	ops := newOpsServer(t, testAd("ad-1", "travel"), testAd("ad-2", "food & drink"))

	_, out, err := ops.CatalogStats(context.Background(), nil, CatalogStatsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NotificationAds)
	assert.Zero(t, out.InlineContentAds)
	assert.Equal(t, []string{"food & drink", "travel"}, out.Segments)
}

func TestDryRunSelection(t *testing.T) {
	ops := newOpsServer(t, testAd("ad-1", "travel"), testAd("ad-2", "food & drink"))

	_, out, err := ops.DryRunSelection(context.Background(), nil, DryRunSelectionInput{
		AdType:   models.AdTypeNotification,
		Segments: []string{"travel"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ad-1"}, out.EligibleCreativeInstanceIDs)
	require.NotEmpty(t, out.Trace.Steps)
	assert.Equal(t, "targeted", out.Trace.Steps[0].Stage)
}

func TestDryRunSelectionUnknownAdType(t *testing.T) {
	ops := newOpsServer(t)

	_, _, err := ops.DryRunSelection(context.Background(), nil, DryRunSelectionInput{
		AdType:   "banner",
		Segments: []string{"travel"},
	})
	assert.Error(t, err)
}

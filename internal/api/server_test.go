package api

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/config"
	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/events"
	"github.com/patrickwarner/adselect/internal/history"
	"github.com/patrickwarner/adselect/internal/logic"
	"github.com/patrickwarner/adselect/internal/logic/predictor"
	"github.com/patrickwarner/adselect/internal/logic/selectors"
	"github.com/patrickwarner/adselect/internal/macros"
	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/observability"
	"github.com/patrickwarner/adselect/internal/segments"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func setupTestRedis(t *testing.T) *db.RedisStore {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	return &db.RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
		Ctx:    context.Background(),
	}
}

func testConfig() config.Config {
	return config.Config{
		PredictorWeights:          predictor.DefaultWeights(),
		PacingMode:                logic.PacingASAP,
		BrowsingHistoryMaxCount:   100,
		BrowsingHistoryDaysAgo:    30,
		TextClassificationEnabled: true,
		PurchaseIntentEnabled:     true,
	}
}

type testServer struct {
	srv     *Server
	catalog *models.CatalogStore
	events  *events.Memory
	redis   *db.RedisStore
	metrics *observability.MockMetricsRegistry
}

// newTestServer wires a Server against the in-memory catalog and event
// stores. The Expander uses a private Prometheus registry so tests can
// build as many servers as they need.
func newTestServer(t *testing.T, cfg config.Config) testServer {
	t.Helper()

	catalog := models.NewCatalogStore()
	eventStore := events.NewMemory()
	metrics := observability.NewMockMetricsRegistry()
	store := setupTestRedis(t)

	notification := selectors.NewEligibleAds(models.AdTypeNotification,
		selectors.NotificationCatalogStore{Catalog: catalog},
		store, eventStore, history.NewMemory(), cfg)
	notification.SetMetrics(metrics)
	inlineContent := selectors.NewEligibleAds(models.AdTypeInlineContent,
		selectors.InlineContentCatalogStore{Catalog: catalog},
		store, eventStore, history.NewMemory(), cfg)
	inlineContent.SetMetrics(metrics)

	srv := &Server{
		Logger:        zap.NewNop(),
		Store:         store,
		Events:        eventStore,
		FilterList:    segments.NewStaticFilterList(cfg.FilteredSegments),
		Catalog:       catalog,
		Metrics:       metrics,
		Config:        cfg,
		Macros:        macros.NewExpanderForTesting(zap.NewNop(), false),
		Notification:  notification,
		InlineContent: inlineContent,
	}
	return testServer{srv: srv, catalog: catalog, events: eventStore, redis: store, metrics: metrics}
}

func notificationAd(id, segment string) models.CreativeNotificationAd {
	return models.CreativeNotificationAd{
		CreativeAd: models.CreativeAd{
			CreativeInstanceID: id,
			CreativeSetID:      "set-" + id,
			CampaignID:         "campaign-" + id,
			AdvertiserID:       "adv-" + id,
			Segment:            segment,
			TargetURL:          "https://example.com/landing",
			Ptr:                1.0,
		},
		Title: "Title " + id,
		Body:  "Body " + id,
	}
}

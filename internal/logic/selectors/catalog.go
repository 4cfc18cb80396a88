package selectors

import (
	"context"
	"time"

	"github.com/patrickwarner/adselect/internal/models"
)

// nowFn pins catalog liveness checks in tests.
var nowFn = time.Now

// NotificationCatalogStore adapts the in-memory catalog snapshot to the
// CreativeStore contract for notification ads. Used by the MCP dry-run
// tools and tests; the serving path reads Postgres directly.
type NotificationCatalogStore struct {
	Catalog *models.CatalogStore
}

func (s NotificationCatalogStore) GetForDimensions(_ context.Context, _ string) ([]models.CreativeNotificationAd, error) {
	return s.Catalog.AllNotificationAds(nowFn()), nil
}

func (s NotificationCatalogStore) GetForSegmentsAndDimensions(_ context.Context, segs models.SegmentList, _ string) ([]models.CreativeNotificationAd, error) {
	return s.Catalog.NotificationAdsForSegments(segs, nowFn()), nil
}

// InlineContentCatalogStore adapts the in-memory catalog snapshot to the
// CreativeStore contract for inline content ads.
type InlineContentCatalogStore struct {
	Catalog *models.CatalogStore
}

func (s InlineContentCatalogStore) GetForDimensions(_ context.Context, dimensions string) ([]models.CreativeInlineContentAd, error) {
	return s.Catalog.InlineContentAdsForDimensions(dimensions, nowFn()), nil
}

func (s InlineContentCatalogStore) GetForSegmentsAndDimensions(_ context.Context, segs models.SegmentList, dimensions string) ([]models.CreativeInlineContentAd, error) {
	return s.Catalog.InlineContentAdsForSegments(segs, dimensions, nowFn()), nil
}

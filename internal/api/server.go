package api

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/config"
	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/events"
	"github.com/patrickwarner/adselect/internal/geo"
	"github.com/patrickwarner/adselect/internal/logic/selectors"
	"github.com/patrickwarner/adselect/internal/macros"
	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/observability"
	"github.com/patrickwarner/adselect/internal/segments"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger      *zap.Logger
	Store       *db.RedisStore
	PG          *db.Postgres
	Events      events.Store
	Geo         *geo.SubdivisionTargeting
	FilterList  segments.FilterList
	Catalog     *models.CatalogStore
	DebugTrace  bool
	Metrics     observability.MetricsRegistry
	Config      config.Config
	Macros      *macros.Expander

	Notification  *selectors.EligibleAds[models.CreativeNotificationAd]
	InlineContent *selectors.EligibleAds[models.CreativeInlineContentAd]

	reloadMu sync.Mutex
}

// NewServer constructs a Server and its per-ad-type selection
// orchestrators.
func NewServer(logger *zap.Logger, store *db.RedisStore, pg *db.Postgres, eventStore events.Store,
	geoSvc *geo.SubdivisionTargeting, notification *selectors.EligibleAds[models.CreativeNotificationAd],
	inlineContent *selectors.EligibleAds[models.CreativeInlineContentAd],
	metrics observability.MetricsRegistry, cfg config.Config) *Server {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Server{
		Logger:        logger,
		Store:         store,
		PG:            pg,
		Events:        eventStore,
		Geo:           geoSvc,
		FilterList:    segments.NewStaticFilterList(cfg.FilteredSegments),
		Catalog:       models.NewCatalogStore(),
		DebugTrace:    cfg.DebugTrace,
		Metrics:       metrics,
		Config:        cfg,
		Macros:        macros.NewExpander(logger),
		Notification:  notification,
		InlineContent: inlineContent,
	}
}

// Reload refreshes the in-memory catalog snapshot from Postgres and
// updates the catalog gauges.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.PG == nil {
		return fmt.Errorf("postgres unavailable")
	}
	if err := s.PG.LoadCatalog(ctx, s.Catalog); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	notification, inlineContent := s.Catalog.Counts()
	s.Metrics.SetCatalogAds(models.AdTypeNotification, notification)
	s.Metrics.SetCatalogAds(models.AdTypeInlineContent, inlineContent)
	s.Logger.Info("catalog reloaded",
		zap.Int("notification_ads", notification),
		zap.Int("inline_content_ads", inlineContent))
	return nil
}

// Command mcp-server exposes the selection engine to MCP clients for
// operational inspection: catalog stats and dry-run selections with the
// full per-stage trace.
package main

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/config"
	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/events"
	"github.com/patrickwarner/adselect/internal/logic"
	"github.com/patrickwarner/adselect/internal/logic/selectors"
	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/observability"
)

type CatalogStatsInput struct{}

type CatalogStatsOutput struct {
	NotificationAds  int      `json:"notification_ads"`
	InlineContentAds int      `json:"inline_content_ads"`
	Segments         []string `json:"segments"`
}

type DryRunSelectionInput struct {
	AdType     string   `json:"ad_type"`
	Segments   []string `json:"segments"`
	Dimensions string   `json:"dimensions,omitempty"`
}

type DryRunSelectionOutput struct {
	EligibleCreativeInstanceIDs []string            `json:"eligible_creative_instance_ids"`
	Trace                       logic.SelectionTrace `json:"trace"`
}

// opsServer holds the selection dependencies behind the MCP tools.
type opsServer struct {
	catalog       *models.CatalogStore
	notification  *selectors.EligibleAds[models.CreativeNotificationAd]
	inlineContent *selectors.EligibleAds[models.CreativeInlineContentAd]
	logger        *zap.Logger
}

// CatalogStats implements the catalog_stats tool.
func (s *opsServer) CatalogStats(_ context.Context, _ *mcp.CallToolRequest, _ CatalogStatsInput) (*mcp.CallToolResult, CatalogStatsOutput, error) {
	notification, inlineContent := s.catalog.Counts()
	segs := s.catalog.Segments()
	sort.Strings(segs)
	return nil, CatalogStatsOutput{
		NotificationAds:  notification,
		InlineContentAds: inlineContent,
		Segments:         segs,
	}, nil
}

// DryRunSelection implements the dry_run_selection tool. It runs the full
// cascade against the loaded catalog and returns the per-stage trace, but
// records no serve event and leaves the last-served state untouched.
func (s *opsServer) DryRunSelection(ctx context.Context, _ *mcp.CallToolRequest, input DryRunSelectionInput) (*mcp.CallToolResult, DryRunSelectionOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var trace logic.SelectionTrace
	var ids []string
	switch input.AdType {
	case models.AdTypeInlineContent:
		ads, err := s.inlineContent.GetForSegmentsWithTrace(ctx, input.Segments, input.Dimensions, &trace)
		if err != nil {
			return nil, DryRunSelectionOutput{}, err
		}
		for _, ad := range ads {
			ids = append(ids, ad.CreativeInstanceID)
		}
	case models.AdTypeNotification, "":
		ads, err := s.notification.GetForSegmentsWithTrace(ctx, input.Segments, "", &trace)
		if err != nil {
			return nil, DryRunSelectionOutput{}, err
		}
		for _, ad := range ads {
			ids = append(ids, ad.CreativeInstanceID)
		}
	default:
		return nil, DryRunSelectionOutput{}, fmt.Errorf("unknown ad_type %q", input.AdType)
	}

	s.logger.Info("dry-run selection",
		zap.String("ad_type", input.AdType),
		zap.Strings("segments", input.Segments),
		zap.Int("eligible", len(ids)))
	return nil, DryRunSelectionOutput{EligibleCreativeInstanceIDs: ids, Trace: trace}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		return
	}

	logger, err := observability.InitLoggerWithService("adselect-mcp")
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		return
	}
	defer func() { _ = logger.Sync() }()

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pg.Close()
	logger.Info("Connected to PostgreSQL")

	store, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))

	// The event history enriches dry runs with real frequency capping.
	// Degrade to an empty in-memory history when ClickHouse is down.
	var eventStore events.Store
	if ch, err := events.InitClickHouse(cfg.ClickHouseDSN, cfg.CHMaxOpenConns); err != nil {
		logger.Warn("ClickHouse unavailable, dry runs see no event history", zap.Error(err))
		eventStore = events.NewMemory()
	} else {
		defer ch.Close()
		eventStore = ch
	}

	catalog := models.NewCatalogStore()
	if err := pg.LoadCatalog(context.Background(), catalog); err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	notificationCount, inlineContentCount := catalog.Counts()
	logger.Info("Catalog loaded",
		zap.Int("notification_ads", notificationCount),
		zap.Int("inline_content_ads", inlineContentCount))

	notification := selectors.NewEligibleAds[models.CreativeNotificationAd](
		models.AdTypeNotification, selectors.NotificationCatalogStore{Catalog: catalog},
		store, eventStore, nil, cfg)
	notification.SetLogger(logger)
	inlineContent := selectors.NewEligibleAds[models.CreativeInlineContentAd](
		models.AdTypeInlineContent, selectors.InlineContentCatalogStore{Catalog: catalog},
		store, eventStore, nil, cfg)
	inlineContent.SetLogger(logger)

	ops := &opsServer{
		catalog:       catalog,
		notification:  notification,
		inlineContent: inlineContent,
		logger:        logger,
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adselect",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "catalog_stats",
		Description: "Inspect the loaded creative catalog: ad counts per type and distinct targeting segments",
	}, ops.CatalogStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dry_run_selection",
		Description: "Run the eligibility cascade for the given segments and return the surviving candidates with a per-stage trace",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"ad_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{models.AdTypeNotification, models.AdTypeInlineContent},
					"description": "Ad type to select for (defaults to ad_notification)",
				},
				"segments": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "User segments, child level (e.g. \"technology & computing-software\")",
				},
				"dimensions": map[string]interface{}{
					"type":        "string",
					"description": "Slot dimensions for inline content ads (e.g. \"900x750\")",
				},
			},
			"required": []string{"segments"},
		},
	}, ops.DryRunSelection)

	var logBuffer bytes.Buffer
	loggingTransport := &mcp.LoggingTransport{
		Transport: &mcp.StdioTransport{},
		Writer:    &logBuffer,
	}

	logger.Info("MCP Server running via stdio")
	if err := server.Run(context.Background(), loggingTransport); err != nil {
		logger.Fatal("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}

// Command fake_data seeds the catalog database with synthetic creative ads
// and browsing history for local development and load testing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/config"
	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/observability"
)

var (
	advertisers  = flag.Int("advertisers", 10, "number of advertisers")
	setsPer      = flag.Int("sets", 3, "creative sets per advertiser")
	creativesPer = flag.Int("creatives", 2, "creatives per set")
	historyRows  = flag.Int("history", 200, "browsing history rows")
	seed         = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
)

var segmentsPool = []string{
	"technology & computing",
	"technology & computing-software",
	"technology & computing-hardware",
	"personal finance",
	"personal finance-banking",
	"travel",
	"travel-hotels",
	"food & drink",
	"untargeted",
}

var sitePool = []string{
	"https://news.example.com/",
	"https://shop.example.com/deals",
	"https://travel.example.org/hotels",
	"https://tech.example.net/reviews",
}

func main() {
	flag.Parse()

	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	r := rand.New(rand.NewSource(*seed))
	ctx := context.Background()

	inserted := 0
	for a := 0; a < *advertisers; a++ {
		advertiserID := uuid.NewString()
		for s := 0; s < *setsPer; s++ {
			campaignID := uuid.NewString()
			creativeSetID := uuid.NewString()
			segment := segmentsPool[r.Intn(len(segmentsPool))]
			for c := 0; c < *creativesPer; c++ {
				adType := models.AdTypeNotification
				dimensions := ""
				if r.Intn(3) == 0 {
					adType = models.AdTypeInlineContent
					dimensions = "900x750"
				}
				if err := insertCreativeAd(ctx, pg, r, adType, advertiserID, campaignID, creativeSetID, segment, dimensions); err != nil {
					logger.Fatal("insert creative ad", zap.Error(err))
				}
				inserted++
			}
		}
	}
	logger.Info("seeded creative ads", zap.Int("count", inserted))

	for i := 0; i < *historyRows; i++ {
		visitedAt := time.Now().Add(-time.Duration(r.Intn(30*24)) * time.Hour)
		url := sitePool[r.Intn(len(sitePool))]
		if _, err := pg.DB.ExecContext(ctx,
			`INSERT INTO site_history (url, visited_at) VALUES ($1, $2)`, url, visitedAt); err != nil {
			logger.Fatal("insert site history", zap.Error(err))
		}
	}
	logger.Info("seeded browsing history", zap.Int("count", *historyRows))
}

func insertCreativeAd(ctx context.Context, pg *db.Postgres, r *rand.Rand,
	adType, advertiserID, campaignID, creativeSetID, segment, dimensions string) error {
	dayparts, err := json.Marshal([]models.Daypart{})
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = pg.DB.ExecContext(ctx, `
		INSERT INTO creative_ads (
			creative_instance_id, creative_set_id, campaign_id, advertiser_id, ad_type,
			segment, priority, ptr, per_day, per_week, per_month, total_max, daily_cap,
			start_at, end_at, geo_targets, dayparts, target_url,
			title, body, description, image_url, dimensions, cta_text
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		uuid.NewString(), creativeSetID, campaignID, advertiserID, adType,
		segment, 1+r.Intn(3), 0.5+r.Float64()*0.5, 4, 20, 75, 100, 20,
		now.Add(-24*time.Hour), now.Add(30*24*time.Hour), pq.Array([]string{}), dayparts,
		"https://advertiser.example.com/",
		"Sample ad title", "Sample ad body", "Sample description",
		"https://cdn.example.com/creative.png", dimensions, "Learn more")
	return err
}

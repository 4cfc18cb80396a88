package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/models"
)

// Postgres wraps the catalog database connection. The creative_ads table is
// replaced by the catalog feed loader; the engine only reads it.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS creative_ads (
    creative_instance_id TEXT PRIMARY KEY,
    creative_set_id TEXT NOT NULL,
    campaign_id TEXT NOT NULL,
    advertiser_id TEXT NOT NULL,
    ad_type TEXT NOT NULL,
    segment TEXT NOT NULL,
    priority INT NOT NULL DEFAULT 0,
    ptr DOUBLE PRECISION NOT NULL DEFAULT 1.0,
    per_day INT NOT NULL DEFAULT 0,
    per_week INT NOT NULL DEFAULT 0,
    per_month INT NOT NULL DEFAULT 0,
    total_max INT NOT NULL DEFAULT 0,
    daily_cap INT NOT NULL DEFAULT 0,
    start_at TIMESTAMP NULL,
    end_at TIMESTAMP NULL,
    geo_targets TEXT[],
    dayparts JSONB,
    target_url TEXT,
    title TEXT,
    body TEXT,
    description TEXT,
    image_url TEXT,
    dimensions TEXT,
    cta_text TEXT
);

CREATE TABLE IF NOT EXISTS site_history (
    id SERIAL PRIMARY KEY,
    url TEXT NOT NULL,
    visited_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Performance indexes for ad serving
CREATE INDEX IF NOT EXISTS idx_creative_ads_type_segment ON creative_ads (ad_type, lower(segment));
CREATE INDEX IF NOT EXISTS idx_creative_ads_type_dimensions ON creative_ads (ad_type, dimensions);
CREATE INDEX IF NOT EXISTS idx_site_history_visited_at ON site_history (visited_at);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	zap.L().Info("Connected to Postgres")
	return &Postgres{DB: db}, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

const creativeAdColumns = `creative_instance_id, creative_set_id, campaign_id, advertiser_id, segment,
    priority, ptr, per_day, per_week, per_month, total_max, daily_cap,
    start_at, end_at, geo_targets, dayparts, target_url,
    COALESCE(title, ''), COALESCE(body, ''), COALESCE(description, ''),
    COALESCE(image_url, ''), COALESCE(dimensions, ''), COALESCE(cta_text, '')`

type creativeAdRow struct {
	base        models.CreativeAd
	title       string
	body        string
	description string
	imageURL    string
	dimensions  string
	ctaText     string
}

func scanCreativeAdRow(rows *sql.Rows) (creativeAdRow, error) {
	var r creativeAdRow
	var startAt, endAt sql.NullTime
	var dayparts []byte
	if err := rows.Scan(
		&r.base.CreativeInstanceID, &r.base.CreativeSetID, &r.base.CampaignID, &r.base.AdvertiserID, &r.base.Segment,
		&r.base.Priority, &r.base.Ptr, &r.base.PerDay, &r.base.PerWeek, &r.base.PerMonth, &r.base.TotalMax, &r.base.DailyCap,
		&startAt, &endAt, pq.Array(&r.base.GeoTargets), &dayparts, &r.base.TargetURL,
		&r.title, &r.body, &r.description, &r.imageURL, &r.dimensions, &r.ctaText,
	); err != nil {
		return r, fmt.Errorf("scan creative ad: %w", err)
	}
	if startAt.Valid {
		r.base.StartAt = startAt.Time
	}
	if endAt.Valid {
		r.base.EndAt = endAt.Time
	}
	if len(dayparts) > 0 {
		if err := json.Unmarshal(dayparts, &r.base.Dayparts); err != nil {
			zap.L().Warn("bad dayparts json", zap.Error(err),
				zap.String("creative_instance_id", r.base.CreativeInstanceID))
		}
	}
	return r, nil
}

func (p *Postgres) queryCreativeAds(ctx context.Context, adType string, segments models.SegmentList, dimensions string) ([]creativeAdRow, error) {
	query := `SELECT ` + creativeAdColumns + ` FROM creative_ads
        WHERE ad_type = $1
          AND (start_at IS NULL OR start_at <= NOW())
          AND (end_at IS NULL OR end_at >= NOW())`
	args := []interface{}{adType}
	if len(segments) > 0 {
		lowered := make([]string, len(segments))
		for i, s := range segments {
			lowered[i] = strings.ToLower(s)
		}
		args = append(args, pq.Array(lowered))
		query += fmt.Sprintf(" AND lower(segment) = ANY($%d)", len(args))
	}
	if dimensions != "" {
		args = append(args, dimensions)
		query += fmt.Sprintf(" AND dimensions = $%d", len(args))
	}

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query creative ads: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var out []creativeAdRow
	for rows.Next() {
		r, err := scanCreativeAdRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// NotificationAds is the Postgres-backed creative store for notification
// ads. Dimensions are accepted for interface symmetry and ignored.
type NotificationAds struct {
	PG *Postgres
}

// GetForDimensions returns every live notification ad.
func (s NotificationAds) GetForDimensions(ctx context.Context, _ string) ([]models.CreativeNotificationAd, error) {
	rows, err := s.PG.queryCreativeAds(ctx, models.AdTypeNotification, nil, "")
	if err != nil {
		return nil, err
	}
	return notificationAds(rows), nil
}

// GetForSegmentsAndDimensions returns live notification ads matching any of
// the segments.
func (s NotificationAds) GetForSegmentsAndDimensions(ctx context.Context, segments models.SegmentList, _ string) ([]models.CreativeNotificationAd, error) {
	rows, err := s.PG.queryCreativeAds(ctx, models.AdTypeNotification, segments, "")
	if err != nil {
		return nil, err
	}
	return notificationAds(rows), nil
}

// InlineContentAds is the Postgres-backed creative store for inline content
// ads, filtered by dimensions.
type InlineContentAds struct {
	PG *Postgres
}

// GetForDimensions returns live inline content ads for the dimensions.
func (s InlineContentAds) GetForDimensions(ctx context.Context, dimensions string) ([]models.CreativeInlineContentAd, error) {
	rows, err := s.PG.queryCreativeAds(ctx, models.AdTypeInlineContent, nil, dimensions)
	if err != nil {
		return nil, err
	}
	return inlineContentAds(rows), nil
}

// GetForSegmentsAndDimensions returns live inline content ads matching any
// of the segments and the dimensions.
func (s InlineContentAds) GetForSegmentsAndDimensions(ctx context.Context, segments models.SegmentList, dimensions string) ([]models.CreativeInlineContentAd, error) {
	rows, err := s.PG.queryCreativeAds(ctx, models.AdTypeInlineContent, segments, dimensions)
	if err != nil {
		return nil, err
	}
	return inlineContentAds(rows), nil
}

func notificationAds(rows []creativeAdRow) []models.CreativeNotificationAd {
	var out []models.CreativeNotificationAd
	for _, r := range rows {
		out = append(out, models.CreativeNotificationAd{
			CreativeAd: r.base,
			Title:      r.title,
			Body:       r.body,
		})
	}
	return out
}

func inlineContentAds(rows []creativeAdRow) []models.CreativeInlineContentAd {
	var out []models.CreativeInlineContentAd
	for _, r := range rows {
		out = append(out, models.CreativeInlineContentAd{
			CreativeAd:  r.base,
			Title:       r.title,
			Description: r.description,
			ImageURL:    r.imageURL,
			Dimensions:  r.dimensions,
			CTAText:     r.ctaText,
		})
	}
	return out
}

// LoadCatalog reads the full creative_ads table into an in-memory
// CatalogStore snapshot, mirroring the feed-reload path.
func (p *Postgres) LoadCatalog(ctx context.Context, store *models.CatalogStore) error {
	notifRows, err := p.queryCreativeAds(ctx, models.AdTypeNotification, nil, "")
	if err != nil {
		return err
	}
	inlineRows, err := p.queryCreativeAds(ctx, models.AdTypeInlineContent, nil, "")
	if err != nil {
		return err
	}
	store.ReloadAll(notificationAds(notifRows), inlineContentAds(inlineRows))
	zap.L().Info("Loaded creative catalog",
		zap.Int("notification_ads", len(notifRows)),
		zap.Int("inline_content_ads", len(inlineRows)))
	return nil
}

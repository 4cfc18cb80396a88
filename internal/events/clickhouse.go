package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"github.com/patrickwarner/adselect/internal/models"
)

// ClickHouse implements Store on a ClickHouse events table. Insert volume
// is high relative to reads, which fits ClickHouse's async insert path.
type ClickHouse struct {
	DB *sql.DB
}

// InitClickHouse connects to ClickHouse and ensures the ad_events table
// exists.
func InitClickHouse(dsn string, maxOpenConns int) (*ClickHouse, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS ad_events (
       id                   String,
       timestamp            DateTime,
       ad_type              String,
       event_type           String,
       creative_instance_id String,
       creative_set_id      String,
       campaign_id          String,
       advertiser_id        String
   ) ENGINE=MergeTree() ORDER BY (event_type, timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &ClickHouse{DB: db}, nil
}

// Record inserts a single event row. A missing id or timestamp is filled
// in before insert.
func (c *ClickHouse) Record(ctx context.Context, ev models.AdEvent) error {
	if c == nil || c.DB == nil {
		return ErrUnavailable
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	stmt := `INSERT INTO ad_events (id, timestamp, ad_type, event_type, creative_instance_id, creative_set_id, campaign_id, advertiser_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := c.DB.ExecContext(ctx, stmt, ev.ID, ev.Timestamp, ev.AdType, ev.EventType,
		ev.CreativeInstanceID, ev.CreativeSetID, ev.CampaignID, ev.AdvertiserID); err != nil {
		zap.L().Error("clickhouse insert failed", zap.Error(err), zap.String("event_type", ev.EventType))
		return fmt.Errorf("insert %s event: %w", ev.EventType, err)
	}
	return nil
}

// GetAll returns the retained event history ordered by timestamp.
func (c *ClickHouse) GetAll(ctx context.Context) (models.AdEventList, error) {
	if c == nil || c.DB == nil {
		return nil, ErrUnavailable
	}
	query := `SELECT id, timestamp, ad_type, event_type, creative_instance_id, creative_set_id, campaign_id, advertiser_id FROM ad_events ORDER BY timestamp`
	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ad events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var evs models.AdEventList
	for rows.Next() {
		var ev models.AdEvent
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.AdType, &ev.EventType,
			&ev.CreativeInstanceID, &ev.CreativeSetID, &ev.CampaignID, &ev.AdvertiserID); err != nil {
			return nil, fmt.Errorf("scan ad event: %w", err)
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return evs, nil
}

// Close terminates the ClickHouse connection.
func (c *ClickHouse) Close() {
	if c != nil && c.DB != nil {
		if err := c.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}

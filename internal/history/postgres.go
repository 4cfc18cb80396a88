package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/models"
)

// Postgres is a Provider reading from the site_history table owned by the
// host application. The engine only ever reads.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

// GetBrowsingHistory returns up to maxCount visits within the last daysAgo
// days, most recent first.
func (p *Postgres) GetBrowsingHistory(ctx context.Context, maxCount, daysAgo int) (models.BrowsingHistoryList, error) {
	if p == nil || p.DB == nil {
		return nil, nil
	}
	cutoff := time.Now().AddDate(0, 0, -daysAgo)
	rows, err := p.DB.QueryContext(ctx,
		`SELECT url, visited_at FROM site_history WHERE visited_at >= $1 ORDER BY visited_at DESC LIMIT $2`,
		cutoff, maxCount)
	if err != nil {
		return nil, fmt.Errorf("query site history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var out models.BrowsingHistoryList
	for rows.Next() {
		var e models.BrowsingHistoryEntry
		if err := rows.Scan(&e.URL, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan site history: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

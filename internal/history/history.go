// Package history exposes the read-only browsing history the
// anti-targeting rule matches against.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/patrickwarner/adselect/internal/models"
)

// Provider returns the most recent browsing history entries. maxCount
// bounds the result size and daysAgo the lookback window.
type Provider interface {
	GetBrowsingHistory(ctx context.Context, maxCount, daysAgo int) (models.BrowsingHistoryList, error)
}

// Memory is a Provider backed by an in-process list, used in tests and as
// the default when no history database is configured.
type Memory struct {
	mu      sync.RWMutex
	entries models.BrowsingHistoryList
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{}
}

// Add records a visit.
func (m *Memory) Add(url string, at time.Time) {
	m.mu.Lock()
	m.entries = append(m.entries, models.BrowsingHistoryEntry{URL: url, Timestamp: at})
	m.mu.Unlock()
}

// GetBrowsingHistory returns up to maxCount entries within the lookback
// window, most recent first.
func (m *Memory) GetBrowsingHistory(_ context.Context, maxCount, daysAgo int) (models.BrowsingHistoryList, error) {
	cutoff := time.Now().AddDate(0, 0, -daysAgo)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out models.BrowsingHistoryList
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, m.entries[i])
		if len(out) == maxCount {
			break
		}
	}
	return out, nil
}

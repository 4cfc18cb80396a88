// Package events persists and queries the append-only ad-event history the
// eligibility pipeline filters against.
package events

import (
	"context"
	"errors"

	"github.com/patrickwarner/adselect/internal/models"
)

// ErrUnavailable is returned when the event store backend is not
// configured or unreachable.
var ErrUnavailable = errors.New("ad-event store unavailable")

// Store is the ad-event history contract consumed by the selection engine.
type Store interface {
	// GetAll returns the full retained event history, oldest first.
	GetAll(ctx context.Context) (models.AdEventList, error)
	// Record appends a single immutable event.
	Record(ctx context.Context, ev models.AdEvent) error
}

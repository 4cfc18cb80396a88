package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patrickwarner/adselect/internal/models"
)

// Memory is an in-process Store used in tests and by the dry-run tooling.
type Memory struct {
	mu     sync.RWMutex
	events models.AdEventList
	// Fail forces GetAll to report a storage failure.
	Fail bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends the event.
func (m *Memory) Record(_ context.Context, ev models.AdEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

// GetAll returns a copy of the recorded events.
func (m *Memory) GetAll(_ context.Context) (models.AdEventList, error) {
	if m.Fail {
		return nil, ErrUnavailable
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(models.AdEventList, len(m.events))
	copy(out, m.events)
	return out, nil
}

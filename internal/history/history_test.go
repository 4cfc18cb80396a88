package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEmpty(t *testing.T) {
	m := NewMemory()
	got, err := m.GetBrowsingHistory(context.Background(), 10, 30)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryMostRecentFirst(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.Add("https://a.example", now.Add(-3*time.Hour))
	m.Add("https://b.example", now.Add(-2*time.Hour))
	m.Add("https://c.example", now.Add(-1*time.Hour))

	got, err := m.GetBrowsingHistory(context.Background(), 10, 30)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "https://c.example", got[0].URL)
	assert.Equal(t, "https://a.example", got[2].URL)
}

func TestMemoryMaxCount(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.Add("https://a.example", now.Add(-3*time.Hour))
	m.Add("https://b.example", now.Add(-2*time.Hour))
	m.Add("https://c.example", now.Add(-1*time.Hour))

	got, err := m.GetBrowsingHistory(context.Background(), 2, 30)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://c.example", got[0].URL)
	assert.Equal(t, "https://b.example", got[1].URL)
}

func TestMemoryLookbackWindow(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.Add("https://old.example", now.AddDate(0, 0, -40))
	m.Add("https://recent.example", now.Add(-time.Hour))

	got, err := m.GetBrowsingHistory(context.Background(), 10, 30)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://recent.example", got[0].URL)
}

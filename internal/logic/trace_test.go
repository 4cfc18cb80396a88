package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/adselect/internal/models"
)

func TestAddStepNilTraceIsNoOp(t *testing.T) {
	AddStep(nil, "pacing", []models.CreativeNotificationAd{notificationAd("ad-1", "set-1", "adv-1")})
}

func TestAddStepDeduplicatesCreativeSets(t *testing.T) {
	var tr SelectionTrace
	AddStep(&tr, "targeted", []models.CreativeNotificationAd{
		notificationAd("ad-1", "set-1", "adv-1"),
		notificationAd("ad-2", "set-1", "adv-1"),
		notificationAd("ad-3", "set-2", "adv-2"),
	})

	require.Len(t, tr.Steps, 1)
	step := tr.Steps[0]
	assert.Equal(t, "targeted", step.Stage)
	assert.Equal(t, []string{"ad-1", "ad-2", "ad-3"}, step.CreativeInstanceIDs)
	assert.Equal(t, []string{"set-1", "set-2"}, step.CreativeSetIDs)
}

func TestAddStepWithDetails(t *testing.T) {
	var tr SelectionTrace
	AddStepWithDetails(&tr, "targeted", []models.CreativeNotificationAd{
		notificationAd("ad-1", "set-1", "adv-1"),
	}, map[string]string{"segments": "travel"})
	AddStep(&tr, "seen_ads", []models.CreativeNotificationAd{})

	require.Len(t, tr.Steps, 2)
	assert.Equal(t, "travel", tr.Steps[0].Details["segments"])
	assert.Empty(t, tr.Steps[1].CreativeInstanceIDs)
}

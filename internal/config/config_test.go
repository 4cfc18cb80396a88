package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/adselect/internal/logic/predictor"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "even", cfg.PacingMode)
	assert.Equal(t, predictor.DefaultWeights(), cfg.PredictorWeights)
	assert.Equal(t, 5000, cfg.BrowsingHistoryMaxCount)
	assert.Equal(t, 30, cfg.BrowsingHistoryDaysAgo)
	assert.Equal(t, 48*time.Hour, cfg.EventTokenTTL)
	assert.Empty(t, cfg.EventTokenSecret)
	assert.True(t, cfg.TextClassificationEnabled)
	assert.True(t, cfg.PurchaseIntentEnabled)
	assert.False(t, cfg.EpsilonGreedyBanditEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("PACING_MODE", "probabilistic")
	t.Setenv("ADVERTISER_PER_DAY_CAP", "5")
	t.Setenv("EVENT_TOKEN_SECRET", "hush")
	t.Setenv("EVENT_TOKEN_TTL", "1h")
	t.Setenv("EPSILON_GREEDY_BANDIT_ENABLED", "true")
	t.Setenv("FILTERED_SEGMENTS", "gambling, adult , ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "probabilistic", cfg.PacingMode)
	assert.Equal(t, 5, cfg.AdvertiserPerDayCap)
	assert.Equal(t, "hush", cfg.EventTokenSecret)
	assert.Equal(t, time.Hour, cfg.EventTokenTTL)
	assert.True(t, cfg.EpsilonGreedyBanditEnabled)
	assert.Equal(t, []string{"gambling", "adult"}, cfg.FilteredSegments)
}

func TestLoadPredictorWeights(t *testing.T) {
	t.Setenv("PREDICTOR_WEIGHTS", "1, 0.5, 2, 0, 1, 1, 3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, predictor.Weights{
		IntentSegmentChild:    1,
		IntentSegmentParent:   0.5,
		InterestSegmentChild:  2,
		InterestSegmentParent: 0,
		AdLastSeen:            1,
		AdvertiserLastSeen:    1,
		Priority:              3,
	}, cfg.PredictorWeights)
}

func TestLoadPredictorWeightsMalformedIsHardError(t *testing.T) {
	cases := map[string]string{
		"non numeric": "1,2,bogus,4,5,6,7",
		"too short":   "1,2,3",
		"negative":    "1,2,-3,4,5,6,7",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("PREDICTOR_WEIGHTS", value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestEnvHelpersFallBackOnInvalid(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "not-a-duration")
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("TEXT_CLASSIFICATION_ENABLED", "sometimes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.True(t, cfg.TextClassificationEnabled)
}

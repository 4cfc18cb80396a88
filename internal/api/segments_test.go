package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/adselect/internal/models"
)

func TestSegmentsHandler(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.catalog.SetNotificationAds([]models.CreativeNotificationAd{
		notificationAd("ad-1", "travel"),
		notificationAd("ad-2", "food & drink"),
		notificationAd("ad-3", "travel"),
	})

	rec := httptest.NewRecorder()
	ts.srv.SegmentsHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/segments", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Segments         []string `json:"segments"`
		NotificationAds  int      `json:"notification_ads"`
		InlineContentAds int      `json:"inline_content_ads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"food & drink", "travel"}, resp.Segments)
	assert.Equal(t, 3, resp.NotificationAds)
	assert.Zero(t, resp.InlineContentAds)
}

func TestHealthHandler(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.catalog.SetNotificationAds([]models.CreativeNotificationAd{notificationAd("ad-1", "travel")})

	rec := httptest.NewRecorder()
	ts.srv.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status  string         `json:"status"`
		Catalog map[string]int `json:"catalog"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Catalog[models.AdTypeNotification])
	assert.Zero(t, resp.Catalog[models.AdTypeInlineContent])
}

func TestReloadHandlerWithoutPostgres(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	ts.srv.ReloadHandler(rec, httptest.NewRequest(http.MethodPost, "/v1/catalog/reload", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/middleware"
)

// SegmentsHandler handles GET /v1/segments, listing the distinct targeting
// segments in the loaded catalog.
func (s *Server) SegmentsHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "segments"
	const method = "GET"

	segs := s.Catalog.Segments()
	sort.Strings(segs)
	notification, inlineContent := s.Catalog.Counts()

	resp := struct {
		Segments           []string `json:"segments"`
		NotificationAds    int      `json:"notification_ads"`
		InlineContentAds   int      `json:"inline_content_ads"`
	}{segs, notification, inlineContent}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("encode segments", zap.Error(err))
	}
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

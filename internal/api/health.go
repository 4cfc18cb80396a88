package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/patrickwarner/adselect/internal/models"
)

// HealthHandler handles GET /health. The catalog counts double as a
// readiness signal: zero ads loaded means every request will 204.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "health"
	const method = "GET"

	notification, inlineContent := s.Catalog.Counts()
	resp := map[string]interface{}{
		"status": "ok",
		"catalog": map[string]int{
			models.AdTypeNotification:  notification,
			models.AdTypeInlineContent: inlineContent,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/middleware"
	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/token"
)

var validEventTypes = map[string]struct{}{
	models.EventTypeServed:    {},
	models.EventTypeViewed:    {},
	models.EventTypeClicked:   {},
	models.EventTypeDismissed: {},
}

// eventRequest is an ad event plus the serve token issued with the ad. When
// the server runs with a token secret, the signed identifiers replace the
// client-supplied ones.
type eventRequest struct {
	models.AdEvent
	ServeToken string `json:"serve_token,omitempty"`
}

// EventHandler handles POST /v1/events. Confirmed views feed the rotation
// memory so a viewed creative and its advertiser sit out until the round
// robin resets.
func (s *Server) EventHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "events"
	const method = "POST"

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("decode event", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	ev := req.AdEvent

	if secret := s.Config.EventTokenSecret; secret != "" {
		signed, err := token.Verify(req.ServeToken, []byte(secret), s.Config.EventTokenTTL)
		if err != nil {
			logger.Warn("serve token rejected", zap.Error(err),
				zap.String("event_type", ev.EventType))
			s.Metrics.IncrementRequests(endpoint, method, "401")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			http.Error(w, "invalid serve token", http.StatusUnauthorized)
			return
		}
		ev.AdType = signed.AdType
		ev.CreativeInstanceID = signed.CreativeInstanceID
		ev.CreativeSetID = signed.CreativeSetID
		ev.CampaignID = signed.CampaignID
		ev.AdvertiserID = signed.AdvertiserID
	}

	if _, ok := validEventTypes[ev.EventType]; !ok || ev.CreativeInstanceID == "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "event_type and creative_instance_id required", http.StatusBadRequest)
		return
	}

	if err := s.Events.Record(r.Context(), ev); err != nil {
		logger.Error("record event", zap.Error(err), zap.String("event_type", ev.EventType))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "event store error", http.StatusInternalServerError)
		return
	}
	s.Metrics.IncrementEvent(ev.EventType)

	if ev.EventType == models.EventTypeViewed && s.Store != nil {
		if err := s.Store.MarkAdAsSeen(ev.AdType, ev.CreativeInstanceID, ev.AdvertiserID); err != nil {
			// Rotation memory is advisory; the event itself is already
			// persisted.
			logger.Error("mark ad as seen", zap.Error(err),
				zap.String("creative_instance_id", ev.CreativeInstanceID))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"accepted"}`))
	s.Metrics.IncrementRequests(endpoint, method, "202")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

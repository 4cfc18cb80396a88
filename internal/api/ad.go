package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/avct/uasurfer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/logic"
	"github.com/patrickwarner/adselect/internal/logic/predictor"
	"github.com/patrickwarner/adselect/internal/logic/selectors"
	"github.com/patrickwarner/adselect/internal/macros"
	"github.com/patrickwarner/adselect/internal/middleware"
	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/observability"
	"github.com/patrickwarner/adselect/internal/segments"
	"github.com/patrickwarner/adselect/internal/token"
)

var tracer = otel.Tracer("adselect")

// adRequest carries the user's classifier output segments. The three lists
// are the raw per-model signals; the server reduces them to the served
// segment context before lookup.
type adRequest struct {
	TextClassificationSegments  []string `json:"text_classification_segments"`
	EpsilonGreedyBanditSegments []string `json:"epsilon_greedy_bandit_segments"`
	PurchaseIntentSegments      []string `json:"purchase_intent_segments"`
	// Dimensions selects the inline content slot size ("900x750"); ignored
	// for notification ads.
	Dimensions string `json:"dimensions,omitempty"`
}

// adResponse wraps the winning creative. TargetURL is the creative's landing
// URL with placement macros expanded; the embedded ad keeps the raw URL.
// Debug carries the per-stage trace when tracing is enabled.
type adResponse struct {
	AdType    string      `json:"ad_type"`
	Ad        interface{} `json:"ad"`
	TargetURL string      `json:"target_url,omitempty"`
	// ServeToken must be echoed back with delivery events when the server
	// runs with an event token secret.
	ServeToken string      `json:"serve_token,omitempty"`
	Debug      interface{} `json:"debug,omitempty"`
}

func decodeAdRequest(r *http.Request) (adRequest, error) {
	var req adRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return adRequest{}, fmt.Errorf("parse json: %w", err)
	}
	return req, nil
}

// clientIP resolves the requester address, preferring X-Forwarded-For.
func clientIP(r *http.Request) net.IP {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := net.ParseIP(fwd); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

// ServeNotificationAdHandler handles POST /v1/ads/notification.
func (s *Server) ServeNotificationAdHandler(w http.ResponseWriter, r *http.Request) {
	serveAd(s, w, r, "ads_notification", models.AdTypeNotification, s.Notification)
}

// ServeInlineContentAdHandler handles POST /v1/ads/inline-content.
func (s *Server) ServeInlineContentAdHandler(w http.ResponseWriter, r *http.Request) {
	serveAd(s, w, r, "ads_inline_content", models.AdTypeInlineContent, s.InlineContent)
}

// serveAd is the shared selection flow for both ad types: bot screening,
// geo resolution, segment reduction, cascade or scored selection, and
// delivery bookkeeping for the winner.
func serveAd[T models.CreativeAdVariant](s *Server, w http.ResponseWriter, r *http.Request,
	endpoint, adType string, eng *selectors.EligibleAds[T]) {
	ctx, span := tracer.Start(r.Context(), "serveAd",
		trace.WithAttributes(attribute.String("ad_type", adType)))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const method = "POST"

	if ua := uasurfer.Parse(r.UserAgent()); ua.IsBot() {
		span.SetAttributes(attribute.String("ad.result", "bot"))
		s.Metrics.IncrementRequests(endpoint, method, "204")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	req, err := decodeAdRequest(r)
	if err != nil {
		logger.Error("decode request", zap.Error(err), zap.String("ad_type", adType))
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if adType == models.AdTypeInlineContent && req.Dimensions == "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "dimensions required", http.StatusBadRequest)
		return
	}

	// Pin subdivision targeting to the requester's region for this and
	// later requests.
	if s.Geo != nil {
		if ip := clientIP(r); ip != nil {
			s.Geo.Resolve(ip)
		}
	}

	info := s.segmentsInfo(req)
	topSegments := segments.GetTopParentChildSegments(info, s.FilterList)
	span.SetAttributes(attribute.Int("segments", len(topSegments)))

	debugEnabled := s.DebugTrace || r.URL.Query().Get("debug") == "1"
	var selTrace logic.SelectionTrace
	tracePtr := (*logic.SelectionTrace)(nil)
	if debugEnabled {
		tracePtr = &selTrace
	}

	var winner *T
	if r.URL.Query().Get("scored") == "1" {
		interest := append(models.SegmentList{}, info.TextClassificationSegments...)
		interest = append(interest, info.EpsilonGreedyBanditSegments...)
		winner, err = eng.GetFromAdPredictorScoresWithTrace(ctx, interest, info.PurchaseIntentSegments, req.Dimensions, tracePtr)
		if err != nil && !errors.Is(err, selectors.ErrNoEligibleAd) {
			s.serveError(w, logger, span, endpoint, method, start, err)
			return
		}
	} else {
		var ads []T
		ads, err = eng.GetForSegmentsWithTrace(ctx, topSegments, req.Dimensions, tracePtr)
		if err != nil {
			s.serveError(w, logger, span, endpoint, method, start, err)
			return
		}
		// Tier survivors are drawn uniformly; scoring belongs to the
		// scored path.
		winner = predictor.SampleAdFromPredictors(predictor.GroupEligibleAdsByCreativeInstanceID(ads))
	}

	if winner == nil {
		span.SetAttributes(attribute.String("ad.result", "no_ad"))
		if observability.ShouldSample(observability.GetSamplingRate()) {
			logger.Info("no eligible ad", zap.String("ad_type", adType))
		}
		s.Metrics.IncrementRequests(endpoint, method, "204")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	creative := (*winner).Creative()
	span.SetAttributes(
		attribute.String("ad.result", "served"),
		attribute.String("ad.creative_instance_id", creative.CreativeInstanceID),
		attribute.String("ad.advertiser_id", creative.AdvertiserID),
	)

	eng.SetLastServedAd(creative)
	s.recordServe(ctx, logger, adType, creative)

	if observability.ShouldSample(observability.GetSamplingRate()) {
		logger.Info("ad served",
			zap.String("ad_type", adType),
			zap.String("creative_instance_id", creative.CreativeInstanceID),
			zap.String("segment", creative.Segment))
	}

	resp := adResponse{AdType: adType, Ad: *winner, TargetURL: s.expandTargetURL(logger, adType, creative)}
	if secret := s.Config.EventTokenSecret; secret != "" {
		tok, err := token.Generate(token.Serve{
			AdType:             adType,
			CreativeInstanceID: creative.CreativeInstanceID,
			CreativeSetID:      creative.CreativeSetID,
			CampaignID:         creative.CampaignID,
			AdvertiserID:       creative.AdvertiserID,
		}, []byte(secret))
		if err != nil {
			logger.Error("generate serve token", zap.Error(err))
		} else {
			resp.ServeToken = tok
		}
	}
	if debugEnabled {
		resp.Debug = map[string]interface{}{"trace": selTrace}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("encode response", zap.Error(err))
	}
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

func (s *Server) serveError(w http.ResponseWriter, logger *zap.Logger, span trace.Span,
	endpoint, method string, start time.Time, err error) {
	logger.Error("ad selection", zap.Error(err))
	span.RecordError(err)
	s.Metrics.IncrementRequests(endpoint, method, "500")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	http.Error(w, "selection failed", http.StatusInternalServerError)
}

// recordServe appends the served event and bumps the creative set pacing
// counter. Delivery bookkeeping failures never block the response.
func (s *Server) recordServe(ctx context.Context, logger *zap.Logger, adType string, creative models.CreativeAd) {
	ev := models.AdEvent{
		AdType:             adType,
		CreativeInstanceID: creative.CreativeInstanceID,
		CreativeSetID:      creative.CreativeSetID,
		CampaignID:         creative.CampaignID,
		AdvertiserID:       creative.AdvertiserID,
		EventType:          models.EventTypeServed,
	}
	if err := s.Events.Record(ctx, ev); err != nil {
		logger.Error("record served event", zap.Error(err))
	}
	s.Metrics.IncrementEvent(models.EventTypeServed)

	if s.Store != nil {
		day := time.Now().Format("2006-01-02")
		if err := s.Store.IncrementCreativeSetServes(creative.CreativeSetID, day); err != nil {
			logger.Error("increment creative set serves", zap.Error(err))
		}
	}
}

// expandTargetURL resolves placement macros in the winner's landing URL.
// Expansion problems fall back to the raw URL.
func (s *Server) expandTargetURL(logger *zap.Logger, adType string, creative models.CreativeAd) string {
	if s.Macros == nil {
		return creative.TargetURL
	}
	expanded, err := s.Macros.ExpandURL(creative.TargetURL, &macros.ExpansionContext{
		AdType:             adType,
		CreativeInstanceID: creative.CreativeInstanceID,
		CreativeSetID:      creative.CreativeSetID,
		CampaignID:         creative.CampaignID,
		AdvertiserID:       creative.AdvertiserID,
		Segment:            creative.Segment,
	})
	if err != nil {
		logger.Warn("expand target url", zap.Error(err))
		return creative.TargetURL
	}
	return expanded
}

// segmentsInfo reduces the request signals to the enabled classifier
// outputs.
func (s *Server) segmentsInfo(req adRequest) segments.Info {
	info := segments.Info{}
	if s.Config.TextClassificationEnabled {
		info.TextClassificationSegments = req.TextClassificationSegments
	}
	if s.Config.EpsilonGreedyBanditEnabled {
		info.EpsilonGreedyBanditSegments = req.EpsilonGreedyBanditSegments
	}
	if s.Config.PurchaseIntentEnabled {
		info.PurchaseIntentSegments = req.PurchaseIntentSegments
	}
	return info
}

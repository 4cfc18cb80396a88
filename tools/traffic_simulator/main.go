package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickwarner/adselect/internal/config"
	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/observability"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	server          string
	adType          string
	segmentsCSV     string
	intentCSV       string
	dimensions      string
	totalReq        int
	conc            int
	duration        time.Duration
	rate            float64
	viewRate        float64
	clickRate       float64
	dismissRate     float64
	stats           bool
	flush           bool
	redisAddr       string
	debug           bool
	label           string
	surgeInterval   time.Duration
	surgeDuration   time.Duration
	surgeMultiplier float64
	jitter          float64
)

var logger *zap.Logger

var httpClient *http.Client

var (
	userAgents = []string{
		// Mobile
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.5735.196 Mobile Safari/537.36",
		"Mozilla/5.0 (Linux; Android 11; SAMSUNG SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/15.0 Chrome/94.0.4606.61 Mobile Safari/537.36",
		"Mozilla/5.0 (iPad; CPU OS 15_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.2 Mobile/15E148 Safari/604.1",

		// Desktop
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_3_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:111.0) Gecko/20100101 Firefox/111.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.2365.66",
	}
	userIPs = []string{
		"192.0.2.1",
		"198.51.100.1",
		"203.0.113.1",
	}
)

const statsInterval = 5 * time.Second

var (
	countSent    uint64
	countServed  uint64
	countNoAd    uint64
	countErrors  uint64
	countViews   uint64
	countClicks  uint64
	countDismiss uint64
)

type adRequest struct {
	TextClassificationSegments  []string `json:"text_classification_segments,omitempty"`
	EpsilonGreedyBanditSegments []string `json:"epsilon_greedy_bandit_segments,omitempty"`
	PurchaseIntentSegments      []string `json:"purchase_intent_segments,omitempty"`
	Dimensions                  string   `json:"dimensions,omitempty"`
}

type servedAd struct {
	CreativeInstanceID string `json:"creative_instance_id"`
	CreativeSetID      string `json:"creative_set_id"`
	CampaignID         string `json:"campaign_id"`
	AdvertiserID       string `json:"advertiser_id"`
	Segment            string `json:"segment"`
}

type adResponse struct {
	AdType     string   `json:"ad_type"`
	Ad         servedAd `json:"ad"`
	ServeToken string   `json:"serve_token"`
}

type eventRequest struct {
	AdType             string `json:"ad_type"`
	EventType          string `json:"event_type"`
	CreativeInstanceID string `json:"creative_instance_id"`
	CreativeSetID      string `json:"creative_set_id"`
	CampaignID         string `json:"campaign_id"`
	AdvertiserID       string `json:"advertiser_id"`
	ServeToken         string `json:"serve_token,omitempty"`
}

func main() {
	flag.StringVar(&server, "server", "http://localhost:8787", "ad server base URL")
	flag.StringVar(&adType, "ad-type", "ad_notification", "ad type to request (ad_notification or inline_content_ad)")
	flag.StringVar(&segmentsCSV, "segments", "technology & computing-software,travel", "comma-separated interest segments")
	flag.StringVar(&intentCSV, "intent-segments", "", "comma-separated purchase intent segments")
	flag.StringVar(&dimensions, "dimensions", "900x750", "creative dimensions for inline content requests")
	flag.IntVar(&totalReq, "requests", 1000, "total requests to send")
	flag.IntVar(&conc, "concurrency", 20, "concurrent requests")
	flag.DurationVar(&duration, "duration", 0, "how long to run traffic (0 to disable)")
	flag.Float64Var(&rate, "rate", 0, "requests per second (0 for unlimited)")
	flag.Float64Var(&viewRate, "view-rate", 0.9, "probability of a viewed event per served ad")
	flag.Float64Var(&clickRate, "click-rate", 0.05, "probability of a clicked event per viewed ad")
	flag.Float64Var(&dismissRate, "dismiss-rate", 0.02, "probability of a dismissed event per viewed ad")
	flag.BoolVar(&stats, "stats", false, "print aggregated stats periodically")
	flag.BoolVar(&flush, "flush", false, "flush redis rotation and pacing state before sending traffic")
	flag.StringVar(&redisAddr, "redis", "", "redis address (defaults to REDIS_ADDR)")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.StringVar(&label, "label", "", "label to identify this run")
	flag.DurationVar(&surgeInterval, "surge-interval", 0, "interval between traffic surges (0 to disable)")
	flag.DurationVar(&surgeDuration, "surge-duration", 0, "duration of each surge window")
	flag.Float64Var(&surgeMultiplier, "surge-multiplier", 2.0, "requests multiplier during surge period")
	flag.Float64Var(&jitter, "jitter", 0.0, "random jitter factor for request spacing")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "traffic-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	httpClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Dial: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).Dial,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			MaxConnsPerHost:       50,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	if label == "" {
		label = time.Now().Format(time.RFC3339)
	}

	if flush {
		addr := redisAddr
		if addr == "" {
			cfg, err := config.Load()
			if err != nil {
				logger.Fatal("load config", zap.Error(err))
			}
			addr = cfg.RedisAddr
		}
		store, err := db.InitRedis(addr)
		if err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}

		// Clear rotation memories and pacing counters, nothing else.
		patterns := []string{
			"seen:ads:*",
			"seen:advertisers:*",
			"pacing:serves:*",
		}

		flushedCount := 0
		for _, pattern := range patterns {
			keys, err := store.Client.Keys(store.Ctx, pattern).Result()
			if err != nil {
				logger.Error("failed to get keys for pattern", zap.String("pattern", pattern), zap.Error(err))
				continue
			}
			if len(keys) > 0 {
				if err := store.Client.Del(store.Ctx, keys...).Err(); err != nil {
					logger.Error("failed to delete keys", zap.String("pattern", pattern), zap.Error(err))
					continue
				}
				flushedCount += len(keys)
			}
		}

		store.Close()
		logger.Info("redis state flushed",
			zap.String("addr", addr),
			zap.Int("keys_deleted", flushedCount))
	}

	segmentsPool := splitCSV(segmentsCSV)
	intentPool := splitCSV(intentCSV)
	if len(segmentsPool) == 0 {
		logger.Fatal("at least one segment is required")
	}

	endpoint := server + "/v1/ads/notification"
	if adType == "inline_content_ad" {
		endpoint = server + "/v1/ads/inline-content"
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var wg sync.WaitGroup
	sem := make(chan struct{}, conc)
	done := make(chan struct{})

	var baseInterval time.Duration
	if rate > 0 {
		baseInterval = time.Duration(float64(time.Second) / rate)
	} else if duration > 0 && totalReq > 0 {
		baseInterval = duration / time.Duration(totalReq)
	}

	start := time.Now()
	next := start

	if stats {
		go func() {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					printStats()
				case <-done:
					printStats()
					return
				}
			}
		}()
	}
	for i := 0; ; i++ {
		if totalReq > 0 && i >= totalReq {
			break
		}
		if duration > 0 && time.Since(start) >= duration {
			break
		}
		if baseInterval > 0 {
			effective := baseInterval
			if surgeInterval > 0 && surgeDuration > 0 && surgeMultiplier > 0 {
				elapsed := time.Since(start)
				if elapsed%surgeInterval < surgeDuration {
					effective = time.Duration(float64(effective) / surgeMultiplier)
				}
			}
			if jitter > 0 {
				jf := 1 + (r.Float64()*2-1)*jitter
				if jf < 0.1 {
					jf = 0.1
				}
				effective = time.Duration(float64(effective) * jf)
			}
			now := time.Now()
			if now.Before(next) {
				time.Sleep(next.Sub(now))
			}
			next = next.Add(effective)
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			atomic.AddUint64(&countSent, 1)

			ua := userAgents[r.Intn(len(userAgents))]
			ip := userIPs[r.Intn(len(userIPs))]

			// Each request carries a small random subset of the interest
			// pool, mimicking a classifier whose signal varies per page.
			body := adRequest{
				TextClassificationSegments: sampleSegments(r, segmentsPool),
			}
			if len(intentPool) > 0 && r.Float64() < 0.5 {
				body.PurchaseIntentSegments = sampleSegments(r, intentPool)
			}
			if adType == "inline_content_ad" {
				body.Dimensions = dimensions
			}
			blob, err := json.Marshal(body)
			if err != nil {
				atomic.AddUint64(&countErrors, 1)
				logger.Error("marshal error", zap.Error(err))
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(blob))
			if err != nil {
				atomic.AddUint64(&countErrors, 1)
				logger.Error("request build error", zap.Error(err))
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("User-Agent", ua)
			req.Header.Set("X-Forwarded-For", ip)

			resp, err := httpClient.Do(req)
			if err != nil {
				atomic.AddUint64(&countErrors, 1)
				logger.Error("ad request error", zap.Error(err))
				return
			}
			bodyBytes, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				atomic.AddUint64(&countErrors, 1)
				logger.Error("read body error", zap.Error(err))
				return
			}
			if resp.StatusCode == http.StatusNoContent {
				atomic.AddUint64(&countNoAd, 1)
				logger.Debug("no ad")
				return
			}
			if resp.StatusCode != http.StatusOK {
				atomic.AddUint64(&countErrors, 1)
				logger.Error("unexpected status", zap.Int("status", resp.StatusCode), zap.String("body", strings.TrimSpace(string(bodyBytes))))
				return
			}
			var served adResponse
			if err := json.Unmarshal(bodyBytes, &served); err != nil {
				atomic.AddUint64(&countErrors, 1)
				logger.Error("decode error", zap.Error(err), zap.String("body", strings.TrimSpace(string(bodyBytes))))
				return
			}
			atomic.AddUint64(&countServed, 1)
			logger.Debug("served",
				zap.String("creative_instance_id", served.Ad.CreativeInstanceID),
				zap.String("segment", served.Ad.Segment))

			if r.Float64() >= viewRate {
				return
			}
			if sendEvent(served, "viewed") {
				atomic.AddUint64(&countViews, 1)
			}
			if r.Float64() < clickRate {
				if sendEvent(served, "clicked") {
					atomic.AddUint64(&countClicks, 1)
				}
			} else if r.Float64() < dismissRate {
				if sendEvent(served, "dismissed") {
					atomic.AddUint64(&countDismiss, 1)
				}
			}
		}()
	}
	wg.Wait()
	close(done)
	if !stats {
		printStats()
	}
}

func sendEvent(served adResponse, eventType string) bool {
	ev := eventRequest{
		AdType:             served.AdType,
		EventType:          eventType,
		CreativeInstanceID: served.Ad.CreativeInstanceID,
		CreativeSetID:      served.Ad.CreativeSetID,
		CampaignID:         served.Ad.CampaignID,
		AdvertiserID:       served.Ad.AdvertiserID,
		ServeToken:         served.ServeToken,
	}
	blob, err := json.Marshal(ev)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("marshal event error", zap.Error(err))
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/v1/events", bytes.NewReader(blob))
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("event request build error", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("event post error", zap.Error(err))
		return false
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("event rejected", zap.Int("status", resp.StatusCode), zap.String("event_type", eventType))
		return false
	}
	return true
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sampleSegments(r *rand.Rand, pool []string) []string {
	n := 1 + r.Intn(len(pool))
	idx := r.Perm(len(pool))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

func printStats() {
	sent := atomic.LoadUint64(&countSent)
	served := atomic.LoadUint64(&countServed)
	noAd := atomic.LoadUint64(&countNoAd)
	errs := atomic.LoadUint64(&countErrors)
	views := atomic.LoadUint64(&countViews)
	clicks := atomic.LoadUint64(&countClicks)
	dismissed := atomic.LoadUint64(&countDismiss)
	var fillRate float64
	if sent > 0 {
		fillRate = float64(served) / float64(sent)
	}
	logger.Info("stats", zap.String("run", label), zap.Uint64("sent", sent), zap.Uint64("served", served),
		zap.Uint64("no_ad", noAd), zap.Uint64("errors", errs), zap.Uint64("views", views),
		zap.Uint64("clicks", clicks), zap.Uint64("dismissed", dismissed), zap.Float64("fill_rate", fillRate))
}

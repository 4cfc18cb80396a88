package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adselect_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adselect_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// successful selections per ad type, labelled by the cascade tier that
	// produced the winner (targeted, parent, untargeted, scored)
	SelectionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adselect_selections_total",
			Help: "Total successful ad selections per cascade tier",
		},
		[]string{"ad_type", "tier"},
	)

	// selection calls that produced no eligible ad
	NoAdCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adselect_no_ad_total",
			Help: "Total selection calls with no eligible ad",
		},
		[]string{"ad_type"},
	)

	// surviving candidates after each pipeline stage
	StageCandidates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adselect_stage_candidates",
			Help: "Candidates remaining after each eligibility stage",
		},
		[]string{"ad_type", "stage"},
	)

	// sampler draws, labelled proportional or uniform
	SamplerDraws = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adselect_sampler_draws_total",
			Help: "Total sampler draws per draw mode",
		},
		[]string{"ad_type", "mode"},
	)

	// number of ad events recorded, labelled by type
	EventCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adselect_events_total",
			Help: "Total ad events recorded",
		},
		[]string{"type"},
	)

	// live catalog size per ad type
	CatalogAds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adselect_catalog_ads",
			Help: "Creative ads currently loaded per ad type",
		},
		[]string{"ad_type"},
	)

	// rotation memory resets (all candidates seen, sets cleared)
	RotationResets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adselect_rotation_resets_total",
			Help: "Total seen-ad and seen-advertiser rotation resets",
		},
		[]string{"ad_type", "kind"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		SelectionCount,
		NoAdCount,
		StageCandidates,
		SamplerDraws,
		EventCount,
		CatalogAds,
		RotationResets,
	)
}

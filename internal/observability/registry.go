package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// This replaces direct access to global Prometheus metrics with dependency injection
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Selection metrics
	IncrementSelections(adType, tier string)
	IncrementNoAd(adType string)
	RecordStageCandidates(adType, stage string, count int)
	IncrementSamplerDraws(adType, mode string)

	// Event tracking metrics
	IncrementEvent(eventType string)

	// Catalog metrics
	SetCatalogAds(adType string, count int)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementSelections(adType, tier string) {
	SelectionCount.WithLabelValues(adType, tier).Inc()
}

func (r *PrometheusRegistry) IncrementNoAd(adType string) {
	NoAdCount.WithLabelValues(adType).Inc()
}

func (r *PrometheusRegistry) RecordStageCandidates(adType, stage string, count int) {
	StageCandidates.WithLabelValues(adType, stage).Set(float64(count))
}

func (r *PrometheusRegistry) IncrementSamplerDraws(adType, mode string) {
	SamplerDraws.WithLabelValues(adType, mode).Inc()
}

func (r *PrometheusRegistry) IncrementEvent(eventType string) {
	EventCount.WithLabelValues(eventType).Inc()
}

func (r *PrometheusRegistry) SetCatalogAds(adType string, count int) {
	CatalogAds.WithLabelValues(adType).Set(float64(count))
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementSelections(adType, tier string)                              {}
func (r *NoOpRegistry) IncrementNoAd(adType string)                                          {}
func (r *NoOpRegistry) RecordStageCandidates(adType, stage string, count int)                {}
func (r *NoOpRegistry) IncrementSamplerDraws(adType, mode string)                            {}
func (r *NoOpRegistry) IncrementEvent(eventType string)                                      {}
func (r *NoOpRegistry) SetCatalogAds(adType string, count int)                               {}

package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry records selection metric calls for test assertions.
type MockMetricsRegistry struct {
	mu sync.Mutex

	Selections      map[string]int // keyed "adType/tier"
	NoAds           map[string]int
	StageCounts     map[string]int // keyed "adType/stage"
	SamplerDrawKeys []string       // "adType/mode" in call order
	Events          map[string]int
}

// NewMockMetricsRegistry creates a MockMetricsRegistry ready for use.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{
		Selections:  make(map[string]int),
		NoAds:       make(map[string]int),
		StageCounts: make(map[string]int),
		Events:      make(map[string]int),
	}
}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

func (m *MockMetricsRegistry) IncrementSelections(adType, tier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Selections[adType+"/"+tier]++
}

func (m *MockMetricsRegistry) IncrementNoAd(adType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NoAds[adType]++
}

func (m *MockMetricsRegistry) RecordStageCandidates(adType, stage string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StageCounts[adType+"/"+stage] = count
}

func (m *MockMetricsRegistry) IncrementSamplerDraws(adType, mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SamplerDrawKeys = append(m.SamplerDrawKeys, adType+"/"+mode)
}

func (m *MockMetricsRegistry) IncrementEvent(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events[eventType]++
}

func (m *MockMetricsRegistry) SetCatalogAds(adType string, count int) {}

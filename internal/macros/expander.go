// Package macros expands placement macros inside creative target URLs at
// serve time, so advertisers can attribute landings to a campaign without
// the server leaking anything beyond what the creative already carries.
package macros

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// ExpansionFunc produces the replacement value for a single macro.
type ExpansionFunc func(ctx *ExpansionContext) (string, error)

// ExpansionContext carries the served ad's identifiers for expansion.
type ExpansionContext struct {
	AdType             string
	CreativeInstanceID string
	CreativeSetID      string
	CampaignID         string
	AdvertiserID       string
	Segment            string
	Timestamp          time.Time
}

// Expander rewrites {MACRO} placeholders in target URLs. Values are
// query-escaped on substitution. In strict mode any failed expansion fails
// the whole URL; otherwise the failing macro is left in place.
type Expander struct {
	logger       *zap.Logger
	expansions   map[string]ExpansionFunc
	expansionsMu sync.RWMutex
	strictMode   bool

	expansionCounter  *prometheus.CounterVec
	expansionDuration prometheus.Histogram
	failureCounter    *prometheus.CounterVec
}

// NewExpander creates an expander with the default macro set registered on
// the global Prometheus registry.
func NewExpander(logger *zap.Logger) *Expander {
	return newExpander(logger, false, promauto.With(prometheus.DefaultRegisterer))
}

// NewExpanderForTesting uses a private metrics registry so parallel tests
// do not collide on metric registration.
func NewExpanderForTesting(logger *zap.Logger, strictMode bool) *Expander {
	return newExpander(logger, strictMode, promauto.With(prometheus.NewRegistry()))
}

func newExpander(logger *zap.Logger, strictMode bool, factory promauto.Factory) *Expander {
	e := &Expander{
		logger:     logger,
		expansions: make(map[string]ExpansionFunc),
		strictMode: strictMode,

		expansionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adselect_macro_expansions_total",
				Help: "Total number of macro expansions performed",
			},
			[]string{"macro", "success"},
		),
		expansionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adselect_macro_expansion_duration_seconds",
				Help:    "Time taken to expand all macros in a URL",
				Buckets: prometheus.DefBuckets,
			},
		),
		failureCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adselect_macro_expansion_failures_total",
				Help: "Total number of macro expansion failures",
			},
			[]string{"macro", "error_type"},
		),
	}
	e.registerDefaults()
	return e
}

// Register adds or replaces a macro expansion.
func (e *Expander) Register(name string, fn ExpansionFunc) {
	e.expansionsMu.Lock()
	defer e.expansionsMu.Unlock()
	e.expansions[name] = fn
}

func (e *Expander) registerDefaults() {
	e.Register("AD_TYPE", func(ctx *ExpansionContext) (string, error) {
		return ctx.AdType, nil
	})
	e.Register("CREATIVE_INSTANCE_ID", func(ctx *ExpansionContext) (string, error) {
		if ctx.CreativeInstanceID == "" {
			return "", fmt.Errorf("creative instance id is empty")
		}
		return ctx.CreativeInstanceID, nil
	})
	e.Register("CREATIVE_SET_ID", func(ctx *ExpansionContext) (string, error) {
		return ctx.CreativeSetID, nil
	})
	e.Register("CAMPAIGN_ID", func(ctx *ExpansionContext) (string, error) {
		return ctx.CampaignID, nil
	})
	e.Register("ADVERTISER_ID", func(ctx *ExpansionContext) (string, error) {
		return ctx.AdvertiserID, nil
	})
	e.Register("SEGMENT", func(ctx *ExpansionContext) (string, error) {
		return ctx.Segment, nil
	})
	e.Register("TIMESTAMP", func(ctx *ExpansionContext) (string, error) {
		ts := ctx.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		return strconv.FormatInt(ts.Unix(), 10), nil
	})
	e.Register("CACHEBUSTER", func(ctx *ExpansionContext) (string, error) {
		return uuid.NewString(), nil
	})
}

// ExpandURL expands all registered macros found in rawURL. A URL without
// placeholders is returned unchanged.
func (e *Expander) ExpandURL(rawURL string, ctx *ExpansionContext) (string, error) {
	start := time.Now()
	defer func() {
		e.expansionDuration.Observe(time.Since(start).Seconds())
	}()

	if rawURL == "" {
		return "", nil
	}
	if _, err := url.Parse(rawURL); err != nil {
		e.logger.Error("failed to parse target URL for macro expansion",
			zap.String("url", rawURL),
			zap.Error(err))
		return rawURL, err
	}

	e.expansionsMu.RLock()
	defer e.expansionsMu.RUnlock()

	var found []string
	for macro := range e.expansions {
		if strings.Contains(rawURL, "{"+macro+"}") {
			found = append(found, macro)
		}
	}
	if len(found) == 0 {
		return rawURL, nil
	}

	var replacements []string
	for _, macro := range found {
		value, err := e.expansions[macro](ctx)
		if err != nil {
			e.expansionCounter.WithLabelValues(macro, "false").Inc()
			e.failureCounter.WithLabelValues(macro, "expansion_error").Inc()
			e.logger.Warn("failed to expand macro",
				zap.String("macro", macro),
				zap.String("url", rawURL),
				zap.Error(err))
			if e.strictMode {
				return "", fmt.Errorf("expand macro %q: %w", macro, err)
			}
			continue
		}
		replacements = append(replacements, "{"+macro+"}", url.QueryEscape(value))
		e.expansionCounter.WithLabelValues(macro, "true").Inc()
	}
	if len(replacements) == 0 {
		return rawURL, nil
	}
	return strings.NewReplacer(replacements...).Replace(rawURL), nil
}

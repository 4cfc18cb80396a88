// Package selectors contains the selection orchestrators that turn a user's
// segment profile into at most one ad. EligibleAds runs the cascading
// segment lookup (targeted, parent, untargeted) and the predictor-scored
// path, both funnelling candidates through the shared eligibility pipeline.
package selectors

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/config"
	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/events"
	"github.com/patrickwarner/adselect/internal/geo"
	"github.com/patrickwarner/adselect/internal/history"
	"github.com/patrickwarner/adselect/internal/logic"
	"github.com/patrickwarner/adselect/internal/logic/exclusion"
	"github.com/patrickwarner/adselect/internal/logic/predictor"
	"github.com/patrickwarner/adselect/internal/models"
	"github.com/patrickwarner/adselect/internal/observability"
	"github.com/patrickwarner/adselect/internal/segments"
)

// ErrNoEligibleAd is returned by the single-winner selection path when no
// candidate survives the pipeline. Callers should treat it as an empty
// result, not a failure.
var ErrNoEligibleAd = errors.New("no eligible ad found for user")

// Cascade tiers reported in metrics and traces.
const (
	TierTargeted   = "targeted"
	TierParent     = "parent"
	TierUntargeted = "untargeted"
	TierScored     = "scored"
)

// EligibleAds orchestrates ad selection for one ad type. It holds the only
// long-lived piece of selection state, the last served ad, which callers
// update through SetLastServedAd after a successful display.
type EligibleAds[T models.CreativeAdVariant] struct {
	adType  string
	store   CreativeStore[T]
	redis   *db.RedisStore
	events  events.Store
	history history.Provider
	cfg     config.Config

	subdivision   *geo.SubdivisionTargeting
	antiTargeting exclusion.AntiTargetingResource
	metrics       observability.MetricsRegistry
	logger        *zap.Logger

	mu         sync.Mutex
	lastServed models.CreativeAd
}

// NewEligibleAds constructs an orchestrator for the given ad type. Optional
// collaborators are attached through the setters.
func NewEligibleAds[T models.CreativeAdVariant](adType string, store CreativeStore[T], redis *db.RedisStore,
	eventStore events.Store, historyProvider history.Provider, cfg config.Config) *EligibleAds[T] {
	return &EligibleAds[T]{
		adType:  adType,
		store:   store,
		redis:   redis,
		events:  eventStore,
		history: historyProvider,
		cfg:     cfg,
		metrics: observability.NewNoOpRegistry(),
		logger:  zap.L(),
	}
}

// SetSubdivisionTargeting configures geo subdivision resolution. Without it
// only ads with no geo targets are eligible in geo-targeted catalogs.
func (e *EligibleAds[T]) SetSubdivisionTargeting(s *geo.SubdivisionTargeting) {
	e.subdivision = s
}

// SetAntiTargeting configures the advertiser site deny list resource.
func (e *EligibleAds[T]) SetAntiTargeting(r exclusion.AntiTargetingResource) {
	e.antiTargeting = r
}

// SetMetrics configures the metrics registry for this orchestrator.
func (e *EligibleAds[T]) SetMetrics(m observability.MetricsRegistry) {
	if m != nil {
		e.metrics = m
	}
}

// SetLogger configures the logger for this orchestrator.
func (e *EligibleAds[T]) SetLogger(logger *zap.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// SetLastServedAd records the most recent successful selection. Frequency
// capping excludes it on the next pass unless it is the only candidate.
func (e *EligibleAds[T]) SetLastServedAd(ad models.CreativeAd) {
	e.mu.Lock()
	e.lastServed = ad
	e.mu.Unlock()
}

// LastServedAd returns the most recent successful selection, zero if none.
func (e *EligibleAds[T]) LastServedAd() models.CreativeAd {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastServed
}

// GetForSegments returns the eligible candidates for the user's segments,
// cascading targeted, then parent segment, then untargeted lookups and
// stopping at the first tier with survivors. An empty list with a nil error
// means no ad is eligible; errors are reserved for hard lookup failures.
func (e *EligibleAds[T]) GetForSegments(ctx context.Context, segs models.SegmentList, dimensions string) ([]T, error) {
	return e.getForSegments(ctx, segs, dimensions, nil)
}

// GetForSegmentsWithTrace behaves like GetForSegments but records the
// candidate list after every stage in the provided trace.
func (e *EligibleAds[T]) GetForSegmentsWithTrace(ctx context.Context, segs models.SegmentList, dimensions string,
	trace *logic.SelectionTrace) ([]T, error) {
	return e.getForSegments(ctx, segs, dimensions, trace)
}

func (e *EligibleAds[T]) getForSegments(ctx context.Context, segs models.SegmentList, dimensions string,
	trace *logic.SelectionTrace) ([]T, error) {
	adEvents, err := e.events.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get ad events: %w", err)
	}
	browsingHistory := e.browsingHistory(ctx)

	if len(segs) > 0 {
		ads, err := e.eligibleForSegments(ctx, TierTargeted, segs, dimensions, adEvents, browsingHistory, trace)
		if err != nil {
			return nil, err
		}
		if len(ads) > 0 {
			e.metrics.IncrementSelections(e.adType, TierTargeted)
			return ads, nil
		}

		if parents := uniqueParentSegments(segs); !parents.Equal(segs) {
			ads, err = e.eligibleForSegments(ctx, TierParent, parents, dimensions, adEvents, browsingHistory, trace)
			if err != nil {
				return nil, err
			}
			if len(ads) > 0 {
				e.metrics.IncrementSelections(e.adType, TierParent)
				return ads, nil
			}
		}
	}

	ads, err := e.eligibleForSegments(ctx, TierUntargeted, models.SegmentList{segments.Untargeted}, dimensions,
		adEvents, browsingHistory, trace)
	if err != nil {
		return nil, err
	}
	if len(ads) == 0 {
		e.metrics.IncrementNoAd(e.adType)
		return nil, nil
	}
	e.metrics.IncrementSelections(e.adType, TierUntargeted)
	return ads, nil
}

// eligibleForSegments runs one cascade tier: catalog lookup plus the
// eligibility pipeline.
func (e *EligibleAds[T]) eligibleForSegments(ctx context.Context, tier string, segs models.SegmentList,
	dimensions string, adEvents models.AdEventList, browsingHistory models.BrowsingHistoryList,
	trace *logic.SelectionTrace) ([]T, error) {
	ads, err := e.store.GetForSegmentsAndDimensions(ctx, segs, dimensions)
	if err != nil {
		return nil, fmt.Errorf("get creative ads (%s): %w", tier, err)
	}
	logic.AddStepWithDetails(trace, tier, ads, map[string]string{"segments": segs.String()})

	filtered, err := e.FilterIneligibleAds(ads, adEvents, browsingHistory, trace)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("cascade tier evaluated",
		zap.String("ad_type", e.adType),
		zap.String("tier", tier),
		zap.Int("candidates", len(ads)),
		zap.Int("eligible", len(filtered)))
	return filtered, nil
}

// GetFromAdPredictorScores selects one ad from the full dimension-matched
// pool, without a segment cascade. Survivors of the eligibility pipeline
// are grouped by creative instance, scored against the user's interest and
// intent segments, and sampled proportionally to score. Returns
// ErrNoEligibleAd when nothing survives.
func (e *EligibleAds[T]) GetFromAdPredictorScores(ctx context.Context, interestSegments, intentSegments models.SegmentList,
	dimensions string) (*T, error) {
	return e.getFromAdPredictorScores(ctx, interestSegments, intentSegments, dimensions, nil)
}

// GetFromAdPredictorScoresWithTrace behaves like GetFromAdPredictorScores
// but records pipeline stages in the provided trace.
func (e *EligibleAds[T]) GetFromAdPredictorScoresWithTrace(ctx context.Context, interestSegments, intentSegments models.SegmentList,
	dimensions string, trace *logic.SelectionTrace) (*T, error) {
	return e.getFromAdPredictorScores(ctx, interestSegments, intentSegments, dimensions, trace)
}

func (e *EligibleAds[T]) getFromAdPredictorScores(ctx context.Context, interestSegments, intentSegments models.SegmentList,
	dimensions string, trace *logic.SelectionTrace) (*T, error) {
	adEvents, err := e.events.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get ad events: %w", err)
	}
	browsingHistory := e.browsingHistory(ctx)

	ads, err := e.store.GetForDimensions(ctx, dimensions)
	if err != nil {
		return nil, fmt.Errorf("get creative ads: %w", err)
	}
	logic.AddStep(trace, "catalog", ads)

	filtered, err := e.FilterIneligibleAds(ads, adEvents, browsingHistory, trace)
	if err != nil {
		return nil, err
	}
	if len(filtered) == 0 {
		e.metrics.IncrementNoAd(e.adType)
		return nil, ErrNoEligibleAd
	}

	predictors := predictor.GroupEligibleAdsByCreativeInstanceID(filtered)
	scored := predictor.ComputeFeaturesAndScores(predictors, predictor.Signals{
		IntentSegments:   intentSegments,
		InterestSegments: interestSegments,
		AdEvents:         adEvents,
	}, e.cfg.PredictorWeights)

	winner := predictor.SampleAdFromPredictors(scored)
	if winner == nil {
		e.metrics.IncrementNoAd(e.adType)
		return nil, ErrNoEligibleAd
	}
	e.metrics.IncrementSamplerDraws(e.adType, samplerMode(scored))
	e.metrics.IncrementSelections(e.adType, TierScored)
	logic.AddStep(trace, "sampled", []T{*winner})
	return winner, nil
}

// FilterIneligibleAds runs the five-stage eligibility pipeline: advertiser
// rotation dedup, ad rotation dedup, frequency capping, pacing and
// priority. The input slice is never mutated. A nil Redis store is the only
// hard failure; every stage else fails open.
func (e *EligibleAds[T]) FilterIneligibleAds(ads []T, adEvents models.AdEventList,
	browsingHistory models.BrowsingHistoryList, trace *logic.SelectionTrace) ([]T, error) {
	if len(ads) == 0 {
		return ads, nil
	}

	ads, err := logic.FilterSeenAdvertisersAndRoundRobinIfNeeded(e.redis, ads, e.adType)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordStageCandidates(e.adType, "seen_advertisers", len(ads))
	logic.AddStep(trace, "seen_advertisers", ads)

	ads, err = logic.FilterSeenAdsAndRoundRobinIfNeeded(e.redis, ads, e.adType)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordStageCandidates(e.adType, "seen_ads", len(ads))
	logic.AddStep(trace, "seen_ads", ads)

	rules := exclusion.NewRuleSet(exclusion.Params{
		SubdivisionCode:  e.subdivisionCode(),
		AntiTargeting:    e.antiTargeting,
		AdEvents:         adEvents,
		BrowsingHistory:  browsingHistory,
		AdvertiserPerDay: e.cfg.AdvertiserPerDayCap,
	})
	var lastServed models.CreativeAd
	if logic.ShouldCapLastServedAd(ads) {
		lastServed = e.LastServedAd()
	}
	ads = logic.ApplyFrequencyCapping(ads, lastServed, rules)
	e.metrics.RecordStageCandidates(e.adType, "frequency_capping", len(ads))
	logic.AddStep(trace, "frequency_capping", ads)

	ads, err = logic.PaceAds(e.redis, ads, e.cfg.PacingMode)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordStageCandidates(e.adType, "pacing", len(ads))
	logic.AddStep(trace, "pacing", ads)

	ads = logic.PrioritizeAds(ads)
	e.metrics.RecordStageCandidates(e.adType, "priority", len(ads))
	logic.AddStep(trace, "priority", ads)

	return ads, nil
}

// browsingHistory fetches the user's recent history for anti-targeting.
// History is an enrichment signal, so failures fall back to no history
// rather than aborting selection.
func (e *EligibleAds[T]) browsingHistory(ctx context.Context) models.BrowsingHistoryList {
	if e.history == nil {
		return nil
	}
	hist, err := e.history.GetBrowsingHistory(ctx, e.cfg.BrowsingHistoryMaxCount, e.cfg.BrowsingHistoryDaysAgo)
	if err != nil {
		e.logger.Warn("get browsing history", zap.Error(err))
		return nil
	}
	return hist
}

func (e *EligibleAds[T]) subdivisionCode() string {
	if e.subdivision == nil {
		return ""
	}
	return e.subdivision.Subdivision()
}

// uniqueParentSegments maps segments to parents and deduplicates while
// preserving first-occurrence order.
func uniqueParentSegments(segs models.SegmentList) models.SegmentList {
	parents := segments.GetParentSegments(segs)
	seen := make(map[string]struct{}, len(parents))
	out := make(models.SegmentList, 0, len(parents))
	for _, s := range parents {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// samplerMode reports whether the draw was score-proportional or the
// uniform fallback for all-zero scores.
func samplerMode[T models.CreativeAdVariant](predictors models.AdPredictorMap[T]) string {
	for _, p := range predictors {
		if p.Score > 0 {
			return "proportional"
		}
	}
	return "uniform"
}

// Pacing spreads a creative set's delivery across the day instead of
// letting it exhaust its daily budget in a burst. Three policies are
// supported, selected by configuration:
//   - PacingASAP only enforces the daily cap and otherwise delivers as
//     fast as demand allows.
//   - PacingEven admits a creative set while its serve count stays below
//     the cap scaled by the fraction of the day elapsed.
//   - PacingProbabilistic admits with probability proportional to the
//     remaining share of the daily cap, which smooths delivery without the
//     hard cliffs of even pacing.
//
// Serve counters live in Redis keyed by creative set and day, so each
// day's delivery is tracked independently. An ad whose creative set has met
// its pacing budget is dropped for this call only, not permanently.
package logic

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/db"
	"github.com/patrickwarner/adselect/internal/models"
)

// Pacing policies for creative set delivery.
const (
	PacingASAP          = "asap"
	PacingEven          = "even"
	PacingProbabilistic = "probabilistic"
)

// nowFn is used to get the current time. In production it's time.Now,
// but in tests we can replace it to simulate different times of day.
var nowFn = time.Now

// randFn supplies the probabilistic pacing draw. Tests may replace it.
var randFn = rand.Float64

// PaceAds drops ads whose creative set has met its pacing budget for this
// call. The per-set daily budget is the ad's PerDay cap; sets without one
// are unpaced.
func PaceAds[T models.CreativeAdVariant](store *db.RedisStore, ads []T, mode string) ([]T, error) {
	if store == nil || store.Client == nil {
		return nil, ErrNilRedisStore
	}
	if len(ads) == 0 {
		return ads, nil
	}

	now := nowFn()
	today := now.Format("2006-01-02")
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayFraction := float64(now.Sub(dayStart)) / float64(24*time.Hour)

	// One counter read per creative set, not per ad.
	counts := make(map[string]int64)
	var out []T
	for _, ad := range ads {
		creative := ad.Creative()
		capDaily := int64(creative.PerDay)
		if capDaily <= 0 {
			out = append(out, ad)
			continue
		}

		count, ok := counts[creative.CreativeSetID]
		if !ok {
			var err error
			count, err = store.CreativeSetServesToday(creative.CreativeSetID, today)
			if err != nil {
				zap.L().Error("redis get serves", zap.Error(err))
				// Fail open — pacing is an optimization, not a cap
				count = 0
			}
			counts[creative.CreativeSetID] = count
		}

		if creativeSetIsPaced(count, capDaily, dayFraction, mode) {
			continue
		}
		out = append(out, ad)
	}
	return out, nil
}

// creativeSetIsPaced reports whether the set should hold back this call.
func creativeSetIsPaced(count, capDaily int64, dayFraction float64, mode string) bool {
	// Hard safety check regardless of policy.
	if count >= capDaily {
		return true
	}
	switch mode {
	case PacingEven:
		allowed := int64(float64(capDaily) * dayFraction)
		return count >= allowed
	case PacingProbabilistic:
		remaining := 1.0 - float64(count)/float64(capDaily)
		return randFn() >= remaining
	default: // PacingASAP
		return false
	}
}

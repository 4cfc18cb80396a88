package segments

import (
	"go.uber.org/zap"

	"github.com/patrickwarner/adselect/internal/models"
)

// topTextClassificationSegmentCount caps the contextual interest signals
// carried into scoring; the behavioral model outputs are passed through
// unbounded.
const topTextClassificationSegmentCount = 3

// FilterList answers whether a user opted a segment out of serving.
type FilterList interface {
	ShouldFilterSegment(segment string) bool
}

// StaticFilterList is a FilterList backed by a fixed set of segments.
type StaticFilterList map[string]struct{}

// NewStaticFilterList builds a StaticFilterList from a slice of segments.
func NewStaticFilterList(filtered []string) StaticFilterList {
	list := make(StaticFilterList, len(filtered))
	for _, s := range filtered {
		list[s] = struct{}{}
	}
	return list
}

// ShouldFilterSegment reports whether the segment is opted out.
func (l StaticFilterList) ShouldFilterSegment(segment string) bool {
	_, ok := l[segment]
	return ok
}

// Info carries the segment output of each targeting model for one user.
// Order within each list reflects model confidence, strongest first.
type Info struct {
	TextClassificationSegments  models.SegmentList
	EpsilonGreedyBanditSegments models.SegmentList
	PurchaseIntentSegments      models.SegmentList
}

// FilterSegments walks segments in order, drops entries marked by the
// filter list and returns at most maxCount survivors. First match wins; no
// scoring happens at this stage.
func FilterSegments(list models.SegmentList, filter FilterList, maxCount int) models.SegmentList {
	var top models.SegmentList
	for _, segment := range list {
		if filter != nil && filter.ShouldFilterSegment(segment) {
			zap.L().Debug("excluding segment marked to no longer receive",
				zap.String("segment", segment))
			continue
		}
		top = append(top, segment)
		if len(top) == maxCount {
			break
		}
	}
	return top
}

// GetTopParentChildSegments builds the served segment context at child
// level: the top text-classification segments followed by all bandit
// segments and all purchase-intent segments. Order is significant: later
// scoring stages treat earlier entries as stronger interest signals.
func GetTopParentChildSegments(info Info, filter FilterList) models.SegmentList {
	return topSegments(info, filter, false)
}

// GetTopParentSegments is the parent-level variant of
// GetTopParentChildSegments.
func GetTopParentSegments(info Info, filter FilterList) models.SegmentList {
	return topSegments(info, filter, true)
}

func topSegments(info Info, filter FilterList, forParent bool) models.SegmentList {
	textClassification := info.TextClassificationSegments
	if forParent {
		textClassification = GetParentSegments(textClassification)
	}

	var list models.SegmentList
	list = append(list, FilterSegments(textClassification, filter, topTextClassificationSegmentCount)...)
	list = append(list, info.EpsilonGreedyBanditSegments...)
	list = append(list, info.PurchaseIntentSegments...)
	return list
}

package segments

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patrickwarner/adselect/internal/models"
)

func TestFilterSegments(t *testing.T) {
	filter := NewStaticFilterList([]string{"sports"})
	in := models.SegmentList{"travel", "sports", "music", "food & drink"}

	out := FilterSegments(in, filter, 2)
	assert.Equal(t, models.SegmentList{"travel", "music"}, out,
		"filtered entries are skipped before the cap applies")

	out = FilterSegments(in, nil, 10)
	assert.Equal(t, in, out)
}

func TestGetTopParentChildSegmentsOrder(t *testing.T) {
	info := Info{
		TextClassificationSegments:  models.SegmentList{"travel-hotels", "sports-football", "music", "science"},
		EpsilonGreedyBanditSegments: models.SegmentList{"food & drink"},
		PurchaseIntentSegments:      models.SegmentList{"automotive-suv"},
	}

	out := GetTopParentChildSegments(info, nil)
	assert.Equal(t, models.SegmentList{
		// Top three text classification segments at child level.
		"travel-hotels", "sports-football", "music",
		// All bandit segments, then all purchase intent segments.
		"food & drink",
		"automotive-suv",
	}, out)
}

func TestGetTopParentSegments(t *testing.T) {
	info := Info{
		TextClassificationSegments: models.SegmentList{"travel-hotels", "sports-football"},
		PurchaseIntentSegments:     models.SegmentList{"automotive-suv"},
	}

	out := GetTopParentSegments(info, nil)
	assert.Equal(t, models.SegmentList{"travel", "sports", "automotive-suv"}, out,
		"only the text classification list is lifted to parent level")
}

func TestGetTopParentChildSegmentsFiltersApplyBeforeCap(t *testing.T) {
	filter := NewStaticFilterList([]string{"travel-hotels"})
	info := Info{
		TextClassificationSegments: models.SegmentList{"travel-hotels", "sports", "music", "science"},
	}

	out := GetTopParentChildSegments(info, filter)
	assert.Equal(t, models.SegmentList{"sports", "music", "science"}, out)
}

func TestGetTopParentChildSegmentsEmptyInfo(t *testing.T) {
	assert.Empty(t, GetTopParentChildSegments(Info{}, nil))
}

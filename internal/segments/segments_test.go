package segments

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patrickwarner/adselect/internal/models"
)

func TestGetParentSegment(t *testing.T) {
	assert.Equal(t, "technology & computing", GetParentSegment("technology & computing-software"))
	assert.Equal(t, "travel", GetParentSegment("travel"))
	assert.Equal(t, "a", GetParentSegment("a-b-c"), "only the first separator splits")
	assert.Equal(t, "", GetParentSegment(""))
}

func TestGetParentSegmentsPreservesLengthAndOrder(t *testing.T) {
	in := models.SegmentList{"travel-hotels", "sports", "travel-flights"}
	out := GetParentSegments(in)
	assert.Equal(t, models.SegmentList{"travel", "sports", "travel"}, out,
		"parents map one-to-one and are not deduplicated")
	assert.Len(t, out, len(in))
}

func TestGetParentSegmentsEmpty(t *testing.T) {
	assert.Nil(t, GetParentSegments(nil))
	assert.Nil(t, GetParentSegments(models.SegmentList{}))
}

func TestSetIntersection(t *testing.T) {
	a := models.SegmentList{"travel", "sports", "food & drink"}
	b := models.SegmentList{"food & drink", "travel", "music"}
	assert.Equal(t, models.SegmentList{"travel", "food & drink"}, SetIntersection(a, b),
		"result order follows the first list")

	assert.Nil(t, SetIntersection(a, nil))
	assert.Nil(t, SetIntersection(nil, b))
	assert.Nil(t, SetIntersection(a, models.SegmentList{"music"}))
}

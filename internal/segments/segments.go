// Package segments resolves the hierarchical segment taxonomy used for ad
// targeting. A segment is a flat string; "parent-child" entries belong to
// the taxonomy node named by the text before the first '-'.
package segments

import (
	"strings"

	"github.com/patrickwarner/adselect/internal/models"
)

// Untargeted is the fallback segment bucket for ads with no specific
// segment match.
const Untargeted = "untargeted"

const separator = "-"

// GetParentSegment returns the parent taxonomy node for a segment. Segments
// without a separator are their own parent.
func GetParentSegment(segment string) string {
	if idx := strings.Index(segment, separator); idx >= 0 {
		return segment[:idx]
	}
	return segment
}

// GetParentSegments maps every segment to its parent, preserving input
// order. The result has the same length as the input and is not
// deduplicated.
func GetParentSegments(list models.SegmentList) models.SegmentList {
	if len(list) == 0 {
		return nil
	}
	parents := make(models.SegmentList, 0, len(list))
	for _, segment := range list {
		parents = append(parents, GetParentSegment(segment))
	}
	return parents
}

// SetIntersection returns the segments present in both lists, in the order
// of the first list.
func SetIntersection(a, b models.SegmentList) models.SegmentList {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	index := make(map[string]struct{}, len(b))
	for _, s := range b {
		index[s] = struct{}{}
	}
	var out models.SegmentList
	for _, s := range a {
		if _, ok := index[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

package models

import "strings"

// SegmentList is an ordered list of segment identifiers. Segments are
// hierarchical strings such as "technology & computing-software" where the
// text before the first '-' names the parent taxonomy node.
type SegmentList []string

// Contains reports whether the list includes the given segment.
func (l SegmentList) Contains(segment string) bool {
	for _, s := range l {
		if s == segment {
			return true
		}
	}
	return false
}

// Equal reports whether both lists hold the same segments in the same
// order.
func (l SegmentList) Equal(other SegmentList) bool {
	if len(l) != len(other) {
		return false
	}
	for i, s := range l {
		if s != other[i] {
			return false
		}
	}
	return true
}

// String joins the list for logs and traces.
func (l SegmentList) String() string {
	return strings.Join(l, ",")
}

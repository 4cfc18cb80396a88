package selectors

import (
	"context"

	"github.com/patrickwarner/adselect/internal/models"
)

// CreativeStore supplies candidate ads for one ad type. The dimensions
// argument applies to inline content ads ("300x200"); notification stores
// ignore it.
type CreativeStore[T models.CreativeAdVariant] interface {
	// GetForDimensions returns the full live candidate pool.
	GetForDimensions(ctx context.Context, dimensions string) ([]T, error)
	// GetForSegmentsAndDimensions returns live candidates whose segment
	// matches any of the given segments.
	GetForSegmentsAndDimensions(ctx context.Context, segments models.SegmentList, dimensions string) ([]T, error)
}

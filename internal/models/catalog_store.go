package models

import (
	"strings"
	"sync/atomic"
	"time"
)

// catalogSnapshot is an immutable snapshot of the loaded creative catalog.
type catalogSnapshot struct {
	notificationAds  []CreativeNotificationAd
	inlineContentAds []CreativeInlineContentAd
	segmentIndex     map[string]struct{}
}

// CatalogStore holds the creative catalog in memory with atomic snapshot
// swaps so the serving hot path never takes a lock. The catalog is replaced
// wholesale on each feed reload.
type CatalogStore struct {
	data atomic.Pointer[catalogSnapshot]
}

// NewCatalogStore creates an empty CatalogStore.
func NewCatalogStore() *CatalogStore {
	s := &CatalogStore{}
	s.data.Store(&catalogSnapshot{segmentIndex: make(map[string]struct{})})
	return s
}

// ReloadAll atomically replaces the full catalog.
func (s *CatalogStore) ReloadAll(notification []CreativeNotificationAd, inlineContent []CreativeInlineContentAd) {
	snap := &catalogSnapshot{
		notificationAds:  append([]CreativeNotificationAd(nil), notification...),
		inlineContentAds: append([]CreativeInlineContentAd(nil), inlineContent...),
		segmentIndex:     make(map[string]struct{}),
	}
	for _, ad := range snap.notificationAds {
		snap.segmentIndex[strings.ToLower(ad.Segment)] = struct{}{}
	}
	for _, ad := range snap.inlineContentAds {
		snap.segmentIndex[strings.ToLower(ad.Segment)] = struct{}{}
	}
	s.data.Store(snap)
}

// SetNotificationAds replaces the notification ad catalog.
func (s *CatalogStore) SetNotificationAds(ads []CreativeNotificationAd) {
	cur := s.data.Load()
	s.ReloadAll(ads, cur.inlineContentAds)
}

// SetInlineContentAds replaces the inline content ad catalog.
func (s *CatalogStore) SetInlineContentAds(ads []CreativeInlineContentAd) {
	cur := s.data.Load()
	s.ReloadAll(cur.notificationAds, ads)
}

// NotificationAdsForSegments returns active notification ads whose segment
// matches any of the given segments. Dimensions are ignored for
// notification ads.
func (s *CatalogStore) NotificationAdsForSegments(segments SegmentList, now time.Time) []CreativeNotificationAd {
	snap := s.data.Load()
	var out []CreativeNotificationAd
	for _, ad := range snap.notificationAds {
		if !adIsLive(ad.CreativeAd, now) {
			continue
		}
		if segmentMatches(segments, ad.Segment) {
			out = append(out, ad)
		}
	}
	return out
}

// AllNotificationAds returns every active notification ad.
func (s *CatalogStore) AllNotificationAds(now time.Time) []CreativeNotificationAd {
	snap := s.data.Load()
	var out []CreativeNotificationAd
	for _, ad := range snap.notificationAds {
		if adIsLive(ad.CreativeAd, now) {
			out = append(out, ad)
		}
	}
	return out
}

// InlineContentAdsForSegments returns active inline content ads for the
// given segments and dimensions. An empty dimensions string matches all.
func (s *CatalogStore) InlineContentAdsForSegments(segments SegmentList, dimensions string, now time.Time) []CreativeInlineContentAd {
	snap := s.data.Load()
	var out []CreativeInlineContentAd
	for _, ad := range snap.inlineContentAds {
		if !adIsLive(ad.CreativeAd, now) {
			continue
		}
		if dimensions != "" && ad.Dimensions != dimensions {
			continue
		}
		if segmentMatches(segments, ad.Segment) {
			out = append(out, ad)
		}
	}
	return out
}

// InlineContentAdsForDimensions returns every active inline content ad
// matching the dimensions.
func (s *CatalogStore) InlineContentAdsForDimensions(dimensions string, now time.Time) []CreativeInlineContentAd {
	snap := s.data.Load()
	var out []CreativeInlineContentAd
	for _, ad := range snap.inlineContentAds {
		if !adIsLive(ad.CreativeAd, now) {
			continue
		}
		if dimensions != "" && ad.Dimensions != dimensions {
			continue
		}
		out = append(out, ad)
	}
	return out
}

// Counts returns the number of loaded notification and inline content ads.
func (s *CatalogStore) Counts() (notification, inlineContent int) {
	snap := s.data.Load()
	return len(snap.notificationAds), len(snap.inlineContentAds)
}

// Segments returns the distinct segments present in the catalog.
func (s *CatalogStore) Segments() SegmentList {
	snap := s.data.Load()
	out := make(SegmentList, 0, len(snap.segmentIndex))
	for seg := range snap.segmentIndex {
		out = append(out, seg)
	}
	return out
}

func adIsLive(ad CreativeAd, now time.Time) bool {
	if !ad.StartAt.IsZero() && now.Before(ad.StartAt) {
		return false
	}
	if !ad.EndAt.IsZero() && now.After(ad.EndAt) {
		return false
	}
	return true
}

func segmentMatches(segments SegmentList, adSegment string) bool {
	for _, s := range segments {
		if strings.EqualFold(s, adSegment) {
			return true
		}
	}
	return false
}

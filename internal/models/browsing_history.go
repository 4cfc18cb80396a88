package models

import "time"

// BrowsingHistoryEntry is a single visited site, read-only for the engine.
type BrowsingHistoryEntry struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// BrowsingHistoryList is an ordered list of history entries, most recent
// first as returned by the provider.
type BrowsingHistoryList []BrowsingHistoryEntry

// Package resources loads the static serving resources shipped alongside
// the catalog feed.
package resources

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// AntiTargeting maps advertiser ids to the sites whose visitors should not
// be shown that advertiser's ads. The resource is distributed as a JSON
// file and reloaded wholesale.
type AntiTargeting struct {
	mu    sync.RWMutex
	sites map[string][]string
}

type antiTargetingFile struct {
	Version int `json:"version"`
	Sites   map[string][]string `json:"sites"`
}

// NewAntiTargeting returns an empty resource; Load populates it.
func NewAntiTargeting() *AntiTargeting {
	return &AntiTargeting{sites: make(map[string][]string)}
}

// Load replaces the resource contents from a JSON file. An empty path
// leaves the resource empty, which disables the anti-targeting rule.
func (r *AntiTargeting) Load(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read anti-targeting resource: %w", err)
	}
	var file antiTargetingFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse anti-targeting resource: %w", err)
	}
	r.mu.Lock()
	r.sites = file.Sites
	r.mu.Unlock()
	zap.L().Info("Loaded anti-targeting resource",
		zap.String("path", path), zap.Int("advertisers", len(file.Sites)))
	return nil
}

// SetSites replaces the resource contents directly. Used by tests and by
// catalog feeds that inline the resource.
func (r *AntiTargeting) SetSites(sites map[string][]string) {
	r.mu.Lock()
	r.sites = sites
	r.mu.Unlock()
}

// HasVisitedSite reports whether any visited URL matches a site listed for
// the advertiser. Matching compares registrable hosts, so
// "https://foo.com/path" matches a listed "foo.com".
func (r *AntiTargeting) HasVisitedSite(advertiserID string, visited []string) bool {
	r.mu.RLock()
	sites := r.sites[advertiserID]
	r.mu.RUnlock()
	if len(sites) == 0 {
		return false
	}
	for _, raw := range visited {
		host := hostOf(raw)
		if host == "" {
			continue
		}
		for _, site := range sites {
			if hostsMatch(host, hostOf(site)) {
				return true
			}
		}
	}
	return false
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
}

func hostsMatch(a, b string) bool {
	return b != "" && (a == b || strings.HasSuffix(a, "."+b))
}

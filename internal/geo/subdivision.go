package geo

import (
	"fmt"
	"net"
	"strings"
	"sync"
)

// SubdivisionTargeting resolves the caller's region into the
// country-subdivision code ("US-CA") that geo-targeted ads are matched
// against. A resolved code is cached per instance; SetSubdivision lets
// callers pin a code explicitly, which also serves tests.
type SubdivisionTargeting struct {
	geo *GeoIP

	mu          sync.RWMutex
	subdivision string
}

// NewSubdivisionTargeting constructs a resolver backed by the given GeoIP
// database. geo may be nil, in which case only pinned codes resolve.
func NewSubdivisionTargeting(geo *GeoIP) *SubdivisionTargeting {
	return &SubdivisionTargeting{geo: geo}
}

// SetSubdivision pins the resolved subdivision code.
func (t *SubdivisionTargeting) SetSubdivision(code string) {
	t.mu.Lock()
	t.subdivision = code
	t.mu.Unlock()
}

// Subdivision returns the pinned subdivision code, if any.
func (t *SubdivisionTargeting) Subdivision() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.subdivision
}

// Resolve derives the subdivision code for an IP and pins it. Returns the
// resolved code, which may be a bare country code when the database has no
// subdivision data for the IP.
func (t *SubdivisionTargeting) Resolve(ip net.IP) string {
	if t == nil {
		return ""
	}
	if t.geo == nil || ip == nil {
		return t.Subdivision()
	}
	country := t.geo.Country(ip)
	if country == "" {
		return t.Subdivision()
	}
	code := country
	if sub := t.geo.Subdivision(ip); sub != "" {
		code = fmt.Sprintf("%s-%s", country, sub)
	}
	t.SetSubdivision(code)
	return code
}

// CountryOf returns the country portion of a subdivision code.
func CountryOf(code string) string {
	if idx := strings.Index(code, "-"); idx >= 0 {
		return code[:idx]
	}
	return code
}

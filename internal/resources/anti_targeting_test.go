package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anti_targeting.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": 1,
		"sites": {
			"adv-1": ["acme.example", "competitor.example"]
		}
	}`), 0o600))

	r := NewAntiTargeting()
	require.NoError(t, r.Load(path))

	assert.True(t, r.HasVisitedSite("adv-1", []string{"https://acme.example/download"}))
	assert.False(t, r.HasVisitedSite("adv-2", []string{"https://acme.example/download"}))
}

func TestLoadEmptyPathDisables(t *testing.T) {
	r := NewAntiTargeting()
	require.NoError(t, r.Load(""))
	assert.False(t, r.HasVisitedSite("adv-1", []string{"https://acme.example"}))
}

func TestLoadMissingFile(t *testing.T) {
	r := NewAntiTargeting()
	assert.Error(t, r.Load(filepath.Join(t.TempDir(), "nope.json")))
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	r := NewAntiTargeting()
	assert.Error(t, r.Load(path))
}

func TestHasVisitedSiteHostMatching(t *testing.T) {
	r := NewAntiTargeting()
	r.SetSites(map[string][]string{
		"adv-1": {"foo.com"},
	})

	tests := []struct {
		name    string
		visited []string
		want    bool
	}{
		{"exact host", []string{"https://foo.com"}, true},
		{"path ignored", []string{"https://foo.com/some/page?q=1"}, true},
		{"www stripped", []string{"https://www.foo.com"}, true},
		{"subdomain matches", []string{"https://shop.foo.com"}, true},
		{"bare host no scheme", []string{"foo.com"}, true},
		{"different host", []string{"https://bar.com"}, false},
		{"suffix but not subdomain", []string{"https://notfoo.com"}, false},
		{"empty history", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.HasVisitedSite("adv-1", tc.visited))
		})
	}
}

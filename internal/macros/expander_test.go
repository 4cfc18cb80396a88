package macros

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testContext() *ExpansionContext {
	return &ExpansionContext{
		AdType:             "ad_notification",
		CreativeInstanceID: "3519f52c-46a4-4c48-9c2b-c264c0067f04",
		CreativeSetID:      "c2ba3e7d-f688-4bc4-851e-e6af6ca7cd07",
		CampaignID:         "84197fc8-830a-4a8e-8904-e45639f64ad4",
		AdvertiserID:       "5484a8ef-850a-4f06-8ce0-b57de37f1262",
		Segment:            "technology & computing-software",
		Timestamp:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestExpandURLStandardMacros(t *testing.T) {
	e := NewExpanderForTesting(zap.NewNop(), true)

	out, err := e.ExpandURL(
		"https://brand.example/landing?ci={CREATIVE_INSTANCE_ID}&cs={CREATIVE_SET_ID}&seg={SEGMENT}&ts={TIMESTAMP}",
		testContext(),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "ci=3519f52c-46a4-4c48-9c2b-c264c0067f04")
	assert.Contains(t, out, "cs=c2ba3e7d-f688-4bc4-851e-e6af6ca7cd07")
	assert.Contains(t, out, "ts=1748779200")
	assert.NotContains(t, out, "{")
}

func TestExpandURLEscapesValues(t *testing.T) {
	e := NewExpanderForTesting(zap.NewNop(), true)

	out, err := e.ExpandURL("https://brand.example/?seg={SEGMENT}", testContext())
	require.NoError(t, err)
	assert.Contains(t, out, "seg=technology+%26+computing-software")
}

func TestExpandURLNoMacros(t *testing.T) {
	e := NewExpanderForTesting(zap.NewNop(), true)

	raw := "https://brand.example/landing?plain=1"
	out, err := e.ExpandURL(raw, testContext())
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestExpandURLEmpty(t *testing.T) {
	e := NewExpanderForTesting(zap.NewNop(), true)

	out, err := e.ExpandURL("", testContext())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExpandURLCachebusterUnique(t *testing.T) {
	e := NewExpanderForTesting(zap.NewNop(), true)

	first, err := e.ExpandURL("https://brand.example/?cb={CACHEBUSTER}", testContext())
	require.NoError(t, err)
	second, err := e.ExpandURL("https://brand.example/?cb={CACHEBUSTER}", testContext())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestExpandURLStrictModeFailure(t *testing.T) {
	e := NewExpanderForTesting(zap.NewNop(), true)

	ctx := testContext()
	ctx.CreativeInstanceID = ""
	_, err := e.ExpandURL("https://brand.example/?ci={CREATIVE_INSTANCE_ID}", ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREATIVE_INSTANCE_ID")
}

func TestExpandURLLenientModeLeavesFailedMacro(t *testing.T) {
	e := NewExpanderForTesting(zap.NewNop(), false)

	ctx := testContext()
	ctx.CreativeInstanceID = ""
	out, err := e.ExpandURL("https://brand.example/?ci={CREATIVE_INSTANCE_ID}&c={CAMPAIGN_ID}", ctx)
	require.NoError(t, err)
	assert.Contains(t, out, "{CREATIVE_INSTANCE_ID}")
	assert.Contains(t, out, "c=84197fc8-830a-4a8e-8904-e45639f64ad4")
}

func TestRegisterCustomMacro(t *testing.T) {
	e := NewExpanderForTesting(zap.NewNop(), true)
	e.Register("COUNTRY", func(ctx *ExpansionContext) (string, error) {
		return "US", nil
	})

	out, err := e.ExpandURL("https://brand.example/?geo={COUNTRY}", testContext())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "geo=US"))
}

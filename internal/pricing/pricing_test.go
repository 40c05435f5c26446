package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostResolution(t *testing.T) {
	assert.InDelta(t, 0.13, Cost("nano-banana-pro", "google"), 1e-9)
	assert.InDelta(t, 0.09, Cost("nano-banana-pro", "kie"), 1e-9)
	assert.InDelta(t, 0.50, Cost("veo-3.1", "google"), 1e-9)

	// Empty provider resolves through the catalog default.
	assert.InDelta(t, Cost("kling-3.0", "wavespeed"), Cost("kling-3.0", ""), 1e-9)

	assert.Zero(t, Cost("no-such-model", "google"))
}

func TestActualCostFallsBackToRetail(t *testing.T) {
	// Free first-party tiers bill nothing.
	assert.Zero(t, ActualCost("nano-banana-pro", "google"))
	assert.InDelta(t, 0.09, ActualCost("nano-banana-pro", "kie"), 1e-9)

	// Models with no wholesale entry fall back to the retail price.
	assert.InDelta(t, Cost("gpt-image-1.5", "wavespeed"),
		ActualCost("gpt-image-1.5", "wavespeed"), 1e-9)
}

func TestDefaultProviders(t *testing.T) {
	assert.Equal(t, "google", DefaultProvider("nano-banana-pro"))
	assert.Equal(t, "wavespeed", DefaultProvider("sora-2"))
	assert.Equal(t, "higgsfield", DefaultProvider("seedance"))
	assert.Equal(t, "gemini", DefaultProvider("gemini-tts"))
	assert.Empty(t, DefaultProvider("no-such-model"))
}

func TestSyncFlags(t *testing.T) {
	assert.True(t, IsSync("nano-banana-pro", "google"))
	assert.True(t, IsSync("nano-banana-pro", "")) // default is google
	assert.False(t, IsSync("nano-banana-pro", "kie"))
	assert.False(t, IsSync("veo-3.1", "google"))
	assert.True(t, IsSync("gemini-tts", "gemini"))
}

func TestCatalogOrdering(t *testing.T) {
	images := Catalog(TypeImage, false)
	assert.NotEmpty(t, images)

	// Free tier models sort ahead of paid ones.
	sawPaid := false
	for _, m := range images {
		if !HasFreeTier(m.Slug) {
			sawPaid = true
		} else {
			assert.False(t, sawPaid, "free model %s listed after a paid one", m.Slug)
		}
	}

	for _, m := range Catalog(TypeVideo, false) {
		assert.Equal(t, TypeVideo, m.Type)
	}
}

func TestCatalogHidesActualCosts(t *testing.T) {
	public := Catalog(TypeImage, false)
	for _, m := range public {
		for _, p := range m.Providers {
			assert.Zero(t, p.Actual, "actual cost leaked for %s/%s", m.Slug, p.Name)
		}
	}

	admin := Catalog(TypeImage, true)
	var sawActual bool
	for _, m := range admin {
		for _, p := range m.Providers {
			if p.Actual > 0 {
				sawActual = true
			}
		}
	}
	assert.True(t, sawActual)
}

func TestCheapestPrice(t *testing.T) {
	// nano-banana: google 0.04, higgsfield 0.04, kie 0.09.
	assert.InDelta(t, 0.04, CheapestPrice("nano-banana"), 1e-9)
	assert.Zero(t, CheapestPrice("no-such-model"))
}

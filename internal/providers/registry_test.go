package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videobuds/backend/internal/config"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := &config.Config{
		KieAPIKey:           "kie-key",
		WaveSpeedAPIKey:     "ws-key",
		HiggsfieldKeyID:     "kid",
		HiggsfieldKeySecret: "secret",
	}
	r, err := NewRegistry(context.Background(), cfg)
	require.NoError(t, err)
	return r
}

func TestRegistryResolveDefaults(t *testing.T) {
	r := testRegistry(t)

	provider, err := r.Resolve("gpt-image-1.5", "")
	require.NoError(t, err)
	assert.Equal(t, "wavespeed", provider)

	provider, err = r.Resolve("kling-3.0", "kie")
	require.NoError(t, err)
	assert.Equal(t, "kie", provider)

	_, err = r.Resolve("unknown-model", "")
	require.ErrorIs(t, err, ErrUnknownModel)

	_, err = r.Resolve("gpt-image-1.5", "higgsfield")
	require.ErrorIs(t, err, ErrUnknownModel)
}

func TestRegistryImageBackend(t *testing.T) {
	r := testRegistry(t)

	gen, provider, err := r.Image("gpt-image-1.5", "")
	require.NoError(t, err)
	assert.Equal(t, "wavespeed", provider)
	assert.IsType(t, &WaveSpeedClient{}, gen)

	gen, provider, err = r.Image("nano-banana", "higgsfield")
	require.NoError(t, err)
	assert.Equal(t, "higgsfield", provider)
	assert.IsType(t, &HiggsfieldClient{}, gen)

	// Google is not configured in the test registry.
	_, _, err = r.Image("nano-banana-pro", "google")
	require.Error(t, err)
}

func TestRegistryTalkingHeadBackend(t *testing.T) {
	r := testRegistry(t)

	gen, provider, err := r.TalkingHead("infinitetalk", "")
	require.NoError(t, err)
	assert.Equal(t, "wavespeed", provider)
	assert.IsType(t, &WaveSpeedClient{}, gen)
}

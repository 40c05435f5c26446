package providers

import (
	"context"
	"fmt"

	"github.com/videobuds/backend/internal/config"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/pricing"
)

// Registry holds the configured provider clients and resolves a model slug
// plus optional provider override to a concrete backend. Clients whose API
// keys are missing stay nil and surface a configuration error at use time.
type Registry struct {
	google     *GoogleClient
	kie        *KieClient
	wavespeed  *WaveSpeedClient
	higgsfield *HiggsfieldClient
}

func NewRegistry(ctx context.Context, cfg *config.Config) (*Registry, error) {
	r := &Registry{}

	if cfg.GoogleAPIKey != "" {
		google, err := NewGoogleClient(ctx, cfg.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		r.google = google
	}
	if cfg.KieAPIKey != "" {
		r.kie = NewKieClient(cfg.KieAPIKey)
	}
	if cfg.WaveSpeedAPIKey != "" {
		r.wavespeed = NewWaveSpeedClient(cfg.WaveSpeedAPIKey)
	}
	if cfg.HiggsfieldKeyID != "" && cfg.HiggsfieldKeySecret != "" {
		r.higgsfield = NewHiggsfieldClient(cfg.HiggsfieldKeyID, cfg.HiggsfieldKeySecret)
	}

	logger.Log.Info("provider registry initialized")
	return r, nil
}

// NewRegistryWithClients wires pre-built clients. Callers that point
// clients at stand-in servers use this instead of NewRegistry.
func NewRegistryWithClients(google *GoogleClient, kie *KieClient, wavespeed *WaveSpeedClient, higgsfield *HiggsfieldClient) *Registry {
	return &Registry{google: google, kie: kie, wavespeed: wavespeed, higgsfield: higgsfield}
}

// Resolve validates the model and picks the provider, defaulting from the
// catalog when none is requested.
func (r *Registry) Resolve(model, provider string) (string, error) {
	if pricing.ModelBySlug(model) == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	if provider == "" {
		provider = pricing.DefaultProvider(model)
	}
	if !pricing.HasProvider(model, provider) {
		return "", fmt.Errorf("%w: provider %q does not run %q", ErrUnknownModel, provider, model)
	}
	return provider, nil
}

// Image returns the image backend for a model and the resolved provider name.
func (r *Registry) Image(model, provider string) (ImageGenerator, string, error) {
	provider, err := r.Resolve(model, provider)
	if err != nil {
		return nil, "", err
	}
	switch provider {
	case "google":
		if r.google == nil {
			return nil, "", fmt.Errorf("google provider not configured (GOOGLE_API_KEY)")
		}
		return r.google, provider, nil
	case "kie":
		if r.kie == nil {
			return nil, "", fmt.Errorf("kie provider not configured (KIE_API_KEY)")
		}
		return r.kie, provider, nil
	case "wavespeed":
		if r.wavespeed == nil {
			return nil, "", fmt.Errorf("wavespeed provider not configured (WAVESPEED_API_KEY)")
		}
		return r.wavespeed, provider, nil
	case "higgsfield":
		if r.higgsfield == nil {
			return nil, "", fmt.Errorf("higgsfield provider not configured (HIGGSFIELD_API_KEY_ID/SECRET)")
		}
		return r.higgsfield, provider, nil
	}
	return nil, "", fmt.Errorf("%w: no image backend for provider %q", ErrUnknownModel, provider)
}

// Video returns the video backend for a model and the resolved provider name.
func (r *Registry) Video(model, provider string) (VideoGenerator, string, error) {
	provider, err := r.Resolve(model, provider)
	if err != nil {
		return nil, "", err
	}
	switch provider {
	case "google":
		if r.google == nil {
			return nil, "", fmt.Errorf("google provider not configured (GOOGLE_API_KEY)")
		}
		return r.google, provider, nil
	case "kie":
		if r.kie == nil {
			return nil, "", fmt.Errorf("kie provider not configured (KIE_API_KEY)")
		}
		return r.kie, provider, nil
	case "wavespeed":
		if r.wavespeed == nil {
			return nil, "", fmt.Errorf("wavespeed provider not configured (WAVESPEED_API_KEY)")
		}
		return r.wavespeed, provider, nil
	case "higgsfield":
		if r.higgsfield == nil {
			return nil, "", fmt.Errorf("higgsfield provider not configured (HIGGSFIELD_API_KEY_ID/SECRET)")
		}
		return r.higgsfield, provider, nil
	}
	return nil, "", fmt.Errorf("%w: no video backend for provider %q", ErrUnknownModel, provider)
}

// Speech returns the TTS backend for a model and the resolved provider name.
func (r *Registry) Speech(model, provider string) (SpeechGenerator, string, error) {
	provider, err := r.Resolve(model, provider)
	if err != nil {
		return nil, "", err
	}
	// Gemini TTS is the only speech backend.
	if r.google == nil {
		return nil, "", fmt.Errorf("gemini provider not configured (GOOGLE_API_KEY)")
	}
	return r.google, provider, nil
}

// TalkingHead returns the talking head backend for a model and the resolved
// provider name.
func (r *Registry) TalkingHead(model, provider string) (TalkingHeadGenerator, string, error) {
	provider, err := r.Resolve(model, provider)
	if err != nil {
		return nil, "", err
	}
	switch provider {
	case "higgsfield":
		if r.higgsfield == nil {
			return nil, "", fmt.Errorf("higgsfield provider not configured (HIGGSFIELD_API_KEY_ID/SECRET)")
		}
		return r.higgsfield, provider, nil
	case "wavespeed":
		if r.wavespeed == nil {
			return nil, "", fmt.Errorf("wavespeed provider not configured (WAVESPEED_API_KEY)")
		}
		return r.wavespeed, provider, nil
	}
	return nil, "", fmt.Errorf("%w: no talking head backend for provider %q", ErrUnknownModel, provider)
}

// WaveSpeed exposes the raw client for media staging uploads, or nil if the
// provider is not configured.
func (r *Registry) WaveSpeed() *WaveSpeedClient {
	return r.wavespeed
}

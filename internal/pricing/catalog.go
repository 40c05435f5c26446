package pricing

import "sort"

// ModelType classifies what a model produces.
type ModelType string

const (
	TypeImage       ModelType = "image"
	TypeVideo       ModelType = "video"
	TypeTTS         ModelType = "tts"
	TypeTalkingHead ModelType = "talking_head"
)

// ProviderInfo describes one provider able to run a model.
type ProviderInfo struct {
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	Retail   float64 `json:"retail"`
	Actual   float64 `json:"actual,omitempty"`
	FreeTier bool    `json:"free_tier"`
	// Sync providers return the result from the submit call; everything
	// else goes through the poll loop.
	Sync bool `json:"sync"`
}

// ModelInfo is one catalog entry, keyed by model slug.
type ModelInfo struct {
	Slug            string         `json:"slug"`
	DisplayName     string         `json:"display_name"`
	Type            ModelType      `json:"type"`
	Description     string         `json:"description"`
	Icon            string         `json:"icon"`
	DefaultProvider string         `json:"default_provider"`
	Providers       []ProviderInfo `json:"providers"`
}

var catalog = []ModelInfo{
	{
		Slug:            "nano-banana",
		DisplayName:     "Nano Banana",
		Type:            TypeImage,
		Description:     "Fast, affordable image generation. Great for drafts and iteration.",
		Icon:            "🍌",
		DefaultProvider: "google",
		Providers: []ProviderInfo{
			{Name: "google", Label: "Google AI Studio", FreeTier: true, Sync: true},
			{Name: "higgsfield", Label: "Higgsfield", FreeTier: true},
			{Name: "kie", Label: "Kie AI"},
		},
	},
	{
		Slug:            "nano-banana-pro",
		DisplayName:     "Nano Banana Pro",
		Type:            TypeImage,
		Description:     "Higher quality image generation with better detail and consistency.",
		Icon:            "🍌✨",
		DefaultProvider: "google",
		Providers: []ProviderInfo{
			{Name: "google", Label: "Google AI Studio", FreeTier: true, Sync: true},
			{Name: "higgsfield", Label: "Higgsfield", FreeTier: true},
			{Name: "kie", Label: "Kie AI"},
		},
	},
	{
		Slug:            "gpt-image-1.5",
		DisplayName:     "GPT Image 1.5",
		Type:            TypeImage,
		Description:     "OpenAI-powered image editing and generation via WaveSpeed.",
		Icon:            "🎨",
		DefaultProvider: "wavespeed",
		Providers: []ProviderInfo{
			{Name: "wavespeed", Label: "WaveSpeed"},
		},
	},
	{
		Slug:            "veo-3.1",
		DisplayName:     "Veo 3.1",
		Type:            TypeVideo,
		Description:     "Google's latest video generation model. High quality, free tier available.",
		Icon:            "🎬",
		DefaultProvider: "google",
		Providers: []ProviderInfo{
			{Name: "google", Label: "Google AI Studio", FreeTier: true},
		},
	},
	{
		Slug:            "kling-3.0",
		DisplayName:     "Kling 3.0",
		Type:            TypeVideo,
		Description:     "High-quality video from image or text. Supports multi-shot and variable duration.",
		Icon:            "📹",
		DefaultProvider: "wavespeed",
		Providers: []ProviderInfo{
			{Name: "wavespeed", Label: "WaveSpeed"},
			{Name: "kie", Label: "Kie AI"},
		},
	},
	{
		Slug:            "sora-2",
		DisplayName:     "Sora 2",
		Type:            TypeVideo,
		Description:     "OpenAI Sora image-to-video generation.",
		Icon:            "🌀",
		DefaultProvider: "wavespeed",
		Providers: []ProviderInfo{
			{Name: "wavespeed", Label: "WaveSpeed"},
		},
	},
	{
		Slug:            "sora-2-pro",
		DisplayName:     "Sora 2 Pro",
		Type:            TypeVideo,
		Description:     "OpenAI Sora Pro - higher quality, portrait/landscape, 10-15s output.",
		Icon:            "🌀✨",
		DefaultProvider: "wavespeed",
		Providers: []ProviderInfo{
			{Name: "wavespeed", Label: "WaveSpeed"},
			{Name: "kie", Label: "Kie AI"},
		},
	},
	{
		Slug:            "seedance",
		DisplayName:     "Seedance 2.0",
		Type:            TypeVideo,
		Description:     "ByteDance's Seedance. Affordable, good quality text and image-to-video.",
		Icon:            "🌱",
		DefaultProvider: "higgsfield",
		Providers: []ProviderInfo{
			{Name: "higgsfield", Label: "Higgsfield"},
		},
	},
	{
		Slug:            "minimax",
		DisplayName:     "Minimax",
		Type:            TypeVideo,
		Description:     "Minimax video model. Fast, affordable, great for social content.",
		Icon:            "⚡",
		DefaultProvider: "higgsfield",
		Providers: []ProviderInfo{
			{Name: "higgsfield", Label: "Higgsfield"},
		},
	},
	{
		Slug:            "gemini-tts",
		DisplayName:     "Gemini TTS",
		Type:            TypeTTS,
		Description:     "Google Gemini Text-to-Speech for natural voice generation.",
		Icon:            "🗣️",
		DefaultProvider: "gemini",
		Providers: []ProviderInfo{
			{Name: "gemini", Label: "Google AI Studio", FreeTier: true, Sync: true},
		},
	},
	{
		Slug:            "speak-v2",
		DisplayName:     "Higgsfield Speak v2",
		Type:            TypeTalkingHead,
		Description:     "High-quality talking head video from image and audio.",
		Icon:            "🧑‍🎤",
		DefaultProvider: "higgsfield",
		Providers: []ProviderInfo{
			{Name: "higgsfield", Label: "Higgsfield"},
		},
	},
	{
		Slug:            "talking-photo",
		DisplayName:     "Higgsfield Talking Photo",
		Type:            TypeTalkingHead,
		Description:     "Legacy talking head video from image and audio (fallback).",
		Icon:            "📸",
		DefaultProvider: "higgsfield",
		Providers: []ProviderInfo{
			{Name: "higgsfield", Label: "Higgsfield"},
		},
	},
	{
		Slug:            "infinitetalk",
		DisplayName:     "WaveSpeed InfiniteTalk",
		Type:            TypeTalkingHead,
		Description:     "WaveSpeed talking head video from image and audio (last resort).",
		Icon:            "🗣️",
		DefaultProvider: "wavespeed",
		Providers: []ProviderInfo{
			{Name: "wavespeed", Label: "WaveSpeed"},
		},
	},
}

var catalogBySlug = func() map[string]*ModelInfo {
	m := make(map[string]*ModelInfo, len(catalog))
	for i := range catalog {
		m[catalog[i].Slug] = &catalog[i]
	}
	return m
}()

// ModelBySlug returns the catalog entry for a model, or nil if unknown.
func ModelBySlug(slug string) *ModelInfo {
	return catalogBySlug[slug]
}

// DefaultProvider returns the default provider name for a model,
// or "" for an unknown model.
func DefaultProvider(model string) string {
	if info := catalogBySlug[model]; info != nil {
		return info.DefaultProvider
	}
	return ""
}

// IsSync reports whether a model+provider returns its result synchronously.
func IsSync(model, provider string) bool {
	info := catalogBySlug[model]
	if info == nil {
		return false
	}
	if provider == "" {
		provider = info.DefaultProvider
	}
	for _, p := range info.Providers {
		if p.Name == provider {
			return p.Sync
		}
	}
	return false
}

// HasProvider reports whether a provider can run a model.
func HasProvider(model, provider string) bool {
	info := catalogBySlug[model]
	if info == nil {
		return false
	}
	for _, p := range info.Providers {
		if p.Name == provider {
			return true
		}
	}
	return false
}

// HasFreeTier reports whether any provider runs the model for free.
func HasFreeTier(model string) bool {
	info := catalogBySlug[model]
	if info == nil {
		return false
	}
	for _, p := range info.Providers {
		if p.FreeTier {
			return true
		}
	}
	return false
}

// CheapestPrice returns the lowest retail price across a model's providers.
func CheapestPrice(model string) float64 {
	info := catalogBySlug[model]
	if info == nil {
		return 0
	}
	cheapest := 0.0
	for i, p := range info.Providers {
		price := Cost(model, p.Name)
		if i == 0 || price < cheapest {
			cheapest = price
		}
	}
	return cheapest
}

// Catalog returns catalog entries of one type with prices filled in, free
// tier models first and then by ascending price. When includeActual is set
// the operator cost is populated too (admin view).
func Catalog(modelType ModelType, includeActual bool) []ModelInfo {
	var out []ModelInfo
	for _, info := range catalog {
		if modelType != "" && info.Type != modelType {
			continue
		}
		entry := info
		entry.Providers = make([]ProviderInfo, len(info.Providers))
		for i, p := range info.Providers {
			p.Retail = Cost(info.Slug, p.Name)
			if includeActual {
				p.Actual = ActualCost(info.Slug, p.Name)
			}
			entry.Providers[i] = p
		}
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := HasFreeTier(out[i].Slug), HasFreeTier(out[j].Slug)
		if fi != fj {
			return fi
		}
		return CheapestPrice(out[i].Slug) < CheapestPrice(out[j].Slug)
	})

	return out
}

package promptcraft

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/videobuds/backend/internal/models"
)

func TestDetectAspectRatio(t *testing.T) {
	assert.Equal(t, "16:9", DetectAspectRatio("16:9. A wide city skyline at dusk"))
	assert.Equal(t, "1:1", DetectAspectRatio("1:1 product on marble"))
	assert.Equal(t, DefaultRatio, DetectAspectRatio("a cozy cafe interior"))
	// A ratio mentioned mid-prompt is not a prefix.
	assert.Equal(t, DefaultRatio, DetectAspectRatio("render in 16:9 please"))
}

func TestIsValidRatio(t *testing.T) {
	assert.True(t, IsValidRatio("9:16"))
	assert.True(t, IsValidRatio("21:9"))
	assert.False(t, IsValidRatio("7:5"))
	assert.False(t, IsValidRatio(""))
}

func TestPresetBySlugFallback(t *testing.T) {
	assert.Equal(t, "cinematic", PresetBySlug("cinematic").Slug)
	assert.Equal(t, "minimalist", PresetBySlug("does-not-exist").Slug)
}

func TestPostPrompt(t *testing.T) {
	brand := &models.Brand{
		Name:   "Acme Coffee",
		Colors: models.StringList{"#1A1A2E", "#E94560"},
	}
	post := &models.Post{ContentPillar: "education", ImageType: "flatlay"}

	prompt := PostPrompt(PresetBySlug("flat_lay"), brand, post, "1:1")

	assert.True(t, strings.HasPrefix(prompt, "Aspect ratio 1:1."))
	assert.Contains(t, prompt, "flat lay composition")
	assert.Contains(t, prompt, "#1A1A2E, #E94560")
	assert.Contains(t, prompt, "Content pillar: education.")
	assert.Contains(t, prompt, "Image type: flatlay.")
}

func TestPostPromptDefaults(t *testing.T) {
	prompt := PostPrompt(PresetBySlug("minimalist"), nil, nil, "")
	assert.True(t, strings.HasPrefix(prompt, "Aspect ratio 9:16."))
	assert.NotContains(t, prompt, "Brand color palette")
}

func TestBrandContext(t *testing.T) {
	assert.Empty(t, BrandContext(nil))

	brand := &models.Brand{
		Name:           "Acme Coffee",
		TargetAudience: "remote workers",
		VoiceTone:      "warm, witty",
		Colors:         models.StringList{"#1A1A2E"},
		ContentPillars: models.StringList{"education", "community"},
		Hashtags:       models.StringList{"#acme", "#coffee"},
		Questionnaire: &models.BrandQuestionnaire{
			Mission:      "great coffee for everyone",
			DontLanguage: "cheap, discount",
		},
	}

	ctx := BrandContext(brand)
	assert.Contains(t, ctx, "Brand: Acme Coffee")
	assert.Contains(t, ctx, "Primary: #1A1A2E")
	assert.Contains(t, ctx, "Content Pillars: education, community")
	assert.Contains(t, ctx, "Brand Hashtags: #acme #coffee")
	assert.Contains(t, ctx, "Mission: great coffee for everyone")
	assert.Contains(t, ctx, "NEVER DO: cheap, discount")
	assert.True(t, strings.HasPrefix(ctx, "=== BRAND CONTEXT ==="))
	assert.Contains(t, ctx, "=== END BRAND CONTEXT ===")
}

func TestPersonaContext(t *testing.T) {
	assert.Empty(t, PersonaContext(nil))

	persona := &models.UserPersona{
		Name:           "Busy Founder",
		AgeRange:       "30-45",
		Platforms:      models.StringList{"linkedin", "instagram"},
		TonePreference: "direct",
	}

	ctx := PersonaContext(persona)
	assert.Contains(t, ctx, "Persona: Busy Founder")
	assert.Contains(t, ctx, "Platforms: linkedin, instagram")
	assert.Contains(t, ctx, "Tone: direct")
}

func TestCreativeDirectives(t *testing.T) {
	base := CreativeDirectives(TypeImage, "")
	assert.Contains(t, base, "BRAND FIDELITY")
	assert.Contains(t, base, "IMAGE QUALITY")
	assert.NotContains(t, base, "UGC AUTHENTICITY")

	ugc := CreativeDirectives(TypeVideo, "ugc")
	assert.Contains(t, ugc, "UGC AUTHENTICITY")
	assert.Contains(t, ugc, "VIDEO QUALITY")
	assert.NotContains(t, ugc, "IMAGE QUALITY")

	text := CreativeDirectives(TypeText, "")
	assert.NotContains(t, text, "IMAGE QUALITY")
	assert.NotContains(t, text, "VIDEO QUALITY")
}

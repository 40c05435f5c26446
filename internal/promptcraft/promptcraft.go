// Package promptcraft builds the text blocks injected into generation
// prompts: brand and persona context, creative quality directives, style
// preset fragments and aspect ratio handling.
package promptcraft

import (
	"fmt"
	"strings"

	"github.com/videobuds/backend/internal/models"
)

// ValidRatios lists every aspect ratio the image providers accept.
var ValidRatios = []string{"1:1", "2:3", "3:2", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9"}

// ImageTypes is the rotation vocabulary for campaign calendar posts.
var ImageTypes = []string{"ugc", "studio", "detail", "lifestyle", "cgi", "flatlay"}

// DefaultRatio is used when no ratio is requested or detected.
const DefaultRatio = "9:16"

// IsValidRatio reports whether the providers accept the ratio.
func IsValidRatio(ratio string) bool {
	for _, r := range ValidRatios {
		if r == ratio {
			return true
		}
	}
	return false
}

// DetectAspectRatio reads a ratio prefix from a prompt, e.g. "9:16. A cozy
// cafe...", falling back to the default portrait ratio.
func DetectAspectRatio(prompt string) string {
	for _, ratio := range ValidRatios {
		if strings.HasPrefix(prompt, ratio+".") || strings.HasPrefix(prompt, ratio+" ") {
			return ratio
		}
	}
	return DefaultRatio
}

// StylePreset bundles the prompt fragment and camera direction for one of
// the built-in looks.
type StylePreset struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Fragment    string `json:"-"`
	Camera      string `json:"-"`
}

// StylePresets in display order. The minimalist preset is the fallback.
var StylePresets = []StylePreset{
	{
		Slug:        "pop_art",
		Name:        "Pop Art",
		Description: "Bold colors, high contrast, comic-inspired",
		Icon:        "palette",
		Fragment:    "Pop art style, bold primary colors, high contrast, thick black outlines, comic book inspired, halftone dot patterns",
		Camera:      "clean studio shot, flat lighting, bold shadows",
	},
	{
		Slug:        "minimalist",
		Name:        "Minimalist",
		Description: "Clean, simple, lots of white space",
		Icon:        "circle",
		Fragment:    "Minimalist composition, clean white background, single subject centered, ample negative space, soft natural lighting",
		Camera:      "centered composition, soft diffused lighting, clean background",
	},
	{
		Slug:        "corporate",
		Name:        "Corporate",
		Description: "Professional, polished, business-ready",
		Icon:        "briefcase",
		Fragment:    "Professional corporate photography, clean composition, subtle gradient background, polished and business-ready",
		Camera:      "professional DSLR, f/2.8, clean studio lighting, business context",
	},
	{
		Slug:        "ugc",
		Name:        "UGC (User Generated)",
		Description: "Authentic, iPhone-shot, casual feel",
		Icon:        "phone",
		Fragment:    "Amateur iPhone photo, candid UGC style, authentic and unpolished, natural skin texture, slightly uneven framing",
		Camera:      "amateur iPhone selfie, uneven framing, natural daylight",
	},
	{
		Slug:        "flat_lay",
		Name:        "Flat Lay",
		Description: "Overhead product arrangement",
		Icon:        "camera",
		Fragment:    "Overhead flat lay composition, products neatly arranged on textured surface, top-down perspective, styled with props",
		Camera:      "top-down overhead, soft even lighting, no harsh shadows",
	},
	{
		Slug:        "cinematic",
		Name:        "Cinematic",
		Description: "Movie-quality, dramatic lighting",
		Icon:        "film",
		Fragment:    "Cinematic photography, dramatic lighting with deep shadows, anamorphic lens look, film grain, color graded, moody",
		Camera:      "ARRI Alexa look, 35mm anamorphic, shallow DOF, cinematic color grade",
	},
}

// PresetBySlug returns a preset, falling back to minimalist for unknown
// slugs so a stale preset name never kills a generation.
func PresetBySlug(slug string) StylePreset {
	for _, p := range StylePresets {
		if p.Slug == slug {
			return p
		}
	}
	for _, p := range StylePresets {
		if p.Slug == "minimalist" {
			return p
		}
	}
	return StylePresets[0]
}

// PostPrompt builds the template image prompt for a calendar post. It is
// the fallback when the agent cannot produce a smart prompt.
func PostPrompt(preset StylePreset, brand *models.Brand, post *models.Post, aspectRatio string) string {
	if aspectRatio == "" {
		aspectRatio = DefaultRatio
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Aspect ratio %s.", aspectRatio))
	parts = append(parts, preset.Fragment+".")

	if brand != nil && len(brand.Colors) > 0 {
		parts = append(parts, fmt.Sprintf("Brand color palette: %s.", strings.Join(brand.Colors, ", ")))
	}
	parts = append(parts, fmt.Sprintf("Camera: %s.", preset.Camera))

	if post != nil {
		if post.ContentPillar != "" {
			parts = append(parts, fmt.Sprintf("Content pillar: %s.", post.ContentPillar))
		}
		if post.ImageType != "" {
			parts = append(parts, fmt.Sprintf("Image type: %s.", post.ImageType))
		}
	}
	return strings.Join(parts, " ")
}

// BrandContext renders the prompt-injection block for a brand. Returns an
// empty string for nil so callers can concatenate unconditionally.
func BrandContext(brand *models.Brand) string {
	if brand == nil {
		return ""
	}

	parts := []string{"=== BRAND CONTEXT ==="}
	parts = append(parts, "Brand: "+brand.Name)
	if brand.Description != "" {
		parts = append(parts, "About: "+brand.Description)
	}
	if brand.Industry != "" {
		parts = append(parts, "Industry: "+brand.Industry)
	}

	if len(brand.Colors) > 0 {
		labels := []string{"Primary", "Secondary", "Tertiary", "Accent 1", "Accent 2"}
		var lines []string
		for i, c := range brand.Colors {
			if i >= 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("  %s: %s", labels[i], c))
		}
		parts = append(parts, "Color Palette:\n"+strings.Join(lines, "\n"))
		parts = append(parts,
			"IMPORTANT: Use these brand colors in backgrounds, accents, "+
				"clothing, props, or lighting. Never replace them with random colors.")
	}

	if brand.VoiceTone != "" {
		parts = append(parts, "Brand Voice: "+brand.VoiceTone)
	}
	if brand.TargetAudience != "" {
		parts = append(parts, "Target Audience: "+brand.TargetAudience)
	}
	if len(brand.ContentPillars) > 0 {
		parts = append(parts, "Content Pillars: "+strings.Join(brand.ContentPillars, ", "))
	}
	if len(brand.Hashtags) > 0 {
		parts = append(parts, "Brand Hashtags: "+strings.Join(brand.Hashtags, " "))
	}
	if brand.LogoPath != "" {
		parts = append(parts,
			"Logo: Brand logo is available. Reference it in scenes where "+
				"logo placement is appropriate.")
	}

	if q := brand.Questionnaire; q != nil {
		if q.Mission != "" {
			parts = append(parts, "Mission: "+q.Mission)
		}
		if q.Values != "" {
			parts = append(parts, "Values: "+q.Values)
		}
		if q.Differentiators != "" {
			parts = append(parts, "Differentiators: "+q.Differentiators)
		}
		if q.CustomerPains != "" {
			parts = append(parts, "Customer Pains: "+q.CustomerPains)
		}
		if q.CustomerGains != "" {
			parts = append(parts, "Customer Gains: "+q.CustomerGains)
		}
		if q.DoLanguage != "" {
			parts = append(parts, "Language To Use: "+q.DoLanguage)
		}
		if q.DontLanguage != "" {
			parts = append(parts, "NEVER DO: "+q.DontLanguage)
		}
	}

	parts = append(parts, "=== END BRAND CONTEXT ===\n")
	return strings.Join(parts, "\n")
}

// PersonaContext renders the prompt-injection block for a persona.
func PersonaContext(persona *models.UserPersona) string {
	if persona == nil {
		return ""
	}

	parts := []string{"=== PERSONA / VOICE CONTEXT ==="}
	parts = append(parts, "Persona: "+persona.Name)
	if persona.AgeRange != "" {
		parts = append(parts, "Age Range: "+persona.AgeRange)
	}
	if persona.Occupation != "" {
		parts = append(parts, "Occupation: "+persona.Occupation)
	}
	if persona.Goals != "" {
		parts = append(parts, "Goals: "+persona.Goals)
	}
	if persona.PainPoints != "" {
		parts = append(parts, "Pain Points: "+persona.PainPoints)
	}
	if len(persona.Platforms) > 0 {
		parts = append(parts, "Platforms: "+strings.Join(persona.Platforms, ", "))
	}
	if persona.TonePreference != "" {
		parts = append(parts, "Tone: "+persona.TonePreference)
	}
	parts = append(parts,
		"IMPORTANT: All captions, ad copy, and text must match this "+
			"persona's tone and style. Never deviate from their voice.")
	parts = append(parts, "=== END PERSONA CONTEXT ===\n")
	return strings.Join(parts, "\n")
}

// GenerationType selects the type-specific directive block.
type GenerationType string

const (
	TypeImage GenerationType = "image"
	TypeVideo GenerationType = "video"
	TypeText  GenerationType = "text"
)

// CreativeDirectives returns the universal quality rules appended to agent
// prompts. styleHint "ugc" adds the authenticity block.
func CreativeDirectives(genType GenerationType, styleHint string) string {
	parts := []string{"\n=== CREATIVE QUALITY DIRECTIVES ==="}

	parts = append(parts,
		"BRAND FIDELITY:\n"+
			"- NEVER alter the color or any part of the product.\n"+
			"- If brand colors are provided, weave them into the scene "+
			"(backgrounds, accents, clothing, props, lighting).\n"+
			"- If a design peg or reference image is provided, adjust "+
			"colors in the scene to fit the brand's color palette.\n"+
			"- Respect the brand's visual style, target audience, and "+
			"content pillars at all times.")

	parts = append(parts,
		"DIVERSITY & INCLUSION:\n"+
			"- Ensure diversity in gender, ethnicity, and hair color.\n"+
			"- Default age range: 21-38 unless the brand specifies otherwise.\n"+
			"- Show visible imperfections for realism (blemishes, uneven "+
			"skin, natural features).")

	parts = append(parts,
		"PROMPT RULES:\n"+
			"- Do NOT use double quotes inside image or video prompts.\n"+
			"- Keep ad copy short, punchy, and action-oriented (max 7 words).\n"+
			"- If a caption template is provided, follow that structure.\n"+
			"- If brand hashtags are provided, incorporate them naturally.")

	if styleHint == "ugc" {
		parts = append(parts,
			"UGC AUTHENTICITY:\n"+
				"- All outputs must feel natural, candid, and unpolished.\n"+
				"- Use amateur iPhone photo/video style keywords: "+
				"'unremarkable amateur iPhone photos', 'reddit image', "+
				"'snapchat video', 'casual iPhone selfie', 'slightly uneven "+
				"framing', 'authentic share, slightly blurry', 'amateur "+
				"quality phone photo'.\n"+
				"- Everyday realism with authentic, relatable settings.\n"+
				"- Slightly imperfect framing and lighting.\n"+
				"- Candid poses and genuine expressions.\n"+
				"- Real-world environments left as-is (clutter, busy backgrounds).")
	}

	switch genType {
	case TypeImage:
		parts = append(parts,
			"IMAGE QUALITY:\n"+
				"- Be specific: describe subject, setting, composition, "+
				"camera angle, lighting, mood, color palette, textures.\n"+
				"- Avoid vague adjectives. Every descriptor should be visual.")
	case TypeVideo:
		parts = append(parts,
			"VIDEO QUALITY:\n"+
				"- Describe camera movement explicitly: 'slow dolly push-in', "+
				"'orbit left 90 degrees', 'crane up revealing the scene'.\n"+
				"- Specify motion, lighting transitions, atmosphere changes, "+
				"and pacing.\n"+
				"- For dialogue: use '...' for pauses, avoid special "+
				"characters like em dashes.")
	}

	parts = append(parts, "=== END CREATIVE DIRECTIVES ===\n")
	return strings.Join(parts, "\n")
}

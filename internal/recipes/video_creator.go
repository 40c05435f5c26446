package recipes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/promptcraft"
)

type videoModel struct {
	Model    string
	Label    string
	Provider string
	Cost     string
	// MaxDuration caps the clip length the model supports.
	MaxDuration int
}

var videoCreatorModels = map[string]videoModel{
	"veo-3.1":    {Model: "veo-3.1", Label: "Veo 3.1 (Google)", Provider: "google", Cost: "$0.50", MaxDuration: 8},
	"kling-3.0":  {Model: "kling-3.0", Label: "Kling 3.0 (WaveSpeed)", Provider: "wavespeed", Cost: "$0.30", MaxDuration: 10},
	"sora-2":     {Model: "sora-2", Label: "Sora 2 (WaveSpeed)", Provider: "wavespeed", Cost: "$0.30", MaxDuration: 20},
	"sora-2-pro": {Model: "sora-2-pro", Label: "Sora 2 Pro (WaveSpeed)", Provider: "wavespeed", Cost: "$0.30", MaxDuration: 20},
	"seedance":   {Model: "seedance", Label: "Seedance 2.0 (Higgsfield)", Provider: "higgsfield", Cost: "~$0.08", MaxDuration: 10},
	"minimax":    {Model: "minimax", Label: "Minimax (Higgsfield)", Provider: "higgsfield", Cost: "~$0.08", MaxDuration: 10},
}

var videoStylePresets = map[string]stylePreset{
	"none": {Label: "None - I'll describe everything"},
	"product_reveal": {
		Label: "Product Reveal",
		Fragment: "Cinematic product reveal: slow dramatic zoom-in on the product " +
			"with soft bokeh background. Elegant lighting transitions from dark " +
			"to perfectly lit. Subtle particle effects or light flares. " +
			"Premium, polished commercial feel.",
	},
	"social_teaser": {
		Label: "Social Media Teaser",
		Fragment: "Punchy social media teaser with dynamic, attention-grabbing movement. " +
			"Quick cuts between angles, trendy transitions, energetic pacing. " +
			"Designed to stop the scroll. Think Instagram Reels or TikTok aesthetic.",
	},
	"cinematic": {
		Label: "Cinematic / Epic",
		Fragment: "Cinematic wide-angle shot with dramatic camera movement: " +
			"slow dolly, crane shot, or smooth orbit. Film-grade color grading, " +
			"anamorphic lens flares, shallow depth of field. " +
			"Epic, movie-trailer quality visual storytelling.",
	},
	"ugc_style": {
		Label: "UGC / Authentic",
		Fragment: "Authentic UGC (user-generated content) style: handheld camera " +
			"with natural, slightly imperfect movement. Warm, relatable lighting. " +
			"Feels real and trustworthy, not overly polished. " +
			"Perfect for testimonials and lifestyle content.",
	},
	"slow_motion": {
		Label: "Slow Motion",
		Fragment: "Smooth slow-motion capture with time-stretched movement. " +
			"Every detail is emphasised: particles, liquid, fabric, " +
			"or mechanical motion. Dreamy, hypnotic, and satisfying. " +
			"High frame rate aesthetic with soft focus transitions.",
	},
	"ambient_loop": {
		Label: "Ambient / Loop",
		Fragment: "Seamless ambient loop with gentle, continuous movement like floating " +
			"particles, subtle parallax, or soft camera drift. Calm and " +
			"mesmerising. Perfect for backgrounds, banners, or digital displays.",
	},
	"unboxing": {
		Label: "Unboxing / Hands-on",
		Fragment: "First-person unboxing or hands-on reveal. Camera follows hands " +
			"opening packaging, revealing the product step by step. Close-up " +
			"detail shots of textures and features. Satisfying, ASMR-adjacent " +
			"aesthetic with premium feel.",
	},
}

var videoPlatforms = map[string]platformHint{
	"none": {Label: "No specific platform"},
	"instagram_reels": {
		Label: "Instagram Reels / Stories",
		Ratio: "9:16",
		Hint: "Full-screen vertical video for Instagram Reels/Stories. " +
			"Quick hook in the first second, subject centred, " +
			"important action away from top/bottom edges. " +
			"Energetic, scroll-stopping movement.",
	},
	"tiktok": {
		Label: "TikTok",
		Ratio: "9:16",
		Hint: "Vertical 9:16 for TikTok. Trend-aware, Gen-Z aesthetic. " +
			"Dynamic movement, quick transitions, bold visual impact. " +
			"Must hook in the first 0.5 seconds.",
	},
	"youtube_shorts": {
		Label: "YouTube Shorts",
		Ratio: "9:16",
		Hint: "Vertical 9:16 for YouTube Shorts. Clean, high-quality motion. " +
			"Slightly more polished than TikTok but still energetic. " +
			"Clear visual narrative in under 60 seconds.",
	},
	"youtube": {
		Label: "YouTube (landscape)",
		Ratio: "16:9",
		Hint: "Landscape 16:9 for YouTube player. Cinematic camera movement, " +
			"wide establishing shots, smooth transitions. " +
			"Higher production value, film-quality aesthetic.",
	},
	"linkedin": {
		Label: "LinkedIn",
		Ratio: "1:1",
		Hint: "Professional LinkedIn context. Square 1:1 for maximum feed " +
			"real estate. Polished, corporate-friendly motion. " +
			"Subtle, sophisticated movement, not flashy.",
	},
	"facebook": {
		Label: "Facebook Feed / Ad",
		Ratio: "1:1",
		Hint: "Facebook feed optimised. Square or slight landscape. " +
			"Warm, inviting motion. Clear product focus. " +
			"Designed for autoplay with no sound.",
	},
	"website": {
		Label: "Website / Landing Page",
		Ratio: "16:9",
		Hint: "Wide hero video for website header or landing page. " +
			"Atmospheric, ambient motion. Subtle camera drift or parallax. " +
			"Premium, polished. Designed to loop seamlessly.",
	},
}

// VideoCreator generates video clips across every wired provider. The
// assistant writes the motion prompt; an optional reference image
// switches the request onto the image-to-video path.
type VideoCreator struct{}

func NewVideoCreator() *VideoCreator { return &VideoCreator{} }

func (c *VideoCreator) Slug() string      { return "video-creator" }
func (c *VideoCreator) Name() string      { return "Video Creator" }
func (c *VideoCreator) Category() string  { return "video_studio" }
func (c *VideoCreator) Icon() string      { return "🎥" }
func (c *VideoCreator) CostLabel() string { return "$0.30 - $0.50 per video" }

func (c *VideoCreator) Description() string {
	return "Describe the motion you want in plain English, pick a style and " +
		"platform, and the AI writes the perfect motion prompt. Supports Veo, " +
		"Kling, Sora, Seedance, and Minimax; upload a still image for " +
		"image-to-video generation."
}

func (c *VideoCreator) Steps() []string {
	return []string{
		"Analysing inputs",
		"Crafting motion prompt",
		"Generating video",
		"Processing output",
	}
}

func (c *VideoCreator) InputFields() []InputField {
	return []InputField{
		{
			Name:    "creation_mode",
			Label:   "Creation Mode",
			Type:    FieldSelect,
			Default: "assisted",
			Options: []Option{
				{Value: "assisted", Label: "Assisted - AI writes the motion prompt for you"},
				{Value: "manual", Label: "Manual - write your own motion prompt"},
			},
			Help: "Assisted mode: describe what you want in plain English. The AI writes the detailed motion prompt.",
		},
		{
			Name:        "motion_prompt",
			Label:       "Your Description / Motion Prompt",
			Type:        FieldTextArea,
			Required:    true,
			Placeholder: "A cinematic product reveal for our new coffee blend, warm morning light, steam rising",
			Help:        "Assisted mode: just describe what you want. Manual mode: write the full motion prompt.",
		},
		{
			Name:   "reference_image",
			Label:  "Reference Image (optional - enables image-to-video)",
			Type:   FieldFile,
			Accept: "image/*",
			Help:   "Upload a still image for the AI to animate. Without one you get text-to-video generation.",
		},
		{
			Name:    "style_preset",
			Label:   "Video Style Preset",
			Type:    FieldSelect,
			Default: "none",
			Options: videoStyleOptions(),
			Help:    "Quick style direction, or choose 'None' to describe everything yourself.",
		},
		{
			Name:    "platform",
			Label:   "Platform / Use Case",
			Type:    FieldSelect,
			Default: "none",
			Options: videoPlatformOptions(),
			Help:    "Auto-sets the best aspect ratio and motion style for your target platform.",
		},
		{
			Name:    "model",
			Label:   "Model",
			Type:    FieldSelect,
			Default: "veo-3.1",
			Options: videoModelOptions(),
			Help:    "Veo 3.1 is the most cinematic; Seedance and Minimax are the cheapest; Sora 2 Pro has the highest fidelity.",
		},
		{
			Name:    "duration",
			Label:   "Duration",
			Type:    FieldSelect,
			Default: "5",
			Options: []Option{
				{Value: "4", Label: "4 seconds - quick teaser"},
				{Value: "5", Label: "5 seconds (default)"},
				{Value: "6", Label: "6 seconds"},
				{Value: "8", Label: "8 seconds - max for Veo 3.1"},
				{Value: "10", Label: "10 seconds - max for Kling / Seedance / Minimax"},
				{Value: "15", Label: "15 seconds - Sora 2 / Sora 2 Pro"},
				{Value: "20", Label: "20 seconds - Sora 2 / Sora 2 Pro"},
			},
			Help: "Durations above the chosen model's maximum are clamped and you are notified.",
		},
		{
			Name:    "aspect_ratio",
			Label:   "Aspect Ratio",
			Type:    FieldSelect,
			Default: "9:16",
			Options: []Option{
				{Value: "9:16", Label: "Vertical (9:16) - Reels / TikTok / Shorts"},
				{Value: "16:9", Label: "Horizontal (16:9) - YouTube / Website"},
				{Value: "1:1", Label: "Square (1:1) - LinkedIn / Facebook"},
			},
			Help: "Tip: if you selected a Platform above, this is auto-recommended.",
		},
	}
}

func (c *VideoCreator) Validate(in Inputs) error {
	if in.Get("motion_prompt", "") == "" {
		return fmt.Errorf("a motion description or prompt is required")
	}
	return nil
}

func (c *VideoCreator) Execute(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
	fields := c.InputFields()
	mode := selectValueByName(ex.Inputs, fields, "creation_mode")
	raw := ex.Inputs.Get("motion_prompt", "")
	referenceURL := ex.Inputs.Get("reference_image", "")
	style := videoStylePresets[selectValueByName(ex.Inputs, fields, "style_preset")]
	platform := videoPlatforms[selectValueByName(ex.Inputs, fields, "platform")]
	model := videoCreatorModels[selectValueByName(ex.Inputs, fields, "model")]
	ratio := selectValueByName(ex.Inputs, fields, "aspect_ratio")
	duration, _ := strconv.Atoi(selectValueByName(ex.Inputs, fields, "duration"))

	if platform.Ratio != "" && ratio == "9:16" {
		ratio = platform.Ratio
	}

	var outputs []Output

	requested := duration
	if duration > model.MaxDuration {
		duration = model.MaxDuration
		outputs = append(outputs, Output{
			Type:  OutputText,
			Title: "Duration Adjusted",
			Value: fmt.Sprintf(
				"You requested %ds but %s supports a maximum of %ds. "+
					"Duration has been set to %ds. For longer videos try "+
					"Sora 2 / Sora 2 Pro (up to 20s) or stitch several shorter clips.",
				requested, model.Label, model.MaxDuration, model.MaxDuration),
		})
		logger.Log.Info("video duration clamped",
			zap.String("run_id", ex.Run.ID),
			zap.String("model", model.Model),
			zap.Int("requested", requested),
			zap.Int("clamped", duration))
	}

	reportProgress(onProgress, 0, "Analysing inputs")

	brandCtx := promptcraft.BrandContext(ex.Brand)
	personaCtx := promptcraft.PersonaContext(ex.Persona)

	reportProgress(onProgress, 1, "Crafting motion prompt")

	var finalPrompt string
	if mode == "assisted" {
		finalPrompt = c.assistedPrompt(ctx, deps, videoPromptInput{
			Description: raw,
			Style:       style,
			Platform:    platform,
			BrandCtx:    brandCtx,
			PersonaCtx:  personaCtx,
			AspectRatio: ratio,
			Duration:    duration,
			HasImage:    referenceURL != "",
		})
		outputs = append(outputs, Output{
			Type:  OutputText,
			Title: "AI-Crafted Motion Prompt",
			Value: finalPrompt,
		})
	} else {
		finalPrompt = c.manualPrompt(raw, style, platform, brandCtx, personaCtx)
	}

	genMode := "text-to-video"
	if referenceURL != "" {
		genMode = "image-to-video"
	}
	reportProgress(onProgress, 2,
		fmt.Sprintf("Generating video via %s (%s), this may take a few minutes", model.Label, genMode))

	gen, err := deps.Dispatcher.Dispatch(ctx, generation.Request{
		UserID:      ex.Run.UserID,
		RecipeRunID: &ex.Run.ID,
		Kind:        models.GenerationKindVideo,
		Model:       model.Model,
		Provider:    model.Provider,
		Prompt:      finalPrompt,
		AspectRatio: ratio,
		Duration:    duration,
		ImageURL:    referenceURL,
	})

	reportProgress(onProgress, 3, "Processing output")

	var cost, retail float64
	if err != nil {
		logger.Log.Warn("video creator generation failed",
			zap.String("run_id", ex.Run.ID), zap.Error(err))
		return nil, fmt.Errorf("video generation failed: %w", err)
	}
	outputs = append(outputs, Output{Type: OutputVideo, Title: "Generated Video", URL: gen.ResultURL})
	cost = gen.Cost
	retail = gen.RetailCost

	summary := []string{
		fmt.Sprintf("Mode: %s", modeLabel(mode)),
		fmt.Sprintf("Model: %s", model.Label),
		fmt.Sprintf("Generation: %s", genMode),
		fmt.Sprintf("Aspect Ratio: %s", ratio),
		fmt.Sprintf("Duration: %ds", duration),
	}
	if style.Fragment != "" {
		summary = append(summary, fmt.Sprintf("Style: %s", style.Label))
	}
	if platform.Hint != "" {
		summary = append(summary, fmt.Sprintf("Platform: %s", platform.Label))
	}
	if referenceURL != "" {
		summary = append(summary, "Reference Image: used as start frame")
	}
	if ex.Brand != nil {
		summary = append(summary, fmt.Sprintf("Brand: %s", ex.Brand.Name))
	}
	if ex.Persona != nil {
		summary = append(summary, fmt.Sprintf("Persona: %s", ex.Persona.Name))
	}

	outputs = append([]Output{{
		Type:  OutputText,
		Title: "Generation Summary",
		Value: strings.Join(summary, "\n"),
	}}, outputs...)

	return &Result{Outputs: outputs, Cost: cost, RetailCost: retail}, nil
}

type videoPromptInput struct {
	Description string
	Style       stylePreset
	Platform    platformHint
	BrandCtx    string
	PersonaCtx  string
	AspectRatio string
	Duration    int
	HasImage    bool
}

func (c *VideoCreator) assistedPrompt(ctx context.Context, deps Deps, in videoPromptInput) string {
	genType := "text-to-video"
	if in.HasImage {
		genType = "image-to-video"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert cinematographer and video prompt engineer. "+
		"Your job is to write a single, highly detailed %s "+
		"motion prompt based on the user's description and context below.\n\n", genType)
	fmt.Fprintf(&b, "USER'S DESCRIPTION:\n\"%s\"\n\n", in.Description)
	fmt.Fprintf(&b, "VIDEO SPECS: %s aspect ratio, %d seconds, %s generation.\n\n",
		in.AspectRatio, in.Duration, genType)

	if in.Style.Fragment != "" {
		fmt.Fprintf(&b, "STYLE DIRECTION:\n%s\n\n", in.Style.Fragment)
	}
	if in.Platform.Hint != "" {
		fmt.Fprintf(&b, "PLATFORM CONTEXT (%s):\n%s\n\n", in.Platform.Label, in.Platform.Hint)
	}
	if in.BrandCtx != "" {
		b.WriteString(in.BrandCtx + "\n")
	}
	if in.PersonaCtx != "" {
		b.WriteString(in.PersonaCtx + "\n")
	}

	styleHint := ""
	if strings.HasPrefix(strings.ToLower(in.Style.Label), "ugc") {
		styleHint = "ugc"
	}
	b.WriteString(promptcraft.CreativeDirectives(promptcraft.TypeVideo, styleHint))

	b.WriteString("\nINSTRUCTIONS:\n" +
		"1. Write a single, detailed video motion prompt (2-4 sentences).\n" +
		"2. Describe: camera movement, subject motion, lighting transitions, " +
		"atmosphere changes, and pacing.\n")
	if in.HasImage {
		b.WriteString("3. Since this is image-to-video, describe HOW the still image " +
			"comes alive: what moves, what the camera does, what changes.\n")
	} else {
		b.WriteString("3. Since this is text-to-video, describe the full scene " +
			"including subject, setting, and all motion.\n")
	}
	b.WriteString("4. Incorporate the style preset and platform context naturally.\n" +
		"5. If brand colours are provided, weave them into the lighting, " +
		"props, set design, or colour palette of the scene. " +
		"NEVER use random colours when brand colours are available.\n" +
		"6. NEVER alter the colour or any part of the product shown in " +
		"the reference image.\n" +
		"7. Be specific about camera movement: 'slow dolly push-in', " +
		"'orbit left 90 degrees', 'crane up revealing the scene'.\n" +
		"8. Make the prompt cinematic and visual. Avoid vague adjectives.\n" +
		"9. Do NOT use double quotes inside the prompt.\n" +
		"10. For dialogue, use '...' for pauses and avoid special characters.\n" +
		"11. Ensure diversity in gender, ethnicity, and hair colour " +
		"when people are part of the scene.\n\n" +
		"OUTPUT: The video motion prompt ONLY. No labels, no quotes, " +
		"no explanations, no markdown. Just the prompt text.")

	crafted, err := deps.Agent.Complete(ctx, b.String())
	if err == nil {
		crafted = strings.Trim(strings.TrimSpace(crafted), `"'`)
		if crafted != "" {
			return crafted
		}
	}
	if err != nil {
		logger.Log.Warn("prompt assistant failed, using raw description", zap.Error(err))
	}
	return c.manualPrompt(in.Description, in.Style, in.Platform, in.BrandCtx, in.PersonaCtx)
}

func (c *VideoCreator) manualPrompt(raw string, style stylePreset, platform platformHint, brandCtx, personaCtx string) string {
	parts := []string{raw}
	if style.Fragment != "" {
		parts = append(parts, "\nStyle direction: "+style.Fragment)
	}
	if platform.Hint != "" {
		parts = append(parts, "\nPlatform: "+platform.Hint)
	}
	if brandCtx != "" || personaCtx != "" {
		parts = append(parts, "\n--- STYLE CONTEXT (incorporate into the visual) ---")
		if brandCtx != "" {
			parts = append(parts, brandCtx)
		}
		if personaCtx != "" {
			parts = append(parts, personaCtx)
		}
	}
	return strings.Join(parts, "\n")
}

func videoStyleOptions() []Option {
	order := []string{"none", "product_reveal", "social_teaser", "cinematic", "ugc_style", "slow_motion", "ambient_loop", "unboxing"}
	opts := make([]Option, 0, len(order))
	for _, k := range order {
		opts = append(opts, Option{Value: k, Label: videoStylePresets[k].Label})
	}
	return opts
}

func videoPlatformOptions() []Option {
	order := []string{"none", "instagram_reels", "tiktok", "youtube_shorts", "youtube", "linkedin", "facebook", "website"}
	opts := make([]Option, 0, len(order))
	for _, k := range order {
		opts = append(opts, Option{Value: k, Label: videoPlatforms[k].Label})
	}
	return opts
}

func videoModelOptions() []Option {
	order := []string{"veo-3.1", "kling-3.0", "sora-2", "sora-2-pro", "seedance", "minimax"}
	opts := make([]Option, 0, len(order))
	for _, k := range order {
		m := videoCreatorModels[k]
		opts = append(opts, Option{Value: k, Label: fmt.Sprintf("%s - %s", m.Label, m.Cost)})
	}
	return opts
}

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

// imageModel maps a form model value onto the pricing catalog.
type imageModel struct {
	Model    string
	Label    string
	Provider string
}

var imageCreatorModels = map[string]imageModel{
	"nanobanana":    {Model: "nano-banana-pro", Label: "Nano Banana Pro", Provider: "google"},
	"gpt-image-1.5": {Model: "gpt-image-1.5", Label: "GPT Image 1.5", Provider: "wavespeed"},
}

// stylePreset pairs a display label with the prompt fragment the
// assistant weaves into the final image prompt.
type stylePreset struct {
	Label    string
	Fragment string
}

var imageStylePresets = map[string]stylePreset{
	"none": {Label: "None - I'll describe everything"},
	"product_shot": {
		Label: "Product Shot",
		Fragment: "Professional product photography on a clean, neutral background. " +
			"Studio lighting with soft shadows. Sharp focus on the product, " +
			"slightly elevated camera angle. Commercial-quality, ready for " +
			"e-commerce or catalogue use.",
	},
	"social_graphic": {
		Label: "Social Media Graphic",
		Fragment: "Eye-catching social media visual with bold composition, vibrant " +
			"colors, and clear focal point. Designed for high engagement: " +
			"scroll-stopping aesthetic with modern, trendy styling.",
	},
	"lifestyle": {
		Label: "Lifestyle Scene",
		Fragment: "Lifestyle photography showing the subject in a natural, real-world " +
			"setting. Warm, authentic feel. Candid composition with natural " +
			"lighting. Think 'Instagram influencer' aesthetic.",
	},
	"flat_lay": {
		Label: "Flat Lay",
		Fragment: "Top-down flat lay composition on a styled surface. Carefully arranged " +
			"with complementary props. Clean, organized aesthetic popular for " +
			"Instagram product reveals and mood boards.",
	},
	"abstract": {
		Label: "Abstract / Artistic",
		Fragment: "Abstract, artistic visual with creative use of color, texture, and " +
			"form. Experimental composition suitable for brand storytelling, " +
			"backgrounds, or creative campaigns.",
	},
	"portrait": {
		Label: "Portrait / Headshot",
		Fragment: "Professional portrait or headshot with soft, flattering lighting. " +
			"Shallow depth of field, clean background. Suitable for LinkedIn, " +
			"team pages, or personal branding.",
	},
	"infographic": {
		Label: "Infographic / Data Visual",
		Fragment: "Clean infographic or data visualization with modern typography, " +
			"icon-based layout, and clear visual hierarchy. Dark or white " +
			"background with accent colors. Professional and informative.",
	},
}

// platformHint carries the recommended ratio and composition hint per
// publishing platform.
type platformHint struct {
	Label string
	Ratio string
	Hint  string
}

var imagePlatforms = map[string]platformHint{
	"none": {Label: "No specific platform"},
	"instagram_feed": {
		Label: "Instagram Feed Post",
		Ratio: "1:1",
		Hint: "Optimise for Instagram feed: square composition, bold subject, " +
			"attention-grabbing in a vertical scroll context. Leave space for " +
			"optional text overlay.",
	},
	"instagram_story": {
		Label: "Instagram Story / Reel",
		Ratio: "9:16",
		Hint: "Full-screen vertical format for Stories/Reels. Subject centred, " +
			"important elements away from top/bottom edges (safe zone). " +
			"Punchy, immediate visual impact.",
	},
	"linkedin": {
		Label: "LinkedIn Post",
		Ratio: "4:5",
		Hint: "Professional LinkedIn context. Clean, corporate-friendly aesthetic. " +
			"Vertical 4:5 for maximum feed real estate. Clear visual hierarchy.",
	},
	"youtube_thumb": {
		Label: "YouTube Thumbnail",
		Ratio: "16:9",
		Hint: "YouTube thumbnail at 16:9. High contrast, bold text-friendly, " +
			"expressive face or dramatic subject. Must stand out at small sizes. " +
			"Leave right third open for text if needed.",
	},
	"tiktok": {
		Label: "TikTok",
		Ratio: "9:16",
		Hint: "Vertical 9:16 for TikTok. Energetic, trend-aware, Gen-Z aesthetic. " +
			"Vibrant colors, dynamic composition, main subject centred.",
	},
	"facebook": {
		Label: "Facebook Post / Ad",
		Ratio: "1:1",
		Hint: "Facebook feed optimised. Square or slight landscape. Clear subject, " +
			"text-friendly negative space. Warm, inviting tones.",
	},
	"twitter_x": {
		Label: "X (Twitter)",
		Ratio: "16:9",
		Hint: "Landscape 16:9 for X/Twitter timeline. Concise visual message, " +
			"high contrast for dark-mode readability.",
	},
	"website_hero": {
		Label: "Website Hero Banner",
		Ratio: "16:9",
		Hint: "Wide hero banner for website header. Atmospheric, cinematic. " +
			"Space for headline text overlay on one side. Premium, polished look.",
	},
}

// ImageCreator generates images with an AI prompt assistant: the user
// describes what they need in plain English and the agent writes the
// detailed prompt, folding in style preset, platform, negative prompt,
// and brand/persona context.
type ImageCreator struct{}

func NewImageCreator() *ImageCreator { return &ImageCreator{} }

func (c *ImageCreator) Slug() string      { return "image-creator" }
func (c *ImageCreator) Name() string      { return "Image Creator" }
func (c *ImageCreator) Category() string  { return "content_creation" }
func (c *ImageCreator) Icon() string      { return "🖼️" }
func (c *ImageCreator) CostLabel() string { return "Free - $0.10 per image" }

func (c *ImageCreator) Description() string {
	return "Describe what you need in plain English, pick a style and platform, " +
		"and the AI writes the perfect image prompt for you, incorporating your " +
		"brand colours, persona voice, and visual style."
}

func (c *ImageCreator) Steps() []string {
	return []string{
		"Analysing inputs",
		"Crafting image prompt",
		"Generating images",
		"Processing output",
	}
}

func (c *ImageCreator) InputFields() []InputField {
	return []InputField{
		{
			Name:    "creation_mode",
			Label:   "Creation Mode",
			Type:    FieldSelect,
			Default: "assisted",
			Options: []Option{
				{Value: "assisted", Label: "Assisted - AI writes the prompt for you"},
				{Value: "manual", Label: "Manual - write your own prompt"},
			},
			Help: "Assisted mode: describe what you want in plain English. The AI writes the detailed prompt.",
		},
		{
			Name:        "prompt",
			Label:       "Your Description / Prompt",
			Type:        FieldTextArea,
			Required:    true,
			Placeholder: "A coffee shop ad showing our latte art, warm tones, cozy morning vibe",
			Help:        "Assisted mode: just describe what you want. Manual mode: write the full image generation prompt.",
		},
		{
			Name:   "reference_image",
			Label:  "Reference Image (optional)",
			Type:   FieldFile,
			Accept: "image/*",
			Help:   "Upload a reference photo to guide the generation toward its style and composition.",
		},
		{
			Name:    "style_preset",
			Label:   "Style Preset",
			Type:    FieldSelect,
			Default: "none",
			Options: imageStyleOptions(),
			Help:    "Quick style direction, or choose 'None' to describe everything yourself.",
		},
		{
			Name:    "platform",
			Label:   "Platform / Use Case",
			Type:    FieldSelect,
			Default: "none",
			Options: imagePlatformOptions(),
			Help:    "Auto-sets the best aspect ratio and composition for your target platform.",
		},
		{
			Name:        "negative_prompt",
			Label:       "Negative Prompt (optional)",
			Type:        FieldTextArea,
			Placeholder: "e.g. text, watermarks, people, blurry, low quality",
			Help:        "List things you do NOT want in the image, comma-separated.",
		},
		{
			Name:    "model",
			Label:   "Model",
			Type:    FieldSelect,
			Default: "nanobanana",
			Options: []Option{
				{Value: "nanobanana", Label: "Nano Banana Pro - Free"},
				{Value: "gpt-image-1.5", Label: "GPT Image 1.5 - ~$0.07"},
			},
			Help: "Start with the free model to experiment.",
		},
		{
			Name:    "aspect_ratio",
			Label:   "Aspect Ratio",
			Type:    FieldSelect,
			Default: "1:1",
			Options: []Option{
				{Value: "1:1", Label: "Square (1:1)"},
				{Value: "9:16", Label: "Vertical (9:16)"},
				{Value: "16:9", Label: "Horizontal (16:9)"},
				{Value: "4:5", Label: "Portrait (4:5)"},
				{Value: "3:4", Label: "Tall Portrait (3:4)"},
			},
			Help: "Tip: if you selected a Platform above, this is auto-recommended.",
		},
		{
			Name:    "image_count",
			Label:   "How many images?",
			Type:    FieldSelect,
			Default: "1",
			Options: []Option{
				{Value: "1", Label: "1 image"},
				{Value: "2", Label: "2 images"},
				{Value: "4", Label: "4 images"},
			},
		},
	}
}

func (c *ImageCreator) Validate(in Inputs) error {
	if in.Get("prompt", "") == "" {
		return fmt.Errorf("a description or prompt is required")
	}
	return nil
}

func (c *ImageCreator) Execute(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
	fields := c.InputFields()
	mode := selectValueByName(ex.Inputs, fields, "creation_mode")
	raw := ex.Inputs.Get("prompt", "")
	referenceURL := ex.Inputs.Get("reference_image", "")
	style := imageStylePresets[selectValueByName(ex.Inputs, fields, "style_preset")]
	platform := imagePlatforms[selectValueByName(ex.Inputs, fields, "platform")]
	negative := ex.Inputs.Get("negative_prompt", "")
	model := imageCreatorModels[selectValueByName(ex.Inputs, fields, "model")]
	ratio := selectValueByName(ex.Inputs, fields, "aspect_ratio")
	count, _ := strconv.Atoi(selectValueByName(ex.Inputs, fields, "image_count"))

	// Platform recommendation wins when the user kept the default.
	if platform.Ratio != "" && ratio == "1:1" {
		ratio = platform.Ratio
	}

	reportProgress(onProgress, 0, "Analysing inputs")

	brandCtx := promptcraft.BrandContext(ex.Brand)
	personaCtx := promptcraft.PersonaContext(ex.Persona)

	var referenceURLs []string
	if referenceURL != "" {
		referenceURLs = append(referenceURLs, referenceURL)
	}
	referenceURLs = append(referenceURLs, brandReferenceURLs(ex.Brand, models.ReferencePurposeStyle, 3)...)

	var outputs []Output

	reportProgress(onProgress, 1, "Crafting image prompt")

	var finalPrompt string
	if mode == "assisted" {
		finalPrompt = c.assistedPrompt(ctx, deps, assistedPromptInput{
			Description:  raw,
			Style:        style,
			Platform:     platform,
			Negative:     negative,
			BrandCtx:     brandCtx,
			PersonaCtx:   personaCtx,
			AspectRatio:  ratio,
			HasReference: referenceURL != "",
		})
		outputs = append(outputs, Output{
			Type:  OutputText,
			Title: "AI-Crafted Prompt",
			Value: finalPrompt,
		})
	} else {
		finalPrompt = c.manualPrompt(raw, style, platform, negative, brandCtx, personaCtx)
	}

	reportProgress(onProgress, 2, fmt.Sprintf("Generating %d image(s) via %s", count, model.Label))

	var cost, retail float64
	generated := 0
	for i := 0; i < count; i++ {
		if count > 1 {
			reportProgress(onProgress, 2,
				fmt.Sprintf("Generating image %d/%d via %s", i+1, count, model.Label))
		}

		gen, err := deps.Dispatcher.Dispatch(ctx, generation.Request{
			UserID:        ex.Run.UserID,
			RecipeRunID:   &ex.Run.ID,
			Kind:          models.GenerationKindImage,
			Model:         model.Model,
			Provider:      model.Provider,
			Prompt:        finalPrompt,
			AspectRatio:   ratio,
			ReferenceURLs: referenceURLs,
		})
		if err != nil {
			logger.Log.Warn("image creator generation failed",
				zap.String("run_id", ex.Run.ID),
				zap.Int("index", i+1),
				zap.Error(err))
			outputs = append(outputs, Output{
				Type:  OutputText,
				Title: fmt.Sprintf("Image %d - Error", i+1),
				Value: fmt.Sprintf("Generation failed: %v", err),
			})
			continue
		}

		title := "Generated Image"
		if count > 1 {
			title = fmt.Sprintf("Generated Image %d", i+1)
		}
		outputs = append(outputs, Output{Type: OutputImage, Title: title, URL: gen.ResultURL})
		cost += gen.Cost
		retail += gen.RetailCost
		generated++
	}

	reportProgress(onProgress, 3, "Processing output")

	if generated == 0 {
		return nil, fmt.Errorf("no images were generated")
	}

	summary := []string{
		fmt.Sprintf("Mode: %s", modeLabel(mode)),
		fmt.Sprintf("Model: %s", model.Label),
		fmt.Sprintf("Aspect Ratio: %s", ratio),
	}
	if style.Fragment != "" {
		summary = append(summary, fmt.Sprintf("Style: %s", style.Label))
	}
	if platform.Hint != "" {
		summary = append(summary, fmt.Sprintf("Platform: %s", platform.Label))
	}
	if negative != "" {
		summary = append(summary, fmt.Sprintf("Exclude: %s", clipText(negative, 100)))
	}
	summary = append(summary,
		fmt.Sprintf("Requested: %d image(s)", count),
		fmt.Sprintf("Generated: %d image(s)", generated),
	)
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

type assistedPromptInput struct {
	Description  string
	Style        stylePreset
	Platform     platformHint
	Negative     string
	BrandCtx     string
	PersonaCtx   string
	AspectRatio  string
	HasReference bool
}

// assistedPrompt asks the agent to write the detailed image prompt.
// Falls back to the enriched manual prompt when the model call fails.
func (c *ImageCreator) assistedPrompt(ctx context.Context, deps Deps, in assistedPromptInput) string {
	var b strings.Builder
	b.WriteString("You are an expert art director and prompt engineer. " +
		"Your job is to write a single, highly detailed image generation " +
		"prompt based on the user's description and context below.\n\n")
	fmt.Fprintf(&b, "USER'S DESCRIPTION:\n\"%s\"\n\n", in.Description)

	if in.Style.Fragment != "" {
		fmt.Fprintf(&b, "STYLE DIRECTION:\n%s\n\n", in.Style.Fragment)
	}
	if in.Platform.Hint != "" {
		fmt.Fprintf(&b, "PLATFORM CONTEXT (%s):\n%s\n\n", in.Platform.Label, in.Platform.Hint)
	}
	fmt.Fprintf(&b, "ASPECT RATIO: %s\n\n", in.AspectRatio)
	if in.HasReference {
		b.WriteString("A reference image is attached to the generation request; " +
			"the prompt should complement it rather than contradict it.\n\n")
	}
	if in.BrandCtx != "" {
		b.WriteString(in.BrandCtx + "\n")
	}
	if in.PersonaCtx != "" {
		b.WriteString(in.PersonaCtx + "\n")
	}
	if in.Negative != "" {
		fmt.Fprintf(&b, "MUST EXCLUDE (negative prompt): %s\n\n", in.Negative)
	}

	styleHint := ""
	if strings.HasPrefix(strings.ToLower(in.Style.Label), "ugc") {
		styleHint = "ugc"
	}
	b.WriteString(promptcraft.CreativeDirectives(promptcraft.TypeImage, styleHint))

	b.WriteString("\nINSTRUCTIONS:\n" +
		"1. Write a single, detailed image prompt (3-6 sentences).\n" +
		"2. Describe: subject, setting/background, composition, camera angle, " +
		"lighting, mood, colour palette, textures.\n" +
		"3. Incorporate the style preset, platform context, and brand context " +
		"naturally, not as a list.\n" +
		"4. If brand colours are provided, weave them into the scene " +
		"(backgrounds, accents, clothing, props, lighting). " +
		"NEVER use random colours when brand colours are available.\n" +
		"5. Respect every item in the negative prompt.\n" +
		"6. Make the prompt specific and visual. Avoid vague adjectives.\n" +
		"7. Do NOT use double quotes inside the prompt.\n" +
		"8. Ensure diversity in gender, ethnicity, and hair colour " +
		"when people are part of the scene.\n\n" +
		"OUTPUT: The image generation prompt ONLY. No labels, no quotes, " +
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
	return c.manualPrompt(in.Description, in.Style, in.Platform, in.Negative, in.BrandCtx, in.PersonaCtx)
}

// manualPrompt enriches the user's own prompt with the selected
// context blocks without rewriting it.
func (c *ImageCreator) manualPrompt(raw string, style stylePreset, platform platformHint, negative, brandCtx, personaCtx string) string {
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
	if negative != "" {
		parts = append(parts, "\nDo NOT include: "+negative)
	}
	return strings.Join(parts, "\n")
}

func imageStyleOptions() []Option {
	order := []string{"none", "product_shot", "social_graphic", "lifestyle", "flat_lay", "abstract", "portrait", "infographic"}
	opts := make([]Option, 0, len(order))
	for _, k := range order {
		opts = append(opts, Option{Value: k, Label: imageStylePresets[k].Label})
	}
	return opts
}

func imagePlatformOptions() []Option {
	order := []string{"none", "instagram_feed", "instagram_story", "linkedin", "youtube_thumb", "tiktok", "facebook", "twitter_x", "website_hero"}
	opts := make([]Option, 0, len(order))
	for _, k := range order {
		opts = append(opts, Option{Value: k, Label: imagePlatforms[k].Label})
	}
	return opts
}

func modeLabel(mode string) string {
	if mode == "manual" {
		return "Manual"
	}
	return "Assisted"
}

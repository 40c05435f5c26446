package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/promptcraft"
)

// Models used for ad production. Scene images go through the free
// Google path; clips through Veo for the most cinematic output.
const (
	adImageModel    = "nano-banana-pro"
	adImageProvider = "google"
	adVideoModel    = "veo-3.1"
	adVideoProvider = "google"
	adClipSeconds   = 8
)

// AdVideoMaker turns a product photo into UGC-style ad videos through
// a two-phase pipeline: research and scene writing first, then a
// mandatory approval gate before any media is generated. No wasted
// spend on scenes the user never approved.
type AdVideoMaker struct{}

func NewAdVideoMaker() *AdVideoMaker { return &AdVideoMaker{} }

func (c *AdVideoMaker) Slug() string      { return "ad-video-maker" }
func (c *AdVideoMaker) Name() string      { return "Ad Video Maker" }
func (c *AdVideoMaker) Category() string  { return "content_creation" }
func (c *AdVideoMaker) Icon() string      { return "🎬" }
func (c *AdVideoMaker) CostLabel() string { return "$0.00 - $0.50 per video" }

func (c *AdVideoMaker) Description() string {
	return "Upload a product photo and describe it; the AI researches your " +
		"product and writes creative ad scenes anchored to it. You review and " +
		"approve the script before any videos are generated."
}

func (c *AdVideoMaker) Steps() []string {
	return []string{
		"Researching your product",
		"Writing product-anchored scenes",
		"Generating scene images",
		"Creating videos",
		"Building the stitch plan",
	}
}

func (c *AdVideoMaker) InputFields() []InputField {
	return []InputField{
		{
			Name:     "reference_image",
			Label:    "Product / Brand Photo",
			Type:     FieldFile,
			Required: true,
			Accept:   "image/*",
			Help:     "Upload a clear photo of your product or brand visual.",
		},
		{
			Name:        "product_description",
			Label:       "What is the product?",
			Type:        FieldTextArea,
			Required:    true,
			Placeholder: "Aviator sunglasses with titanium frames and gold-tinted UV400 lenses",
			Help:        "Describe the product's type, colours, materials, and standout features so the scenes stay anchored to it.",
		},
		{
			Name:        "product_url",
			Label:       "Product Page URL (optional)",
			Type:        FieldText,
			Placeholder: "https://yourshop.com/products/aviator-sunglasses",
			Help:        "The AI reads the page and folds real product details into the script.",
		},
		{
			Name:    "video_count",
			Label:   "How many videos?",
			Type:    FieldSelect,
			Default: "1",
			Options: []Option{
				{Value: "1", Label: "1 video"},
				{Value: "3", Label: "3 videos"},
				{Value: "5", Label: "5 videos"},
			},
		},
		{
			Name:        "script",
			Label:       "Script / Dialogue (optional)",
			Type:        FieldTextArea,
			Placeholder: "These sunglasses are made for the bold: lightweight titanium, UV400 lenses...",
			Help:        "Leave blank and the AI will write one for you.",
		},
		{
			Name:    "aspect_ratio",
			Label:   "Aspect Ratio",
			Type:    FieldSelect,
			Default: "9:16",
			Options: []Option{
				{Value: "9:16", Label: "Vertical (9:16) - Reels / TikTok"},
				{Value: "16:9", Label: "Horizontal (16:9) - YouTube"},
			},
		},
	}
}

func (c *AdVideoMaker) Validate(in Inputs) error {
	if in.Get("reference_image", "") == "" {
		return fmt.Errorf("a product photo is required")
	}
	if in.Get("product_description", "") == "" {
		return fmt.Errorf("a product description is required")
	}
	return nil
}

func (c *AdVideoMaker) Execute(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
	if ex.Phase == PhaseProduction {
		return c.executeProduction(ctx, ex, deps, onProgress)
	}
	return c.executeScript(ctx, ex, deps, onProgress)
}

// executeScript is phase one: research the product and write the
// scenes, then pause for approval.
func (c *AdVideoMaker) executeScript(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
	description := ex.Inputs.Get("product_description", "")
	productURL := ex.Inputs.Get("product_url", "")
	script := ex.Inputs.Get("script", "")
	ratio := selectValueByName(ex.Inputs, c.InputFields(), "aspect_ratio")
	count, _ := strconv.Atoi(selectValueByName(ex.Inputs, c.InputFields(), "video_count"))

	brandCtx := promptcraft.BrandContext(ex.Brand)
	personaCtx := promptcraft.PersonaContext(ex.Persona)

	var outputs []Output

	reportProgress(onProgress, 0, "Researching your product")

	research := deps.Agent.ResearchTopic(ctx, productURL, description, "Focus on concrete product attributes: materials, colours, features, and who it is for.")
	if research.Summary != "" {
		outputs = append(outputs, Output{
			Type:  OutputText,
			Title: "Product Research",
			Value: research.Summary,
		})
	}

	reportProgress(onProgress, 1, "Writing product-anchored scenes")

	scenes, err := c.writeScenes(ctx, deps, sceneInput{
		Count:       count,
		AspectRatio: ratio,
		Description: description,
		Research:    research.Summary,
		Script:      script,
		BrandCtx:    brandCtx,
		PersonaCtx:  personaCtx,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate creative scenes: %w", err)
	}

	for i, sc := range scenes {
		outputs = append(outputs, Output{
			Type:             OutputScene,
			Title:            fmt.Sprintf("Scene %d", i+1),
			Index:            i,
			SceneDescription: sc.SceneDescription,
			VideoMotion:      sc.VideoMotion,
			AdCopy:           sc.AdCopy,
		})
	}

	// No media cost yet; the run pauses at awaiting_approval.
	return &Result{Phase: PhaseScript, Outputs: outputs}, nil
}

type sceneInput struct {
	Count       int
	AspectRatio string
	Description string
	Research    string
	Script      string
	BrandCtx    string
	PersonaCtx  string
}

func (c *AdVideoMaker) writeScenes(ctx context.Context, deps Deps, in sceneInput) ([]SceneDraft, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "You are writing exactly %d unique ad scene(s) for short-form "+
		"UGC video content (%s format).\n\n", in.Count, in.AspectRatio)
	b.WriteString("=== CRITICAL PRODUCT CONTEXT ===\n" +
		"Every scene you write MUST feature THIS SPECIFIC product, not a similar one, " +
		"not a different category, not a generic item.\n\n")
	fmt.Fprintf(&b, "PRODUCT DESCRIPTION:\n%s\n\n", in.Description)
	if in.Research != "" {
		fmt.Fprintf(&b, "PRODUCT RESEARCH:\n%s\n\n", in.Research)
	}
	b.WriteString("=== END PRODUCT CONTEXT ===\n\n")

	if in.BrandCtx != "" {
		b.WriteString(in.BrandCtx + "\n" +
			"Use the brand's voice, target audience, and guidelines above to " +
			"ensure the ad copy and scene descriptions align with the brand identity.\n\n")
	}
	if in.PersonaCtx != "" {
		b.WriteString(in.PersonaCtx + "\n" +
			"Write all ad copy in this persona's voice and tone.\n\n")
	}
	if in.Script != "" {
		fmt.Fprintf(&b, "The user provided this script/dialogue to incorporate:\n%q\n\n"+
			"Use the user's script as the basis but adapt it to work with "+
			"the visual scenes below.\n\n", in.Script)
	} else {
		b.WriteString("No user script provided: write catchy, authentic UGC-style dialogue " +
			"that specifically references the product's real features, colors, and " +
			"materials described above.\n\n")
	}

	fmt.Fprintf(&b, "For each scene provide:\n"+
		"- \"scene_description\": A detailed image prompt (2-3 sentences). "+
		"MUST show the EXACT product described above with its specific type, "+
		"colors, materials, and distinctive features. Include subject, setting, "+
		"composition, lighting, and mood.\n"+
		"- \"video_motion\": A short video motion prompt (1 sentence) describing "+
		"camera movement and action featuring the product.\n"+
		"- \"ad_copy\": A punchy ad caption (1-2 sentences) referencing "+
		"the product's real attributes.\n\n"+
		"RULES:\n"+
		"- The product MUST be the central focus of every scene.\n"+
		"- Do NOT introduce unrelated products or switch product categories.\n"+
		"- Reference specific colors, materials, or features from the description.\n"+
		"- Each scene should show the product from a different angle or context.\n\n"+
		"Output a JSON array of exactly %d object(s). Example:\n"+
		"[{\"scene_description\":\"...\",\"video_motion\":\"...\",\"ad_copy\":\"...\"}]\n\n"+
		"Output ONLY the JSON array, no markdown fences, no explanation.", in.Count)

	raw, err := deps.Agent.CompleteJSON(ctx, b.String())
	if err != nil {
		return nil, err
	}

	var scenes []SceneDraft
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &scenes); err != nil {
		return nil, fmt.Errorf("parse scene response: %w", err)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("model returned no scenes")
	}
	// The model sometimes over-generates.
	if len(scenes) > in.Count {
		scenes = scenes[:in.Count]
	}
	return scenes, nil
}

// executeProduction is phase two: an image per approved scene, a clip
// per image, then the stitch plan.
func (c *AdVideoMaker) executeProduction(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
	if len(ex.Scenes) == 0 {
		return nil, fmt.Errorf("no approved scenes to produce")
	}

	referenceURL := ex.Inputs.Get("reference_image", "")
	ratio := selectValueByName(ex.Inputs, c.InputFields(), "aspect_ratio")

	// Phase-one outputs (research, scenes) are carried forward.
	outputs := append([]Output{}, ex.Prior...)
	var cost, retail float64

	referenceURLs := []string{}
	if referenceURL != "" {
		referenceURLs = append(referenceURLs, referenceURL)
	}
	referenceURLs = append(referenceURLs, brandReferenceURLs(ex.Brand, models.ReferencePurposeProduct, 3)...)

	reportProgress(onProgress, 2, fmt.Sprintf("Generating %d scene image(s)", len(ex.Scenes)))

	imageURLs := make([]string, len(ex.Scenes))
	for i, sc := range ex.Scenes {
		reportProgress(onProgress, 2,
			fmt.Sprintf("Generating image %d of %d", i+1, len(ex.Scenes)))

		gen, err := deps.Dispatcher.Dispatch(ctx, generation.Request{
			UserID:        ex.Run.UserID,
			RecipeRunID:   &ex.Run.ID,
			Kind:          models.GenerationKindImage,
			Model:         adImageModel,
			Provider:      adImageProvider,
			Prompt:        sc.SceneDescription,
			AspectRatio:   ratio,
			Resolution:    "1K",
			ReferenceURLs: referenceURLs,
		})
		if err != nil {
			logger.Log.Warn("ad scene image failed",
				zap.String("run_id", ex.Run.ID), zap.Int("scene", i+1), zap.Error(err))
			continue
		}
		imageURLs[i] = gen.ResultURL
		cost += gen.Cost
		retail += gen.RetailCost
	}

	reportProgress(onProgress, 3, fmt.Sprintf("Creating %d video(s)", len(ex.Scenes)))

	videoURLs := make([]string, len(ex.Scenes))
	videoErrs := make([]string, len(ex.Scenes))
	for i, sc := range ex.Scenes {
		reportProgress(onProgress, 3,
			fmt.Sprintf("Creating video %d of %d", i+1, len(ex.Scenes)))

		if imageURLs[i] == "" {
			videoErrs[i] = "no source image available"
			continue
		}

		motion := sc.VideoMotion
		if motion == "" {
			motion = "Gentle camera movement revealing the product, cinematic feel"
		}

		gen, err := deps.Dispatcher.Dispatch(ctx, generation.Request{
			UserID:      ex.Run.UserID,
			RecipeRunID: &ex.Run.ID,
			Kind:        models.GenerationKindVideo,
			Model:       adVideoModel,
			Provider:    adVideoProvider,
			Prompt:      motion,
			AspectRatio: ratio,
			Duration:    adClipSeconds,
			ImageURL:    imageURLs[i],
		})
		if err != nil {
			logger.Log.Warn("ad scene video failed",
				zap.String("run_id", ex.Run.ID), zap.Int("scene", i+1), zap.Error(err))
			videoErrs[i] = err.Error()
			continue
		}
		videoURLs[i] = gen.ResultURL
		cost += gen.Cost
		retail += gen.RetailCost
	}

	reportProgress(onProgress, 4, "Building the stitch plan")

	produced := 0
	for i, sc := range ex.Scenes {
		out := Output{
			Index:            i,
			Title:            fmt.Sprintf("Scene %d: %s", i+1, clipText(sc.AdCopy, 60)),
			SceneDescription: sc.SceneDescription,
			VideoMotion:      sc.VideoMotion,
			AdCopy:           sc.AdCopy,
			ImageURL:         imageURLs[i],
		}
		if videoURLs[i] != "" {
			out.Type = OutputVideo
			out.URL = videoURLs[i]
			produced++
		} else {
			out.Type = OutputText
			out.Value = "Video generation error: " + videoErrs[i]
		}
		outputs = append(outputs, out)
	}

	if produced == 0 {
		return nil, fmt.Errorf("no videos were produced from the approved scenes")
	}

	outputs = append(outputs, Output{
		Type:  OutputText,
		Title: "Stitch Plan",
		Value: c.stitchPlan(ex.Scenes, videoURLs),
	})

	return &Result{Outputs: outputs, Cost: cost, RetailCost: retail}, nil
}

// stitchPlan lays out clip order, timestamps, and overlay copy for
// assembling the final ad in an editor.
func (c *AdVideoMaker) stitchPlan(scenes []SceneDraft, videoURLs []string) string {
	var b strings.Builder
	b.WriteString("Assemble the clips in this order:\n")
	at := 0
	for i, sc := range scenes {
		if videoURLs[i] == "" {
			continue
		}
		fmt.Fprintf(&b, "%d. [%02d:%02d-%02d:%02d] Scene %d",
			i+1, at/60, at%60, (at+adClipSeconds)/60, (at+adClipSeconds)%60, i+1)
		if sc.AdCopy != "" {
			fmt.Fprintf(&b, " - overlay: %s", sc.AdCopy)
		}
		b.WriteString("\n")
		at += adClipSeconds
	}
	fmt.Fprintf(&b, "Total runtime: %ds. Add a hard cut between scenes and keep "+
		"the overlay copy on screen for the full clip.", at)
	return b.String()
}

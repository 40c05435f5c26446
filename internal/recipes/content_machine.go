package recipes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/agent"
	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
)

// Scene visuals come out of the free Google image path.
const (
	machineImageModel    = "nano-banana-pro"
	machineImageProvider = "google"
)

// ContentMachine runs the full topic-to-assets pipeline in one go:
// research the topic, write the script, break it into a storyboard,
// and generate a visual per scene.
type ContentMachine struct{}

func NewContentMachine() *ContentMachine { return &ContentMachine{} }

func (c *ContentMachine) Slug() string      { return "content-machine" }
func (c *ContentMachine) Name() string      { return "AI Content Machine" }
func (c *ContentMachine) Category() string  { return "research" }
func (c *ContentMachine) Icon() string      { return "🧠" }
func (c *ContentMachine) CostLabel() string { return "Free - $0.10 per scene image" }

func (c *ContentMachine) Description() string {
	return "Give it a topic or an article URL and get back a researched, " +
		"platform-ready script, a scene-by-scene storyboard, and a generated " +
		"visual for every scene, all in your brand's voice."
}

func (c *ContentMachine) Steps() []string {
	return []string{
		"Researching the topic",
		"Writing the script",
		"Breaking into scenes",
		"Generating scene visuals",
		"Processing output",
	}
}

func (c *ContentMachine) InputFields() []InputField {
	return []InputField{
		{
			Name:        "topic",
			Label:       "Topic",
			Type:        FieldTextArea,
			Required:    true,
			Placeholder: "Why cold brew beats iced coffee for summer menus",
			Help:        "What the content should be about, in a sentence or two.",
		},
		{
			Name:        "source_url",
			Label:       "Source Article URL (optional)",
			Type:        FieldText,
			Placeholder: "https://example.com/industry-report",
			Help:        "The AI reads the page and grounds the script in its facts.",
		},
		{
			Name:    "script_type",
			Label:   "Script Format",
			Type:    FieldSelect,
			Default: "tiktok_full",
			Options: scriptTypeOptions(),
			Help:    "The format and pacing the script should follow.",
		},
		{
			Name:    "num_scenes",
			Label:   "How many scenes?",
			Type:    FieldSelect,
			Default: "3",
			Options: []Option{
				{Value: "2", Label: "2 scenes"},
				{Value: "3", Label: "3 scenes"},
				{Value: "4", Label: "4 scenes"},
				{Value: "5", Label: "5 scenes"},
			},
		},
		{
			Name:    "aspect_ratio",
			Label:   "Aspect Ratio",
			Type:    FieldSelect,
			Default: "9:16",
			Options: []Option{
				{Value: "9:16", Label: "Vertical (9:16)"},
				{Value: "16:9", Label: "Horizontal (16:9)"},
				{Value: "1:1", Label: "Square (1:1)"},
			},
		},
		{
			Name:    "generate_images",
			Label:   "Generate scene visuals?",
			Type:    FieldSelect,
			Default: "yes",
			Options: []Option{
				{Value: "yes", Label: "Yes - one image per scene"},
				{Value: "no", Label: "No - script and storyboard only"},
			},
		},
		{
			Name:        "extra_instructions",
			Label:       "Extra Instructions (optional)",
			Type:        FieldTextArea,
			Placeholder: "Mention our summer discount; keep it under 45 seconds",
			Help:        "Anything the script writer should know.",
		},
	}
}

func (c *ContentMachine) Validate(in Inputs) error {
	if in.Get("topic", "") == "" {
		return fmt.Errorf("a topic is required")
	}
	return nil
}

func (c *ContentMachine) Execute(ctx context.Context, ex *Execution, deps Deps, onProgress ProgressFunc) (*Result, error) {
	fields := c.InputFields()
	topic := ex.Inputs.Get("topic", "")
	sourceURL := ex.Inputs.Get("source_url", "")
	scriptType := selectValueByName(ex.Inputs, fields, "script_type")
	numScenes, _ := strconv.Atoi(selectValueByName(ex.Inputs, fields, "num_scenes"))
	ratio := selectValueByName(ex.Inputs, fields, "aspect_ratio")
	withImages := selectValueByName(ex.Inputs, fields, "generate_images") == "yes"
	extra := ex.Inputs.Get("extra_instructions", "")

	var outputs []Output

	reportProgress(onProgress, 0, "Researching the topic")

	batch, err := deps.Agent.ResearchAndWrite(ctx, sourceURL, topic, agent.WriteScriptInput{
		Topic:             topic,
		ScriptType:        scriptType,
		Brand:             ex.Brand,
		Persona:           ex.Persona,
		NumVariants:       1,
		ExtraInstructions: extra,
	})
	if err != nil {
		return nil, fmt.Errorf("script generation failed: %w", err)
	}

	if batch.ResearchSummary != "" {
		outputs = append(outputs, Output{
			Type:  OutputText,
			Title: "Research Summary",
			Value: batch.ResearchSummary,
		})
	}

	reportProgress(onProgress, 1, "Writing the script")

	if len(batch.Scripts) == 0 {
		return nil, fmt.Errorf("no script was generated")
	}
	script := batch.Scripts[0]
	outputs = append(outputs, Output{
		Type:  OutputText,
		Title: fmt.Sprintf("Script (%s)", script.Label),
		Value: script.Body,
	})

	reportProgress(onProgress, 2, "Breaking into scenes")

	scenes := deps.Agent.ScriptToScenes(ctx, script.Body, numScenes, ratio, ex.Brand, ex.Persona)
	for _, sc := range scenes {
		outputs = append(outputs, Output{
			Type:             OutputScene,
			Title:            fmt.Sprintf("Scene %d (%s)", sc.SceneNumber, sc.Timestamp),
			Index:            sc.SceneNumber - 1,
			SceneDescription: sc.VisualPrompt,
			AdCopy:           sc.ScriptLine,
		})
	}

	var cost, retail float64
	generated := 0

	if withImages {
		reportProgress(onProgress, 3, fmt.Sprintf("Generating %d scene visual(s)", len(scenes)))

		for i, sc := range scenes {
			reportProgress(onProgress, 3,
				fmt.Sprintf("Generating visual %d of %d", i+1, len(scenes)))

			gen, err := deps.Dispatcher.Dispatch(ctx, generation.Request{
				UserID:      ex.Run.UserID,
				RecipeRunID: &ex.Run.ID,
				Kind:        models.GenerationKindImage,
				Model:       machineImageModel,
				Provider:    machineImageProvider,
				Prompt:      sc.VisualPrompt,
				AspectRatio: ratio,
			})
			if err != nil {
				logger.Log.Warn("content machine scene visual failed",
					zap.String("run_id", ex.Run.ID),
					zap.Int("scene", sc.SceneNumber),
					zap.Error(err))
				outputs = append(outputs, Output{
					Type:  OutputText,
					Title: fmt.Sprintf("Scene %d Visual - Error", sc.SceneNumber),
					Value: fmt.Sprintf("Generation failed: %v", err),
				})
				continue
			}
			outputs = append(outputs, Output{
				Type:  OutputImage,
				Title: fmt.Sprintf("Scene %d Visual", sc.SceneNumber),
				URL:   gen.ResultURL,
			})
			cost += gen.Cost
			retail += gen.RetailCost
			generated++
		}
	}

	reportProgress(onProgress, 4, "Processing output")

	summary := []string{
		fmt.Sprintf("Topic: %s", clipText(topic, 120)),
		fmt.Sprintf("Format: %s", script.Label),
		fmt.Sprintf("Scenes: %d", len(scenes)),
	}
	if script.EstimatedSeconds > 0 {
		summary = append(summary, fmt.Sprintf("Estimated Length: %ds", script.EstimatedSeconds))
	}
	if withImages {
		summary = append(summary, fmt.Sprintf("Visuals Generated: %d", generated))
	}
	if sourceURL != "" {
		summary = append(summary, fmt.Sprintf("Source: %s", sourceURL))
	}
	if ex.Brand != nil {
		summary = append(summary, fmt.Sprintf("Brand: %s", ex.Brand.Name))
	}
	if ex.Persona != nil {
		summary = append(summary, fmt.Sprintf("Persona: %s", ex.Persona.Name))
	}

	outputs = append([]Output{{
		Type:  OutputText,
		Title: "Run Summary",
		Value: strings.Join(summary, "\n"),
	}}, outputs...)

	return &Result{Outputs: outputs, Cost: cost, RetailCost: retail}, nil
}

func scriptTypeOptions() []Option {
	choices := agent.ScriptTypeChoices()
	opts := make([]Option, 0, len(choices))
	for _, ch := range choices {
		opts = append(opts, Option{Value: ch.Value, Label: ch.Label})
	}
	return opts
}

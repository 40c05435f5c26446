package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/promptcraft"
)

// ScriptType describes one supported script format. MaxSeconds is zero
// for text-only formats like captions and newsletters.
type ScriptType struct {
	Label      string `json:"label"`
	MaxSeconds int    `json:"max_seconds"`
	Structure  string `json:"-"`
	Format     string `json:"-"`
}

// ScriptTypes is the catalog of supported formats, keyed by slug.
var ScriptTypes = map[string]ScriptType{
	"tiktok_hook": {
		Label:      "TikTok / Reels Hook",
		MaxSeconds: 15,
		Structure: "A 5-15 second scroll-stopping hook. " +
			"Open with a bold, curiosity-driven statement or question. " +
			"Must grab attention in the first 1-2 seconds.",
		Format: "[HOOK - 1-2s] Bold opening line\n" +
			"[REVEAL - 3-5s] The payoff or proof\n" +
			"[CTA - 2-3s] What to do next",
	},
	"tiktok_full": {
		Label:      "TikTok / Reels Full Script",
		MaxSeconds: 60,
		Structure: "A 30-60 second short-form video script. " +
			"Hook, then problem, then solution, then proof, then CTA. " +
			"Conversational, punchy, uses pattern interrupts.",
		Format: "[HOOK - 0-3s] Attention-grabbing opener\n" +
			"[PROBLEM - 3-10s] Relatable pain point\n" +
			"[SOLUTION - 10-25s] Your answer / product / tip\n" +
			"[PROOF - 25-40s] Social proof, results, or demo\n" +
			"[CTA - 40-60s] Tell them exactly what to do",
	},
	"youtube_intro": {
		Label:      "YouTube Intro (First 30s)",
		MaxSeconds: 30,
		Structure: "A 15-30 second YouTube intro. " +
			"Tease the value, introduce yourself briefly, " +
			"promise what the viewer will learn or get.",
		Format: "[TEASE - 0-5s] Surprising stat, question, or bold claim\n" +
			"[INTRO - 5-15s] Who you are (one sentence)\n" +
			"[PROMISE - 15-30s] What the viewer will learn / get / solve",
	},
	"ad_script": {
		Label:      "Ad / UGC Script",
		MaxSeconds: 45,
		Structure: "A 15-45 second UGC-style ad script. " +
			"Feels authentic, not salesy. " +
			"Problem-agitate-solve with a clear CTA.",
		Format: "[HOOK - 0-3s] 'POV:' or 'I tried...' or 'Stop scrolling if...'\n" +
			"[STORY - 3-15s] Personal experience with the problem\n" +
			"[PRODUCT - 15-30s] How the product solved it\n" +
			"[PROOF - 30-40s] Results or before/after\n" +
			"[CTA - 40-45s] Where to buy / link in bio",
	},
	"talking_head": {
		Label:      "Talking Head / Explainer",
		MaxSeconds: 90,
		Structure: "A 30-90 second talking-head script. " +
			"Educational, authoritative, but approachable. " +
			"One core idea explained clearly.",
		Format: "[HOOK - 0-5s] Surprising fact or question\n" +
			"[CONTEXT - 5-20s] Why this matters right now\n" +
			"[EXPLAIN - 20-60s] The core idea in 3 clear beats\n" +
			"[TAKEAWAY - 60-80s] So what? What should the viewer do?\n" +
			"[CTA - 80-90s] Follow for more / link / comment",
	},
	"caption": {
		Label:      "Social Caption",
		MaxSeconds: 0,
		Structure: "A social media caption (2-5 sentences). " +
			"Hook line, then body, then call to action. " +
			"Conversational and platform-native.",
		Format: "Line 1: Hook / bold statement\n" +
			"Lines 2-4: Supporting story or tips\n" +
			"Last line: CTA (comment, save, share, link)",
	},
	"newsletter": {
		Label:      "Newsletter / Email",
		MaxSeconds: 0,
		Structure: "A short email newsletter section (200-400 words). " +
			"Subject line, opening hook, 3-5 curated insights or tips, " +
			"closing CTA. Scannable with bullet points.",
		Format: "Subject: [compelling subject line]\n\n" +
			"Hey [name],\n\n" +
			"[Opening hook - 1-2 sentences]\n\n" +
			"Here's what caught my eye this week:\n\n" +
			"1. **[Insight]** - [2-3 sentence summary]\n" +
			"2. **[Insight]** - [2-3 sentence summary]\n" +
			"3. **[Insight]** - [2-3 sentence summary]\n\n" +
			"[Closing + CTA]",
	},
}

const defaultScriptType = "tiktok_hook"

// ScriptTypeChoice is a slug/label pair for dropdowns.
type ScriptTypeChoice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ScriptTypeChoices returns the catalog in a stable order for UIs.
func ScriptTypeChoices() []ScriptTypeChoice {
	order := []string{"tiktok_hook", "tiktok_full", "youtube_intro", "ad_script", "talking_head", "caption", "newsletter"}
	choices := make([]ScriptTypeChoice, 0, len(order))
	for _, slug := range order {
		choices = append(choices, ScriptTypeChoice{Value: slug, Label: ScriptTypes[slug].Label})
	}
	return choices
}

// ScriptResult is one generated script variant.
type ScriptResult struct {
	ScriptType       string `json:"script_type"`
	Label            string `json:"label"`
	Body             string `json:"body"`
	Hook             string `json:"hook"`
	EstimatedSeconds int    `json:"estimated_seconds"`
	WordCount        int    `json:"word_count"`
	Notes            string `json:"notes"`
}

// ScriptBatch is the result of one WriteScript call.
type ScriptBatch struct {
	Topic           string         `json:"topic"`
	PersonaName     string         `json:"persona_name"`
	Scripts         []ScriptResult `json:"scripts"`
	ResearchSummary string         `json:"research_summary"`
}

// Research is the distilled output of ResearchTopic.
type Research struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Angles    []string `json:"angles"`
	RawText   string   `json:"raw_text"`
}

// ResearchTopic scrapes an optional URL and summarises the material
// into key points and content angles. Degrades to the raw topic text
// when the model call or parse fails.
func (s *Service) ResearchTopic(ctx context.Context, url, topicText, extraContext string) Research {
	rawText := ""
	if url != "" {
		rawText = s.fetchPageText(ctx, url)
	}
	if rawText == "" && topicText == "" {
		return Research{}
	}

	sourceBlock := ""
	if rawText != "" {
		sourceBlock = fmt.Sprintf("\n\n--- Source Material (from %s) ---\n%s", url, rawText)
	}
	topicBlock := ""
	if topicText != "" {
		topicBlock = "\n\nTopic Description:\n" + topicText
	}
	extraBlock := ""
	if extraContext != "" {
		extraBlock = "\n\nAdditional Context:\n" + extraContext
	}

	prompt := fmt.Sprintf(`You are a research assistant preparing material for a content creator.
%s%s%s

Produce a JSON object with:
- "summary": a concise 3-5 sentence summary of the key information
- "key_points": an array of 5-8 bullet points capturing the most interesting / shareable facts
- "angles": an array of 3 creative angles a content creator could use (e.g. "contrarian take", "how-to tutorial", "myth-busting")

Output ONLY valid JSON, no markdown fences.`, topicBlock, sourceBlock, extraBlock)

	fallback := Research{
		Summary: orDefault(topicText, clip(rawText, 500)),
		RawText: clip(rawText, 2000),
	}

	raw, err := s.llm.CompleteJSON(ctx, prompt)
	if err != nil {
		logger.Log.Warn("agent: topic research failed", zap.Error(err))
		return fallback
	}
	var research Research
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &research); err != nil {
		logger.Log.Warn("agent: research parse failed", zap.Error(err))
		return fallback
	}
	research.RawText = clip(rawText, 2000)
	return research
}

// WriteScriptInput carries everything WriteScript needs. Brand and
// Persona are optional context.
type WriteScriptInput struct {
	Topic             string
	ScriptType        string
	Brand             *models.Brand
	Persona           *models.UserPersona
	NumVariants       int
	ExtraInstructions string
	ResearchSummary   string
}

var variantAngles = []string{
	"- Variant 1: Direct / authoritative approach",
	"- Variant 2: Story-driven / personal approach",
	"- Variant 3: Contrarian / surprising approach",
	"- Variant 4: Humorous / entertaining approach",
	"- Variant 5: Emotional / inspirational approach",
}

var jsonArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// WriteScript generates script variants for a topic in the persona's
// voice. Always returns at least one ScriptResult.
func (s *Service) WriteScript(ctx context.Context, in WriteScriptInput) (*ScriptBatch, error) {
	numVariants := in.NumVariants
	if numVariants < 1 {
		numVariants = 1
	}
	if numVariants > 5 {
		numVariants = 5
	}

	typeConfig, ok := ScriptTypes[in.ScriptType]
	if !ok {
		in.ScriptType = defaultScriptType
		typeConfig = ScriptTypes[defaultScriptType]
	}

	personaSection := ""
	if block := promptcraft.PersonaContext(in.Persona); block != "" {
		personaSection = fmt.Sprintf(`
--- VOICE & PERSONALITY (write exactly like this person) ---
%s
---
CRITICAL: You MUST write in this person's authentic voice. Match their tone,
vocabulary, sentence patterns, and energy level. If they're casual, be casual.
If they use slang, use slang. If they're formal, be formal. Mirror their
sample phrases for rhythm and style.`, block)
	}

	brandSection := ""
	if in.Brand != nil {
		brandSection = "\n\n--- BRAND CONTEXT ---\n" + promptcraft.BrandContext(in.Brand)
	}
	researchSection := ""
	if in.ResearchSummary != "" {
		researchSection = "\n\n--- RESEARCH MATERIAL ---\n" + in.ResearchSummary
	}
	extraSection := ""
	if in.ExtraInstructions != "" {
		extraSection = "\n\n--- ADDITIONAL INSTRUCTIONS ---\n" + in.ExtraInstructions
	}

	angles := strings.Join(variantAngles[:numVariants], "\n")
	maxSeconds := typeConfig.MaxSeconds
	if maxSeconds == 0 {
		maxSeconds = 60
	}

	prompt := fmt.Sprintf(`You are a world-class viral content scriptwriter who specialises in
short-form video content. You study what makes TikTok, YouTube Shorts, and
Instagram Reels go viral: hooks, pacing, pattern interrupts, emotional beats.
%s%s%s%s

TOPIC: %s

SCRIPT FORMAT: %s
FORMAT DESCRIPTION: %s
STRUCTURE:
%s

Write %d different script variant(s) for this topic.
Each variant should take a DIFFERENT creative angle:
%s

RULES:
1. Every script MUST start with a killer hook (the first 1-2 seconds).
2. Use short, punchy sentences. No filler. Every word earns its place.
3. Write for SPOKEN delivery - use contractions, natural pauses, emphasis cues.
4. Include [VISUAL CUE] directions in brackets where relevant.
5. End with a clear, specific call-to-action.
6. Match the persona's voice EXACTLY if one is provided.
7. Keep each script within ~%d seconds of spoken time.

Output ONLY a JSON array. Each item:
{
    "hook": "the first line / attention grabber",
    "body": "the full script text (including the hook)",
    "estimated_seconds": <integer>,
    "notes": "1-sentence tip on delivery"
}

No markdown fences. No explanation. Just the JSON array.`,
		personaSection, brandSection, researchSection, extraSection,
		in.Topic, typeConfig.Label, typeConfig.Structure, typeConfig.Format,
		numVariants, angles, maxSeconds)

	var items []struct {
		Hook             string `json:"hook"`
		Body             string `json:"body"`
		EstimatedSeconds int    `json:"estimated_seconds"`
		Notes            string `json:"notes"`
	}

	raw, err := s.llm.CompleteJSON(ctx, prompt)
	if err != nil {
		logger.Log.Error("agent: script generation failed", zap.Error(err))
	} else if jsonErr := json.Unmarshal([]byte(cleanJSON(raw)), &items); jsonErr != nil {
		// The model sometimes pads the array with prose. Recover by
		// extracting the first JSON array in the response.
		if match := jsonArrayRe.FindString(raw); match != "" {
			_ = json.Unmarshal([]byte(match), &items)
		}
	}

	var results []ScriptResult
	for i, item := range items {
		if i >= numVariants {
			break
		}
		hook := item.Hook
		if hook == "" && item.Body != "" {
			hook = strings.SplitN(item.Body, "\n", 2)[0]
		}
		results = append(results, ScriptResult{
			ScriptType:       in.ScriptType,
			Label:            typeConfig.Label,
			Body:             item.Body,
			Hook:             hook,
			EstimatedSeconds: item.EstimatedSeconds,
			WordCount:        len(strings.Fields(item.Body)),
			Notes:            item.Notes,
		})
	}

	if len(results) == 0 {
		results = append(results, ScriptResult{
			ScriptType: in.ScriptType,
			Label:      typeConfig.Label,
			Body:       "Script generation failed. Please try again with a different topic or check your API key.",
			Notes:      "Error: could not parse AI response.",
		})
	}

	personaName := "Default"
	if in.Persona != nil {
		personaName = in.Persona.Name
	}

	logger.Log.Info("agent: scripts generated",
		zap.Int("count", len(results)),
		zap.String("script_type", in.ScriptType),
		zap.String("topic", clip(in.Topic, 60)))

	return &ScriptBatch{
		Topic:           in.Topic,
		PersonaName:     personaName,
		Scripts:         results,
		ResearchSummary: in.ResearchSummary,
	}, nil
}

// ResearchAndWrite researches a topic and writes scripts from the
// findings in one call.
func (s *Service) ResearchAndWrite(ctx context.Context, url, topicText string, in WriteScriptInput) (*ScriptBatch, error) {
	research := s.ResearchTopic(ctx, url, topicText, in.ExtraInstructions)

	summary := research.Summary
	if len(research.KeyPoints) > 0 {
		summary += "\n\nKey points:\n- " + strings.Join(research.KeyPoints, "\n- ")
	}

	in.Topic = orDefault(topicText, summary)
	in.ResearchSummary = summary
	batch, err := s.WriteScript(ctx, in)
	if err != nil {
		return nil, err
	}
	batch.ResearchSummary = summary
	return batch, nil
}

// RewriteScript improves an existing script based on user feedback.
// Returns the original body when the model output cannot be used.
func (s *Service) RewriteScript(ctx context.Context, original, feedback, scriptType string, brand *models.Brand, persona *models.UserPersona) ScriptResult {
	typeConfig, ok := ScriptTypes[scriptType]
	if !ok {
		scriptType = defaultScriptType
		typeConfig = ScriptTypes[defaultScriptType]
	}

	personaSection := ""
	if block := promptcraft.PersonaContext(persona); block != "" {
		personaSection = "\n\n--- VOICE (match this exactly) ---\n" + block
	}
	brandSection := ""
	if brand != nil {
		brandSection = "\n\n--- BRAND ---\n" + promptcraft.BrandContext(brand)
	}
	feedbackSection := ""
	if feedback != "" {
		feedbackSection = "\n\nUSER FEEDBACK: " + feedback
	}

	prompt := fmt.Sprintf(`You are an expert script editor. Rewrite and improve this script.
%s%s

ORIGINAL SCRIPT:
%s
%s

FORMAT: %s

Improve the script by:
1. Sharpening the hook (must grab attention in <2 seconds)
2. Tightening the pacing (cut filler, every word earns its place)
3. Strengthening the CTA
4. Matching the persona's voice more closely (if provided)
5. Applying the user's feedback (if provided)

Output ONLY a JSON object:
{
    "hook": "the improved first line",
    "body": "the full improved script",
    "estimated_seconds": <integer>,
    "notes": "what you changed and why (1-2 sentences)"
}

No markdown fences. No explanation. Just the JSON object.`,
		personaSection, brandSection, original, feedbackSection, typeConfig.Label)

	var data struct {
		Hook             string `json:"hook"`
		Body             string `json:"body"`
		EstimatedSeconds int    `json:"estimated_seconds"`
		Notes            string `json:"notes"`
	}

	raw, err := s.llm.CompleteJSON(ctx, prompt)
	if err == nil {
		err = json.Unmarshal([]byte(cleanJSON(raw)), &data)
	}
	if err != nil {
		logger.Log.Error("agent: script rewrite failed", zap.Error(err))
		return ScriptResult{
			ScriptType: scriptType,
			Label:      typeConfig.Label,
			Body:       original,
			Notes:      "Rewrite failed: " + err.Error(),
		}
	}

	body := orDefault(data.Body, original)
	hook := data.Hook
	if hook == "" {
		hook = strings.SplitN(body, "\n", 2)[0]
	}
	return ScriptResult{
		ScriptType:       scriptType,
		Label:            typeConfig.Label,
		Body:             body,
		Hook:             hook,
		EstimatedSeconds: data.EstimatedSeconds,
		WordCount:        len(strings.Fields(body)),
		Notes:            data.Notes,
	}
}

// Scene is one storyboard beat produced by ScriptToScenes.
type Scene struct {
	SceneNumber  int    `json:"scene_number"`
	Timestamp    string `json:"timestamp"`
	ScriptLine   string `json:"script_line"`
	VisualPrompt string `json:"visual_prompt"`
}

// ScriptToScenes breaks a script into visual scene prompts for image or
// video generation. Falls back to an even split of the script lines.
func (s *Service) ScriptToScenes(ctx context.Context, script string, numScenes int, aspectRatio string, brand *models.Brand, persona *models.UserPersona) []Scene {
	if numScenes < 1 {
		numScenes = 3
	}

	brandSection := ""
	if brand != nil {
		brandSection = "\n\nBrand context:\n" + promptcraft.BrandContext(brand)
	}
	personaSection := ""
	if block := promptcraft.PersonaContext(persona); block != "" {
		personaSection = "\n\nCreator persona (visual style should match their vibe):\n" + clip(block, 500)
	}

	prompt := fmt.Sprintf(`You are a storyboard artist breaking a video script into visual scenes.
%s%s

SCRIPT:
%s

Break this into exactly %d visual scenes.
Aspect ratio: %s

For each scene, write a DETAILED image/video generation prompt that:
1. Describes the exact visual composition (subject, setting, framing)
2. Specifies lighting, mood, and color palette
3. Matches the script's emotional beat at that moment
4. Works as a standalone prompt for an AI image generator
5. Incorporates brand colors/style if provided

Output ONLY a JSON array:
[
    {
        "scene_number": 1,
        "timestamp": "0-5s",
        "script_line": "the text spoken during this scene",
        "visual_prompt": "detailed scene description for image generation"
    }
]

No markdown fences. No explanation.`,
		brandSection, personaSection, script, numScenes, aspectRatio)

	raw, err := s.llm.CompleteJSON(ctx, prompt)
	if err == nil {
		var scenes []Scene
		if json.Unmarshal([]byte(cleanJSON(raw)), &scenes) == nil && len(scenes) > 0 {
			if len(scenes) > numScenes {
				scenes = scenes[:numScenes]
			}
			return scenes
		}
	} else {
		logger.Log.Error("agent: scene breakdown failed", zap.Error(err))
	}

	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(script), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	chunkSize := len(lines) / numScenes
	if chunkSize < 1 {
		chunkSize = 1
	}
	scenes := make([]Scene, 0, numScenes)
	for i := 0; i < numScenes; i++ {
		start := i * chunkSize
		var chunk string
		if start < len(lines) {
			end := start + chunkSize
			if end > len(lines) {
				end = len(lines)
			}
			chunk = strings.Join(lines[start:end], " ")
		}
		scenes = append(scenes, Scene{
			SceneNumber:  i + 1,
			Timestamp:    fmt.Sprintf("%d-%ds", i*5, (i+1)*5),
			ScriptLine:   chunk,
			VisualPrompt: "Scene depicting: " + clip(chunk, 200),
		})
	}
	return scenes
}

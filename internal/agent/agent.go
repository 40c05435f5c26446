// Package agent implements the AI creative director: brand analysis,
// campaign planning, caption writing, and prompt engineering on top of
// the Gemini text API. Results that should influence future output are
// persisted as AgentMemory rows so the agent improves per brand over time.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
	"gorm.io/gorm"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/promptcraft"
)

const (
	textModel = "gemini-2.5-flash"

	// Scraped page text is clipped so brand research stays inside the
	// model context window.
	maxPageText = 5000

	preferenceLimit = 20
)

// Completer abstracts the text model so services and tests can swap the
// backend. CompleteJSON asks the model for a JSON response body.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

type geminiCompleter struct {
	client *genai.Client
	model  string
}

func (g *geminiCompleter) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini text call: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}

func (g *geminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt, nil)
}

func (g *geminiCompleter) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
}

// Service is the creative director agent. It shares the genai client
// with the image and speech backends.
type Service struct {
	llm  Completer
	http *http.Client
}

func NewService(client *genai.Client) *Service {
	return &Service{
		llm:  &geminiCompleter{client: client, model: textModel},
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewServiceWithCompleter wires a custom text backend. Used by tests.
func NewServiceWithCompleter(c Completer) *Service {
	return &Service{llm: c, http: &http.Client{Timeout: 15 * time.Second}}
}

// Complete sends a raw prompt to the text model. Callers that build
// their own meta-prompts (the recipe workflows) go through here.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	return s.llm.Complete(ctx, prompt)
}

// CompleteJSON is Complete with the JSON response mode enabled.
func (s *Service) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return s.llm.CompleteJSON(ctx, prompt)
}

// cleanJSON strips markdown code fences that models sometimes wrap
// around JSON output even when asked not to.
func cleanJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	var kept []string
	for _, line := range strings.Split(cleaned, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

var (
	scriptTagRe = regexp.MustCompile(`(?s)<script[^>]*>.*?</script>`)
	styleTagRe  = regexp.MustCompile(`(?s)<style[^>]*>.*?</style>`)
	htmlTagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// fetchPageText scrapes a URL and reduces it to readable text for the
// model to analyze. Returns "" on any failure so callers can proceed
// without the research material.
func (s *Service) fetchPageText(ctx context.Context, url string) string {
	if url == "" {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VideoBuds/1.0)")

	resp, err := s.http.Do(req)
	if err != nil {
		logger.Log.Warn("agent: url fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return ""
	}

	text := scriptTagRe.ReplaceAllString(string(body), "")
	text = styleTagRe.ReplaceAllString(text, "")
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
	if len(text) > maxPageText {
		text = text[:maxPageText]
	}
	return text
}

// loadBrandBrief returns the most recent stored brand brief, or the
// assembled brand context when no brief exists yet.
func loadBrandBrief(brand *models.Brand) string {
	var mem models.AgentMemory
	err := database.DB.
		Where("brand_id = ? AND kind = ?", brand.ID, models.MemoryKindBrandBrief).
		Order("created_at DESC").
		First(&mem).Error
	if err != nil {
		return promptcraft.BrandContext(brand)
	}
	return mem.Content
}

// loadPreferences returns the most recent approval and rejection notes.
func loadPreferences(brandID string) []string {
	var mems []models.AgentMemory
	database.DB.
		Where("brand_id = ? AND kind = ?", brandID, models.MemoryKindPreference).
		Order("created_at DESC").
		Limit(preferenceLimit).
		Find(&mems)
	prefs := make([]string, 0, len(mems))
	for _, m := range mems {
		prefs = append(prefs, m.Content)
	}
	return prefs
}

func preferenceSection(prefs []string, max int, header string) string {
	if len(prefs) == 0 {
		return ""
	}
	if len(prefs) > max {
		prefs = prefs[:max]
	}
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, p := range prefs {
		sb.WriteString("- ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// BrandAnalysisInput carries the lightweight onboarding answers the
// agent expands into a full creative brief.
type BrandAnalysisInput struct {
	Description      string `json:"description"`
	Industry         string `json:"industry"`
	VisualVibe       string `json:"visual_vibe"`
	AudienceSegments string `json:"audience_segments"`
	WebsiteURL       string `json:"website_url"`
	SocialURL        string `json:"social_url"`
}

// brandData is the structured half of the analysis output.
type brandData struct {
	Tagline        string   `json:"tagline"`
	TargetAudience string   `json:"target_audience"`
	VisualStyle    string   `json:"visual_style"`
	ContentPillars []string `json:"content_pillars"`
	NeverDo        string   `json:"never_do"`
	Colors         []string `json:"colors"`
	Voice          string   `json:"voice"`
}

const briefMarker = "---BRIEF---"

var jsonBlockRe = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n```")

// AnalyzeBrand researches the brand and produces an enhanced creative
// brief. Structured fields are written back to the brand row and the
// brief is stored as agent memory so later planning calls can use it.
func (s *Service) AnalyzeBrand(ctx context.Context, brand *models.Brand, input BrandAnalysisInput) (string, error) {
	brandBlock := promptcraft.BrandContext(brand)

	var inputLines []string
	if input.Description != "" {
		inputLines = append(inputLines, "What the brand does: "+input.Description)
	}
	if input.Industry != "" {
		inputLines = append(inputLines, "Industry/niche: "+input.Industry)
	}
	if input.VisualVibe != "" {
		inputLines = append(inputLines, "Visual vibe preferences: "+input.VisualVibe)
	}
	if input.AudienceSegments != "" {
		inputLines = append(inputLines, "Target audience segments: "+input.AudienceSegments)
	}
	inputSection := ""
	if len(inputLines) > 0 {
		inputSection = "\n\nUser-provided input:\n- " + strings.Join(inputLines, "\n- ")
	}

	qaSection := questionnaireSection(brand)

	websiteSection := ""
	if input.WebsiteURL != "" {
		if text := s.fetchPageText(ctx, input.WebsiteURL); text != "" {
			websiteSection = fmt.Sprintf("\n\n--- Website Content (%s) ---\n%s", input.WebsiteURL, text)
		}
	}
	socialSection := ""
	if input.SocialURL != "" {
		if text := s.fetchPageText(ctx, input.SocialURL); text != "" {
			socialSection = fmt.Sprintf("\n\n--- Social Profile Content (%s) ---\n%s", input.SocialURL, text)
		}
	}

	prompt := fmt.Sprintf(`You are an expert creative director at a top advertising agency. A new client has given you MINIMAL information about their brand. Your job is to research thoroughly and build a COMPLETE brand identity.

%s%s%s%s%s

Based on this information, produce TWO outputs:

## OUTPUT 1: Brand Data (JSON)
Output a JSON object with these fields (fill in everything, even if you have to infer from context):
{
    "tagline": "a catchy brand tagline (max 10 words)",
    "target_audience": "detailed audience description (2-3 sentences)",
    "visual_style": "visual style description (2-3 sentences)",
    "content_pillars": ["pillar1", "pillar2", "pillar3", "pillar4", "pillar5"],
    "never_do": "things to avoid in content and visuals (2-3 sentences)",
    "colors": ["#hex1", "#hex2", "#hex3"],
    "voice": "brand voice and tone description (2-3 sentences)"
}

## OUTPUT 2: Creative Brief (Markdown)
Write a comprehensive Creative Brief with these sections:
1. **Brand Essence** - One sentence capturing who they are
2. **Voice & Tone** - How the brand speaks. Give 3 example phrases.
3. **Target Audience Profile** - Demographics, psychographics, pain points, desires
4. **Visual Direction** - Color usage, photography style, composition, lighting, textures
5. **Content Strategy** - For each content pillar, describe 3 specific content angles
6. **Image Scenes** - Describe 5 specific scenes that would make great ad images
7. **Guardrails** - What to always avoid in visuals and copy

Format your response as:
`+"```json\n<the JSON object>\n```"+`

---BRIEF---
<the markdown creative brief>`, brandBlock, inputSection, qaSection, websiteSection, socialSection)

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	brief := raw
	var data *brandData
	if match := jsonBlockRe.FindStringSubmatchIndex(raw); match != nil {
		var parsed brandData
		if json.Unmarshal([]byte(raw[match[2]:match[3]]), &parsed) == nil {
			data = &parsed
		}
		brief = strings.TrimSpace(raw[match[1]:])
	}
	if idx := strings.Index(raw, briefMarker); idx >= 0 {
		brief = strings.TrimSpace(raw[idx+len(briefMarker):])
	}

	if data != nil {
		applyBrandData(brand, data)
	}

	if err := upsertBrandBrief(brand, brief); err != nil {
		return "", err
	}
	if err := database.DB.Save(brand).Error; err != nil {
		return "", fmt.Errorf("save brand: %w", err)
	}

	logger.Log.Info("agent: brand brief generated",
		zap.String("brand_id", brand.ID),
		zap.String("brand", brand.Name))
	return brief, nil
}

func applyBrandData(brand *models.Brand, data *brandData) {
	if data.TargetAudience != "" {
		brand.TargetAudience = data.TargetAudience
	}
	if data.Voice != "" {
		brand.VoiceTone = data.Voice
	}
	if len(data.ContentPillars) > 0 {
		brand.ContentPillars = data.ContentPillars
	}
	if len(data.Colors) > 0 {
		brand.Colors = data.Colors
	}
	if data.VisualStyle != "" && brand.Description == "" {
		brand.Description = data.VisualStyle
	}
}

func questionnaireSection(brand *models.Brand) string {
	q := brand.Questionnaire
	if q == nil {
		return ""
	}
	rows := []struct{ label, value string }{
		{"Mission", q.Mission},
		{"Values", q.Values},
		{"Differentiators", q.Differentiators},
		{"Customer Pains", q.CustomerPains},
		{"Customer Gains", q.CustomerGains},
		{"Competitors", q.Competitors},
		{"Inspirations", q.Inspirations},
		{"Do Language", q.DoLanguage},
		{"Dont Language", q.DontLanguage},
	}
	var lines []string
	for _, r := range rows {
		if r.value != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", r.label, r.value))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "\n\nQuestionnaire Responses:\n" + strings.Join(lines, "\n")
}

func upsertBrandBrief(brand *models.Brand, brief string) error {
	var existing models.AgentMemory
	err := database.DB.
		Where("brand_id = ? AND kind = ?", brand.ID, models.MemoryKindBrandBrief).
		First(&existing).Error
	switch {
	case err == nil:
		existing.Content = brief
		existing.CreatedAt = time.Now().UTC()
		return database.DB.Save(&existing).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return database.DB.Create(&models.AgentMemory{
			UserID:  brand.UserID,
			BrandID: &brand.ID,
			Kind:    models.MemoryKindBrandBrief,
			Content: brief,
		}).Error
	default:
		return fmt.Errorf("load brand brief: %w", err)
	}
}

// goalLabels expands short campaign goal slugs into planning guidance.
var goalLabels = map[string]string{
	"brand_awareness": "Brand Awareness - introduce the brand to new audiences",
	"product_launch":  "Product Launch - showcase a new product or service",
	"engagement":      "Engagement & Community - build relationships, start conversations",
	"education":       "Education & Value - share tips, tutorials, how-tos",
	"seasonal":        "Seasonal/Holiday - capitalize on seasonal moments",
	"behind_scenes":   "Behind the Scenes - show the human side of the brand",
	"sales":           "Sales & Promotion - drive conversions and sales",
}

// DayPlan is one planned day of a campaign calendar.
type DayPlan struct {
	Day     int    `json:"day"`
	Caption string `json:"caption"`
	Scene   string `json:"scene"`
	Angle   string `json:"angle"`
}

// PlanCampaign writes captions and scene directions for every post of a
// campaign in a single model call, and stores the plan as agent memory.
func (s *Service) PlanCampaign(ctx context.Context, brand *models.Brand, campaign *models.Campaign, persona *models.UserPersona) ([]DayPlan, error) {
	var posts []models.Post
	if err := database.DB.
		Where("campaign_id = ?", campaign.ID).
		Order("day_number").
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, nil
	}

	brief := loadBrandBrief(brand)
	prefSection := preferenceSection(loadPreferences(brand.ID), 10,
		"Learned Preferences (from past approvals/rejections):")

	personaSection := ""
	if block := promptcraft.PersonaContext(persona); block != "" {
		personaSection = "\n\n--- VOICE & PERSONALITY (write captions in this person's voice) ---\n" +
			block + "\n---\nMatch their tone, vocabulary, and energy level in every caption."
	}

	styleName := promptcraft.PresetBySlug(campaign.StylePreset).Name

	goalSection := ""
	if campaign.Goal != "" {
		desc, ok := goalLabels[campaign.Goal]
		if !ok {
			desc = campaign.Goal
		}
		goalSection = "\nCampaign Intention: " + desc
	}

	var postList strings.Builder
	for _, p := range posts {
		pillar := p.ContentPillar
		if pillar == "" {
			pillar = "general"
		}
		imgType := p.ImageType
		if imgType == "" {
			imgType = "lifestyle"
		}
		fmt.Fprintf(&postList, "- Day %d: Pillar=%s, Type=%s\n", p.DayNumber, pillar, imgType)
	}

	prompt := fmt.Sprintf(`You are a creative director planning a %d-day social media campaign.

Brand Brief:
%s
%s%s

Campaign: "%s"
Visual Style: %s%s
Start Date: %s

Posts to plan:
%s
IMPORTANT: Every post MUST align with the campaign intention. The content, captions, and scenes should all serve the campaign's goal.

For EACH day, output a JSON array. Each item must have:
- "day": day number (integer)
- "caption": a ready-to-post social media caption in the brand's voice (2-4 sentences, include a call-to-action, no hashtags in caption)
- "scene": a specific image scene description - describe WHAT to show (subject, setting, composition, mood, key visual elements). Be specific: "woman in her 30s holding product at a sunlit kitchen counter" NOT "lifestyle image"
- "angle": the specific content angle for this day's pillar

Output ONLY the JSON array, no markdown fences, no explanation.
Example format: [{"day":1,"caption":"...","scene":"...","angle":"..."}]`,
		len(posts), brief, prefSection, personaSection,
		campaign.Name, styleName, goalSection,
		campaign.StartDate.Format("2006-01-02"), postList.String())

	raw, err := s.llm.CompleteJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var plan []DayPlan
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &plan); err != nil {
		logger.Log.Warn("agent: campaign plan parse failed",
			zap.String("campaign_id", campaign.ID), zap.Error(err))
		return nil, nil
	}

	byDay := make(map[int]*models.Post, len(posts))
	for i := range posts {
		byDay[posts[i].DayNumber] = &posts[i]
	}
	for _, item := range plan {
		post, ok := byDay[item.Day]
		if !ok {
			continue
		}
		if item.Caption != "" {
			post.Caption = item.Caption
		}
		if item.Scene != "" {
			post.Prompt = item.Scene
		}
		if err := database.DB.Save(post).Error; err != nil {
			return nil, fmt.Errorf("save post day %d: %w", item.Day, err)
		}
	}

	encoded, _ := json.Marshal(plan)
	if err := database.DB.Create(&models.AgentMemory{
		UserID:  brand.UserID,
		BrandID: &brand.ID,
		Kind:    models.MemoryKindCampaignPlan,
		Content: string(encoded),
	}).Error; err != nil {
		return nil, fmt.Errorf("store campaign plan: %w", err)
	}

	logger.Log.Info("agent: campaign plan generated",
		zap.String("campaign_id", campaign.ID),
		zap.Int("days", len(plan)))
	return plan, nil
}

// WriteCaptions generates three caption variants for a post. Falls back
// to line splitting when the model ignores the JSON instruction.
func (s *Service) WriteCaptions(ctx context.Context, brand *models.Brand, post *models.Post, campaign *models.Campaign, persona *models.UserPersona) ([]string, error) {
	brief := clip(loadBrandBrief(brand), 2000)
	prefSection := preferenceSection(loadPreferences(brand.ID), 5, "Learned style preferences:")

	personaSection := ""
	if block := promptcraft.PersonaContext(persona); block != "" {
		personaSection = "\n\n--- VOICE & PERSONALITY (write exactly like this person) ---\n" +
			block + "\n---\nCRITICAL: Match their tone, vocabulary, and energy level."
	}

	prompt := fmt.Sprintf(`You are a social media copywriter for %s.

Brand Brief (excerpt):
%s
%s%s

Write 3 different caption variants for this post:
- Day %d of campaign "%s"
- Content Pillar: %s
- Image Type: %s
- Current scene/prompt: %s

Requirements:
- Write in the brand's voice and tone
- 2-4 sentences each
- Include a clear call-to-action
- Each variant should take a different angle (emotional, educational, provocative)
- Target audience: %s
- Do NOT include hashtags in the caption

Output ONLY a JSON array of 3 strings. No markdown fences, no explanation.
Example: ["Caption one...", "Caption two...", "Caption three..."]`,
		brand.Name, brief, prefSection, personaSection,
		post.DayNumber, campaign.Name,
		orDefault(post.ContentPillar, "general"),
		orDefault(post.ImageType, "lifestyle"),
		orDefault(post.Prompt, "not set"),
		orDefault(brand.TargetAudience, "general"))

	raw, err := s.llm.CompleteJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var captions []string
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &captions); err == nil && len(captions) > 0 {
		if len(captions) > 3 {
			captions = captions[:3]
		}
		return captions, nil
	}

	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(raw), "\n") {
		l = strings.TrimLeft(strings.TrimSpace(l), "0123456789.-) ")
		if l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > 3 {
		lines = lines[:3]
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no usable captions in model output")
	}
	return lines, nil
}

// BuildSmartPrompt asks the model to write the image generation prompt
// itself instead of assembling it from templates.
func (s *Service) BuildSmartPrompt(ctx context.Context, brand *models.Brand, post *models.Post, campaign *models.Campaign, persona *models.UserPersona) (string, error) {
	brief := clip(loadBrandBrief(brand), 1500)
	prefSection := preferenceSection(loadPreferences(brand.ID), 8,
		"Past feedback (what the user liked/disliked):")

	styleSlug := ""
	if campaign != nil {
		styleSlug = campaign.StylePreset
	}
	preset := promptcraft.PresetBySlug(styleSlug)

	sceneHint := ""
	if post.Prompt != "" {
		sceneHint = "\nScene direction (from campaign plan): " + post.Prompt
	}
	captionHint := ""
	if post.Caption != "" {
		captionHint = "\nCaption context (image should match this message): " + post.Caption
	}
	goalHint := ""
	if campaign != nil && campaign.Goal != "" {
		goalHint = "\nCampaign goal: " + goalTitle(campaign.Goal)
	}
	personaHint := ""
	if block := promptcraft.PersonaContext(persona); block != "" {
		personaHint = "\nCreator persona (visual style should match their vibe): " + clip(block, 500)
	}

	prompt := fmt.Sprintf(`You are an expert art director writing an image generation prompt for an AI model (Google Gemini image generation).

Brand: %s
Brand Brief (excerpt):
%s

Visual Style Preset: %s - %s
Camera Direction: %s
Content Pillar: %s
Image Type: %s
Brand Colors: %s
Target Audience: %s
%s%s%s%s%s

Write a single, detailed image generation prompt (3-5 sentences) that:
1. Describes a SPECIFIC scene with a clear subject (person, product, setting)
2. Includes composition and camera angle
3. Specifies lighting and mood
4. References brand colors naturally
5. Matches the visual style preset
6. Would work as an Instagram/TikTok ad creative

Output ONLY the prompt text - no quotes, no labels, no explanation. Just the image generation prompt itself.`,
		brand.Name, brief,
		preset.Name, preset.Fragment, preset.Camera,
		orDefault(post.ContentPillar, "general"),
		orDefault(post.ImageType, "lifestyle"),
		orDefault(strings.Join(brand.Colors, ", "), "not specified"),
		orDefault(brand.TargetAudience, "general"),
		sceneHint, captionHint, goalHint, personaHint, prefSection)

	return s.llm.Complete(ctx, prompt)
}

// LearnFromFeedback records what a post looked like when it was
// approved or rejected so planning calls can steer future output.
func (s *Service) LearnFromFeedback(brand *models.Brand, post *models.Post, action models.PostStatus) error {
	label := "DISLIKED"
	if action == models.PostStatusApproved {
		label = "LIKED"
	}

	parts := []string{label + ":"}
	if post.ContentPillar != "" {
		parts = append(parts, "pillar="+post.ContentPillar)
	}
	if post.ImageType != "" {
		parts = append(parts, "type="+post.ImageType)
	}
	if post.Prompt != "" {
		parts = append(parts, "prompt="+clip(post.Prompt, 200))
	}
	if post.Caption != "" {
		parts = append(parts, "caption="+clip(post.Caption, 100))
	}

	if err := database.DB.Create(&models.AgentMemory{
		UserID:  brand.UserID,
		BrandID: &brand.ID,
		Kind:    models.MemoryKindPreference,
		Content: strings.Join(parts, " | "),
	}).Error; err != nil {
		return fmt.Errorf("store preference: %w", err)
	}

	logger.Log.Info("agent: stored feedback",
		zap.String("brand_id", brand.ID),
		zap.String("post_id", post.ID),
		zap.String("action", string(action)))
	return nil
}

// SelectPhotos picks the most relevant reference images from the brand
// library for a post. Returns all images when three or fewer exist, and
// falls back to all images when selection fails.
func (s *Service) SelectPhotos(ctx context.Context, brand *models.Brand, post *models.Post, campaign *models.Campaign, persona *models.UserPersona) ([]models.ReferenceImage, error) {
	var refs []models.ReferenceImage
	if err := database.DB.Where("brand_id = ?", brand.ID).Find(&refs).Error; err != nil {
		return nil, fmt.Errorf("load reference images: %w", err)
	}
	if len(refs) <= 3 {
		return refs, nil
	}

	var inventory strings.Builder
	for _, r := range refs {
		fmt.Fprintf(&inventory, "- ID:%s | Purpose:%s | Caption:%s\n", r.ID, r.Purpose, r.Caption)
	}

	goalHint := ""
	if campaign != nil && campaign.Goal != "" {
		goalHint = "\nCampaign goal: " + goalTitle(campaign.Goal)
	}
	personaHint := ""
	if block := promptcraft.PersonaContext(persona); block != "" {
		personaHint = "\nCreator personality: " + clip(block, 300)
	}

	prompt := fmt.Sprintf(`You are an art director selecting reference photos for an ad creative.

Post Context:
- Content Pillar: %s
- Image Type: %s
- Scene/Prompt: %s
- Caption: %s%s%s

Available Photos:
%s
Select 1-3 photos that would be MOST relevant as reference images for this post.
Consider: product photos for product-focused posts, personal photos for UGC/behind-scenes, inspiration for mood/style.

Output ONLY a JSON array of photo IDs. Example: ["id-1", "id-2"]`,
		orDefault(post.ContentPillar, "general"),
		orDefault(post.ImageType, "lifestyle"),
		orDefault(post.Prompt, "not set"),
		orDefault(post.Caption, "not set"),
		goalHint, personaHint, inventory.String())

	raw, err := s.llm.CompleteJSON(ctx, prompt)
	if err != nil {
		logger.Log.Warn("agent: photo selection failed, using all photos", zap.Error(err))
		return refs, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &ids); err != nil {
		logger.Log.Warn("agent: photo selection parse failed, using all photos", zap.Error(err))
		return refs, nil
	}

	byID := make(map[string]models.ReferenceImage, len(refs))
	for _, r := range refs {
		byID[r.ID] = r
	}
	var selected []models.ReferenceImage
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			selected = append(selected, r)
		}
	}
	if len(selected) == 0 {
		return refs, nil
	}
	return selected, nil
}

func goalTitle(goal string) string {
	words := strings.Fields(strings.ReplaceAll(goal, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/pricing"
	"github.com/videobuds/backend/internal/promptcraft"
)

type generateRequest struct {
	Prompt        string   `json:"prompt" binding:"required,min=1"`
	Model         string   `json:"model"`
	Provider      string   `json:"provider"`
	AspectRatio   string   `json:"aspect_ratio"`
	Duration      int      `json:"duration"`
	Resolution    string   `json:"resolution"`
	ImageURL      string   `json:"image_url"`
	AudioURL      string   `json:"audio_url"`
	Voice         string   `json:"voice"`
	ReferenceURLs []string `json:"reference_urls"`
}

// GenerateImage runs or queues a single image generation
// POST /api/v1/generate/image
func (h *Handlers) GenerateImage(c *gin.Context) {
	h.generate(c, models.GenerationKindImage, pricing.DefaultImageModel, pricing.TypeImage)
}

// GenerateVideo runs or queues a single video generation
// POST /api/v1/generate/video
func (h *Handlers) GenerateVideo(c *gin.Context) {
	h.generate(c, models.GenerationKindVideo, pricing.DefaultVideoModel, pricing.TypeVideo)
}

// GenerateSpeech runs a TTS generation
// POST /api/v1/generate/speech
func (h *Handlers) GenerateSpeech(c *gin.Context) {
	h.generate(c, models.GenerationKindSpeech, "gemini-tts", pricing.TypeTTS)
}

// generate validates a single-shot request, runs synchronous models
// inline and queues everything that needs a poll loop.
func (h *Handlers) generate(c *gin.Context, kind models.GenerationKind, defaultModel string, wantType pricing.ModelType) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Prompt) > h.cfg.MaxTextAreaInput {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is too long"})
		return
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}
	info := pricing.ModelBySlug(model)
	if info == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown model"})
		return
	}
	// Talking-head models ride the video endpoint with an audio input
	if info.Type != wantType && !(wantType == pricing.TypeVideo && info.Type == pricing.TypeTalkingHead) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model does not produce " + string(kind)})
		return
	}
	if req.Provider != "" && !pricing.HasProvider(model, req.Provider) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model is not available on that provider"})
		return
	}
	if req.AspectRatio != "" && !promptcraft.IsValidRatio(req.AspectRatio) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid aspect ratio"})
		return
	}

	genReq := generation.Request{
		UserID:        user.ID,
		Kind:          kind,
		Model:         model,
		Provider:      req.Provider,
		Prompt:        req.Prompt,
		AspectRatio:   req.AspectRatio,
		Duration:      req.Duration,
		Resolution:    req.Resolution,
		ImageURL:      req.ImageURL,
		AudioURL:      req.AudioURL,
		Voice:         req.Voice,
		ReferenceURLs: req.ReferenceURLs,
	}

	// Sync providers answer on the submit call, so run them inline
	if pricing.IsSync(model, req.Provider) {
		gen, err := h.dispatcher.Dispatch(c.Request.Context(), genReq)
		if gen == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "generation failed"})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": gen.ErrorMessage, "generation": gen})
			return
		}
		c.JSON(http.StatusOK, gin.H{"generation": gen})
		return
	}

	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation queue is not running"})
		return
	}
	job, err := h.queue.Submit(user.ID, "", []generation.Request{genReq})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

// GetGeneration returns one generation ledger row
// GET /api/v1/generations/:id
func (h *Handlers) GetGeneration(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var gen models.Generation
	err := database.DB.
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		First(&gen).Error
	if handleDBError(c, err, "generation") {
		return
	}

	c.JSON(http.StatusOK, gin.H{"generation": gen})
}

// GetGenerations lists the user's generation history
// GET /api/v1/generations
func (h *Handlers) GetGenerations(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	page, perPage := paginationParams(c, 20, 100)

	query := database.DB.Model(&models.Generation{}).Where("user_id = ?", user.ID)
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var gens []models.Generation
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&gens).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch generations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generations": gens,
		"total":       total,
		"page":        page,
		"per_page":    perPage,
	})
}

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/pricing"
	"github.com/videobuds/backend/internal/promptcraft"
)

const (
	minCampaignPosts = 1
	maxCampaignPosts = 365
)

type campaignRequest struct {
	BrandID     string `json:"brand_id" binding:"required"`
	PersonaID   string `json:"persona_id"`
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Goal        string `json:"goal" binding:"max=200"`
	StartDate   string `json:"start_date"`
	PostCount   int    `json:"post_count"`
	AspectRatio string `json:"aspect_ratio"`
	StylePreset string `json:"style_preset"`
}

// CreateCampaign creates a campaign and builds its post calendar
// POST /api/v1/campaigns
func (h *Handlers) CreateCampaign(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	brand, err := loadOwnedBrand(req.BrandID, user.ID)
	if handleDBError(c, err, "brand") {
		return
	}

	start := time.Now().UTC().Truncate(24 * time.Hour)
	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
		start = parsed
	}

	count := req.PostCount
	if count == 0 {
		count = 30
	}
	if count < minCampaignPosts || count > maxCampaignPosts {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post_count must be between 1 and 365"})
		return
	}

	ratio := req.AspectRatio
	if ratio == "" {
		ratio = "1:1"
	}
	if !promptcraft.IsValidRatio(ratio) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid aspect ratio"})
		return
	}

	campaign := &models.Campaign{
		BrandID:     brand.ID,
		Name:        req.Name,
		Goal:        req.Goal,
		Status:      models.CampaignStatusDraft,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, count-1),
		PostCount:   count,
		AspectRatio: ratio,
		StylePreset: req.StylePreset,
	}

	preset := promptcraft.PresetBySlug(req.StylePreset)
	posts := buildCalendar(campaign, brand, preset, count)

	// Calendar creation is all or nothing
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(campaign).Error; err != nil {
			return err
		}
		for i := range posts {
			posts[i].CampaignID = campaign.ID
		}
		return tx.Create(&posts).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create campaign"})
		return
	}

	// The agent plan enriches captions and scene directions but is never
	// allowed to fail campaign creation.
	var persona *models.UserPersona
	if req.PersonaID != "" {
		var p models.UserPersona
		if err := database.DB.Where("id = ? AND user_id = ?", req.PersonaID, user.ID).First(&p).Error; err == nil {
			persona = &p
		}
	}
	if h.agent != nil {
		h.applyCampaignPlan(c, brand, campaign, persona)
	}

	database.DB.Preload("Posts", func(db *gorm.DB) *gorm.DB {
		return db.Order("day_number")
	}).First(campaign, "id = ?", campaign.ID)

	c.JSON(http.StatusCreated, gin.H{"campaign": campaign})
}

// buildCalendar lays out one post per day, rotating brand pillars and
// image types, with the template prompt pre-filled.
func buildCalendar(campaign *models.Campaign, brand *models.Brand, preset promptcraft.StylePreset, count int) []models.Post {
	posts := make([]models.Post, 0, count)
	for day := 1; day <= count; day++ {
		post := models.Post{
			DayNumber:     day,
			ScheduledDate: campaign.StartDate.AddDate(0, 0, day-1),
			ImageType:     promptcraft.ImageTypes[(day-1)%len(promptcraft.ImageTypes)],
			Status:        models.PostStatusDraft,
			Hashtags:      strings.Join(brand.Hashtags, " "),
		}
		if len(brand.ContentPillars) > 0 {
			post.ContentPillar = brand.ContentPillars[(day-1)%len(brand.ContentPillars)]
		}
		post.Prompt = promptcraft.PostPrompt(preset, brand, &post, campaign.AspectRatio)
		posts = append(posts, post)
	}
	return posts
}

func (h *Handlers) applyCampaignPlan(c *gin.Context, brand *models.Brand, campaign *models.Campaign, persona *models.UserPersona) {
	plan, err := h.agent.PlanCampaign(c.Request.Context(), brand, campaign, persona)
	if err != nil {
		logger.Log.Warn("campaign plan failed, keeping template prompts",
			logger.WithCampaignID(campaign.ID), zap.Error(err))
		return
	}
	for _, day := range plan {
		updates := map[string]interface{}{}
		if day.Caption != "" {
			updates["caption"] = day.Caption
		}
		if day.Scene != "" {
			updates["prompt"] = gorm.Expr("prompt || ?", "\n\nScene direction: "+day.Scene)
		}
		if len(updates) == 0 {
			continue
		}
		database.DB.Model(&models.Post{}).
			Where("campaign_id = ? AND day_number = ?", campaign.ID, day.Day).
			Updates(updates)
	}
}

// GetCampaigns lists the user's campaigns
// GET /api/v1/campaigns
func (h *Handlers) GetCampaigns(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	query := database.DB.Model(&models.Campaign{}).
		Joins("JOIN brands ON brands.id = campaigns.brand_id").
		Where("brands.user_id = ?", user.ID)
	if brandID := c.Query("brand_id"); brandID != "" {
		query = query.Where("campaigns.brand_id = ?", brandID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("campaigns.status = ?", status)
	}

	var campaigns []models.Campaign
	if err := query.Order("campaigns.created_at DESC").Find(&campaigns).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch campaigns"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns, "count": len(campaigns)})
}

// GetCampaign returns a campaign with its calendar
// GET /api/v1/campaigns/:id
func (h *Handlers) GetCampaign(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var campaign models.Campaign
	err := database.DB.
		Preload("Brand").
		Preload("Posts", func(db *gorm.DB) *gorm.DB {
			return db.Order("day_number")
		}).
		Joins("JOIN brands ON brands.id = campaigns.brand_id").
		Where("campaigns.id = ? AND brands.user_id = ?", c.Param("id"), user.ID).
		First(&campaign).Error
	if handleDBError(c, err, "campaign") {
		return
	}

	c.JSON(http.StatusOK, gin.H{"campaign": campaign})
}

// UpdateCampaign updates campaign metadata
// PUT /api/v1/campaigns/:id
func (h *Handlers) UpdateCampaign(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	campaign, err := loadOwnedCampaign(c.Param("id"), user.ID)
	if handleDBError(c, err, "campaign") {
		return
	}

	var req struct {
		Name        string `json:"name" binding:"max=200"`
		Goal        string `json:"goal" binding:"max=200"`
		StylePreset string `json:"style_preset" binding:"max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		campaign.Name = req.Name
	}
	if req.Goal != "" {
		campaign.Goal = req.Goal
	}
	if req.StylePreset != "" {
		campaign.StylePreset = req.StylePreset
	}

	if err := database.DB.Save(campaign).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update campaign"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"campaign": campaign})
}

// DeleteCampaign soft deletes a campaign
// DELETE /api/v1/campaigns/:id
func (h *Handlers) DeleteCampaign(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	campaign, err := loadOwnedCampaign(c.Param("id"), user.ID)
	if handleDBError(c, err, "campaign") {
		return
	}

	if err := database.DB.Delete(campaign).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete campaign"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GenerateCampaign queues image generation for every pending post
// POST /api/v1/campaigns/:id/generate
func (h *Handlers) GenerateCampaign(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation queue is not running"})
		return
	}

	campaign, err := loadOwnedCampaign(c.Param("id"), user.ID)
	if handleDBError(c, err, "campaign") {
		return
	}

	var req struct {
		Model    string `json:"model"`
		Provider string `json:"provider"`
	}
	// Body is optional; defaults apply
	_ = c.ShouldBindJSON(&req)
	model := req.Model
	if model == "" {
		model = pricing.DefaultImageModel
	}
	info := pricing.ModelBySlug(model)
	if info == nil || info.Type != pricing.TypeImage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown image model"})
		return
	}

	var posts []models.Post
	if err := database.DB.
		Where("campaign_id = ? AND status IN ?", campaign.ID,
			[]models.PostStatus{models.PostStatusDraft, models.PostStatusRejected}).
		Order("day_number").
		Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load posts"})
		return
	}
	if len(posts) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "no posts are waiting for generation"})
		return
	}

	requests := make([]generation.Request, 0, len(posts))
	for i := range posts {
		postID := posts[i].ID
		requests = append(requests, generation.Request{
			UserID:      user.ID,
			PostID:      &postID,
			Kind:        models.GenerationKindImage,
			Model:       model,
			Provider:    req.Provider,
			Prompt:      posts[i].Prompt,
			AspectRatio: campaign.AspectRatio,
		})
	}

	job, err := h.queue.Submit(user.ID, campaign.ID, requests)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	database.DB.Model(&models.Post{}).
		Where("campaign_id = ? AND status IN ?", campaign.ID,
			[]models.PostStatus{models.PostStatusDraft, models.PostStatusRejected}).
		Update("status", models.PostStatusGenerating)
	database.DB.Model(campaign).Update("status", models.CampaignStatusGenerating)

	logger.Log.Info("campaign generation queued",
		logger.WithCampaignID(campaign.ID),
		zap.String("job_id", job.ID),
		zap.Int("posts", len(requests)))

	c.JSON(http.StatusAccepted, gin.H{"job": job, "queued": len(requests)})
}

// GetJob reports the status of a queued generation batch
// GET /api/v1/jobs/:id
func (h *Handlers) GetJob(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation queue is not running"})
		return
	}

	job, err := h.queue.GetJobStatus(c.Param("id"))
	if err != nil || job.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job})
}

// GenerationStatus reports per-post progress for a campaign
// GET /api/v1/campaigns/:id/generation-status
func (h *Handlers) GenerationStatus(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	campaign, err := loadOwnedCampaign(c.Param("id"), user.ID)
	if handleDBError(c, err, "campaign") {
		return
	}

	var counts []struct {
		Status models.PostStatus
		N      int64
	}
	database.DB.Model(&models.Post{}).
		Select("status, COUNT(*) AS n").
		Where("campaign_id = ?", campaign.ID).
		Group("status").
		Scan(&counts)

	var total, generating, completed int64
	for _, row := range counts {
		total += row.N
		switch row.Status {
		case models.PostStatusGenerating:
			generating += row.N
		case models.PostStatusGenerated, models.PostStatusApproved:
			completed += row.N
		}
	}

	var errored int64
	database.DB.Model(&models.Generation{}).
		Joins("JOIN posts ON posts.id = generations.post_id").
		Where("posts.campaign_id = ? AND generations.status = ?",
			campaign.ID, models.GenerationStatusError).
		Count(&errored)

	c.JSON(http.StatusOK, gin.H{
		"campaign_id": campaign.ID,
		"status":      campaign.Status,
		"total":       total,
		"completed":   completed,
		"generating":  generating,
		"errors":      errored,
		"total_cost":  campaign.TotalCost,
	})
}

// ApproveCampaign moves a reviewed campaign to approved
// POST /api/v1/campaigns/:id/approve
func (h *Handlers) ApproveCampaign(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	campaign, err := loadOwnedCampaign(c.Param("id"), user.ID)
	if handleDBError(c, err, "campaign") {
		return
	}

	if campaign.Status != models.CampaignStatusReview {
		c.JSON(http.StatusConflict, gin.H{"error": "only campaigns in review can be approved"})
		return
	}

	if err := database.DB.Model(campaign).
		Update("status", models.CampaignStatusApproved).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve campaign"})
		return
	}
	campaign.Status = models.CampaignStatusApproved

	c.JSON(http.StatusOK, gin.H{"campaign": campaign})
}

// ExportPreview returns export counts without producing a file
// GET /api/v1/campaigns/:id/export/preview
func (h *Handlers) ExportPreview(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	summary, err := h.exporter.Preview(c.Param("id"), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportCSV downloads the campaign schedule as CSV
// GET /api/v1/campaigns/:id/export/csv
func (h *Handlers) ExportCSV(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	file, err := h.exporter.CSV(c.Param("id"), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// ExportBundle downloads the campaign as a ZIP of assets plus CSV
// GET /api/v1/campaigns/:id/export/zip
func (h *Handlers) ExportBundle(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	file, err := h.exporter.Bundle(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

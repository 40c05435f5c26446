package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/pricing"
)

// GetPost returns one calendar post with its generations
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	post, err := loadOwnedPost(c.Param("id"), user.ID)
	if handleDBError(c, err, "post") {
		return
	}

	database.DB.Preload("Generations").First(post, "id = ?", post.ID)
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// UpdatePost edits a post's caption, prompt or hashtags
// PUT /api/v1/posts/:id
func (h *Handlers) UpdatePost(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	post, err := loadOwnedPost(c.Param("id"), user.ID)
	if handleDBError(c, err, "post") {
		return
	}

	var req struct {
		Caption  *string `json:"caption"`
		Prompt   *string `json:"prompt"`
		Hashtags *string `json:"hashtags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Caption != nil {
		updates["caption"] = *req.Caption
	}
	if req.Prompt != nil {
		updates["prompt"] = *req.Prompt
	}
	if req.Hashtags != nil {
		updates["hashtags"] = *req.Hashtags
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := database.DB.Model(post).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update post"})
		return
	}

	database.DB.First(post, "id = ?", post.ID)
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// ApprovePost marks a generated post approved
// POST /api/v1/posts/:id/approve
func (h *Handlers) ApprovePost(c *gin.Context) {
	h.reviewPost(c, models.PostStatusApproved)
}

// RejectPost sends a generated post back for another attempt
// POST /api/v1/posts/:id/reject
func (h *Handlers) RejectPost(c *gin.Context) {
	h.reviewPost(c, models.PostStatusRejected)
}

func (h *Handlers) reviewPost(c *gin.Context, verdict models.PostStatus) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	post, err := loadOwnedPost(c.Param("id"), user.ID)
	if handleDBError(c, err, "post") {
		return
	}

	if post.Status != models.PostStatusGenerated && post.Status != models.PostStatusApproved &&
		post.Status != models.PostStatusRejected {
		c.JSON(http.StatusConflict, gin.H{"error": "post has no generated asset to review"})
		return
	}

	if err := database.DB.Model(post).Update("status", verdict).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update post"})
		return
	}
	post.Status = verdict

	// Feedback feeds the preference memory; losing it is not an error
	if h.agent != nil {
		var campaign models.Campaign
		if err := database.DB.Preload("Brand").First(&campaign, "id = ?", post.CampaignID).Error; err == nil {
			if err := h.agent.LearnFromFeedback(&campaign.Brand, post, verdict); err != nil {
				logger.Log.Warn("feedback memory write failed",
					zap.String("post_id", post.ID), zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"post": post})
}

// RegeneratePost queues a fresh generation for one post
// POST /api/v1/posts/:id/regenerate
func (h *Handlers) RegeneratePost(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation queue is not running"})
		return
	}

	post, err := loadOwnedPost(c.Param("id"), user.ID)
	if handleDBError(c, err, "post") {
		return
	}
	if post.Status == models.PostStatusGenerating {
		c.JSON(http.StatusConflict, gin.H{"error": "post is already generating"})
		return
	}

	var campaign models.Campaign
	if err := database.DB.First(&campaign, "id = ?", post.CampaignID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load campaign"})
		return
	}

	var req struct {
		Model    string `json:"model"`
		Provider string `json:"provider"`
		Prompt   string `json:"prompt"`
	}
	_ = c.ShouldBindJSON(&req)

	model := req.Model
	if model == "" {
		model = pricing.DefaultImageModel
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = post.Prompt
	}

	postID := post.ID
	job, err := h.queue.Submit(user.ID, "", []generation.Request{{
		UserID:      user.ID,
		PostID:      &postID,
		Kind:        models.GenerationKindImage,
		Model:       model,
		Provider:    req.Provider,
		Prompt:      prompt,
		AspectRatio: campaign.AspectRatio,
	}})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	database.DB.Model(post).Updates(map[string]interface{}{
		"status": models.PostStatusGenerating,
		"prompt": prompt,
	})

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

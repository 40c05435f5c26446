package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/videobuds/backend/internal/agent"
	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
)

// GetScriptTypes lists the available script formats
// GET /api/v1/scripts/types
func (h *Handlers) GetScriptTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"script_types": agent.ScriptTypeChoices()})
}

type writeScriptRequest struct {
	Topic             string `json:"topic" binding:"required,min=1"`
	URL               string `json:"url"`
	ScriptType        string `json:"script_type"`
	NumVariants       int    `json:"num_variants"`
	ExtraInstructions string `json:"extra_instructions"`
	BrandID           string `json:"brand_id"`
	PersonaID         string `json:"persona_id"`
}

// WriteScripts researches a topic and writes script variants
// POST /api/v1/scripts
func (h *Handlers) WriteScripts(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.agent == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "script writing is not configured"})
		return
	}

	var req writeScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Topic) > h.cfg.MaxTextAreaInput {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is too long"})
		return
	}

	brand, persona := h.scriptContext(user.ID, req.BrandID, req.PersonaID)

	batch, err := h.agent.ResearchAndWrite(c.Request.Context(), req.URL, req.Topic, agent.WriteScriptInput{
		Topic:             req.Topic,
		ScriptType:        req.ScriptType,
		Brand:             brand,
		Persona:           persona,
		NumVariants:       req.NumVariants,
		ExtraInstructions: req.ExtraInstructions,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "script generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"batch": batch})
}

// RewriteScript revises a script against user feedback
// POST /api/v1/scripts/rewrite
func (h *Handlers) RewriteScript(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.agent == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "script writing is not configured"})
		return
	}

	var req struct {
		Script     string `json:"script" binding:"required,min=1"`
		Feedback   string `json:"feedback" binding:"required,min=1"`
		ScriptType string `json:"script_type"`
		BrandID    string `json:"brand_id"`
		PersonaID  string `json:"persona_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	brand, persona := h.scriptContext(user.ID, req.BrandID, req.PersonaID)
	result := h.agent.RewriteScript(c.Request.Context(), req.Script, req.Feedback, req.ScriptType, brand, persona)

	c.JSON(http.StatusOK, gin.H{"script": result})
}

// scriptContext loads the optional brand/persona context, silently
// skipping ids the user does not own.
func (h *Handlers) scriptContext(userID, brandID, personaID string) (*models.Brand, *models.UserPersona) {
	var brand *models.Brand
	if brandID != "" {
		if b, err := loadOwnedBrand(brandID, userID); err == nil {
			brand = b
		}
	}
	var persona *models.UserPersona
	if personaID != "" {
		var p models.UserPersona
		if err := database.DB.Where("id = ? AND user_id = ?", personaID, userID).First(&p).Error; err == nil {
			persona = &p
		}
	}
	return brand, persona
}

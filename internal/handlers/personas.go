package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
)

type personaRequest struct {
	Name           string   `json:"name" binding:"required,min=1,max=200"`
	AgeRange       string   `json:"age_range" binding:"max=50"`
	Occupation     string   `json:"occupation" binding:"max=200"`
	Goals          string   `json:"goals" binding:"max=5000"`
	PainPoints     string   `json:"pain_points" binding:"max=5000"`
	Platforms      []string `json:"platforms"`
	TonePreference string   `json:"tone_preference" binding:"max=200"`
}

// CreatePersona creates a new audience persona
// POST /api/v1/personas
func (h *Handlers) CreatePersona(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	persona := &models.UserPersona{
		UserID:         user.ID,
		Name:           req.Name,
		AgeRange:       req.AgeRange,
		Occupation:     req.Occupation,
		Goals:          req.Goals,
		PainPoints:     req.PainPoints,
		Platforms:      req.Platforms,
		TonePreference: req.TonePreference,
	}
	if err := database.DB.Create(persona).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create persona"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"persona": persona})
}

// GetPersonas lists the user's personas
// GET /api/v1/personas
func (h *Handlers) GetPersonas(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var personas []models.UserPersona
	if err := database.DB.
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&personas).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch personas"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"personas": personas, "count": len(personas)})
}

// GetPersona returns one persona
// GET /api/v1/personas/:id
func (h *Handlers) GetPersona(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var persona models.UserPersona
	err := database.DB.
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		First(&persona).Error
	if handleDBError(c, err, "persona") {
		return
	}

	c.JSON(http.StatusOK, gin.H{"persona": persona})
}

// UpdatePersona updates a persona
// PUT /api/v1/personas/:id
func (h *Handlers) UpdatePersona(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var persona models.UserPersona
	err := database.DB.
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		First(&persona).Error
	if handleDBError(c, err, "persona") {
		return
	}

	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	persona.Name = req.Name
	persona.AgeRange = req.AgeRange
	persona.Occupation = req.Occupation
	persona.Goals = req.Goals
	persona.PainPoints = req.PainPoints
	persona.Platforms = req.Platforms
	persona.TonePreference = req.TonePreference

	if err := database.DB.Save(&persona).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update persona"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"persona": persona})
}

// DeletePersona soft deletes a persona
// DELETE /api/v1/personas/:id
func (h *Handlers) DeletePersona(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var persona models.UserPersona
	err := database.DB.
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		First(&persona).Error
	if handleDBError(c, err, "persona") {
		return
	}

	if err := database.DB.Delete(&persona).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete persona"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/recipes"
)

// GetRecipes returns the recipe catalog grouped by category
// GET /api/v1/recipes
func (h *Handlers) GetRecipes(c *gin.Context) {
	if h.registry == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recipes are not configured"})
		return
	}

	type catalogEntry struct {
		Slug        string `json:"slug"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Icon        string `json:"icon"`
		CostLabel   string `json:"cost_label"`
	}

	grouped := map[string][]catalogEntry{}
	for category, list := range h.registry.ByCategory() {
		for _, r := range list {
			grouped[category] = append(grouped[category], catalogEntry{
				Slug:        r.Slug(),
				Name:        r.Name(),
				Description: r.Description(),
				Category:    r.Category(),
				Icon:        r.Icon(),
				CostLabel:   r.CostLabel(),
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"recipes": grouped, "count": h.registry.Count()})
}

// GetRecipeFields returns the input form definition for one recipe
// GET /api/v1/recipes/:slug/fields
func (h *Handlers) GetRecipeFields(c *gin.Context) {
	if h.registry == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recipes are not configured"})
		return
	}

	recipe, err := h.registry.Get(c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slug":   recipe.Slug(),
		"name":   recipe.Name(),
		"fields": recipe.InputFields(),
		"steps":  recipe.Steps(),
	})
}

// StartRecipeRun validates inputs and launches a run
// POST /api/v1/recipes/:slug/run
func (h *Handlers) StartRecipeRun(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recipes are not configured"})
		return
	}

	var req struct {
		Inputs    recipes.Inputs `json:"inputs"`
		BrandID   *string        `json:"brand_id"`
		PersonaID *string        `json:"persona_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.runner.Start(c.Param("slug"), user.ID, req.Inputs, req.BrandID, req.PersonaID)
	if err != nil {
		if errors.Is(err, recipes.ErrUnknownRecipe) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"run": run})
}

// GetRecipeRun reports a run's progress
// GET /api/v1/recipe-runs/:id
func (h *Handlers) GetRecipeRun(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recipes are not configured"})
		return
	}

	h.runner.ReapStale()

	run, err := h.runner.Get(c.Param("id"), user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run})
}

// ApproveRecipeRun resumes a paused two-phase run with approved scenes
// POST /api/v1/recipe-runs/:id/approve
func (h *Handlers) ApproveRecipeRun(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recipes are not configured"})
		return
	}

	var req struct {
		Scenes []recipes.SceneDraft `json:"scenes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.runner.Approve(c.Param("id"), user.ID, req.Scenes)
	if err != nil {
		switch {
		case errors.Is(err, recipes.ErrRunNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		case errors.Is(err, recipes.ErrNotAwaiting):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, recipes.ErrNoScenes):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve run"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"run": run})
}

// CancelRecipeRun cancels a pending or running run
// POST /api/v1/recipe-runs/:id/cancel
func (h *Handlers) CancelRecipeRun(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recipes are not configured"})
		return
	}

	run, err := h.runner.Cancel(c.Param("id"), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, recipes.ErrRunNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		case errors.Is(err, recipes.ErrRunNotCancelable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel run"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run})
}

// GetRecipeHistory lists the user's past runs
// GET /api/v1/recipe-runs
func (h *Handlers) GetRecipeHistory(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recipes are not configured"})
		return
	}

	h.runner.ReapStale()

	page, perPage := paginationParams(c, 20, 100)
	runs, total, err := h.runner.History(user.ID, page, perPage,
		c.Query("recipe"), models.RecipeRunStatus(c.Query("status")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":     runs,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

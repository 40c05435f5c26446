package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/videobuds/backend/internal/pricing"
	"github.com/videobuds/backend/internal/promptcraft"
)

// GetModels returns the generation model catalog. Admins also see the
// operator's actual costs next to the retail prices.
// GET /api/v1/models
func (h *Handlers) GetModels(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	modelType := pricing.ModelType(c.Query("type"))

	c.JSON(http.StatusOK, gin.H{
		"models":        pricing.Catalog(modelType, user.IsAdmin),
		"aspect_ratios": promptcraft.ValidRatios,
		"style_presets": promptcraft.StylePresets,
	})
}

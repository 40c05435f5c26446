package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
)

// GetDashboard returns per-user counts and recent activity
// GET /api/v1/dashboard
func (h *Handlers) GetDashboard(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var brandCount, personaCount, campaignCount, generationCount int64
	database.DB.Model(&models.Brand{}).Where("user_id = ?", user.ID).Count(&brandCount)
	database.DB.Model(&models.UserPersona{}).Where("user_id = ?", user.ID).Count(&personaCount)
	database.DB.Model(&models.Campaign{}).
		Joins("JOIN brands ON brands.id = campaigns.brand_id").
		Where("brands.user_id = ?", user.ID).
		Count(&campaignCount)
	database.DB.Model(&models.Generation{}).Where("user_id = ?", user.ID).Count(&generationCount)

	var totalSpend float64
	database.DB.Model(&models.Generation{}).
		Where("user_id = ? AND status = ?", user.ID, models.GenerationStatusSuccess).
		Select("COALESCE(SUM(retail_cost), 0)").
		Scan(&totalSpend)

	var recentGenerations []models.Generation
	database.DB.
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(10).
		Find(&recentGenerations)

	var recentRuns []models.RecipeRun
	database.DB.
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(10).
		Find(&recentRuns)

	c.JSON(http.StatusOK, gin.H{
		"counts": gin.H{
			"brands":      brandCount,
			"personas":    personaCount,
			"campaigns":   campaignCount,
			"generations": generationCount,
		},
		"total_spend":        totalSpend,
		"recent_generations": recentGenerations,
		"recent_runs":        recentRuns,
	})
}

// GetAdminStats returns platform-wide counts, admin only
// GET /api/v1/admin/stats
func (h *Handlers) GetAdminStats(c *gin.Context) {
	var users, brands, campaigns, generations, runs int64
	database.DB.Model(&models.User{}).Count(&users)
	database.DB.Model(&models.Brand{}).Count(&brands)
	database.DB.Model(&models.Campaign{}).Count(&campaigns)
	database.DB.Model(&models.Generation{}).Count(&generations)
	database.DB.Model(&models.RecipeRun{}).Count(&runs)

	var retail, actual float64
	database.DB.Model(&models.Generation{}).
		Where("status = ?", models.GenerationStatusSuccess).
		Select("COALESCE(SUM(retail_cost), 0)").
		Scan(&retail)
	database.DB.Model(&models.Generation{}).
		Where("status = ?", models.GenerationStatusSuccess).
		Select("COALESCE(SUM(cost), 0)").
		Scan(&actual)

	c.JSON(http.StatusOK, gin.H{
		"users":        users,
		"brands":       brands,
		"campaigns":    campaigns,
		"generations":  generations,
		"recipe_runs":  runs,
		"retail_spend": retail,
		"actual_spend": actual,
		"margin":       retail - actual,
	})
}

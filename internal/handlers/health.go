package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/videobuds/backend/internal/database"
)

// Health is the liveness check
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready checks the database connection
// GET /ready
func (h *Handlers) Ready(c *gin.Context) {
	if err := database.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/videobuds/backend/internal/metrics"
)

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.Initialize()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/api/brands/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	before := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/brands/:id", "200"))

	req := httptest.NewRequest("GET", "/api/brands/b-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	after := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/brands/:id", "200"))
	assert.Equal(t, before+1, after, "counter should use the route template, not the raw path")
}

func TestMetricsMiddlewareUnmatchedRoute(t *testing.T) {
	m := metrics.Initialize()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())

	before := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))

	req := httptest.NewRequest("GET", "/no/such/route", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	after := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	assert.Equal(t, before+1, after, "unmatched routes should collapse into one label")
}

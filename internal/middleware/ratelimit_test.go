package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(config RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewRateLimiter(config))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func doRequest(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	router := limitedRouter(RateLimitConfig{Limit: 3, Window: time.Second})

	// First 3 requests should succeed
	for i := 0; i < 3; i++ {
		w := doRequest(router, "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	// 4th request should be rate limited
	w := doRequest(router, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "4th request should be rate limited")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))

	// Tokens refill over time
	time.Sleep(time.Second/3 + 100*time.Millisecond)
	w = doRequest(router, "10.0.0.1:1234")
	assert.Equal(t, http.StatusOK, w.Code, "Request after refill should succeed")
}

func TestRateLimiterDifferentClients(t *testing.T) {
	router := limitedRouter(RateLimitConfig{Limit: 2, Window: time.Minute})

	// Client A hits its limit
	for i := 0; i < 2; i++ {
		w := doRequest(router, "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := doRequest(router, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "Client A should be rate limited")

	// Client B is unaffected
	w = doRequest(router, "10.0.0.2:1234")
	assert.Equal(t, http.StatusOK, w.Code, "Client B should not be rate limited")
}

func TestDefaultConfigs(t *testing.T) {
	defaultConfig := DefaultRateLimitConfig()
	assert.Equal(t, 100, defaultConfig.Limit)
	assert.Equal(t, time.Minute, defaultConfig.Window)

	authConfig := AuthRateLimitConfig()
	assert.Equal(t, 10, authConfig.Limit)
	assert.Equal(t, time.Minute, authConfig.Window)

	uploadConfig := UploadRateLimitConfig()
	assert.Equal(t, 20, uploadConfig.Limit)
	assert.Equal(t, time.Minute, uploadConfig.Window)

	generateConfig := GenerateRateLimitConfig()
	assert.Equal(t, 30, generateConfig.Limit)
	assert.Equal(t, time.Minute, generateConfig.Window)
}

func TestTokenBucketRefill(t *testing.T) {
	bucket := NewTokenBucket(2, 10) // 10 tokens/sec

	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())
	assert.False(t, bucket.Allow())
	assert.Greater(t, bucket.GetRetryAfter(), 0)

	time.Sleep(150 * time.Millisecond)
	assert.True(t, bucket.Allow(), "bucket should refill over time")
}

// Without Redis configured the smart variants fall back to the
// in-memory limiter instead of failing open.
func TestSmartFallsBackWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RedisRateLimitMiddleware(1, time.Minute))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := doRequest(router, "10.0.0.9:1234")
	assert.Equal(t, http.StatusOK, w.Code)
	w = doRequest(router, "10.0.0.9:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

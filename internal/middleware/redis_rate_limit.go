package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/cache"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/metrics"
)

// RedisRateLimitMiddleware creates a fixed-window rate limiter backed
// by Redis so the limit holds across instances. When Redis was never
// configured it delegates to the in-memory token bucket limiter.
func RedisRateLimitMiddleware(maxRequests int, window time.Duration) gin.HandlerFunc {
	fallback := NewRateLimiter(RateLimitConfig{Limit: maxRequests, Window: window})

	return func(c *gin.Context) {
		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			fallback(c)
			return
		}

		clientIP := c.ClientIP()
		key := fmt.Sprintf("rate_limit:%s:%s", c.FullPath(), clientIP)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		val, err := redisClient.GetInt(ctx, key)
		if err != nil && !errors.Is(err, redis.Nil) {
			// A broken limiter must not open the API up; reject.
			logger.Log.Error("rate limit check failed, rejecting request",
				logger.WithIP(clientIP), zap.Error(err))
			c.AbortWithStatusJSON(503, gin.H{"error": "service temporarily unavailable"})
			return
		}

		if val >= int64(maxRequests) {
			logger.Log.Warn("rate limit exceeded",
				logger.WithIP(clientIP),
				zap.Int("max_requests", maxRequests),
				zap.Int64("current_requests", val))
			metrics.RecordRateLimitExceeded("redis", c.FullPath())
			c.AbortWithStatusJSON(429, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			return
		}

		newVal, err := redisClient.IncrBy(ctx, key, 1)
		if err != nil {
			logger.Log.Error("rate limit increment failed, rejecting request",
				logger.WithIP(clientIP), zap.Error(err))
			c.AbortWithStatusJSON(503, gin.H{"error": "service temporarily unavailable"})
			return
		}

		// First request in this window starts the clock.
		if newVal == 1 {
			if err := redisClient.Expire(ctx, key, window); err != nil {
				logger.Log.Warn("failed to set rate limit expiration",
					logger.WithIP(clientIP), zap.Error(err))
			}
		}

		c.Next()
	}
}

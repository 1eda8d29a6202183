package middleware

import (
	"fmt"
	"net/http"
	"time"

	"questforge/backend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimit caps requests per authenticated user to maxRequests per window
// using a redis fixed-window counter. A nil client disables the limiter.
func RateLimit(client *redis.Client, log *logrus.Logger, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || maxRequests <= 0 {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP()
		if userID, ok := auth.UserID(c); ok {
			key = fmt.Sprintf("ratelimit:user:%d", userID)
		}

		// INCR is the decision point; pipelining EXPIRE alongside keeps
		// concurrent requests from reading a stale count and overshooting.
		ctx := c.Request.Context()
		pipe := client.Pipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			log.WithError(err).Error("rate limit counter update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting error"})
			c.Abort()
			return
		}

		if incr.Val() > int64(maxRequests) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contacts-api/internal/logger"
)

// Middleware rejects requests beyond the limiter's quota with 429. Callers are told apart by
// client IP, and every route has its own quota. If the limiter itself fails the request passes.
func Middleware(limiter Limiter, log *logger.Logger) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(limiter.Window().Seconds())))
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := c.ClientIP() + ":" + c.Request.Method + ":" + route
		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("rate limiter unavailable, letting request pass", "key", key, "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too Many Requests"})
			return
		}
		c.Next()
	}
}

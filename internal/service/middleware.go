package service

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/contacts-api/internal/auth"
	"gitlab.com/dirk.krummacker/contacts-api/internal/logger"
)

const (
	headerRequestID = "X-Request-Id"
	requestIDKey    = "request_id"
)

// RequestID takes the request id from the X-Request-Id header or generates one, and echoes it in
// the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(requestIDKey, reqID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

// RequestLogger writes one log line per request. Server errors are logged as errors, client errors
// as warnings.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		}
		if user, ok := auth.CurrentUser(c); ok {
			fields = append(fields, "user_id", user.Id)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// CORS allows browser clients from the given origins to call the API with bearer tokens.
func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", headerRequestID},
		ExposeHeaders: []string{headerRequestID, "Retry-After"},
		MaxAge:        12 * time.Hour,
	})
}

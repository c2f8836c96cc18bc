package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GinRequestLogger is gin middleware that logs each request at a level
// chosen by its status class.
func GinRequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		// Skip noisy paths
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", duration.String(),
			"ip", c.ClientIP(),
		}
		if typ, ok := c.Get(RequestTypeKey); ok {
			attrs = append(attrs, "type", typ)
		}
		slog.Log(c.Request.Context(), level, "request", attrs...)
	}
}

// RequestTypeKey is the gin context key handlers set to the request's
// "type" discriminator so it appears in the request log.
const RequestTypeKey = "request_type"

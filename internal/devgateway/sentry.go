package devgateway

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// initSentry configures the global Sentry client.
func initSentry(dsn, env string) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          "fieldtrack-gateway",
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	return nil
}

func flushSentry() {
	sentry.Flush(2 * time.Second)
}

// errorReporter sends errors attached to the gin context to Sentry.
func errorReporter() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		hub := sentry.CurrentHub()
		for _, ginErr := range c.Errors {
			slog.Error("request failed", "path", c.Request.URL.Path, "error", ginErr.Err)
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("http.method", c.Request.Method)
				scope.SetExtra("endpoint", c.Request.URL.Path)
				scope.SetExtra("status", c.Writer.Status())
				if typ, ok := c.Get(requestTypeKey); ok {
					scope.SetTag("request.type", fmt.Sprint(typ))
				}
				hub.CaptureException(ginErr.Err)
			})
		}
	}
}

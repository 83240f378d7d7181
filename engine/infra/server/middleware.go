package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/listview/engine/core"
	"github.com/compozy/listview/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// LoggerMiddleware tags each request with an id, carries a request-scoped
// logger on its context and logs the request once completed. A client
// supplied X-Request-ID is kept.
func LoggerMiddleware(base logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		requestID := core.ID(c.GetHeader(requestIDHeader))
		if requestID.IsZero() {
			id, err := core.NewID()
			if err != nil {
				base.Warn("Failed to generate request id", "error", err)
			}
			requestID = id
		}
		c.Header(requestIDHeader, requestID.String())
		log := base.With("request_id", requestID.String())
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), log))
		c.Next()
		latency := time.Since(start)
		args := []any{
			"latency", latency,
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"status_code", c.Writer.Status(),
			"body_size", c.Writer.Size(),
			"path", path,
		}
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			args = append(args, "error", msg)
		}
		log.Info("Request completed", args...)
	}
}

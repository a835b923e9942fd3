package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novamark/agencydesk-backend/internal/platform/logger"
)

func RequestLog(log *logger.Logger) gin.HandlerFunc {
	reqLog := log.With("middleware", "RequestLog")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		reqLog.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"trace_id", c.GetString("trace_id"),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

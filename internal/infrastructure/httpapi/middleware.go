package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/logger"
)

// RequestLogger logs one line per request. Session IDs are hashed by the
// logger.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if id := c.Param("id"); id != "" {
			kv = append(kv, "session_id", id)
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request failed", kv...)
		case c.Writer.Status() >= 400:
			log.Warn("request rejected", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}

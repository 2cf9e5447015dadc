// Package middleware holds gin middleware shared by the API routes.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"hyperfleet/internal/shared/logger"
)

// RequestLogger logs each request with latency and status.
func RequestLogger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Debugw("request handled",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

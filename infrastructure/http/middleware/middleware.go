// Package middleware holds the gin middleware of the API server.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ledger/application/ports"
)

// Logging logs every request with its outcome and records request metrics
func Logging(logger ports.Logger, metrics ports.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		tags := map[string]string{
			"method": c.Request.Method,
			"route":  route,
			"status": fmt.Sprintf("%dxx", status/100),
		}

		metrics.IncrementCounter("http.requests", tags)
		metrics.RecordHistogram("http.request.duration_ms", float64(duration.Milliseconds()), tags)

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"remote_addr", c.ClientIP(),
		}
		if claims, ok := ClaimsFrom(c); ok {
			fields = append(fields, "user_id", claims.Subject, "role", claims.Role)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Err)
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}

// Recovery turns a panic in a handler into a 500 response
func Recovery(logger ports.Logger, metrics ports.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					"error", fmt.Errorf("panic: %v", r),
					"path", c.Request.URL.Path)
				metrics.IncrementCounter("http.panics", nil)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// Timeout bounds the request context of every handler
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// LimitBody caps the request body size
func LimitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

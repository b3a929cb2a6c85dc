package middleware

import (
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates or generates a request id
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"requestID", c.GetString("requestID"),
			"clientIP", c.ClientIP(),
		}
		if p := Principal(c); p != nil {
			fields = append(fields, "principal", p.String())
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request failed", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request handled", fields...)
		}
	}
}

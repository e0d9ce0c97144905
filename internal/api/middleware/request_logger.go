package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	HeaderRequestID = "X-Request-Id"
	KeyRequestID    = "request_id"
)

// RequestLogger logs one line per request once the handler chain returns.
// Health checks are not logged.
func RequestLogger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/ping" {
			c.Next()
			return
		}

		start := time.Now()
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(HeaderRequestID, reqID)
		c.Set(KeyRequestID, reqID)

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			KeyRequestID: reqID,
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"bytes_in":   c.Request.ContentLength,
			"client_ip":  c.ClientIP(),
		}
		if uid, ok := c.Get(KeyUserID); ok {
			fields["university_id"] = uid
		}
		route := c.FullPath()
		if strings.Contains(route, "/wizards/:id") {
			fields["wizard_id"] = c.Param("id")
		}
		if strings.HasPrefix(route, "/apply/:login") || strings.HasPrefix(route, "/site/:login") {
			fields["tenant"] = c.Param("login")
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := l.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}

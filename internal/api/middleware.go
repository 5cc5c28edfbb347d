package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/logger"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/session"
)

const (
	RequestIDHeader    = "X-Request-ID"
	SessionTokenHeader = "X-Session-Token"
)

// RequestID reuses the caller's X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(RequestIDHeader, rid)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, rid)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger writes one line per request once the handler returns.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request failed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

// LoadSession attaches the session named by X-Session-Token, if it exists.
// Requests without a valid token carry no session.
func LoadSession(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(SessionTokenHeader)
		if token != "" {
			if s, ok := store.Get(c.Request.Context(), token); ok {
				c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), s))
			}
		}
		c.Next()
	}
}

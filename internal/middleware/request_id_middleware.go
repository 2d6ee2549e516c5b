package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"oneclick-video/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	RequestIDHeader = "X-Request-Id"
	OwnerIDHeader   = "X-Owner-Id"
)

// RequestIDMiddleware puts the request id, and the caller's owner id when
// present, on the request context so every log line of the request carries them.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = newRequestID()
		}
		c.Writer.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(c.Request.Context(), logger.RequestIdKey, requestID)
		if ownerID := c.GetHeader(OwnerIDHeader); ownerID != "" {
			ctx = context.WithValue(ctx, logger.OwnerIdKey, ownerID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// newRequestID returns 16 random bytes hex encoded, a compact id without hyphens.
func newRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

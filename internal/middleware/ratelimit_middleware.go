package middleware

import (
	"context"
	"net/http"
	"strconv"

	"oneclick-video/internal/redis"
	"oneclick-video/internal/transport/httpdto"
	"oneclick-video/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InitiateLimiter interface {
	AllowInitiate(ctx context.Context, ip string) (*redis.RateLimitResult, error)
}

// InitiateRateLimitMiddleware caps how many upload sessions one client IP may
// open per window. A limiter outage lets the request through.
func InitiateRateLimitMiddleware(limiter InitiateLimiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowInitiate(c.Request.Context(), c.ClientIP())
		if err != nil {
			if l != nil {
				l.WithContext(c.Request.Context()).Warn("rate limiter unavailable", zap.Error(err))
			}
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED").WithRequestID(c.Writer.Header().Get(RequestIDHeader)))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}

package middleware

import (
	"errors"
	"net/http"

	"oneclick-video/internal/transport/httpdto"
	apperrors "oneclick-video/pkg/errors"
	"oneclick-video/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorStatus maps an error to its HTTP status and response code.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, apperrors.ErrInvalidState):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, apperrors.ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	case errors.Is(err, apperrors.ErrRegistryWrite):
		return http.StatusInternalServerError, "REGISTRY_WRITE_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, code := ErrorStatus(err)
		if l != nil {
			log := l.WithContext(c.Request.Context())
			if status >= http.StatusInternalServerError {
				log.Error("request failed", zap.Int("status", status), zap.String("code", code), zap.Error(err))
			} else {
				log.Debug("request rejected", zap.Int("status", status), zap.String("code", code), zap.Error(err))
			}
		}
		c.JSON(status, httpdto.NewErrorResponse(clientMessage(err, status, code), code).WithRequestID(c.Writer.Header().Get(RequestIDHeader)))
	}
}

// clientMessage keeps server-side failure detail in the log only; 4xx messages
// describe the caller's mistake and are returned as is.
func clientMessage(err error, status int, code string) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	switch code {
	case "UPSTREAM_ERROR":
		return "object store request failed"
	case "REGISTRY_WRITE_FAILED":
		return "failed to record asset state"
	default:
		return "internal server error"
	}
}

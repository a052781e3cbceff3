package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cv-platform-backend/config"
	"cv-platform-backend/internal/delivery/http/response"
	"cv-platform-backend/internal/domain"
	"cv-platform-backend/pkg/apperror"
	"cv-platform-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

// ErrorHandler renders the last error pushed with c.Error as the JSON error envelope.
// It must be registered before Recovery so recovered panics reach it.
func ErrorHandler(cfg *config.Config) gin.HandlerFunc {
	development := cfg != nil && cfg.IsDevelopment()

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		code, message, details := classify(err, development)

		requestID, _ := c.Get(string(domain.KeyRequestID))
		attrs := []any{
			"error", map[string]any{
				"message":    message,
				"statusCode": code,
				"cause":      err.Error(),
			},
			"request", map[string]any{
				"method":    c.Request.Method,
				"url":       c.Request.URL.String(),
				"ip":        c.ClientIP(),
				"userAgent": c.Request.UserAgent(),
				"requestId": requestID,
			},
		}
		if code >= http.StatusInternalServerError {
			logger.Log.Error("Request failed", attrs...)
		} else {
			logger.Log.Warn("Request rejected", attrs...)
		}

		var stack string
		if development {
			stack = errorChain(err)
		}
		response.Error(c, code, message, details, stack)
	}
}

func classify(err error, development bool) (int, string, []string) {
	if appErr, ok := apperror.As(err); ok {
		return appErr.Code, appErr.Message, appErr.Details
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		return http.StatusBadRequest, "Validation Error", nil
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return http.StatusUnauthorized, "Unauthorized", nil
	case errors.Is(err, domain.ErrMalformedID):
		return http.StatusBadRequest, "Invalid ID format", nil
	}

	if development {
		return http.StatusInternalServerError, err.Error(), nil
	}
	return http.StatusInternalServerError, "Internal Server Error", nil
}

// errorChain lists every wrapped error, outermost first.
func errorChain(err error) string {
	var parts []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		parts = append(parts, fmt.Sprintf("%T: %s", e, e.Error()))
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				parts = append(parts, fmt.Sprintf("  %T: %s", inner, inner.Error()))
			}
			break
		}
	}
	return strings.Join(parts, "\n")
}

// Recovery turns a panic into a 500 handled by ErrorHandler.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		_ = c.Error(fmt.Errorf("panic: %v", recovered))
		c.Abort()
	})
}

// NoRoute answers unknown paths through ErrorHandler.
func NoRoute(c *gin.Context) {
	_ = c.Error(apperror.NotFound("Route not found"))
}

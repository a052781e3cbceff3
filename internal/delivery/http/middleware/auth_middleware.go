package middleware

import (
	"net/http"
	"slices"
	"strings"

	"cv-platform-backend/internal/domain"
	"cv-platform-backend/pkg/apperror"
	"cv-platform-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// BearerToken returns the token from "Authorization: Bearer <token>". The scheme is case-insensitive.
func BearerToken(c *gin.Context) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthMiddleware resolves the bearer token to a stored user and attaches it to the gin context
// and the request context.
func AuthMiddleware(authUC domain.AuthUsecase, events *security.SecurityLogger) gin.HandlerFunc {
	if events == nil {
		events = security.NopLogger()
	}

	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			deny(c, events, security.EventUnauthorizedAccess, "", apperror.Unauthorized("Access token required"))
			return
		}

		user, err := authUC.Authenticate(c.Request.Context(), token)
		if err != nil {
			deny(c, events, security.EventUnauthorizedAccess, "", err)
			return
		}

		c.Set(string(domain.KeyAuthUser), *user)
		c.Request = c.Request.WithContext(domain.WithAuthUser(c.Request.Context(), *user))
		c.Next()
	}
}

// CurrentUser returns the user attached by AuthMiddleware.
func CurrentUser(c *gin.Context) (domain.AuthUser, bool) {
	v, exists := c.Get(string(domain.KeyAuthUser))
	if !exists {
		return domain.AuthUser{}, false
	}
	user, ok := v.(domain.AuthUser)
	return user, ok
}

// RequireRole lets the request through only when the attached user holds one of roles.
func RequireRole(events *security.SecurityLogger, roles ...domain.Role) gin.HandlerFunc {
	if events == nil {
		events = security.NopLogger()
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			deny(c, events, security.EventUnauthorizedAccess, "", apperror.Unauthorized("Authentication required"))
			return
		}
		if !slices.Contains(roles, user.Role) {
			deny(c, events, security.EventForbiddenAccess, user.ID, apperror.Forbidden("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

func RequireCandidate(events *security.SecurityLogger) gin.HandlerFunc {
	return RequireRole(events, domain.RoleCandidate)
}

func RequireRecruiter(events *security.SecurityLogger) gin.HandlerFunc {
	return RequireRole(events, domain.RoleRecruiter)
}

func RequireAdmin(events *security.SecurityLogger) gin.HandlerFunc {
	return RequireRole(events, domain.RoleAdmin)
}

func deny(c *gin.Context, events *security.SecurityLogger, event security.EventType, subject string, err error) {
	reason := err.Error()
	if appErr, ok := apperror.As(err); ok {
		reason = appErr.Message
		if appErr.Code >= http.StatusInternalServerError {
			event = ""
		}
	}
	if event != "" {
		events.LogAccessDenied(c.Request.Context(), event, subject, c.ClientIP(), requestID(c), c.FullPath(), reason)
	}
	_ = c.Error(err)
	c.Abort()
}

func requestID(c *gin.Context) string {
	return c.GetString(string(domain.KeyRequestID))
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/services"
)

type AuthMiddleware struct {
	log  *logger.Logger
	auth services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, auth services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), auth: auth}
}

// RequireAuth validates the bearer token, resolves the user's single ACTIVE
// tenant membership into an Actor and attaches it to the request context.
// Everything below the HTTP layer receives identity explicitly through that
// actor value.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, apierr.Unauthorized("missing bearer token"))
			c.Abort()
			return
		}

		userID, err := am.auth.ParseAccessToken(token)
		if err != nil {
			response.RespondAPIError(c, err)
			c.Abort()
			return
		}

		actor, err := am.auth.ResolveActor(c.Request.Context(), userID)
		if err != nil {
			response.RespondAPIError(c, err)
			c.Abort()
			return
		}
		actor.IPAddress = c.ClientIP()

		c.Request = c.Request.WithContext(ctxutil.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// extractToken accepts the Authorization header and falls back to a ?token
// query parameter for the SSE stream, where EventSource cannot set headers.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}

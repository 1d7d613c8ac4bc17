package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// TokenAuthenticator resolves a bearer token to its caller.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Actor, error)
}

type AuthMiddleware struct {
	authService TokenAuthenticator
}

func NewAuthMiddleware(authService TokenAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate verifies the bearer token and stores the caller in the context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, apperrors.Unauthorized("missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abort(c, apperrors.Unauthorized("invalid authorization format"))
			return
		}

		actor, err := m.authService.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			abort(c, err)
			return
		}

		handler.SetActor(c, *actor)
		c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed. It must run after Authenticate.
func (m *AuthMiddleware) RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := handler.Actor(c)
		if err != nil {
			abort(c, err)
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		abort(c, apperrors.Forbidden("insufficient role"))
	}
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/service"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
	"github.com/satriadp/supervision-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// ContextActorKey is the gin context key storing the resolved actor.
const ContextActorKey = "currentActor"

// JWT protects routes by requiring a valid access token. The claims are
// resolved into an actor once here; engine operations only ever see the
// actor, raw claims stay for identity endpoints.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		actor, ok := models.ResolveActor(claims)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "unknown role"))
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

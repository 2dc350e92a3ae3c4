package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
	"github.com/satriadp/supervision-api/pkg/response"
)

// RequireRoles blocks callers whose account role is not in the allowed set.
// Finer-grained ownership checks stay in the services, which see the actor.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireOperator restricts a route to moderators and admins.
func RequireOperator() gin.HandlerFunc {
	return RequireRoles(models.RoleModerator, models.RoleAdmin)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/middleware"
	"github.com/satriadp/supervision-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext returns the caller identity resolved by the JWT
// middleware. ok is false on unauthenticated routes.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(middleware.ContextActorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}

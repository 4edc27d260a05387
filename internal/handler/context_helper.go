package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/roadready/drivemis-api/internal/middleware"
	"github.com/roadready/drivemis-api/internal/models"
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

// actorFromContext builds the authorization context passed into mutating
// service calls. A zero Actor fails every permission check downstream.
func actorFromContext(c *gin.Context) models.Actor {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Actor{}
	}
	return claims.Actor()
}

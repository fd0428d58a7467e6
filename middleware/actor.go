package middleware

import (
	"net/http"

	"lokals/models"

	"github.com/gin-gonic/gin"
)

const actorContextKey = "actor"

// ActorMiddleware resolves the acting identity from the X-Actor-ID and
// X-Actor-Role headers. Identity is explicit per request; there is no
// ambient session.
func ActorMiddleware(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Actor-ID")
		role := c.GetHeader("X-Actor-Role")
		if id == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-Actor-ID and X-Actor-Role headers are required"})
			return
		}
		if role != models.RoleClient && role != models.RoleProvider && role != models.RoleSystem {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown actor role"})
			return
		}
		if requiredRole != "" && role != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "endpoint not available to this role"})
			return
		}
		c.Set(actorContextKey, models.Actor{ID: id, Role: role})
		c.Next()
	}
}

// GetActor returns the acting identity set by ActorMiddleware.
func GetActor(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

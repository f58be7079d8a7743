package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clarovate/onboarding/pkg/response"
)

const (
	// ContextUserID is the key for the verified account ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// Actor is the verified identity behind a request.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// ActorResolver turns a bearer token into a verified Actor.
type ActorResolver func(token string) (Actor, error)

// JWT returns a middleware that validates the bearer token and sets the actor in context.
func JWT(resolve ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		actor, err := resolve(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, actor.ID)
		c.Set(ContextUserRole, actor.Role)
		c.Set(ContextUserEmail, actor.Email)
		c.Next()
	}
}

// ActorID returns the verified account ID set by JWT, or "" outside it.
// Handlers must use this for createdBy and never a request field.
func ActorID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

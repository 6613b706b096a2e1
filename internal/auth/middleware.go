// Package auth provides session-based access middleware. Login itself is
// handled by the surrounding application; this service only reads the role
// the auth flow stored in the session.
package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireAuth is a middleware that ensures the user is authenticated
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")

		if userID == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		// User is authenticated - set context values for downstream handlers
		c.Set("user_id", userID)
		c.Set("user_email", session.Get("user_email"))
		c.Set("user_role", session.Get("user_role"))

		c.Next()
	}
}

// RequireAdmin gates admin-only actions such as triggering audio generation.
// Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("user_role")
		if role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

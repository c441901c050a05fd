package middleware

import (
	"net/http"

	"github.com/SergeiKhy/linkshort-web/internal/models"
	"github.com/SergeiKhy/linkshort-web/internal/service"
	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// RequireSession holds the request until the session has settled and rejects
// anonymous callers. The settled session is stored in the context.
func RequireSession(sessions service.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := sessions.Wait(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "session_loading",
				"message": "Session is still loading",
			})
			return
		}

		if !state.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Login required",
			})
			return
		}

		c.Set(sessionKey, state)
		c.Next()
	}
}

// RequireAdmin must run after RequireSession.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, ok := SessionFromContext(c)
		if !ok || !state.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(c *gin.Context) (models.Session, bool) {
	value, exists := c.Get(sessionKey)
	if !exists {
		return models.Session{}, false
	}
	state, ok := value.(models.Session)
	return state, ok
}

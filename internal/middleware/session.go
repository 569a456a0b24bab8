package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkmark/internal/pkg/response"
	"linkmark/internal/pkg/sessiontoken"
	"linkmark/internal/repo"
)

const (
	ContextUserIDKey    = "user_id"
	ContextSessionIDKey = "session_id"
)

// SessionAuth authenticates requests from the session cookie. The cookie is a
// signed token naming a server-side session row; the row is loaded on every
// request so that a merge or logout that deleted it takes effect immediately,
// not at token expiry.
func SessionAuth(cookieName string, secret []byte, sessions *repo.SessionRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			unauthorized(c)
			return
		}
		claims, err := sessiontoken.Parse(token, secret)
		if err != nil {
			unauthorized(c)
			return
		}
		session, err := sessions.GetByID(c.Request.Context(), claims.SessionID)
		if err != nil {
			unauthorized(c)
			return
		}
		if session.UserID != claims.UserID || session.ExpiresAt <= time.Now().UnixMilli() {
			unauthorized(c)
			return
		}
		c.Set(ContextUserIDKey, session.UserID)
		c.Set(ContextSessionIDKey, session.ID)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	response.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	c.Abort()
}

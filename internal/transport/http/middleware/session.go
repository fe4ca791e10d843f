package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mangoleaf/internal/pkg/jwtutil"
)

const ContextSessionIDKey = "session_id"

type SessionOptions struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
}

// Session attaches a session ID to every request. The ID travels in a signed
// cookie; a missing or invalid cookie starts a new session.
func Session(opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := ""
		if raw, err := c.Cookie(opts.CookieName); err == nil && raw != "" {
			if claims, err := jwtutil.ParseToken(opts.Secret, raw); err == nil {
				sessionID = claims.SessionID
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		// Refreshed on every request so active sessions slide forward.
		token, err := jwtutil.GenerateToken(opts.Secret, opts.TTL, sessionID)
		if err != nil {
			log.Printf("issue session token failed: %v", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(opts.CookieName, token, int(opts.TTL.Seconds()), "/", "", opts.Secure, true)

		c.Set(ContextSessionIDKey, sessionID)
		c.Next()
	}
}

func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionIDKey)
}

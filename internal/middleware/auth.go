package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/astroia/core/internal/pkg/response"
)

const contextKeyAuthed = "authed"

// Auth returns a middleware that enforces the shared API token.
// Requests carry the token as "Authorization: Bearer <token>" or,
// for convenience, as a "token" query parameter.
func Auth(apiToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
			response.Unauthorized(c)
			return
		}
		c.Set(contextKeyAuthed, true)
		c.Next()
	}
}

// OptionalAuth marks the request as authenticated when a valid token is
// present, but never blocks it. Used to exempt trusted callers from
// rate limiting on public routes.
func OptionalAuth(apiToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) == 1 {
			c.Set(contextKeyAuthed, true)
		}
		c.Next()
	}
}

// IsAuthenticated returns true if the request carried a valid token.
func IsAuthenticated(c *gin.Context) bool {
	v, _ := c.Get(contextKeyAuthed)
	ok, _ := v.(bool)
	return ok
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

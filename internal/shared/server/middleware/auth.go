package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/auth"
	"jobfit-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
)

// TokenVerifier is satisfied by *auth.Signer.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// Auth resolves an optional Bearer token into identity keys on the context.
// Requests without an Authorization header continue anonymously; a bad token is rejected.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.Next()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", "missing or invalid token")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" || verifier == nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", "missing or invalid token")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", "missing or invalid token")
			return
		}

		c.Set(userIDKey, claims.Subject)
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		if claims.Name != "" {
			c.Set(userNameKey, claims.Name)
		}
		c.Next()
	}
}

// RequireUser rejects anonymous callers.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringFromContext(c, userNameKey)
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

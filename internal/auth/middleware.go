package auth

import (
	"net/http"
	"strings"

	"questforge/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// ContextUserKey is the gin context key holding the authenticated user ID.
const ContextUserKey = "userID"

// Middleware rejects requests without a valid bearer token. On success the
// user ID is stored in the gin context under ContextUserKey.
func Middleware(tokens *jwt.Manager, denylist *Denylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, tokens)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			c.Abort()
			return
		}
		if denylist.Revoked(c.Request.Context(), claims.TokenID) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has been revoked"})
			c.Abort()
			return
		}
		c.Set(ContextUserKey, claims.UserID)
		c.Set("tokenClaims", claims)
		c.Next()
	}
}

// OptionalMiddleware sets the user ID if a valid token is present but does
// not fail when it is missing or invalid.
func OptionalMiddleware(tokens *jwt.Manager, denylist *Denylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c, tokens); ok &&
			!denylist.Revoked(c.Request.Context(), claims.TokenID) {
			c.Set(ContextUserKey, claims.UserID)
			c.Set("tokenClaims", claims)
		}
		c.Next()
	}
}

// UserID extracts the authenticated user ID set by the middleware.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// TokenClaims extracts the parsed claims set by the middleware.
func TokenClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, ok := c.Get("tokenClaims")
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

func parseBearer(c *gin.Context, tokens *jwt.Manager) (*jwt.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}
	claims, err := tokens.Parse(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

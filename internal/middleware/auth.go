package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lumiere/salon/internal/config"
	"lumiere/salon/internal/security"
)

const (
	ContextClaims = "auth_claims"

	// Every verification failure maps to the same body so the response
	// never reveals whether the signature or the expiry check failed.
	unauthorizedMsg = "Unauthorized"
)

// Auth gates privileged routes on a valid bearer access token. Tokens are
// stateless; no store lookup happens here.
func Auth(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMsg})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseToken(tokenStr, cfg.Security.JWTAccessSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMsg})
			return
		}

		if !claims.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMsg})
			return
		}

		c.Set(ContextClaims, *claims)
		c.Next()
	}
}

// ClaimsFrom returns the verified claims Auth stored on the context.
func ClaimsFrom(c *gin.Context) (security.Claims, bool) {
	val, exists := c.Get(ContextClaims)
	if !exists {
		return security.Claims{}, false
	}
	claims, ok := val.(security.Claims)
	return claims, ok
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMsg})
			return
		}
		if !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": unauthorizedMsg})
			return
		}
		c.Next()
	}
}

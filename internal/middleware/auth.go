package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"projectx/internal/auth"
	"projectx/internal/models"
)

// ContextAccessToken is the gin context key the guard stores the caller's
// projected access token under.
const ContextAccessToken = "accessToken"

// AuthGuard validates the Bearer access token and injects the projected
// token into the context. With a minimum role set, callers below it get 403.
func AuthGuard(issuer *auth.TokenIssuer, minRole models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			log.Println("[AUTH] [ERROR] missing token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			log.Println("[AUTH] [ERROR] invalid token format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, err := issuer.ParseAccessToken(parts[1])
		if err != nil {
			log.Println("[AUTH] [ERROR] token validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		token := issuer.ReadAccessToken(claims)
		if minRole != "" && !token.Role.AtLeast(minRole) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Set(ContextAccessToken, token)
		c.Next()
	}
}

// AccessTokenFromContext returns the token AuthGuard stored, if any.
func AccessTokenFromContext(c *gin.Context) (*models.AccessToken, bool) {
	value, ok := c.Get(ContextAccessToken)
	if !ok {
		return nil, false
	}
	token, ok := value.(*models.AccessToken)
	return token, ok
}

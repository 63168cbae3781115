package middleware

import (
	"net/http"
	"strings"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"municipal-sentinel/config"
)

// RequireToken guards mutating dashboard endpoints with a bearer token.
// An empty configured token disables the check, which keeps local runs
// and tests working without credentials.
func RequireToken(cfg *config.Config) gin.HandlerFunc {
	if cfg.APIToken == "" {
		log.Warn("API_TOKEN not configured, dashboard endpoints are unprotected")
	}
	return func(c *gin.Context) {
		if cfg.APIToken == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warnf("Missing authorization header from %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := extractToken(authHeader)
		if token == "" {
			log.Warnf("Invalid authorization format from %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		if token != cfg.APIToken {
			log.Warnf("Invalid token from %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Next()
	}
}

func extractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

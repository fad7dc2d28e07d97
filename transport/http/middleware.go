package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sparksclub/walletauth/core"
	"github.com/sparksclub/walletauth/service"
)

const ctxSessionToken = "sessionToken"

// AuthMiddleware creates middleware that validates the session cookie or bearer token
func AuthMiddleware(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
			return
		}

		session, err := authService.ValidateSession(c.Request.Context(), token)
		if err != nil {
			if core.KindOf(err) == core.KindUnauthenticated {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
			} else {
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
			}
			return
		}

		c.Set(ctxSessionToken, token)
		c.Set("userAddress", session.Address)

		c.Next()
	}
}

// sessionToken reads the bearer token, falling back to the session cookie
func sessionToken(c *gin.Context, cookieName string) string {
	auth := c.GetHeader("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}

	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

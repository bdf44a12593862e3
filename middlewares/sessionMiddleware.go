package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/utils"
)

// sessionToken reads the session token from "Authorization: Bearer <token>",
// falling back to the bare "token" header.
func sessionToken(c *gin.Context) string {
	auth := c.Request.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return c.Request.Header.Get("token")
}

func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.Next()
			return
		}
		email, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUserEmailInContext(ctx, email)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

package middleware

import (
	"net/http"

	"github.com/edgemux/restream-server/internal/service"
	"github.com/gin-gonic/gin"
)

// Authentication blocks requests unless the caller holds an open session
// or no password is configured (open access).
// Responds with 401 Unauthorized otherwise.
func Authentication(authsvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authsvc.Authenticated(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}
		c.Next()
	}
}

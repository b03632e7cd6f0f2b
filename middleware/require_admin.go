package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/services"
)

// RequireRoles authenticates the caller and admits only the listed roles.
func RequireRoles(auth *services.AuthService, allowedRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, auth, allowedRoles...) {
			return
		}
		c.Next()
	}
}

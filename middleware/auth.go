package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/services"
)

const userKey = "user"

// bearerToken reads "Authorization: Bearer <token>", falling back to X-Auth-Token.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		authHeader = c.GetHeader("X-Auth-Token")
	}
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// authenticate aborts the request and returns false when the caller is not
// allowed through.
func authenticate(c *gin.Context, auth *services.AuthService, roles ...models.UserRole) bool {
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return false
	}

	user, err := auth.Authenticate(c.Request.Context(), token, roles...)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, services.ErrForbidden):
			status = http.StatusForbidden
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return false
	}

	c.Set(userKey, user)
	c.Set("user_id", user.ID)
	c.Set("role", string(user.Role))
	return true
}

// AuthMiddleware admits any authenticated user.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, auth) {
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware or RequireRoles.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

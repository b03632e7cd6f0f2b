package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-cert-backend/services"
)

type ApproveInput struct {
	UserID flexID `json:"user_id" binding:"required,min=1"`
}

// PendingUsers lists university accounts waiting for approval.
func PendingUsers(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := auth.PendingUniversities(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
	}
}

func ApproveUser(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ApproveInput
		if !bindJSON(c, &input) {
			return
		}
		if err := auth.ApproveUniversity(c.Request.Context(), int(input.UserID)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

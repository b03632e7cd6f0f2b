package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/services"
)

// ====== INPUT STRUCTS ======
type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=student university employer"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SendVerificationInput struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyCodeInput struct {
	Email string     `json:"email" binding:"required,email"`
	Code  flexString `json:"code" binding:"required"`
}

// ====== HANDLERS ======
func SendVerification(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input SendVerificationInput
		if !bindJSON(c, &input) {
			return
		}
		code, err := auth.SendVerification(c.Request.Context(), input.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"message": "Verification code generated and (in dev) returned in response.",
			"code":    code,
		})
	}
}

func VerifyCode(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input VerifyCodeInput
		if !bindJSON(c, &input) {
			return
		}
		if err := auth.VerifyCode(c.Request.Context(), input.Email, string(input.Code)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func Register(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if !bindJSON(c, &input) {
			return
		}
		session, err := auth.Register(c.Request.Context(), services.RegisterInput{
			Username: input.Username,
			Email:    input.Email,
			Password: input.Password,
			Role:     models.UserRole(input.Role),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func Login(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if !bindJSON(c, &input) {
			return
		}
		session, err := auth.Login(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

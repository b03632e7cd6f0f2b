package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-cert-backend/middleware"
	"github.com/vnkhanh/e-cert-backend/services"
)

const htmlContentType = "text/html; charset=utf-8"

type StudentInput struct {
	StudentID flexID `json:"student_id" binding:"required,min=1"`
}

type TokenInput struct {
	Token string `json:"token" binding:"required"`
}

// VerifyPage is the landing page behind the certificate QR code.
func VerifyPage(verifier *services.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			c.Data(http.StatusBadRequest, htmlContentType,
				services.ErrorPage("Invalid Verification Link", "No token provided. Please scan a valid QR code."))
			return
		}

		res, err := verifier.VerifyByToken(c.Request.Context(), token)
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			c.Data(http.StatusBadRequest, htmlContentType,
				services.ErrorPage("Invalid or Expired Token", "This verification link is invalid or has expired."))
			return
		case errors.Is(err, services.ErrNotFound):
			c.Data(http.StatusNotFound, htmlContentType,
				services.ErrorPage("Student Not Found", "The student record for this certificate could not be found."))
			return
		case err != nil:
			c.Data(http.StatusInternalServerError, htmlContentType,
				services.ErrorPage("Verification Error", err.Error()))
			return
		}

		page, err := services.VerificationPage(res)
		if err != nil {
			c.Data(http.StatusInternalServerError, htmlContentType,
				services.ErrorPage("Verification Error", err.Error()))
			return
		}
		c.Data(http.StatusOK, htmlContentType, page)
	}
}

// VerifyToken is the JSON form of VerifyPage. The token may also come as
// ?token=, a token in the body wins.
func VerifyToken(verifier *services.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		input := TokenInput{Token: c.Query("token")}
		if !bindJSON(c, &input) {
			return
		}
		res, err := verifier.VerifyByToken(c.Request.Context(), input.Token)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func BlockchainAdd(verifier *services.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input StudentInput
		if !bindJSON(c, &input) {
			return
		}
		proof, err := verifier.AddProof(c.Request.Context(), int(input.StudentID), middleware.CurrentUser(c).Email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"proof": proof})
	}
}

func BlockchainVerify(verifier *services.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input StudentInput
		if !bindJSON(c, &input) {
			return
		}
		res, err := verifier.VerifyByStudent(c.Request.Context(), int(input.StudentID))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// EmployerSearch matches ?q= against every student record.
func EmployerSearch(verifier *services.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := verifier.Search(c.Request.Context(), c.Query("q"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(results), "results": results})
	}
}

package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-cert-backend/middleware"
	"github.com/vnkhanh/e-cert-backend/services"
)

func certIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("cert_id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
		return 0, false
	}
	return id, true
}

// DownloadCertificate serves the certificate HTML, regenerating it when the
// stored file is gone.
func DownloadCertificate(certs *services.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		certID, ok := certIDParam(c)
		if !ok {
			return
		}
		path, err := certs.Resolve(c.Request.Context(), certID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.FileAttachment(path, fmt.Sprintf("certificate_%d.html", certID))
	}
}

func ResendCertificate(certs *services.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		certID, ok := certIDParam(c)
		if !ok {
			return
		}
		sent, err := certs.Resend(c.Request.Context(), certID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "sent": sent})
	}
}

// StudentCertificates lists certificates whose roster row carries the
// caller's email, or the ?email= override.
func StudentCertificates(certs *services.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			email = middleware.CurrentUser(c).Email
		}
		list, err := certs.ForStudentEmail(c.Request.Context(), email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(list), "certificates": list})
	}
}

type QRInput struct {
	StudentID flexID `json:"student_id" binding:"required,min=1"`
	CertID    flexID `json:"cert_id" binding:"omitempty,min=1"`
}

func GenerateQR(certs *services.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input QRInput
		if !bindJSON(c, &input) {
			return
		}
		qr, err := certs.GenerateQR(c.Request.Context(), int(input.StudentID), int(input.CertID))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, qr)
	}
}

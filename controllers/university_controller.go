package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-cert-backend/middleware"
	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/services"
)

// maxTemplateSize caps uploaded template assets.
const maxTemplateSize = 20 << 20

// UploadRoster accepts a multipart CSV roster and issues certificates for it.
func UploadRoster(ingest *services.IngestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot open uploaded file"})
			return
		}
		defer file.Close()

		result, err := ingest.Upload(c.Request.Context(), services.UploadInput{
			Uploader:        user.Email,
			CSV:             file,
			TemplateID:      strings.TrimSpace(c.PostForm("template_id")),
			ClearPrevious:   strings.EqualFold(strings.TrimSpace(c.PostForm("clear_previous")), "true"),
			DuplicateAction: c.DefaultPostForm("duplicate_action", services.DuplicateUpdate),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func UniversityCertificates(certs *services.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		list, err := certs.ListByIssuer(c.Request.Context(), user.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(list), "certificates": list})
	}
}

// ClearAll deletes everything the calling university uploaded.
func ClearAll(ingest *services.IngestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		deleted, err := ingest.ClearUniversity(c.Request.Context(), user.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "All records deleted successfully",
			"deleted": deleted,
		})
	}
}

func UniversityRecords(ingest *services.IngestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		students, err := ingest.Records(c.Request.Context(), user.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(students), "students": students})
	}
}

func UploadTemplate(templates *services.TemplateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
			return
		}
		if fileHeader.Size > maxTemplateSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot open uploaded file"})
			return
		}
		defer file.Close()
		content, err := io.ReadAll(io.LimitReader(file, maxTemplateSize))
		if err != nil {
			respondError(c, err)
			return
		}

		tpl, err := templates.Upload(c.Request.Context(), user.Email, fileHeader.Filename, content, c.PostForm("layout"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "template_id": tpl.ID, "template": tpl})
	}
}

// ListTemplates returns the caller's templates keyed by id.
func ListTemplates(templates *services.TemplateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		list, err := templates.List(c.Request.Context(), user.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		byID := make(map[string]models.Template, len(list))
		for _, t := range list {
			byID[t.ID] = t
		}
		c.JSON(http.StatusOK, gin.H{"templates": byID})
	}
}

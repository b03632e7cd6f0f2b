package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/e-cert-backend/controllers"
	"github.com/vnkhanh/e-cert-backend/middleware"
	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/services"
	"github.com/vnkhanh/e-cert-backend/storage"
	"github.com/vnkhanh/e-cert-backend/ws"
)

// Deps are the wired services the HTTP layer dispatches to.
type Deps struct {
	Store        storage.Store
	Hub          *ws.Hub
	Auth         *services.AuthService
	Ingest       *services.IngestService
	Certificates *services.CertificateService
	Verification *services.VerificationService
	Templates    *services.TemplateService
}

func SetupRouter(r *gin.Engine, d Deps) *gin.Engine {
	r.GET("/ping", controllers.Ping)
	r.GET("/health", controllers.HealthCheck(d.Store, d.Hub))
	r.GET("/api", controllers.APIStatus)

	auth := r.Group("/auth")
	{
		auth.POST("/send_verification", controllers.SendVerification(d.Auth))
		auth.POST("/verify_code", controllers.VerifyCode(d.Auth))
		auth.POST("/register", controllers.Register(d.Auth))
		auth.POST("/login", controllers.Login(d.Auth))
	}

	admin := r.Group("/admin")
	{
		admin.Use(middleware.RequireRoles(d.Auth, models.RoleAdmin))

		admin.GET("/pending-users", controllers.PendingUsers(d.Auth))
		admin.POST("/approve", controllers.ApproveUser(d.Auth))
	}

	university := r.Group("/university")
	{
		university.Use(middleware.RequireRoles(d.Auth, models.RoleUniversity))

		// Roster & certificates
		university.POST("/upload", controllers.UploadRoster(d.Ingest))
		university.GET("/certificates", controllers.UniversityCertificates(d.Certificates))
		university.POST("/clear-all", controllers.ClearAll(d.Ingest))
		university.GET("/records", controllers.UniversityRecords(d.Ingest))

		// Templates
		university.POST("/template/upload", controllers.UploadTemplate(d.Templates))
		university.GET("/templates", controllers.ListTemplates(d.Templates))
	}

	r.GET("/certificates/:cert_id", controllers.DownloadCertificate(d.Certificates))
	r.POST("/certificates/:cert_id/resend",
		middleware.RequireRoles(d.Auth, models.RoleUniversity),
		controllers.ResendCertificate(d.Certificates))

	r.GET("/student/certificates",
		middleware.RequireRoles(d.Auth, models.RoleStudent),
		controllers.StudentCertificates(d.Certificates))

	// Verification (public except proof append)
	r.GET("/verify", controllers.VerifyPage(d.Verification))
	r.POST("/verify_token", controllers.VerifyToken(d.Verification))
	r.POST("/generate_qr", controllers.GenerateQR(d.Certificates))
	r.POST("/blockchain/add", middleware.AuthMiddleware(d.Auth), controllers.BlockchainAdd(d.Verification))
	r.POST("/blockchain/verify", controllers.BlockchainVerify(d.Verification))
	r.GET("/employer/search", controllers.EmployerSearch(d.Verification))

	// WebSocket upload progress
	r.GET("/ws/uploads", ws.HandleUploadWebSocket(d.Hub, d.Auth))

	return r
}

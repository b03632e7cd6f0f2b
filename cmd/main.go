package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/vnkhanh/e-cert-backend/config"
	"github.com/vnkhanh/e-cert-backend/logger"
	"github.com/vnkhanh/e-cert-backend/routes"
	"github.com/vnkhanh/e-cert-backend/services"
	"github.com/vnkhanh/e-cert-backend/storage"
	"github.com/vnkhanh/e-cert-backend/utils"
	"github.com/vnkhanh/e-cert-backend/ws"
)

const (
	dbConnectTimeout = 3 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func main() {
	// Load .env
	envErr := godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.New(0).Fatal("Failed to load config", "error", err)
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		log.Info("No .env file found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal("Failed to create data directories", "error", err)
	}
	secret, err := cfg.ResolveJWTSecret()
	if err != nil {
		log.Fatal("Failed to load JWT secret", "error", err)
	}

	store := openStore(ctx, cfg, log.Component("storage"))
	defer store.Close()

	tokens := utils.NewTokenManager(secret)
	mailer := utils.NewMailer(utils.SMTPConfig{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
	})
	if !mailer.Enabled() {
		log.Info("SMTP not configured, certificates will not be emailed")
	}
	var mirror services.AssetMirror
	if cfg.Supabase.URL != "" && cfg.Supabase.Key != "" {
		mirror = utils.NewAssetMirror(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Bucket)
		log.Info("Asset mirror enabled", "bucket", cfg.Supabase.Bucket)
	}

	hub := ws.NewHub(log.Component("ws"))
	links := services.NewLinkBuilder(tokens, cfg.PublicBaseURL, cfg.HostIP, cfg.Port)
	renderer := services.NewHTMLRenderer(cfg.DataDir, links)

	auth := services.NewAuthService(store, tokens, log.Component("auth"), cfg.UniversityDomain, cfg.VerificationCodeTTL)
	certs := services.NewCertificateService(store, renderer, links, mailer, mirror, cfg.DataDir, log.Component("certificates"))
	deps := routes.Deps{
		Store:        store,
		Hub:          hub,
		Auth:         auth,
		Ingest:       services.NewIngestService(store, certs, hub, log.Component("ingest")),
		Certificates: certs,
		Verification: services.NewVerificationService(store, tokens, log.Component("verification")),
		Templates:    services.NewTemplateService(store, mirror, cfg.TemplatesDir(), log.Component("templates")),
	}

	if err := auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Error("Failed to bootstrap admin account", "error", err)
	}
	if cfg.VerificationCodeTTL > 0 {
		utils.StartCleanupJob(ctx, log.Component("cleanup"), "verification_codes", cfg.VerificationCodeTTL, auth.PurgeExpiredCodes)
	}

	r := gin.Default()

	// CORS
	r.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))
	r = routes.SetupRouter(r, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		log.Info("Server running", "port", cfg.Port, "verify_base_url", links.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
}

// openStore picks postgres when DATABASE_URL answers quickly, else the JSON files.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) storage.Store {
	if cfg.DatabaseURL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
		defer cancel()

		db, err := config.InitDB(dbCtx, cfg.DatabaseURL)
		if err == nil {
			store, err := storage.NewGormStore(ctx, db)
			if err == nil {
				log.Info("Storage: using postgres")
				return store
			}
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			log.Warn("Storage: migration failed, falling back to JSON files", "error", err)
		} else {
			log.Warn("Storage: database unavailable, falling back to JSON files", "error", err)
		}
	}

	store, err := storage.NewJSONStore(cfg.DataDir)
	if err != nil {
		log.Fatal("Failed to open JSON store", "error", err)
	}
	log.Info("Storage: using JSON files", "dir", cfg.DataDir)
	return store
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Auth-Token"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

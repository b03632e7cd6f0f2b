package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config contains server configuration parameters.
type Config struct {
	Port      string `env:"PORT" envDefault:"5000"`
	LogLevel  int    `env:"LOG_LEVEL" envDefault:"0"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	DataDir   string `env:"DATA_DIR" envDefault:"./data"`

	// Empty DatabaseURL selects the JSON file store.
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`

	UniversityDomain    string        `env:"UNIVERSITY_ALLOWED_DOMAIN" envDefault:"st.niituniversity.in"`
	PublicBaseURL       string        `env:"PUBLIC_BASE_URL"`
	HostIP              string        `env:"HOST_IP" envDefault:"auto"`
	VerificationCodeTTL time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"0s"`
	CORSAllowOrigins    []string      `env:"CORS_ALLOW_ORIGINS" envDefault:"*" envSeparator:","`

	SMTP     SMTP     `envPrefix:"SMTP_"`
	Supabase Supabase `envPrefix:"SUPABASE_"`
	Admin    Admin    `envPrefix:"ADMIN_"`
}

// SMTP contains outbound mail parameters.
type SMTP struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT" envDefault:"587"`
	User string `env:"USER"`
	Pass string `env:"PASS"`
	From string `env:"FROM"`
}

// Supabase contains asset mirror parameters.
type Supabase struct {
	URL    string `env:"URL"`
	Key    string `env:"KEY"`
	Bucket string `env:"BUCKET" envDefault:"certificates"`
}

// Admin holds the bootstrap admin credentials.
type Admin struct {
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.UniversityDomain = strings.ToLower(strings.TrimSpace(cfg.UniversityDomain))
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}

	return &cfg, nil
}

// Directories under DataDir.
func (c *Config) CertsDir() string     { return filepath.Join(c.DataDir, "certs") }
func (c *Config) TemplatesDir() string { return filepath.Join(c.DataDir, "templates") }

// EnsureDirs creates the data, certificate and template directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.CertsDir(), c.TemplatesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Secrets is the persisted part of the configuration.
type Secrets struct {
	JWTSecret string `json:"jwt_secret"`
}

const secretsFile = "config.json"

// LoadSecrets reads <dataDir>/config.json, generating and persisting a signing
// secret the first time. An existing secret is never rewritten.
func LoadSecrets(dataDir string) (*Secrets, error) {
	path := filepath.Join(dataDir, secretsFile)

	var s Secrets
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if s.JWTSecret != "" {
			return &s, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	s.JWTSecret = hex.EncodeToString(buf)

	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dataDir, err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return &s, nil
}

// ResolveJWTSecret prefers JWT_SECRET over the persisted secret.
func (c *Config) ResolveJWTSecret() (string, error) {
	if c.JWTSecret != "" {
		return c.JWTSecret, nil
	}
	s, err := LoadSecrets(c.DataDir)
	if err != nil {
		return "", err
	}
	return s.JWTSecret, nil
}

// InitDB opens a postgres connection pool and checks it answers within the
// context deadline.
func InitDB(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Warn),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

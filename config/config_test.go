package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "st.niituniversity.in", cfg.UniversityDomain)
	assert.Equal(t, "auto", cfg.HostIP)
	assert.Equal(t, time.Duration(0), cfg.VerificationCodeTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "certificates", cfg.Supabase.Bucket)
}

func TestNewConfig_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("UNIVERSITY_ALLOWED_DOMAIN", " Uni.EDU ")
	t.Setenv("VERIFICATION_CODE_TTL", "15m")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("SMTP_HOST", "smtp.test")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_USER", "mailer@uni.edu")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("ADMIN_EMAIL", "root@uni.edu")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "uni.edu", cfg.UniversityDomain)
	assert.Equal(t, 15*time.Minute, cfg.VerificationCodeTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowOrigins)
	assert.Equal(t, "smtp.test", cfg.SMTP.Host)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, "mailer@uni.edu", cfg.SMTP.From, "from defaults to the SMTP user")
	assert.Equal(t, "https://x.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "root@uni.edu", cfg.Admin.Email)
}

func TestNewConfig_InvalidDuration(t *testing.T) {
	t.Setenv("VERIFICATION_CODE_TTL", "soon")

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestEnsureDirs(t *testing.T) {
	cfg := &Config{DataDir: filepath.Join(t.TempDir(), "data")}
	require.NoError(t, cfg.EnsureDirs())

	for _, dir := range []string{cfg.DataDir, cfg.CertsDir(), cfg.TemplatesDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLoadSecrets_CreatesOnce(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadSecrets(dir)
	require.NoError(t, err)
	assert.Len(t, first.JWTSecret, 64)

	second, err := LoadSecrets(dir)
	require.NoError(t, err)
	assert.Equal(t, first.JWTSecret, second.JWTSecret)

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadSecrets_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0o600))

	_, err := LoadSecrets(dir)
	assert.Error(t, err)
}

func TestResolveJWTSecret_PrefersEnv(t *testing.T) {
	cfg := &Config{DataDir: t.TempDir(), JWTSecret: "from-env"}
	secret, err := cfg.ResolveJWTSecret()
	require.NoError(t, err)
	assert.Equal(t, "from-env", secret)

	_, err = os.Stat(filepath.Join(cfg.DataDir, "config.json"))
	assert.True(t, os.IsNotExist(err))
}

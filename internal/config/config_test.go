package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("IDENTITY_WHITELIST", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Empty(t, cfg.IdentityWhitelist)
	assert.False(t, cfg.Billing.IssuerRateFallback)
	assert.False(t, cfg.Report.ExcludeArchived)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("IDENTITY_WHITELIST", "alice, bob ,,carol")
	t.Setenv("DEFAULT_FROM_ADDRESS", "billing@example.com")
	t.Setenv("PAYMENT_SECRET", "sk_test_123")
	t.Setenv("DATABASE_URI", "sqlite://portal.db")
	t.Setenv("BILLING_ISSUER_RATE_FALLBACK", "true")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, cfg.IdentityWhitelist)
	assert.Equal(t, "billing@example.com", cfg.DefaultFromAddress)
	assert.Equal(t, "sk_test_123", cfg.Payment.Secret)
	assert.Equal(t, "sqlite://portal.db", cfg.DatabaseURI)
	assert.True(t, cfg.Billing.IssuerRateFallback)
	assert.Equal(t, 2525, cfg.SMTP.Port)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REPORT_EXCLUDE_ARCHIVED=true\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("REPORT_EXCLUDE_ARCHIVED")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Report.ExcludeArchived)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestReleaseRequiresSecret(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	assert.Error(t, err)
}

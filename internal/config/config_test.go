package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: file-secret
database:
  driver: memory
appointments:
  slot_minutes: 45
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry())
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 45*time.Minute, cfg.Appointments.Slot())
	assert.True(t, cfg.Appointments.PreventOverlap)
	assert.Equal(t, 50.0, cfg.Billing.ConsultationFee)
	assert.False(t, cfg.Auth.AllowAdminSignup)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: file-secret\n")
	t.Setenv("HOSPITAL_JWT_SECRET", "env-secret")
	t.Setenv("HOSPITAL_DB_HOST", "db.internal")
	t.Setenv("HOSPITAL_BILLING_CONSULTATION_FEE", "75.5")
	t.Setenv("HOSPITAL_CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 75.5, cfg.Billing.ConsultationFee)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_RequiresSecret(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "jwt.secret is required")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: s\ndatabase:\n  driver: sqlite\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "database.driver")
}

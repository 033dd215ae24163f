package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, "key-123", cfg.AI.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "WeNS Pvt. Ltd.", cfg.AI.Organization)
	assert.True(t, cfg.AI.SanitizeOutput)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.True(t, cfg.CSRF.Enabled)
}

func TestLoadAdminSeed(t *testing.T) {
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_EMAIL", "root@example.com")
	t.Setenv("ADMIN_PASSWORD", "correct-horse")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, AdminSeed{Username: "root", Email: "root@example.com", Password: "correct-horse"}, cfg.Auth.Admin)
}

func TestLoadRejectsUnknownStorageDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "ftp")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}

func TestDurations(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 5*time.Second, AppConfig{RequestTimeoutSeconds: 5}.RequestTimeout())
	assert.Equal(t, 14*24*time.Hour, SessionConfig{}.TTL())
	assert.Equal(t, 30*time.Minute, SessionConfig{TTLMinutes: 30}.TTL())
}

func TestInvalidIntFallsBack(t *testing.T) {
	t.Setenv("AUTH_BCRYPT_COST", "abc")
	assert.Equal(t, 12, getEnvAsInt("AUTH_BCRYPT_COST", 12))
	t.Setenv("CSRF_ENABLED", "nah")
	assert.True(t, getEnvAsBool("CSRF_ENABLED", true))
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL", "STORE_BACKEND",
		"DATABASE_URL", "MONGO_URI", "MONGO_DATABASE", "REDIS_URL", "NATS_URL",
		"JWT_SECRET", "ADMIN_ACCOUNTS", "ACCESS_TOKEN_TTL", "STORE_TIMEOUT", "LOGIN_RATE_LIMIT",
		shutdownSecondsEnvVar, shutdownDurationEnvVar, idemTTLSecondsEnvVar, idemTTLDurEnvVar,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, defaultAccessTokenTTL, cfg.AccessTokenTTL)
	assert.Equal(t, defaultStoreTimeout, cfg.StoreTimeout)
	assert.Equal(t, defaultLoginRateLimit, cfg.LoginRateLimit)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Empty(t, cfg.AdminAccounts)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/agentcash")
	t.Setenv("ACCESS_TOKEN_TTL", "1h")
	t.Setenv(shutdownSecondsEnvVar, "3")
	t.Setenv(idemTTLDurEnvVar, "10m")
	t.Setenv("LOGIN_RATE_LIMIT", "9")
	t.Setenv("PORT", ":9000")
	t.Setenv("ADMIN_ACCOUNTS", " ops@example.com, ,+243810000000 ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 10*time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, 9, cfg.LoginRateLimit)
	assert.Equal(t, ":9000", cfg.Address())
	assert.Equal(t, []string{"ops@example.com", "+243810000000"}, cfg.AdminAccounts)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"memory in production": {"APP_ENV": "production", "JWT_SECRET": "s"},
		"no secret in prod":    {"APP_ENV": "production", "STORE_BACKEND": "mongo", "MONGO_URI": "mongodb://x"},
		"postgres without url": {"STORE_BACKEND": "postgres"},
		"mongo without uri":    {"STORE_BACKEND": "mongo"},
		"unknown backend":      {"STORE_BACKEND": "sqlite"},
		"bad ttl":              {"ACCESS_TOKEN_TTL": "soon"},
		"bad shutdown seconds": {shutdownSecondsEnvVar: "ten"},
		"non-positive limit":   {"LOGIN_RATE_LIMIT": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

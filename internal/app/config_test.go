package app

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("APP_ENV", "development")
	for _, key := range []string{"AUDIT_SINK", "BCRYPT_COST", "APP_ADDR", "JWT_TTL", "PG_MAX_CONNS", "MIGRATE_ON_START"} {
		unsetEnv(t, key)
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.AppAddr)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, AuditSinkDB, cfg.AuditSink)
	assert.Equal(t, int32(10), cfg.PGMaxConns)
	assert.True(t, cfg.MigrateOnStart)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigProductionSecretLength(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")

	t.Setenv("JWT_SECRET", strings.Repeat("k", 32))
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsUnknownAuditSink(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AUDIT_SINK", "kafka")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "unknown audit sink")
}

func TestLoadConfigRejectsBcryptCost(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BCRYPT_COST", "40")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "bcrypt cost")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("WARNING").String())
	assert.Equal(t, "INFO", parseLevel("verbose").String())
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
}

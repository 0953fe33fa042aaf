package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "DOCSTORE_DRIVER", "KAFKA_BROKERS", "REQUEST_TIMEOUT", "BREAKER_ENABLED", "CART_COLLECTION"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.BreakerEnabled)
	assert.Equal(t, "Kundvagn", cfg.CartCollection)
	assert.Equal(t, "produkter", cfg.AdminCollection)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DOCSTORE_DRIVER", "SQLite")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("BREAKER_ENABLED", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.BreakerEnabled)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"DOCSTORE_DRIVER":  "cassandra",
		"REQUEST_TIMEOUT":  "soon",
		"SHUTDOWN_TIMEOUT": "10",
		"BREAKER_ENABLED":  "maybe",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestDotEnvFile(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT=9090\n"), 0o600))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	t.Setenv("HTTP_PORT", env["HTTP_PORT"])

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
}

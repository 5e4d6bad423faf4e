package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testConfig = `
server:
  address: ":8080"
  timeout: 3
  env: production
auth:
  key_id: 4754d86b-7a6d-4df5-9c65-224741361492
  token_ttl: 1h
mongo:
  name: natours
  host_port: localhost:27017
rate_limit:
  window: 30m
kafka:
  brokers: ["localhost:9092"]
`

func writeConfig(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func TestAppConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := AppConfig("", zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, ":3000", cfg.Server.Address)
		assert.Equal(t, "RS256", cfg.Auth.Algorithm)
		assert.Equal(t, 100, cfg.RateLimit.Requests)
		assert.Equal(t, time.Hour, cfg.RateLimit.Window)
		assert.Equal(t, 90*24*time.Hour, cfg.CookieTTL())
		assert.Equal(t, "natours.events", cfg.Kafka.Topic)
		assert.False(t, cfg.Production())
	})

	t.Run("file", func(t *testing.T) {
		cfg, err := AppConfig(writeConfig(t), zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Address)
		assert.Equal(t, 3, cfg.Server.Timeout)
		assert.True(t, cfg.Production())
		assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
		assert.Equal(t, "natours", cfg.MongoConfig.Name)
		assert.Equal(t, 30*time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, "usd", cfg.Payment.Currency)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("SERVER_ADDRESS", ":9000")
		t.Setenv("MONGO_NAME", "natours-test")
		t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

		cfg, err := AppConfig(writeConfig(t), zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, ":9000", cfg.Server.Address)
		assert.Equal(t, "natours-test", cfg.MongoConfig.Name)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 3, cfg.Server.Timeout)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := AppConfig(filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop())
		assert.ErrorContains(t, err, "can't open config file")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_WINDOW", "forever")

		_, err := AppConfig("", zap.NewNop())
		assert.Error(t, err)
	})
}

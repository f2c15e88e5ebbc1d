package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadForTestsDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":       "postgres://localhost/kodeit",
		"JWT_SECRET":         "secret",
		"ACCESS_TOKEN_TTL":   "",
		"SETTINGS_CACHE_TTL": "",
		"REDIS_URL":          "",
		"PORT":               "",
		"BODY_MAX_BYTES":     "",
		"MIGRATE_ON_START":   "",
	})
	require.NoError(t, err)
	require.Equal(t, 8*time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, 5*time.Minute, cfg.SettingsCacheTTL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, int64(1<<20), cfg.BodyMaxBytes)
	require.True(t, cfg.MigrateOnStart)
	require.Empty(t, cfg.RedisURL)
}

func TestLoadRequiresSecrets(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost/kodeit",
		"JWT_SECRET":   "",
	})
	require.EqualError(t, err, "JWT_SECRET is required")

	_, err = LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"JWT_SECRET":   "secret",
	})
	require.EqualError(t, err, "DATABASE_URL is required")
}

func TestParseHelpers(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
	require.False(t, parseBoolDefault("off", true))
	require.True(t, parseBoolDefault("", true))
	require.Equal(t, int64(7), parseInt64("bogus", 7))
	require.Equal(t, 30*time.Second, parseDuration("nope", "30s"))
	require.InDelta(t, 0.5, parseFloat("0.5", 1), 1e-9)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("HOMEFIX_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	t.Setenv("HOMEFIX_JWT_SECRET", "secret")
	t.Setenv("HOMEFIX_APP_PORT", "9090")
	t.Setenv("HOMEFIX_PRESENCE_CACHE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 90*time.Second, cfg.PresenceCacheTTL)
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, "homefix", cfg.RealtimeChannel)
	require.Equal(t, 10, cfg.UploadMaxSizeMB)
	require.Equal(t, 20, cfg.SendRateLimit)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("HOMEFIX_JWT_SECRET", "secret")
	t.Setenv("HOMEFIX_CATALOG_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}

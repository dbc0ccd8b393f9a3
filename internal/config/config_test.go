package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, file string) (Config, error) {
	t.Helper()
	v := viper.New()
	require.NoError(t, Setup(v, file))
	return Load(v)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, "3005", cfg.Server.Port)
	assert.Equal(t, "", cfg.Redis.URL)
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 8*time.Second, cfg.Stream.Timeout)
	assert.Equal(t, 10, cfg.Player.InitAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Player.InitDelay)
	assert.Equal(t, 50, cfg.Player.InitialVolume)
	assert.Equal(t, []string{"spotify"}, cfg.Player.ResolveProviders)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
	assert.False(t, cfg.Spotify.Enabled())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("CATALOG_TIMEOUT", "2s")
	t.Setenv("PLAYER_RESOLVE_PROVIDERS", "spotify, youtube,spotify")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")

	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, 2*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, []string{"spotify", "youtube"}, cfg.Player.ResolveProviders)
	assert.True(t, cfg.Spotify.Enabled())
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playback.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
player:
  initial_volume: 70
  resolve_providers: [spotify, youtube]
search:
  debounce: 150ms
`), 0o600))

	cfg, err := load(t, path)
	require.NoError(t, err)
	assert.Equal(t, 70, cfg.Player.InitialVolume)
	assert.Equal(t, []string{"spotify", "youtube"}, cfg.Player.ResolveProviders)
	assert.Equal(t, 150*time.Millisecond, cfg.Search.Debounce)

	v := viper.New()
	assert.Error(t, Setup(v, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	t.Setenv("PLAYER_INITIAL_VOLUME", "150")
	t.Setenv("CATALOG_DEFAULT_LIMIT", "80")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")

	_, err := load(t, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "player.initial_volume")
	assert.Contains(t, err.Error(), "catalog.default_limit")
	assert.Contains(t, err.Error(), "spotify.client_secret")
}

func TestSettings(t *testing.T) {
	t.Setenv("PORT", "9000")
	v := viper.New()
	require.NoError(t, Setup(v, ""))

	settings := Settings(v)
	require.Len(t, settings, len(Fields))
	assert.Equal(t, "catalog.cache_ttl", settings[0].Key)

	for _, f := range settings {
		if f.Key == "server.port" {
			assert.Equal(t, "9000", f.Value)
			assert.Equal(t, "PORT", f.Env)
		}
	}
}

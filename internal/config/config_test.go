package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.spotify.com/v1", cfg.Spotify.BaseURL)
	assert.Equal(t, "https://accounts.spotify.com/api/token", cfg.Spotify.TokenURL)
	assert.InDelta(t, 5.0, cfg.Spotify.RatePerSec, 0.001)
	assert.Equal(t, []string{"BR", "DE", "GB", "IN", "JP", "US"}, cfg.Markets.Codes)
	assert.False(t, cfg.Fetch.Strict)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 50, cfg.Fetch.RankCap)
	assert.Equal(t, 500, cfg.Fetch.RetryBackoffMS)
	assert.Equal(t, "files", cfg.Sink.Driver)
	assert.Equal(t, "outputs", cfg.Sink.OutputDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chtemp(t)

	yaml := `
spotify:
  client_id: abc
  client_secret: shh
markets:
  codes: [us, se]
  playlists:
    us: 37i9dQZEVXbLRQDuF5jeBp
fetch:
  strict: true
  concurrency: 2
sink:
  driver: postgres
  database_url: postgres://localhost/charts
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Spotify.ClientID)
	// Codes are upper-cased and sorted.
	assert.Equal(t, []string{"SE", "US"}, cfg.Markets.Codes)
	assert.True(t, cfg.Fetch.Strict)
	assert.Equal(t, 2, cfg.Fetch.Concurrency)
	assert.Equal(t, "postgres", cfg.Sink.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values.
	assert.Equal(t, 50, cfg.Fetch.RankCap)

	playlistID, ok := cfg.Markets.PlaylistFor("us")
	assert.True(t, ok)
	assert.Equal(t, "37i9dQZEVXbLRQDuF5jeBp", playlistID)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chtemp(t)

	yaml := `
sink:
  driver: files
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("SOUNDRANK_SINK_DRIVER", "sqlite")
	t.Setenv("SOUNDRANK_SPOTIFY_CLIENT_ID", "env-id")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Sink.Driver)
	assert.Equal(t, "env-id", cfg.Spotify.ClientID)
}

func TestLoadMarketsFile(t *testing.T) {
	dir := chtemp(t)

	mapping := "us: pl-us\nse: pl-se\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "markets.yaml"), []byte(mapping), 0644))

	yaml := `
markets:
  codes: [us, se]
  file: markets.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	playlistID, ok := cfg.Markets.PlaylistFor("SE")
	assert.True(t, ok)
	assert.Equal(t, "pl-se", playlistID)
}

func TestLoadRejectsInvalidMarketCode(t *testing.T) {
	dir := chtemp(t)

	yaml := `
markets:
  codes: [us, "not-a-region"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid market code")
}

func TestInitLogger(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())

	err = InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}

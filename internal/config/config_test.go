package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtmp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtmp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "library.csv", cfg.Ledger.InputPath)
	assert.Equal(t, "library_resolved.csv", cfg.Ledger.OutputPath)
	assert.Equal(t, 25, cfg.Ledger.CheckpointEach)
	assert.Equal(t, "https://songstats.com", cfg.Songstats.BaseURL)
	assert.InDelta(t, 0.5, cfg.Songstats.RequestsPerSecond, 0.001)
	assert.Equal(t, "https://api.discogs.com", cfg.Discogs.BaseURL)
	assert.InDelta(t, 0.66, cfg.Resolve.MatchThreshold, 0.001)
	assert.False(t, cfg.Resolve.RetrySoftTerminal)
	assert.Equal(t, "library", cfg.Download.Root)
	assert.Equal(t, "yt-dlp", cfg.Download.Binary)
	assert.Equal(t, "mp3", cfg.Download.AudioFormat)
	assert.Equal(t, 5, cfg.Download.SearchLimit)
	assert.InDelta(t, 15.0, cfg.Download.TolerancePercent, 0.001)
	assert.InDelta(t, 30.0, cfg.Download.ToleranceFloorS, 0.001)
	assert.Equal(t, 25, cfg.Pacing.LongBreakEvery)
	assert.Equal(t, 5, cfg.Pacing.CooldownAfter)
	assert.Equal(t, 15, cfg.Pacing.CooldownMins)
	assert.True(t, cfg.Tag.EmbedArt)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chtmp(t)

	yaml := `
ledger:
  input_path: export.csv
  checkpoint_each: 10
discogs:
  key: abc
  secret: xyz
resolve:
  retry_soft_terminal: true
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "export.csv", cfg.Ledger.InputPath)
	assert.Equal(t, 10, cfg.Ledger.CheckpointEach)
	assert.Equal(t, "abc", cfg.Discogs.Key)
	assert.Equal(t, "xyz", cfg.Discogs.Secret)
	assert.True(t, cfg.Resolve.RetrySoftTerminal)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, "library_resolved.csv", cfg.Ledger.OutputPath)
	assert.Equal(t, "yt-dlp", cfg.Download.Binary)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtmp(t)

	yaml := `
discogs:
  key: from-file
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0644))
	t.Setenv("LIBSYNC_DISCOGS_KEY", "from-env")
	t.Setenv("LIBSYNC_DOWNLOAD_ROOT", "/mnt/music")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Discogs.Key)
	assert.Equal(t, "/mnt/music", cfg.Download.Root)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	chtmp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadMalformedFile(t *testing.T) {
	chtmp(t)
	require.NoError(t, os.WriteFile("config.yaml", []byte("ledger: ["), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}

func TestLoadFilePath(t *testing.T) {
	chtmp(t)
	sub := filepath.Join(".", "config.yaml")
	require.NoError(t, os.WriteFile(sub, []byte("log:\n  level: warn\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

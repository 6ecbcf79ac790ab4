package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "levelkit.yaml")
	require.NoError(t, os.WriteFile(file, []byte("levels_dir: data\nwatch: false\nwindow_width: 800\n"), 0o644))

	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing file is skipped", func(t *testing.T) {
		cfg, err := Load(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := Load(file)
		require.NoError(t, err)
		assert.Equal(t, "data", cfg.LevelsDir)
		assert.False(t, cfg.Watch)
		assert.Equal(t, 800, cfg.WindowWidth)
		assert.Equal(t, Default().WindowHeight, cfg.WindowHeight)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("LEVELKIT_LEVELS_DIR", "env-levels")
		t.Setenv("LEVELKIT_APP_FORMAT_VERSION", "3")
		t.Setenv("LEVELKIT_PREFABS_DIR", "tuned")
		cfg, err := Load(file)
		require.NoError(t, err)
		assert.Equal(t, "tuned", cfg.PrefabsDir)
		assert.Equal(t, "env-levels", cfg.LevelsDir)
		assert.Equal(t, 3, cfg.AppFormatVersion)
		assert.Equal(t, 800, cfg.WindowWidth)
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("LEVELKIT_LOG_LEVEL", "loud")
		_, err := Load("")
		require.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("levels_dir: [unclosed\n"), 0o644))
		_, err := Load(bad)
		require.Error(t, err)
	})
}

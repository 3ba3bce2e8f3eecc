package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("MONETA_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7171, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "sqlite", cfg.Storage.Engine)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 0.35, cfg.Engine.BaseThreshold)
	assert.Equal(t, 10, cfg.Engine.DefaultTopK)
	assert.Equal(t, 0.2, cfg.Engine.DefaultMinRelevance)
	assert.Equal(t, 0.0, cfg.Engine.ScoreNormalization)
	assert.Empty(t, cfg.Security.APIToken)
	assert.False(t, cfg.Backup.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MONETA_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("MONETA_PORT", "9999")
	t.Setenv("MONETA_STORAGE_ENGINE", "postgres")
	t.Setenv("MONETA_EMBEDDING_PROVIDER", "deterministic")
	t.Setenv("MONETA_BASE_THRESHOLD", "0.5")
	t.Setenv("MONETA_BACKUP_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Engine)
	assert.Equal(t, "deterministic", cfg.Embedding.Provider)
	assert.Equal(t, 0.5, cfg.Engine.BaseThreshold)
	assert.True(t, cfg.Backup.Enabled)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moneta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
engine:
  base_threshold: 0.4
security:
  api_token: sekret
`), 0o644))

	t.Setenv("MONETA_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.4, cfg.Engine.BaseThreshold)
	assert.Equal(t, "sekret", cfg.Security.APIToken)
	// Untouched keys keep their defaults.
	assert.Equal(t, "sqlite", cfg.Storage.Engine)
}

func TestLoadConfig_EnvWinsOverYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moneta.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644))

	t.Setenv("MONETA_CONFIG", path)
	t.Setenv("MONETA_PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moneta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(": [broken"), 0o644))

	t.Setenv("MONETA_CONFIG", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	t.Setenv("MONETA_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("MONETA_PORT", "70000")

	_, err := LoadConfig()
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistent := filepath.Join(tmpDir, "missing.yaml")

	cfg, err := Load(nonExistent)
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	content := `
logging:
  level: DEBUG
  format: json
  output: stdout
shutdown_timeout: 5s
devices:
  - device_id: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	require.Len(t, cfg.Devices, 1)
	assert.Equal(t, uint64(7), cfg.Devices[0].DeviceID)
	assert.Equal(t, 4, cfg.Devices[0].PipeCount, "pipe_count default must be applied")
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	require.NoError(t, SaveConfig(cfg, path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Logging, reloaded.Logging)
	assert.Equal(t, cfg.ShutdownTimeout, reloaded.ShutdownTimeout)
}

func TestGetDefaultConfigPathUsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	assert.Equal(t, "/tmp/xdg-test/pi4go/config.yaml", GetDefaultConfigPath())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	content := `
logging:
  level: NOTALEVEL
  format: text
  output: stdout
shutdown_timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 9559, cfg.Robot.Port)
	assert.Equal(t, 100*time.Millisecond, cfg.Robot.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Robot.HeartbeatInterval)
	assert.Equal(t, "genesis", cfg.Dialogue.Personality)
	assert.True(t, cfg.Dialogue.Styling)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gateway.Model)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.yaml")
	content := `
robot:
  host: 192.168.1.42
  port: 9559
dialogue:
  personality: aria
  styling: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.42", cfg.Robot.Host)
	assert.Equal(t, "aria", cfg.Dialogue.Personality)
	assert.False(t, cfg.Dialogue.Styling)
	// Untouched fields keep defaults.
	assert.Equal(t, 100*time.Millisecond, cfg.Robot.PollInterval)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("robot host and port", func(t *testing.T) {
		t.Setenv("ROBOT_HOST", "pepper.local")
		t.Setenv("ROBOT_PORT", "9560")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, "pepper.local", cfg.Robot.Host)
		assert.Equal(t, 9560, cfg.Robot.Port)
	})

	t.Run("invalid port ignored", func(t *testing.T) {
		t.Setenv("ROBOT_PORT", "not-a-port")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, 9559, cfg.Robot.Port)
	})

	t.Run("styling toggle", func(t *testing.T) {
		t.Setenv("GENESIS_STYLING", "false")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.False(t, cfg.Dialogue.Styling)
	})

	t.Run("gateway key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, "test-key", cfg.Gateway.APIKey)
	})
}

func TestValidate(t *testing.T) {
	t.Run("missing host fails without mock", func(t *testing.T) {
		cfg := Default()
		cfg.Robot.Host = ""
		cfg.Robot.Mock = false
		assert.Error(t, cfg.Validate())
	})

	t.Run("mock mode allows missing host", func(t *testing.T) {
		cfg := Default()
		cfg.Robot.Mock = true
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := Default()
		cfg.Robot.Host = "10.0.0.1"
		cfg.Robot.Port = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.Data.Dir = "/var/lib/genesis"

	assert.Equal(t, "/var/lib/genesis/genesis.db", cfg.DatabasePath())
	assert.Equal(t, "/var/lib/genesis/memory.json", cfg.MemoryPath())
	assert.Equal(t, "/var/lib/genesis/interactions.log", cfg.InteractionsPath())
}

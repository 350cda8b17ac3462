package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "./services.yaml", cfg.Manifest.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, "local", cfg.Proxy.Mode)
	assert.Equal(t, "nginx -s reload", cfg.Proxy.ReloadCommand)

	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 5, cfg.Probe.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Probe.Backoff)
	assert.Equal(t, "127.0.0.1", cfg.Probe.SlotHost)

	assert.Empty(t, cfg.Notify.WebhookURL)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
  shutdown_timeout: 15s

manifest:
  path: "/etc/switchyard/services.yaml"

proxy:
  mode: ssh
  ssh_host: proxy.internal
  ssh_user: deploy
  ssh_key_path: /etc/switchyard/id_ed25519
  reload_command: "systemctl reload nginx"

probe:
  max_attempts: 10
  backoff: 2s

notify:
  webhook_url: "https://hooks.example.com/T000/B000"
  channel: "#oncall"

log:
  level: "debug"
  format: "text"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/etc/switchyard/services.yaml", cfg.Manifest.Path)
	assert.Equal(t, "ssh", cfg.Proxy.Mode)
	assert.Equal(t, "proxy.internal", cfg.Proxy.SSHHost)
	assert.Equal(t, 22, cfg.Proxy.SSHPort)
	assert.Equal(t, "deploy", cfg.Proxy.SSHUser)
	assert.Equal(t, "systemctl reload nginx", cfg.Proxy.ReloadCommand)
	assert.Equal(t, 10, cfg.Probe.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Probe.Backoff)
	assert.Equal(t, "https://hooks.example.com/T000/B000", cfg.Notify.WebhookURL)
	assert.Equal(t, "#oncall", cfg.Notify.Channel)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("SWITCHYARD_SERVER_HOST", "192.168.1.1")
	t.Setenv("SWITCHYARD_SERVER_PORT", "3000")
	t.Setenv("SWITCHYARD_MANIFEST_PATH", "/opt/switchyard/services.yaml")
	t.Setenv("SWITCHYARD_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/opt/switchyard/services.yaml", cfg.Manifest.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err) // Should not error, just use defaults

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestLoadConfig_SSHModeRequiresHost(t *testing.T) {
	clearEnv(t)

	t.Setenv("SWITCHYARD_PROXY_MODE", "ssh")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy.ssh_host")
}

func TestLoadConfig_UnknownProxyMode(t *testing.T) {
	clearEnv(t)

	t.Setenv("SWITCHYARD_PROXY_MODE", "teleport")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_JSONFormat(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}

	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

func TestSetupLogger_TextFormat(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}

	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "invalid",
			Format: "json",
		},
	}

	// Should fall back to info level, not panic
	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

// =============================================================================
// Config Validation Tests
// =============================================================================

func TestConfig_Address(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
	}

	assert.Equal(t, "localhost:8080", cfg.Server.Address())
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"SWITCHYARD_SERVER_HOST",
		"SWITCHYARD_SERVER_PORT",
		"SWITCHYARD_MANIFEST_PATH",
		"SWITCHYARD_PROXY_MODE",
		"SWITCHYARD_LOG_LEVEL",
		"SWITCHYARD_LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Log      LogConfig      `mapstructure:"log"`
	Manifest ManifestConfig `mapstructure:"manifest"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ManifestConfig locates the services manifest file.
type ManifestConfig struct {
	Path string `mapstructure:"path"`
}

// ProxyConfig holds reverse proxy access configuration.
type ProxyConfig struct {
	// Mode is how the proxy host is reached: "local" runs commands on this
	// machine, "ssh" runs them on a remote host.
	Mode string `mapstructure:"mode"`

	// ReloadCommand triggers the proxy's configuration reload.
	ReloadCommand string `mapstructure:"reload_command"`

	// SSH settings, used when mode is "ssh".
	SSHHost        string        `mapstructure:"ssh_host"`
	SSHPort        int           `mapstructure:"ssh_port"`
	SSHUser        string        `mapstructure:"ssh_user"`
	SSHKeyPath     string        `mapstructure:"ssh_key_path"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// ProbeConfig holds health gate configuration.
type ProbeConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`

	// SlotHost is the host slot ports are probed on.
	SlotHost string `mapstructure:"slot_host"`
}

// NotifyConfig holds operator webhook configuration.
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("docker.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("manifest.path", "./services.yaml")

	// Proxy defaults: local nginx
	v.SetDefault("proxy.mode", "local")
	v.SetDefault("proxy.reload_command", "nginx -s reload")
	v.SetDefault("proxy.ssh_port", 22)
	v.SetDefault("proxy.command_timeout", "30s")

	// Probe defaults
	v.SetDefault("probe.timeout", "5s")
	v.SetDefault("probe.max_attempts", 5)
	v.SetDefault("probe.backoff", "1s")
	v.SetDefault("probe.slot_host", "127.0.0.1")

	// Notifications disabled unless a webhook URL is set
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.channel", "#deployments")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("SWITCHYARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Proxy.Mode {
	case "local":
	case "ssh":
		if c.Proxy.SSHHost == "" {
			return fmt.Errorf("proxy.ssh_host is required when proxy.mode is ssh")
		}
		if c.Proxy.SSHUser == "" {
			return fmt.Errorf("proxy.ssh_user is required when proxy.mode is ssh")
		}
		if c.Proxy.SSHKeyPath == "" {
			return fmt.Errorf("proxy.ssh_key_path is required when proxy.mode is ssh")
		}
	default:
		return fmt.Errorf("proxy.mode must be %q or %q, got %q", "local", "ssh", c.Proxy.Mode)
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

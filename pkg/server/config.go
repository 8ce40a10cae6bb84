package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`  // TCP bind address (e.g. ":8080")
	MetricsAddr string `yaml:"metrics_addr"` // HTTP bind address for /metrics endpoint (empty = disabled)
	DBPath      string `yaml:"db_path"`      // SQLite database path
	KeyFile     string `yaml:"key_file"`     // database key file path (empty = ephemeral key)

	MaxConnections int `yaml:"max_connections"` // concurrent client cap
	PageSize       int `yaml:"page_size"`       // messages returned per history request

	// Location sharing policy, in minutes.
	DefaultShareMinutes int `yaml:"default_share_minutes"`
	MinShareMinutes     int `yaml:"min_share_minutes"`
	MaxShareMinutes     int `yaml:"max_share_minutes"`

	MaxLoginAttempts int `yaml:"max_login_attempts"` // failed logins before lockout (0 = disabled)

	// First-run administrator account.
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
	AdminEmail    string `yaml:"admin_email"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:          ":8080",
		MetricsAddr:         ":8081",
		DBPath:              "hubbergram.db",
		MaxConnections:      100,
		PageSize:            50,
		DefaultShareMinutes: 60,
		MinShareMinutes:     15,
		MaxShareMinutes:     480,
		MaxLoginAttempts:    5,
		AdminUsername:       "admin",
		AdminPassword:       "admin123",
		AdminEmail:          "admin@hubbergram.local",
	}
}

// LoadConfig reads a YAML config file over the defaults. Fields absent
// from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI flag
	if err != nil {
		return cfg, fmt.Errorf("server: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("server: parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for values the server cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("server: config: listen_addr must not be empty")
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("server: config: max_connections must be positive, got %d", c.MaxConnections)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("server: config: page_size must be positive, got %d", c.PageSize)
	}
	if c.MinShareMinutes <= 0 || c.MaxShareMinutes < c.MinShareMinutes {
		return fmt.Errorf("server: config: share minutes window [%d, %d] is invalid",
			c.MinShareMinutes, c.MaxShareMinutes)
	}
	if c.DefaultShareMinutes < c.MinShareMinutes || c.DefaultShareMinutes > c.MaxShareMinutes {
		return fmt.Errorf("server: config: default_share_minutes %d outside [%d, %d]",
			c.DefaultShareMinutes, c.MinShareMinutes, c.MaxShareMinutes)
	}
	return nil
}

// ClampShareMinutes folds a requested sharing duration into the policy
// window. Zero or negative requests get the default.
func (c Config) ClampShareMinutes(minutes int) int {
	if minutes <= 0 {
		return c.DefaultShareMinutes
	}
	if minutes < c.MinShareMinutes {
		return c.MinShareMinutes
	}
	if minutes > c.MaxShareMinutes {
		return c.MaxShareMinutes
	}
	return minutes
}

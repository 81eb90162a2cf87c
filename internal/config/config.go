// Package config loads server settings from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds everything the server needs to start.
type Config struct {
	// Port the HTTP server listens on.
	Port int

	// ListenHost is the bind address.
	ListenHost string

	// DatabaseURL is the SQLite file path.
	DatabaseURL string

	// AuthToken is the shared bearer token. When empty a random token is
	// generated at startup and logged once.
	AuthToken string

	// LogFile, when set, sends logs to a rotating file instead of stderr.
	LogFile string
}

// Load reads configuration from the environment. Every setting has a
// default except AUTH_TOKEN, which the caller handles explicitly.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8000)
	v.SetDefault("listen_host", "127.0.0.1")
	v.SetDefault("database_url", "pragma.db")
	v.SetDefault("auth_token", "")
	v.SetDefault("log_file", "")

	for _, key := range []string{"port", "listen_host", "database_url", "auth_token", "log_file"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		Port:        v.GetInt("port"),
		ListenHost:  v.GetString("listen_host"),
		DatabaseURL: v.GetString("database_url"),
		AuthToken:   v.GetString("auth_token"),
		LogFile:     v.GetString("log_file"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}

	return cfg, nil
}

// Addr returns the host:port bind address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.Port)
}

// RandomToken generates a 32-character hex token for installs that don't
// set AUTH_TOKEN themselves.
func RandomToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

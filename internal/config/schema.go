// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for gatekeep.
package config

import (
	"fmt"
	"log/slog"

	"github.com/gatekeepbot/gatekeep/internal/gateway"
	"github.com/gatekeepbot/gatekeep/internal/moderation"
	"github.com/gatekeepbot/gatekeep/modules/telegram"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Log        LogConfig         `yaml:"log"`
	Store      StoreConfig       `yaml:"store"`
	Gateway    gateway.Config    `yaml:"gateway"`
	Telegram   telegram.Config   `yaml:"telegram"`
	Moderation moderation.Config `yaml:"moderation"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig locates the job database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Defaults fills unset fields across all sections.
func (c *Config) Defaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/jobs.db"
	}
	c.Gateway.Defaults()
	c.Telegram.Defaults()
	c.Moderation.Defaults()
}

// SlogLevel converts the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log level %q", l.Level)
	}
}

package config

import (
	"errors"
	"fmt"
)

// Validate checks the structural validity of a Config after defaults
// have been applied. All problems are collected and reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if _, err := cfg.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log format must be text or json, got %q", cfg.Log.Format))
	}

	if cfg.Store.Path == "" {
		errs = append(errs, errors.New("config: store path is required"))
	}

	if err := cfg.Gateway.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Telegram.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Moderation.RemoveUserAfter <= 0 {
		errs = append(errs, errors.New("config: moderation remove_user_after must be positive"))
	}

	return errors.Join(errs...)
}

package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gatekeepbot/gatekeep/internal/config"
	"github.com/gatekeepbot/gatekeep/internal/moderation"
	"github.com/gatekeepbot/gatekeep/modules/telegram"
)

func telegramConfig() telegram.Config {
	return telegram.Config{Token: "12345:token_hash"}
}

func TestResolveConfigPathPrefersXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "gatekeep", "gatekeep.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("version: \"1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("ResolveConfigPath() error: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
}

func TestResolveConfigPathFallsBackToCwd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "empty"))
	t.Chdir(dir)

	if err := os.WriteFile("gatekeep.yaml", []byte("version: \"1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("ResolveConfigPath() error: %v", err)
	}
	if got != "gatekeep.yaml" {
		t.Errorf("path = %q, want gatekeep.yaml", got)
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger(config.LogConfig{Level: "loud", Format: "text"}); err == nil {
		t.Error("expected error for unknown level")
	}

	logger, err := NewLogger(config.LogConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	if !logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug level not enabled")
	}
}

func TestWireBuildsAndStops(t *testing.T) {
	cfg := &config.Config{
		Version:  "1",
		Store:    config.StoreConfig{Path: filepath.Join(t.TempDir(), "jobs.db")},
		Telegram: telegramConfig(),
		Moderation: moderation.Config{
			RemoveUserAfter: time.Hour,
		},
	}
	cfg.Defaults()

	logger, err := NewLogger(cfg.Log)
	if err != nil {
		t.Fatal(err)
	}

	app, err := wire(cfg, logger)
	if err != nil {
		t.Fatalf("wire() error: %v", err)
	}

	// Components were built but never started; stop must still be safe.
	app.stop()
}

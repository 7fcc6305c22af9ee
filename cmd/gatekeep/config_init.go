package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gatekeepbot/gatekeep/internal/config"
)

// configInitCmd runs an interactive wizard and writes a starter config.
func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a configuration file interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := "gatekeep.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", path)
			}

			cfg, err := runWizard()
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			fmt.Printf("Wrote %s — review it, then run: gatekeep start -c %s\n", path, path)
			return nil
		},
	}
	return cmd
}

// runWizard collects the minimum viable configuration.
func runWizard() (*config.Config, error) {
	var (
		token  string
		mode   string
		admins string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				Description("From @BotFather, looks like 123456:ABC-DEF…").
				Value(&token).
				Validate(func(s string) error {
					if !strings.Contains(s, ":") {
						return fmt.Errorf("expected <bot_id>:<hash>")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Update delivery").
				Options(
					huh.NewOption("Long polling (no public endpoint needed)", "polling"),
					huh.NewOption("Webhook (requires HTTPS endpoint)", "webhook"),
				).
				Value(&mode),
			huh.NewInput().
				Title("Bot administrators").
				Description("Comma-separated Telegram user IDs allowed to add the bot to groups").
				Value(&admins),
		),
	)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard aborted: %w", err)
	}

	adminIDs, err := parseAdminIDs(admins)
	if err != nil {
		return nil, err
	}

	cfg := &config.Config{Version: "1"}
	cfg.Defaults()
	cfg.Telegram.Token = token
	cfg.Telegram.Mode = mode
	cfg.Telegram.Administrators = adminIDs
	return cfg, nil
}

func parseAdminIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

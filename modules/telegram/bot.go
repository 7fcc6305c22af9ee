package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gatekeepbot/gatekeep/internal/gateway"
)

// Bot ties the Telegram transport together: it authenticates the token,
// then receives updates either by long polling or through the gateway's
// webhook dispatcher and feeds them to the router.
type Bot struct {
	config  Config
	client  *Client
	router  *Router
	logger  *slog.Logger
	botUser *User

	// Set during Start() depending on mode.
	poller   *Poller
	receiver *WebhookReceiver
}

// NewBot creates a bot over an already constructed client and router.
func NewBot(config Config, client *Client, router *Router, logger *slog.Logger) *Bot {
	return &Bot{
		config: config,
		client: client,
		router: router,
		logger: logger,
	}
}

// Start validates the bot token, then starts either polling or webhook
// mode. In webhook mode the receiver is registered with the dispatcher
// before the webhook URL is announced to Telegram.
func (b *Bot) Start(ctx context.Context, dispatcher *gateway.WebhookDispatcher) error {
	user, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	b.botUser = user
	b.logger.Info("telegram bot authenticated",
		"id", user.ID,
		"username", user.Username,
	)

	switch b.config.Mode {
	case "polling":
		b.poller = NewPoller(b.client, b.router, b.config, b.logger)
		b.poller.Start()
		b.logger.Info("telegram polling started",
			"timeout", b.config.PollingTimeout,
		)

	case "webhook":
		if b.config.WebhookSecret == "" {
			b.logger.Warn("telegram webhook running without secret_token — " +
				"consider setting webhook_secret for production deployments")
		}
		b.receiver = NewWebhookReceiver(b.router, b.logger, b.config.WebhookSecret)
		dispatcher.Register("telegram", b.receiver)

		if err := b.client.SetWebhook(ctx, SetWebhookRequest{
			URL:            b.config.WebhookURL,
			SecretToken:    b.config.WebhookSecret,
			AllowedUpdates: b.config.AllowedUpdates,
		}); err != nil {
			return fmt.Errorf("telegram: setWebhook failed: %w", err)
		}
		b.logger.Info("telegram webhook configured",
			"url", b.config.WebhookURL,
		)
	}

	return nil
}

// Stop shuts down the active transport.
func (b *Bot) Stop(ctx context.Context) error {
	b.logger.Info("telegram transport stopping")

	switch b.config.Mode {
	case "polling":
		if b.poller != nil {
			b.poller.Stop()
		}
	case "webhook":
		if err := b.client.DeleteWebhook(ctx); err != nil {
			b.logger.Warn("failed to delete webhook on shutdown", "error", err)
		}
	}

	return nil
}

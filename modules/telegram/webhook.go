package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatekeepbot/gatekeep/internal/telemetry"
)

// WebhookReceiver processes incoming Telegram webhook payloads.
// It implements gateway.WebhookHandler.
type WebhookReceiver struct {
	router *Router
	logger *slog.Logger
	secret string
}

// NewWebhookReceiver creates a new WebhookReceiver.
func NewWebhookReceiver(router *Router, logger *slog.Logger, secret string) *WebhookReceiver {
	return &WebhookReceiver{
		router: router,
		logger: logger,
		secret: secret,
	}
}

// HandleWebhook processes a validated webhook payload from the gateway
// dispatcher. It validates the Telegram-specific secret token header,
// parses the update, and routes it to the workflow.
func (w *WebhookReceiver) HandleWebhook(ctx context.Context, _ string, body []byte, headers http.Header) error {
	if w.secret != "" {
		token := headers.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(w.secret), []byte(token)) != 1 {
			telemetry.WebhookErrors.Inc()
			return errors.New("telegram: invalid webhook secret token")
		}
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		telemetry.WebhookErrors.Inc()
		return errors.New("telegram: invalid update JSON: " + err.Error())
	}

	telemetry.WebhookUpdates.Inc()
	w.router.Dispatch(ctx, &update)
	return nil
}

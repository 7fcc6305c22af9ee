package telegram

import (
	"context"
	"net/http"
	"testing"
)

func TestWebhookSecretValidation(t *testing.T) {
	_, router := newTestRouter(t, nil)
	receiver := NewWebhookReceiver(router, discardLogger(), "s3cret")

	body := []byte(`{"update_id":1}`)

	headers := http.Header{}
	headers.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	if err := receiver.HandleWebhook(context.Background(), "telegram", body, headers); err == nil {
		t.Error("expected error for wrong secret token")
	}

	headers.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
	if err := receiver.HandleWebhook(context.Background(), "telegram", body, headers); err != nil {
		t.Errorf("unexpected error with valid secret: %v", err)
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	_, router := newTestRouter(t, nil)
	receiver := NewWebhookReceiver(router, discardLogger(), "")

	if err := receiver.HandleWebhook(context.Background(), "telegram", []byte("{not json"), http.Header{}); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	rec, router := newTestRouter(t, nil)
	receiver := NewWebhookReceiver(router, discardLogger(), "")

	body := []byte(`{
		"update_id": 10,
		"chat_member": {
			"chat": {"id": -100},
			"from": {"id": 777},
			"date": 1756700000,
			"old_chat_member": {"status": "left", "user": {"id": 42}},
			"new_chat_member": {"status": "member", "user": {"id": 42, "first_name": "New"}}
		}
	}`)

	if err := receiver.HandleWebhook(context.Background(), "telegram", body, http.Header{}); err != nil {
		t.Fatalf("HandleWebhook() error: %v", err)
	}

	if rec.count("sendMessage") != 1 {
		t.Errorf("sendMessage calls = %d, want 1", rec.count("sendMessage"))
	}
}

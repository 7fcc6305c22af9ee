package moderation

import (
	"encoding/json"
	"fmt"
)

// kickPayload is the job payload of a pending kick: everything the body
// needs, passed by value since the row is deleted before the body runs.
type kickPayload struct {
	ChatID    int64
	UserID    int64
	MessageID int64
}

// encodePayload builds the job payload mapping.
func encodePayload(p kickPayload) map[string]any {
	return map[string]any{
		"chat_id":    p.ChatID,
		"user_id":    p.UserID,
		"message_id": p.MessageID,
	}
}

// decodePayload parses a job payload. Values arrive as json.Number after
// the store round trip but may be native integers when a job fires in the
// scheduling process.
func decodePayload(payload map[string]any) (kickPayload, error) {
	var p kickPayload
	var err error

	if p.ChatID, err = asInt64(payload["chat_id"]); err != nil {
		return p, fmt.Errorf("moderation: payload chat_id: %w", err)
	}
	if p.UserID, err = asInt64(payload["user_id"]); err != nil {
		return p, fmt.Errorf("moderation: payload user_id: %w", err)
	}
	if p.MessageID, err = asInt64(payload["message_id"]); err != nil {
		return p, fmt.Errorf("moderation: payload message_id: %w", err)
	}
	return p, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

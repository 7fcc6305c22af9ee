package telegram

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

// apiRecorder is a fake Bot API server that records every method call
// with its decoded request body.
type apiRecorder struct {
	mu            sync.Mutex
	calls         map[string][]map[string]any
	nextMessageID int64

	// member is returned from getChatMember.
	member ChatMember

	// updates is drained by the next getUpdates call.
	updates []Update
}

// newAPIServer starts a fake Bot API and returns a client pointed at it.
func newAPIServer(t *testing.T) (*apiRecorder, *Client) {
	t.Helper()

	rec := &apiRecorder{
		calls:  make(map[string][]map[string]any),
		member: ChatMember{Status: StatusMember},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := path.Base(r.URL.Path)

		var body map[string]any
		if data, err := io.ReadAll(r.Body); err == nil && len(data) > 0 {
			_ = json.Unmarshal(data, &body)
		}

		rec.mu.Lock()
		rec.calls[method] = append(rec.calls[method], body)
		member := rec.member
		rec.mu.Unlock()

		switch method {
		case "getMe":
			writeJSON(t, w, APIResponse[User]{OK: true, Result: User{
				ID: 99, IsBot: true, FirstName: "Gatekeep", Username: "gatekeep_bot",
			}})
		case "sendMessage":
			rec.mu.Lock()
			rec.nextMessageID++
			id := rec.nextMessageID
			rec.mu.Unlock()
			writeJSON(t, w, APIResponse[Message]{OK: true, Result: Message{MessageID: id}})
		case "editMessageText":
			writeJSON(t, w, APIResponse[Message]{OK: true, Result: Message{}})
		case "getUpdates":
			rec.mu.Lock()
			batch := rec.updates
			rec.updates = nil
			rec.mu.Unlock()
			writeJSON(t, w, APIResponse[[]Update]{OK: true, Result: batch})
		case "getChatMember":
			writeJSON(t, w, APIResponse[ChatMember]{OK: true, Result: member})
		case "getChatAdministrators":
			writeJSON(t, w, APIResponse[[]ChatMember]{OK: true, Result: nil})
		default:
			writeJSON(t, w, APIResponse[bool]{OK: true, Result: true})
		}
	}))
	t.Cleanup(srv.Close)

	return rec, NewClient("TOKEN", srv.URL)
}

// count returns how many times a method was called.
func (r *apiRecorder) count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls[method])
}

// last returns the body of the most recent call to a method, or nil.
func (r *apiRecorder) last(method string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := r.calls[method]
	if len(calls) == 0 {
		return nil
	}
	return calls[len(calls)-1]
}

// queueUpdates arranges for the next getUpdates call to return the batch.
func (r *apiRecorder) queueUpdates(updates ...Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, updates...)
}

// setMember configures the getChatMember response.
func (r *apiRecorder) setMember(m ChatMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.member = m
}

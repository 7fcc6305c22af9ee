package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "jobs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func testJob(id string) Job {
	runAt := time.Now().Add(5 * time.Minute).UTC()
	return Job{
		ID:      id,
		Kind:    "kick",
		Trigger: At(runAt),
		Payload: map[string]any{
			"chat_id":    int64(-100123),
			"user_id":    int64(42),
			"message_id": int64(7),
		},
		NextRun: runAt,
	}
}

func TestPutAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	job := testJob("kick:-100123:42")
	if err := s.Put(ctx, job, ModeConflict); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Kind != "kick" {
		t.Errorf("kind = %q, want %q", got.Kind, "kick")
	}
	if got.Trigger.Kind != TriggerAt {
		t.Errorf("trigger kind = %q, want %q", got.Trigger.Kind, TriggerAt)
	}
	if !got.NextRun.Equal(job.NextRun) {
		t.Errorf("next_run = %v, want %v", got.NextRun, job.NextRun)
	}

	// 64-bit ids must survive the JSON round trip exactly.
	chatID, err := got.Payload["chat_id"].(json.Number).Int64()
	if err != nil {
		t.Fatalf("chat_id: %v", err)
	}
	if chatID != -100123 {
		t.Errorf("chat_id = %d, want -100123", chatID)
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), "kick:1:2")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPutConflictKeepsOriginal(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first := testJob("kick:1:2")
	if err := s.Put(ctx, first, ModeConflict); err != nil {
		t.Fatalf("first put: %v", err)
	}

	second := first
	second.NextRun = first.NextRun.Add(time.Hour)
	err := s.Put(ctx, second, ModeConflict)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second put err = %v, want ErrConflict", err)
	}

	got, err := s.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.NextRun.Equal(first.NextRun) {
		t.Errorf("next_run was clobbered: got %v, want %v", got.NextRun, first.NextRun)
	}
}

func TestPutReplace(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	job := testJob("kick:1:2")
	if err := s.Put(ctx, job, ModeConflict); err != nil {
		t.Fatalf("put: %v", err)
	}

	job.NextRun = job.NextRun.Add(time.Hour)
	if err := s.Put(ctx, job, ModeReplace); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.NextRun.Equal(job.NextRun) {
		t.Errorf("next_run = %v, want %v", got.NextRun, job.NextRun)
	}
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	job := testJob("kick:1:2")
	if err := s.Put(ctx, job, ModeConflict); err != nil {
		t.Fatalf("put: %v", err)
	}

	existed, err := s.Delete(ctx, job.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !existed {
		t.Error("delete reported no row for an existing job")
	}

	existed, err = s.Delete(ctx, job.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if existed {
		t.Error("second delete reported a row")
	}

	if _, err := s.Get(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
}

func TestListOrdersByNextRun(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"kick:1:3", "kick:1:1", "kick:1:2"} {
		job := testJob(id)
		job.NextRun = base.Add(time.Duration(3-i) * time.Minute)
		if err := s.Put(ctx, job, ModeConflict); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	jobs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].NextRun.Before(jobs[i-1].NextRun) {
			t.Errorf("jobs out of order: %v before %v", jobs[i].NextRun, jobs[i-1].NextRun)
		}
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	job := testJob("kick:1:2")
	if err := s.Put(ctx, job, ModeConflict); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()

	got, err := s.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.ID != job.ID || got.Kind != job.Kind {
		t.Errorf("got %+v, want id=%s kind=%s", got, job.ID, job.Kind)
	}
}

func TestTriggerRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		trigger Trigger
	}{
		{"at", At(time.Now().Add(time.Minute))},
		{"every", Every(90 * time.Second)},
		{"cron", Cron("*/5 * * * *")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := testJob("job:" + tc.name)
			job.Trigger = tc.trigger
			if err := s.Put(ctx, job, ModeConflict); err != nil {
				t.Fatalf("put: %v", err)
			}

			got, err := s.Get(ctx, job.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}

			if got.Trigger.Kind != tc.trigger.Kind {
				t.Errorf("kind = %q, want %q", got.Trigger.Kind, tc.trigger.Kind)
			}
			if !got.Trigger.At.Equal(tc.trigger.At) {
				t.Errorf("at = %v, want %v", got.Trigger.At, tc.trigger.At)
			}
			if got.Trigger.Every != tc.trigger.Every {
				t.Errorf("every = %v, want %v", got.Trigger.Every, tc.trigger.Every)
			}
			if got.Trigger.Cron != tc.trigger.Cron {
				t.Errorf("cron = %q, want %q", got.Trigger.Cron, tc.trigger.Cron)
			}
		})
	}
}

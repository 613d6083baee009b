package outbox_test

import (
	"errors"
	"testing"
	"time"

	"coachdesk/internal/domain/outbox"
)

var t0 = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func TestNewEmailEntry(t *testing.T) {
	e, err := outbox.NewEmailEntry("e1", outbox.ActionWelcomeEmail, outbox.EmailPayload{
		To: "ana@example.com", Subject: "Welcome", HTML: "<p>hi</p>", RefID: "rel-1",
	}, t0)
	if err != nil {
		t.Fatalf("NewEmailEntry() = %v", err)
	}
	if e.Status != outbox.StatusPending || e.MaxAttempts != outbox.DefaultMaxAttempts {
		t.Errorf("NewEmailEntry() status %q max %d", e.Status, e.MaxAttempts)
	}
	p, err := outbox.DecodeEmail(e.Payload)
	if err != nil {
		t.Fatalf("DecodeEmail() = %v", err)
	}
	if p.To != "ana@example.com" || p.RefID != "rel-1" {
		t.Errorf("DecodeEmail() = %+v", p)
	}

	if _, err := outbox.NewEmailEntry("e2", outbox.ActionWelcomeEmail, outbox.EmailPayload{}, t0); !errors.Is(err, outbox.ErrEmptyPayload) {
		t.Errorf("NewEmailEntry() without recipient = %v", err)
	}
}

// TestEntry_Lifecycle tests attempts running out and the entry becoming failed.
func TestEntry_Lifecycle(t *testing.T) {
	e := outbox.Entry{ActionType: outbox.ActionWelcomeEmail, Payload: "{}", Status: outbox.StatusPending, MaxAttempts: 2, CreatedAt: t0}

	e.MarkAttempt(t0)
	e.MarkFailed(errors.New("smtp down"))
	if e.Status != outbox.StatusRetrying || !e.CanRetry() || e.IsTerminal() {
		t.Fatalf("after first failure: status %q canRetry %v", e.Status, e.CanRetry())
	}

	e.MarkAttempt(t0.Add(time.Minute))
	e.MarkFailed(errors.New("smtp down"))
	if e.Status != outbox.StatusFailed || e.CanRetry() || !e.IsTerminal() {
		t.Fatalf("after last failure: status %q canRetry %v terminal %v", e.Status, e.CanRetry(), e.IsTerminal())
	}

	if err := e.Reset(); err != nil {
		t.Fatalf("Reset() = %v", err)
	}
	if !e.CanRetry() || e.Attempts != 0 {
		t.Errorf("Reset() left attempts %d", e.Attempts)
	}

	e.MarkAttempt(t0)
	e.MarkSuccess("msg-1")
	if e.Status != outbox.StatusDone || e.ExternalID != "msg-1" || e.ErrorMessage != "" {
		t.Errorf("MarkSuccess() left %+v", e)
	}
	if err := e.MarkAbandoned(); !errors.Is(err, outbox.ErrTerminal) {
		t.Errorf("MarkAbandoned() on done = %v", err)
	}
	if err := e.Reset(); !errors.Is(err, outbox.ErrTerminal) {
		t.Errorf("Reset() on done = %v", err)
	}
}

func TestEntry_NextRetryDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 30 * time.Second},
		{1, time.Minute},
		{3, 4 * time.Minute},
		{10, time.Hour},
		{64, time.Hour},
	}
	for _, tt := range tests {
		e := outbox.Entry{Attempts: tt.attempts}
		if got := e.NextRetryDelay(30*time.Second, time.Hour); got != tt.want {
			t.Errorf("NextRetryDelay(attempts=%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestEntry_IsDue(t *testing.T) {
	e := outbox.Entry{}
	if !e.IsDue(t0, time.Minute, time.Hour) {
		t.Error("never-attempted entry should be due")
	}
	e.MarkAttempt(t0) // attempts=1 -> 2 minute delay
	if e.IsDue(t0.Add(time.Minute), time.Minute, time.Hour) {
		t.Error("entry due before its backoff elapsed")
	}
	if !e.IsDue(t0.Add(2*time.Minute), time.Minute, time.Hour) {
		t.Error("entry not due once its backoff elapsed")
	}
}

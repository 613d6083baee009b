package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status constants for outbox entry lifecycle.
// pending -> retrying -> done | failed; failed and retrying entries may be abandoned by an admin.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// Action types. Each has one executor registered with the outbox processor.
const (
	ActionInvitationEmail    = "invitation_email"
	ActionWelcomeEmail       = "welcome_email"
	ActionTrainerNotifyEmail = "trainer_notify_email"
)

// DefaultMaxAttempts applies when an entry is created without one.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrTerminal        = errors.New("entry is in a terminal state")
	ErrNotFound        = errors.New("outbox entry not found")
)

// Entry is one side effect that must reach an external system at least once.
type Entry struct {
	ID              string
	ActionType      string
	Payload         string // JSON, decoded by the executor for ActionType
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string // provider message ID once delivered
	ErrorMessage    string
}

// EmailPayload is the JSON payload of every email action.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	ReplyTo string `json:"reply_to,omitempty"`
	// RefID ties the email to the invitation or relationship that caused it.
	RefID string `json:"ref_id,omitempty"`
}

// NewEmailEntry builds a pending entry carrying p.
// PRE: actionType is one of the email actions; p.To is set
// POST: Returns a valid pending Entry
func NewEmailEntry(id, actionType string, p EmailPayload, now time.Time) (Entry, error) {
	if p.To == "" {
		return Entry{}, fmt.Errorf("%w: recipient is required", ErrEmptyPayload)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Entry{}, fmt.Errorf("encode email payload: %w", err)
	}
	e := Entry{
		ID:          id,
		ActionType:  actionType,
		Payload:     string(raw),
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
	}
	return e, e.Validate()
}

// DecodeEmail parses an email payload.
func DecodeEmail(payload string) (EmailPayload, error) {
	var p EmailPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return EmailPayload{}, fmt.Errorf("decode email payload: %w", err)
	}
	if p.To == "" {
		return EmailPayload{}, fmt.Errorf("%w: recipient is required", ErrEmptyPayload)
	}
	return p, nil
}

// Validate checks that the Entry has valid data and fills MaxAttempts when unset.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// CanRetry returns true while the entry is undelivered and has attempts left.
func (e *Entry) CanRetry() bool {
	switch e.Status {
	case StatusPending, StatusRetrying, StatusFailed:
		return e.Attempts < e.MaxAttempts
	}
	return false
}

// IsTerminal returns true for done and abandoned entries, and for failed entries out of attempts.
func (e *Entry) IsTerminal() bool {
	switch e.Status {
	case StatusDone, StatusAbandoned:
		return true
	case StatusFailed:
		return e.Attempts >= e.MaxAttempts
	}
	return false
}

// IsDue reports whether the backoff window after the last attempt has elapsed at now.
// INVARIANT: Entry fields are not mutated
func (e *Entry) IsDue(now time.Time, baseDelay, maxDelay time.Duration) bool {
	if e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay)))
}

// MarkAttempt records a delivery attempt.
// POST: Attempts incremented, LastAttemptedAt is now, status is retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry as delivered.
// POST: Status is done, ExternalID recorded, ErrorMessage cleared
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records a failed attempt. The entry becomes failed once attempts run out.
// POST: ErrorMessage set; Status is failed when Attempts >= MaxAttempts
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// Reset grants a failed entry a fresh set of attempts for a manual retry.
// PRE: Status is not done or abandoned
// POST: Attempts is 0, Status is pending
func (e *Entry) Reset() error {
	if e.Status == StatusDone || e.Status == StatusAbandoned {
		return ErrTerminal
	}
	e.Attempts = 0
	e.LastAttemptedAt = time.Time{}
	e.Status = StatusPending
	return nil
}

// MarkAbandoned marks the entry as given up by an admin.
// PRE: Status is not done
// POST: Status is abandoned
func (e *Entry) MarkAbandoned() error {
	if e.Status == StatusDone {
		return ErrTerminal
	}
	e.Status = StatusAbandoned
	return nil
}

// NextRetryDelay is baseDelay * 2^Attempts, capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}

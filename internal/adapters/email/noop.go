package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NoopSender logs sends without delivering them. Used when no provider key is configured
// outside production.
type NoopSender struct{}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the email but does not deliver it.
// PRE: req is a valid SendRequest
// POST: Returns a noop result without actual delivery
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	slog.Info("noop_email_send", "to", req.To, "subject", req.Subject)
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", time.Now().UnixNano()),
		SentAt:    time.Now(),
	}, nil
}

// MemorySender keeps every request in memory. Failures can be injected with FailWith.
type MemorySender struct {
	mu   sync.Mutex
	sent []SendRequest
	err  error
}

// NewMemorySender creates an empty MemorySender.
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

// FailWith makes subsequent sends return err; nil restores delivery.
func (s *MemorySender) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Send records req unless a failure is injected.
func (s *MemorySender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return SendResult{}, s.err
	}
	if len(req.To) == 0 {
		return SendResult{}, ErrNoRecipient
	}
	s.sent = append(s.sent, req)
	return SendResult{MessageID: fmt.Sprintf("mem-%d", len(s.sent)), SentAt: time.Now()}, nil
}

// Sent returns a copy of the delivered requests in order.
func (s *MemorySender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendRequest(nil), s.sent...)
}

package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"coachdesk/internal/metrics"
)

// ErrProviderUnavailable is returned without calling the provider while the breaker is open.
var ErrProviderUnavailable = errors.New("email provider unavailable")

// BreakerConfig tunes when the breaker opens and how long it stays open.
type BreakerConfig struct {
	MaxFailures uint32        // consecutive failures that open the breaker
	OpenTimeout time.Duration // time in open state before a half-open probe
}

// BreakerSender stops calling a failing provider so outbox retries back off instead of
// hammering it. The outbox treats a rejected send like any other failed attempt.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker[SendResult]
}

// NewBreakerSender wraps next with a circuit breaker.
// PRE: next is non-nil
// POST: Returns a sender whose state is mirrored to the email breaker gauge
func NewBreakerSender(next Sender, cfg BreakerConfig) *BreakerSender {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	metrics.EmailBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[SendResult](gobreaker.Settings{
		Name:        "email-provider",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("email_breaker_state_change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.EmailBreakerState.Set(stateValue(to))
		},
	})
	return &BreakerSender{next: next, cb: cb}
}

// Send delivers through the wrapped sender unless the breaker is open.
// POST: Returns ErrProviderUnavailable when the call was short-circuited
func (s *BreakerSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	res, err := s.cb.Execute(func() (SendResult, error) {
		return s.next.Send(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return SendResult{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return res, err
}

// State returns the breaker state name: closed, half-open or open.
func (s *BreakerSender) State() string {
	return s.cb.State().String()
}

func stateValue(st gobreaker.State) float64 {
	switch st {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

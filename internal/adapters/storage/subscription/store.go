package subscription

import (
	"context"

	domain "coachdesk/internal/domain/subscription"
)

// Store persists trainer subscriptions.
type Store interface {
	// GetByTrainer returns the stored subscription, or domain.Default when none exists.
	GetByTrainer(ctx context.Context, trainerID string) (domain.Subscription, error)
	Save(ctx context.Context, sub domain.Subscription) error
}

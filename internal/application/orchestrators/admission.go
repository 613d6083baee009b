package orchestrators

import (
	"context"
	"fmt"

	"coachdesk/internal/domain/subscription"
)

// SubscriptionReader loads a trainer's tier. Trainers with no record get subscription.Default.
type SubscriptionReader interface {
	GetByTrainer(ctx context.Context, trainerID string) (subscription.Subscription, error)
}

// ActiveClientCounter counts a trainer's active relationships.
type ActiveClientCounter interface {
	CountActive(ctx context.Context, trainerID string) (int, error)
}

// AdmissionDeps holds dependencies for CanAdmit.
type AdmissionDeps struct {
	Subscriptions SubscriptionReader
	Relationships ActiveClientCounter
}

// AdmissionDecision is the outcome of an admission check.
type AdmissionDecision struct {
	Allowed bool
	Active  int
	Limit   int // subscription.Unlimited for uncapped tiers
}

// CanAdmit reports whether the trainer may take one more active client.
// The decision is advisory: the relationship insert re-checks the limit atomically.
// PRE: trainerID is non-empty
// POST: Allowed is true iff Limit is unlimited or Active < Limit
func CanAdmit(ctx context.Context, trainerID string, deps AdmissionDeps) (AdmissionDecision, error) {
	sub, err := deps.Subscriptions.GetByTrainer(ctx, trainerID)
	if err != nil {
		return AdmissionDecision{}, fmt.Errorf("load subscription: %w", err)
	}
	active, err := deps.Relationships.CountActive(ctx, trainerID)
	if err != nil {
		return AdmissionDecision{}, fmt.Errorf("count active clients: %w", err)
	}
	return AdmissionDecision{
		Allowed: sub.Allows(active),
		Active:  active,
		Limit:   sub.ClientLimit(),
	}, nil
}

package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coachdesk/internal/domain/subscription"
)

// SubscriptionStoreForSet defines the store interface needed by SetSubscription.
type SubscriptionStoreForSet interface {
	Save(ctx context.Context, sub subscription.Subscription) error
}

// SetSubscriptionInput carries input for the set subscription orchestrator.
type SetSubscriptionInput struct {
	TrainerID string
	Tier      string
}

// SetSubscriptionDeps holds dependencies for SetSubscription.
type SetSubscriptionDeps struct {
	Accounts      AccountReader
	Subscriptions SubscriptionStoreForSet
	Now           func() time.Time
}

var ErrNotATrainer = errors.New("account is not a trainer")

// ExecuteSetSubscription changes a trainer's tier. Lowering the tier never ends existing
// relationships; it only blocks new admissions while the trainer is over the limit.
// PRE: Caller is an admin
// POST: The trainer's subscription has the new tier
func ExecuteSetSubscription(ctx context.Context, input SetSubscriptionInput, deps SetSubscriptionDeps) (subscription.Subscription, error) {
	trainer, err := deps.Accounts.GetByID(ctx, input.TrainerID)
	if err != nil {
		return subscription.Subscription{}, fmt.Errorf("load trainer: %w", err)
	}
	if !trainer.IsTrainer() {
		return subscription.Subscription{}, ErrNotATrainer
	}

	sub := subscription.Subscription{TrainerID: trainer.ID, Tier: input.Tier, UpdatedAt: deps.Now()}
	if err := sub.Validate(); err != nil {
		return subscription.Subscription{}, err
	}
	if err := deps.Subscriptions.Save(ctx, sub); err != nil {
		return subscription.Subscription{}, err
	}

	slog.Info("subscription_event", "event", "tier_changed", "trainer_id", trainer.ID, "tier", sub.Tier)
	return sub, nil
}

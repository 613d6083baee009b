package projections

import (
	"context"

	domainSubscription "coachdesk/internal/domain/subscription"
)

// GetSubscriptionQuery carries query parameters.
type GetSubscriptionQuery struct {
	TrainerID string
}

// GetSubscriptionResult summarises a trainer's plan and how much of it is used.
type GetSubscriptionResult struct {
	Tier          string `json:"tier"`
	ClientLimit   int    `json:"client_limit"` // -1 when unlimited
	ActiveClients int    `json:"active_clients"`
	Remaining     int    `json:"remaining"` // -1 when unlimited; 0 when at or over the limit
}

// GetSubscriptionDeps holds dependencies for GetSubscription.
type GetSubscriptionDeps struct {
	Subscriptions SubscriptionStore
	Relationships RelationshipStore
}

// QueryGetSubscription reports the trainer's tier, limit and active client count.
// PRE: TrainerID is a trainer
// POST: Remaining is never negative except for the unlimited marker
func QueryGetSubscription(ctx context.Context, query GetSubscriptionQuery, deps GetSubscriptionDeps) (GetSubscriptionResult, error) {
	sub, err := deps.Subscriptions.GetByTrainer(ctx, query.TrainerID)
	if err != nil {
		return GetSubscriptionResult{}, err
	}
	active, err := deps.Relationships.CountActive(ctx, query.TrainerID)
	if err != nil {
		return GetSubscriptionResult{}, err
	}

	limit := sub.ClientLimit()
	remaining := domainSubscription.Unlimited
	if limit != domainSubscription.Unlimited {
		remaining = max(limit-active, 0)
	}
	return GetSubscriptionResult{
		Tier:          sub.Tier,
		ClientLimit:   limit,
		ActiveClients: active,
		Remaining:     remaining,
	}, nil
}

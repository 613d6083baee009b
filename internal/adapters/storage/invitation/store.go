package invitation

import (
	"context"
	"time"

	domain "coachdesk/internal/domain/invitation"
)

// Store persists Invitation state. Invitations are never deleted.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Invitation, error)
	GetByToken(ctx context.Context, token string) (domain.Invitation, error)
	FindPending(ctx context.Context, trainerID, email string) (domain.Invitation, error)
	Save(ctx context.Context, inv domain.Invitation) error
	TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
	ListByTrainer(ctx context.Context, trainerID string, filter ListFilter) ([]domain.Invitation, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Invitation, error)
	ListPendingLinked(ctx context.Context, limit int) ([]domain.Invitation, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

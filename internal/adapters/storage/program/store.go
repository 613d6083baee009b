package program

import (
	"context"

	domain "coachdesk/internal/domain/program"
)

// Store persists Program state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Program, error)
	Save(ctx context.Context, value domain.Program) error
	ListByTrainer(ctx context.Context, trainerID string) ([]domain.Program, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Program, error)
}

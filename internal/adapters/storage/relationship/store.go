package relationship

import (
	"context"

	domain "coachdesk/internal/domain/relationship"
)

// Store persists trainer-client relationships.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Relationship, error)
	GetByInvitationID(ctx context.Context, invitationID string) (domain.Relationship, error)
	GetActive(ctx context.Context, trainerID, clientID string) (domain.Relationship, error)
	CountActive(ctx context.Context, trainerID string) (int, error)
	CreateIfUnderLimit(ctx context.Context, rel domain.Relationship, limit int) error
	Save(ctx context.Context, rel domain.Relationship) error
	ListByTrainer(ctx context.Context, trainerID, status string) ([]domain.Relationship, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Relationship, error)
}

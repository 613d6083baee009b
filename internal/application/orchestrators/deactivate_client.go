package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"coachdesk/internal/domain/relationship"
)

// RelationshipStoreForDeactivate defines the store interface needed by DeactivateClient.
type RelationshipStoreForDeactivate interface {
	GetByID(ctx context.Context, id string) (relationship.Relationship, error)
	Save(ctx context.Context, rel relationship.Relationship) error
}

// DeactivateClientInput carries input for the deactivate client orchestrator.
type DeactivateClientInput struct {
	TrainerID      string
	RelationshipID string
}

// DeactivateClientDeps holds dependencies for DeactivateClient.
type DeactivateClientDeps struct {
	Relationships RelationshipStoreForDeactivate
	Now           func() time.Time
}

// ExecuteDeactivateClient ends a trainer-client relationship, freeing a slot under the limit.
// PRE: TrainerID owns the relationship
// POST: Relationship status is inactive with EndedAt set
func ExecuteDeactivateClient(ctx context.Context, input DeactivateClientInput, deps DeactivateClientDeps) error {
	rel, err := deps.Relationships.GetByID(ctx, input.RelationshipID)
	if err != nil {
		return err
	}
	if rel.TrainerID != input.TrainerID {
		return relationship.ErrNotFound
	}
	if err := rel.End(deps.Now()); err != nil {
		return err
	}
	if err := deps.Relationships.Save(ctx, rel); err != nil {
		return err
	}

	slog.Info("relationship_event", "event", "client_deactivated", "relationship_id", rel.ID, "trainer_id", rel.TrainerID, "client_id", rel.ClientID)
	return nil
}

package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"coachdesk/internal/domain/account"
	"coachdesk/internal/domain/relationship"
	"coachdesk/internal/domain/subscription"
)

// DemoPassword is shared by every demo account. Demo seeding refuses to run in production.
const DemoPassword = "coachdesk-demo!"

// Demo account addresses.
const (
	DemoTrainerEmail = "demo+trainer@coachdesk.test"
	DemoClientEmail  = "demo+client@coachdesk.test"
)

// DemoRelationshipWriter links the demo client without a limit check.
type DemoRelationshipWriter interface {
	CreateIfUnderLimit(ctx context.Context, rel relationship.Relationship, limit int) error
}

// SeedDemoDeps holds the stores needed to seed demo accounts.
type SeedDemoDeps struct {
	Create        CreateAccountDeps
	Relationships DemoRelationshipWriter
}

// ExecuteSeedDemoAccounts creates a demo trainer and a demo client already on their roster,
// so a fresh development database can be explored without sending email.
// Accounts that already exist are left alone.
// PRE: Database is migrated
// POST: Both demo accounts exist; the client is linked when both were created in this call
func ExecuteSeedDemoAccounts(ctx context.Context, deps SeedDemoDeps) error {
	exists, err := deps.Create.AccountStore.ExistsByEmail(ctx, DemoTrainerEmail)
	if err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	if exists {
		return nil
	}

	trainer, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email: DemoTrainerEmail, Password: DemoPassword, FullName: "Demo Trainer", Role: account.RoleTrainer,
	}, deps.Create)
	if err != nil {
		return fmt.Errorf("seed demo trainer: %w", err)
	}
	client, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email: DemoClientEmail, Password: DemoPassword, FullName: "Demo Client", Role: account.RoleClient,
	}, deps.Create)
	if errors.Is(err, ErrEmailAlreadyExists) {
		slog.Info("seed_event", "event", "demo_seeded", "trainer_id", trainer.ID, "linked", false)
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed demo client: %w", err)
	}

	rel := relationship.Relationship{
		ID:        deps.Create.GenerateID(),
		TrainerID: trainer.ID,
		ClientID:  client.ID,
		Status:    relationship.StatusActive,
		CreatedAt: deps.Create.Now(),
	}
	if err := deps.Relationships.CreateIfUnderLimit(ctx, rel, subscription.Unlimited); err != nil {
		return fmt.Errorf("seed demo relationship: %w", err)
	}
	slog.Info("seed_event", "event", "demo_seeded", "trainer_id", trainer.ID, "client_id", client.ID, "linked", true)
	return nil
}

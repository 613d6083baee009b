package orchestrators

import (
	"context"
	"testing"

	"coachdesk/internal/domain/account"
)

func TestSeedDemoAccounts(t *testing.T) {
	f := newFixture()
	deps := SeedDemoDeps{Create: f.createDeps(), Relationships: f.relationships}

	if err := ExecuteSeedDemoAccounts(context.Background(), deps); err != nil {
		t.Fatalf("ExecuteSeedDemoAccounts() = %v", err)
	}
	trainer, err := f.accounts.GetByEmail(context.Background(), DemoTrainerEmail)
	if err != nil || trainer.Role != account.RoleTrainer {
		t.Fatalf("trainer = %+v, %v", trainer, err)
	}
	client, err := f.accounts.GetByEmail(context.Background(), DemoClientEmail)
	if err != nil || client.Role != account.RoleClient {
		t.Fatalf("client = %+v, %v", client, err)
	}
	if _, err := f.relationships.GetActive(context.Background(), trainer.ID, client.ID); err != nil {
		t.Errorf("demo client not linked: %v", err)
	}
	if err := trainer.CheckPassword(DemoPassword); err != nil {
		t.Errorf("demo password does not verify: %v", err)
	}

	// Second run changes nothing.
	before := len(f.relationships.all())
	if err := ExecuteSeedDemoAccounts(context.Background(), deps); err != nil {
		t.Fatalf("second run = %v", err)
	}
	if got := len(f.relationships.all()); got != before {
		t.Errorf("relationships = %d after rerun, want %d", got, before)
	}
}

package subscription

import (
	"context"
	"testing"
	"time"

	"coachdesk/internal/adapters/storage/storagetest"
	domain "coachdesk/internal/domain/subscription"
)

func TestSQLiteStore_DefaultsToFree(t *testing.T) {
	db := storagetest.Open(t)
	store := NewSQLiteStore(db)

	sub, err := store.GetByTrainer(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetByTrainer() = %v", err)
	}
	if sub.Tier != domain.TierFree || sub.ClientLimit() != 3 {
		t.Errorf("GetByTrainer() without row = %+v", sub)
	}
}

func TestSQLiteStore_SaveUpserts(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.SeedAccount(t, db, "t1", "t@x.test", "trainer")
	store := NewSQLiteStore(db)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, tier := range []string{domain.TierPro, domain.TierBeast} {
		if err := store.Save(ctx, domain.Subscription{TrainerID: "t1", Tier: tier, UpdatedAt: at}); err != nil {
			t.Fatalf("Save(%s) = %v", tier, err)
		}
	}
	sub, err := store.GetByTrainer(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Tier != domain.TierBeast || sub.ClientLimit() != domain.Unlimited || !sub.UpdatedAt.Equal(at) {
		t.Errorf("GetByTrainer() = %+v", sub)
	}
}

package notification

import (
	"context"
	"testing"
	"time"

	"coachdesk/internal/adapters/storage/storagetest"
	domain "coachdesk/internal/domain/notification"
)

func TestSQLiteStore_ListAndRead(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.SeedAccount(t, db, "t1", "t@x.test", "trainer")
	store := NewSQLiteStore(db)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"n1", "n2", "n3"} {
		n := domain.Notification{ID: id, AccountID: "t1", Kind: domain.KindClientJoined, Title: "Client joined", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Save(ctx, n); err != nil {
			t.Fatalf("Save(%s) = %v", id, err)
		}
	}

	n, err := store.GetByID(ctx, "n2")
	if err != nil {
		t.Fatal(err)
	}
	n.MarkRead(base.Add(time.Hour))
	if err := store.Save(ctx, n); err != nil {
		t.Fatal(err)
	}

	unread, err := store.CountUnread(ctx, "t1")
	if err != nil || unread != 2 {
		t.Errorf("CountUnread() = %d, %v; want 2", unread, err)
	}
	all, _ := store.ListForAccount(ctx, "t1", false, 10)
	if len(all) != 3 || all[0].ID != "n3" {
		t.Errorf("ListForAccount(all) = %+v", all)
	}
	onlyUnread, _ := store.ListForAccount(ctx, "t1", true, 10)
	if len(onlyUnread) != 2 {
		t.Errorf("ListForAccount(unread) returned %d", len(onlyUnread))
	}
}

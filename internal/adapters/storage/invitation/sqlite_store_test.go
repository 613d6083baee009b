package invitation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"coachdesk/internal/adapters/storage"
	"coachdesk/internal/adapters/storage/storagetest"
	domain "coachdesk/internal/domain/invitation"
)

var created = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()
	db := storagetest.Open(t)
	storagetest.SeedAccount(t, db, "t1", "sam@coachdesk.test", "trainer")
	return NewSQLiteStore(db), db
}

func pending(id, token, email string, expires time.Time) domain.Invitation {
	return domain.Invitation{
		ID: id, Token: token, TrainerID: "t1", Email: email, FirstName: "Ana",
		PersonalMessage: "Looking forward to it", Status: domain.StatusPending,
		ExpiresAt: expires, CreatedAt: created,
	}
}

func TestSQLiteStore_SaveAndGetByToken(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	inv := pending("i1", "tok-1", "ana@example.com", created.Add(7*24*time.Hour))
	if err := store.Save(ctx, inv); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	got, err := store.GetByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetByToken() = %v", err)
	}
	if got.Email != inv.Email || got.PersonalMessage != inv.PersonalMessage || !got.ExpiresAt.Equal(inv.ExpiresAt) || !got.AcceptedAt.IsZero() {
		t.Errorf("GetByToken() = %+v", got)
	}

	if _, err := store.GetByToken(ctx, "TOK-1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetByToken(other case) error = %v, want sql.ErrNoRows", err)
	}
	if _, err := store.GetByToken(ctx, ""); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetByToken(empty) error = %v, want sql.ErrNoRows", err)
	}
}

// TestSQLiteStore_MalformedExpiryIsAnError tests that an unparseable expires_at is reported, not read as zero.
func TestSQLiteStore_MalformedExpiryIsAnError(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, pending("i1", "tok-1", "ana@example.com", created.Add(time.Hour))); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	if _, err := db.ExecContext(ctx, "UPDATE invitation SET expires_at = 'next tuesday' WHERE id = 'i1'"); err != nil {
		t.Fatal(err)
	}

	if _, err := store.GetByToken(ctx, "tok-1"); !errors.Is(err, storage.ErrBadTimestamp) {
		t.Errorf("GetByToken() error = %v, want ErrBadTimestamp", err)
	}
}

func TestSQLiteStore_TokenUnique(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, pending("i1", "same", "a@x.test", created.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, pending("i2", "same", "b@x.test", created.Add(time.Hour))); err == nil {
		t.Error("two invitations share a token")
	}
}

// TestSQLiteStore_TransitionStatus verifies only the first caller wins a status change.
func TestSQLiteStore_TransitionStatus(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, pending("i1", "tok", "a@x.test", created.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	at := created.Add(30 * time.Minute)

	ok, err := store.TransitionStatus(ctx, "i1", domain.StatusPending, domain.StatusAccepted, at)
	if err != nil || !ok {
		t.Fatalf("first TransitionStatus = %v, %v", ok, err)
	}
	ok, err = store.TransitionStatus(ctx, "i1", domain.StatusPending, domain.StatusAccepted, at)
	if err != nil || ok {
		t.Fatalf("second TransitionStatus = %v, %v; want false", ok, err)
	}
	got, _ := store.GetByID(ctx, "i1")
	if got.Status != domain.StatusAccepted || !got.AcceptedAt.Equal(at) {
		t.Errorf("after accept: %+v", got)
	}
}

func TestSQLiteStore_FindPending(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if _, err := store.FindPending(ctx, "t1", "a@x.test"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("FindPending() on empty = %v", err)
	}
	inv := pending("i1", "tok", "a@x.test", created.Add(time.Hour))
	inv.Status = domain.StatusCancelled
	store.Save(ctx, inv)
	if _, err := store.FindPending(ctx, "t1", "a@x.test"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("FindPending() found a cancelled invitation: %v", err)
	}
	store.Save(ctx, pending("i2", "tok2", "a@x.test", created.Add(time.Hour)))
	got, err := store.FindPending(ctx, "t1", "a@x.test")
	if err != nil || got.ID != "i2" {
		t.Errorf("FindPending() = %+v, %v", got, err)
	}
}

// TestSQLiteStore_ExpireOverdue verifies the sweep flips only overdue pending invitations.
func TestSQLiteStore_ExpireOverdue(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	now := created.Add(48 * time.Hour)

	store.Save(ctx, pending("old", "t-old", "a@x.test", now.Add(-time.Nanosecond*500)))
	store.Save(ctx, pending("fresh", "t-fresh", "b@x.test", now.Add(time.Hour)))
	accepted := pending("done", "t-done", "c@x.test", now.Add(-time.Hour))
	accepted.Status = domain.StatusAccepted
	store.Save(ctx, accepted)

	changed, err := store.ExpireOverdue(ctx, now)
	if err != nil {
		t.Fatalf("ExpireOverdue() = %v", err)
	}
	if len(changed) != 1 || changed[0].ID != "old" {
		t.Fatalf("ExpireOverdue() changed %+v, want only old", changed)
	}
	for id, want := range map[string]string{"old": domain.StatusExpired, "fresh": domain.StatusPending, "done": domain.StatusAccepted} {
		got, _ := store.GetByID(ctx, id)
		if got.Status != want {
			t.Errorf("%s status = %q, want %q", id, got.Status, want)
		}
	}
}

func TestSQLiteStore_ListPendingLinked(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	storagetest.SeedAccount(t, db, "c1", "a@x.test", "client")

	store.Save(ctx, pending("linked", "t1", "a@x.test", created.Add(time.Hour)))
	store.Save(ctx, pending("unlinked", "t2", "b@x.test", created.Add(time.Hour)))
	if _, err := db.Exec(`INSERT INTO trainer_client (id, trainer_id, client_id, invitation_id, status, created_at) VALUES ('r1', 't1', 'c1', 'linked', 'active', ?)`, created.Format(time.RFC3339)); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListPendingLinked(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingLinked() = %v", err)
	}
	if len(got) != 1 || got[0].ID != "linked" {
		t.Errorf("ListPendingLinked() = %+v", got)
	}
}

func TestSQLiteStore_ListByTrainer(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		inv := pending(id, "tok-"+id, id+"@x.test", created.Add(time.Hour))
		inv.CreatedAt = created.Add(time.Duration(i) * time.Minute)
		if id == "b" {
			inv.Status = domain.StatusAccepted
		}
		store.Save(ctx, inv)
	}
	all, err := store.ListByTrainer(ctx, "t1", ListFilter{Limit: 10})
	if err != nil || len(all) != 3 || all[0].ID != "c" {
		t.Fatalf("ListByTrainer() = %+v, %v", all, err)
	}
	pend, _ := store.ListByTrainer(ctx, "t1", ListFilter{Status: domain.StatusPending, Limit: 10})
	if len(pend) != 2 {
		t.Errorf("ListByTrainer(pending) returned %d", len(pend))
	}
}

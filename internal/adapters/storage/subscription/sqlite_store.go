package subscription

import (
	"context"
	"database/sql"
	"errors"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/subscription"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new subscription store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByTrainer returns the trainer's subscription.
// PRE: trainerID is non-empty
// POST: A trainer with no row gets the free tier
func (s *SQLiteStore) GetByTrainer(ctx context.Context, trainerID string) (domain.Subscription, error) {
	var sub domain.Subscription
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT trainer_id, tier, updated_at FROM subscription WHERE trainer_id = ?", trainerID,
	).Scan(&sub.TrainerID, &sub.Tier, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Default(trainerID), nil
	}
	if err != nil {
		return domain.Subscription{}, err
	}
	if sub.UpdatedAt, err = storage.ParseTime("subscription.updated_at", updatedAt); err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

// Save upserts a subscription.
// PRE: sub has been validated
// POST: The trainer's tier is sub.Tier
func (s *SQLiteStore) Save(ctx context.Context, sub domain.Subscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscription (trainer_id, tier, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(trainer_id) DO UPDATE SET tier=excluded.tier, updated_at=excluded.updated_at`,
		sub.TrainerID, sub.Tier, sub.UpdatedAt.UTC().Format(storage.DateLayout))
	return err
}

package relationship

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/relationship"
	"coachdesk/internal/domain/subscription"
)

const columns = "id, trainer_id, client_id, invitation_id, status, created_at, ended_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new relationship store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a relationship by ID.
// POST: Returns the relationship or an error wrapping domain.ErrNotFound and sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Relationship, error) {
	return s.getOne(ctx, "SELECT "+columns+" FROM trainer_client WHERE id = ?", id)
}

// GetByInvitationID returns the relationship created from an invitation, if any.
// POST: Returns the relationship or an error wrapping domain.ErrNotFound and sql.ErrNoRows
func (s *SQLiteStore) GetByInvitationID(ctx context.Context, invitationID string) (domain.Relationship, error) {
	return s.getOne(ctx, "SELECT "+columns+" FROM trainer_client WHERE invitation_id = ?", invitationID)
}

// GetActive returns the active relationship between trainer and client, if any.
func (s *SQLiteStore) GetActive(ctx context.Context, trainerID, clientID string) (domain.Relationship, error) {
	return s.getOne(ctx,
		"SELECT "+columns+" FROM trainer_client WHERE trainer_id = ? AND client_id = ? AND status = ?",
		trainerID, clientID, domain.StatusActive)
}

func (s *SQLiteStore) getOne(ctx context.Context, query string, args ...any) (domain.Relationship, error) {
	rel, err := scanRelationship(s.db.QueryRowContext(ctx, query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Relationship{}, fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return rel, err
}

// CountActive returns the number of active clients of a trainer.
func (s *SQLiteStore) CountActive(ctx context.Context, trainerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM trainer_client WHERE trainer_id = ? AND status = ?",
		trainerID, domain.StatusActive).Scan(&n)
	return n, err
}

// CreateIfUnderLimit inserts an active relationship only while the trainer's active count is
// below limit. Count and insert are one statement, so concurrent acceptances cannot overshoot.
// limit == subscription.Unlimited skips the count.
// PRE: rel has been validated; rel.Status is active
// POST: Row inserted, or domain.ErrLimitReached / ErrAlreadyActive / ErrInvitationLinked
func (s *SQLiteStore) CreateIfUnderLimit(ctx context.Context, rel domain.Relationship, limit int) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trainer_client (id, trainer_id, client_id, invitation_id, status, created_at)
		 SELECT ?, ?, ?, ?, ?, ?
		 WHERE ? = ? OR (SELECT COUNT(*) FROM trainer_client WHERE trainer_id = ? AND status = ?) < ?`,
		rel.ID, rel.TrainerID, rel.ClientID, nullString(rel.InvitationID), domain.StatusActive, formatTime(rel.CreatedAt),
		limit, subscription.Unlimited, rel.TrainerID, domain.StatusActive, limit,
	)
	switch {
	case storage.IsUniqueViolation(err, "trainer_client.invitation_id"):
		return fmt.Errorf("%w: %w", domain.ErrInvitationLinked, err)
	case storage.IsUniqueViolation(err, "trainer_client"):
		return fmt.Errorf("%w: %w", domain.ErrAlreadyActive, err)
	case err != nil:
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrLimitReached
	}
	return nil
}

// Save updates an existing relationship's status and end time, or inserts it without a limit check.
// PRE: rel has been validated
// POST: Relationship is persisted
func (s *SQLiteStore) Save(ctx context.Context, rel domain.Relationship) error {
	var endedAt any
	if !rel.EndedAt.IsZero() {
		endedAt = formatTime(rel.EndedAt)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trainer_client (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status=excluded.status, ended_at=excluded.ended_at`,
		rel.ID, rel.TrainerID, rel.ClientID, nullString(rel.InvitationID), rel.Status, formatTime(rel.CreatedAt), endedAt,
	)
	if storage.IsUniqueViolation(err, "") {
		return fmt.Errorf("%w: %w", domain.ErrAlreadyActive, err)
	}
	return err
}

// ListByTrainer lists a trainer's relationships, oldest first. An empty status lists all.
func (s *SQLiteStore) ListByTrainer(ctx context.Context, trainerID, status string) ([]domain.Relationship, error) {
	if status == "" {
		return s.list(ctx, "SELECT "+columns+" FROM trainer_client WHERE trainer_id = ? ORDER BY created_at", trainerID)
	}
	return s.list(ctx, "SELECT "+columns+" FROM trainer_client WHERE trainer_id = ? AND status = ? ORDER BY created_at", trainerID, status)
}

// ListByClient lists every relationship a client has had, oldest first.
func (s *SQLiteStore) ListByClient(ctx context.Context, clientID string) ([]domain.Relationship, error) {
	return s.list(ctx, "SELECT "+columns+" FROM trainer_client WHERE client_id = ? ORDER BY created_at", clientID)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

func scanRelationship(scan func(dest ...any) error) (domain.Relationship, error) {
	var rel domain.Relationship
	var invitationID, endedAt sql.NullString
	var createdAt string
	if err := scan(&rel.ID, &rel.TrainerID, &rel.ClientID, &invitationID, &rel.Status, &createdAt, &endedAt); err != nil {
		return domain.Relationship{}, err
	}
	rel.InvitationID = invitationID.String
	var err error
	if rel.CreatedAt, err = storage.ParseTime("trainer_client.created_at", createdAt); err != nil {
		return domain.Relationship{}, err
	}
	if rel.EndedAt, err = storage.ParseNullTime("trainer_client.ended_at", endedAt); err != nil {
		return domain.Relationship{}, err
	}
	return rel, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storage.DateLayout)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

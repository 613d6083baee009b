package invitation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/invitation"
)

const columns = "id, token, trainer_id, email, first_name, personal_message, status, expires_at, accepted_at, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new invitation store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an invitation by ID.
// PRE: id is non-empty
// POST: Returns the invitation or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Invitation, error) {
	return s.getOne(ctx, "SELECT "+columns+" FROM invitation WHERE id = ?", id)
}

// GetByToken retrieves an invitation by exact token.
// PRE: none; an empty token finds nothing
// POST: Returns the invitation or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByToken(ctx context.Context, token string) (domain.Invitation, error) {
	return s.getOne(ctx, "SELECT "+columns+" FROM invitation WHERE token = ?", token)
}

// FindPending returns the pending invitation from trainerID to email, if any.
// POST: Returns the invitation or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) FindPending(ctx context.Context, trainerID, email string) (domain.Invitation, error) {
	return s.getOne(ctx,
		"SELECT "+columns+" FROM invitation WHERE trainer_id = ? AND email = ? AND status = ? ORDER BY created_at DESC LIMIT 1",
		trainerID, email, domain.StatusPending)
}

func (s *SQLiteStore) getOne(ctx context.Context, query string, args ...any) (domain.Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Invitation{}, fmt.Errorf("invitation not found: %w", err)
	}
	return inv, err
}

// Save persists an invitation (insert or update).
// PRE: inv has been validated
// POST: Invitation is persisted; a reused token fails with a UNIQUE violation
func (s *SQLiteStore) Save(ctx context.Context, inv domain.Invitation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invitation (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   token=excluded.token, email=excluded.email, first_name=excluded.first_name,
		   personal_message=excluded.personal_message, status=excluded.status,
		   expires_at=excluded.expires_at, accepted_at=excluded.accepted_at`,
		inv.ID, inv.Token, inv.TrainerID, inv.Email, inv.FirstName, inv.PersonalMessage, inv.Status,
		formatTime(inv.ExpiresAt), nullTime(inv.AcceptedAt), formatTime(inv.CreatedAt),
	)
	return err
}

// TransitionStatus moves an invitation from one status to another only if it is still in from.
// accepted_at is set to at when moving to accepted.
// PRE: id is non-empty
// POST: Returns true if this call made the change
func (s *SQLiteStore) TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error) {
	var acceptedAt any
	if to == domain.StatusAccepted {
		acceptedAt = formatTime(at)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE invitation SET status = ?, accepted_at = COALESCE(?, accepted_at) WHERE id = ? AND status = ?`,
		to, acceptedAt, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListByTrainer returns a trainer's invitations, newest first.
// PRE: filter.Limit > 0
// POST: Returns up to Limit invitations
func (s *SQLiteStore) ListByTrainer(ctx context.Context, trainerID string, filter ListFilter) ([]domain.Invitation, error) {
	var q strings.Builder
	args := []any{trainerID}
	q.WriteString("SELECT " + columns + " FROM invitation WHERE trainer_id = ?")
	if filter.Status != "" {
		q.WriteString(" AND status = ?")
		args = append(args, filter.Status)
	}
	q.WriteString(" ORDER BY created_at DESC LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)
	return s.list(ctx, q.String(), args...)
}

// ExpireOverdue marks every pending invitation whose expiry is before now as expired
// and returns the invitations it changed.
// POST: No pending invitation has expires_at < now
func (s *SQLiteStore) ExpireOverdue(ctx context.Context, now time.Time) ([]domain.Invitation, error) {
	cutoff := formatTime(now)
	overdue, err := s.list(ctx,
		"SELECT "+columns+" FROM invitation WHERE status = ? AND expires_at < ?",
		domain.StatusPending, cutoff)
	if err != nil {
		return nil, err
	}

	var changed []domain.Invitation
	for _, inv := range overdue {
		ok, err := s.TransitionStatus(ctx, inv.ID, domain.StatusPending, domain.StatusExpired, now)
		if err != nil {
			return changed, fmt.Errorf("expire invitation %s: %w", inv.ID, err)
		}
		if ok {
			inv.Status = domain.StatusExpired
			changed = append(changed, inv)
		}
	}
	return changed, nil
}

// ListPendingLinked returns pending invitations that already have a relationship,
// left behind when an acceptance created the link but failed to flip the status.
func (s *SQLiteStore) ListPendingLinked(ctx context.Context, limit int) ([]domain.Invitation, error) {
	return s.list(ctx,
		`SELECT `+prefixed("i.", columns)+` FROM invitation i
		 JOIN trainer_client r ON r.invitation_id = i.id
		 WHERE i.status = ? ORDER BY i.created_at LIMIT ?`,
		domain.StatusPending, limit)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Invitation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanInvitation(scan func(dest ...any) error) (domain.Invitation, error) {
	var inv domain.Invitation
	var expiresAt, createdAt string
	var acceptedAt sql.NullString
	err := scan(&inv.ID, &inv.Token, &inv.TrainerID, &inv.Email, &inv.FirstName, &inv.PersonalMessage,
		&inv.Status, &expiresAt, &acceptedAt, &createdAt)
	if err != nil {
		return domain.Invitation{}, err
	}
	if inv.ExpiresAt, err = storage.ParseTime("invitation.expires_at", expiresAt); err != nil {
		return domain.Invitation{}, err
	}
	if inv.CreatedAt, err = storage.ParseTime("invitation.created_at", createdAt); err != nil {
		return domain.Invitation{}, err
	}
	if inv.AcceptedAt, err = storage.ParseNullTime("invitation.accepted_at", acceptedAt); err != nil {
		return domain.Invitation{}, err
	}
	return inv, nil
}

// formatTime stores UTC so that text comparison orders correctly.
func formatTime(t time.Time) string {
	return t.UTC().Format(storage.DateLayout)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func prefixed(prefix, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return strings.Join(parts, ", ")
}

package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/notification"
)

const columns = "id, account_id, kind, title, body, read_at, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new notification store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a notification.
// POST: Returns the notification or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Notification, error) {
	n, err := scanNotification(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM notification WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Notification{}, fmt.Errorf("notification not found: %w", err)
	}
	return n, err
}

// Save upserts a notification. Only read_at changes after creation.
func (s *SQLiteStore) Save(ctx context.Context, n domain.Notification) error {
	var readAt any
	if !n.ReadAt.IsZero() {
		readAt = n.ReadAt.UTC().Format(storage.DateLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET read_at=excluded.read_at`,
		n.ID, n.AccountID, n.Kind, n.Title, n.Body, readAt, n.CreatedAt.UTC().Format(storage.DateLayout))
	return err
}

// ListForAccount returns an account's notifications, newest first.
// PRE: limit > 0
func (s *SQLiteStore) ListForAccount(ctx context.Context, accountID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := "SELECT " + columns + " FROM notification WHERE account_id = ?"
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread returns how many notifications the account has not read.
func (s *SQLiteStore) CountUnread(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notification WHERE account_id = ? AND read_at IS NULL", accountID).Scan(&n)
	return n, err
}

func scanNotification(scan func(dest ...any) error) (domain.Notification, error) {
	var n domain.Notification
	var readAt sql.NullString
	var createdAt string
	if err := scan(&n.ID, &n.AccountID, &n.Kind, &n.Title, &n.Body, &readAt, &createdAt); err != nil {
		return domain.Notification{}, err
	}
	var err error
	if n.CreatedAt, err = storage.ParseTime("notification.created_at", createdAt); err != nil {
		return domain.Notification{}, err
	}
	if n.ReadAt, err = storage.ParseNullTime("notification.read_at", readAt); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

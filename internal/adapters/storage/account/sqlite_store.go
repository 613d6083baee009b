package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/account"
)

const columns = "id, email, full_name, phone, password_hash, role, created_at, failed_logins, locked_until"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the account or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM account WHERE id = ?", id)
	a, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %s not found: %w", id, err)
	}
	return a, err
}

// GetByEmail retrieves an Account by exact email.
// PRE: email is non-empty
// POST: Returns the account or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM account WHERE email = ?", email)
	a, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return a, err
}

// ExistsByEmail reports whether an account uses exactly this email.
func (s *SQLiteStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account WHERE email = ?", email).Scan(&n)
	return n > 0, err
}

// Save persists an Account (insert or update).
// PRE: value has been validated
// POST: Account is persisted
func (s *SQLiteStore) Save(ctx context.Context, a domain.Account) error {
	var lockedUntil any
	if !a.LockedUntil.IsZero() {
		lockedUntil = a.LockedUntil.UTC().Format(storage.DateLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email=excluded.email, full_name=excluded.full_name, phone=excluded.phone,
		   password_hash=excluded.password_hash, role=excluded.role,
		   failed_logins=excluded.failed_logins, locked_until=excluded.locked_until`,
		a.ID, a.Email, a.FullName, a.Phone, a.PasswordHash, a.Role,
		a.CreatedAt.UTC().Format(storage.DateLayout), a.FailedLogins, lockedUntil,
	)
	if storage.IsUniqueViolation(err, "account.email") {
		return fmt.Errorf("email %s already registered: %w", a.Email, err)
	}
	return err
}

// List retrieves accounts, newest first.
// PRE: filter.Limit > 0
// POST: Returns up to Limit accounts
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	var q strings.Builder
	var args []any
	q.WriteString("SELECT " + columns + " FROM account")
	if filter.Role != "" {
		q.WriteString(" WHERE role = ?")
		args = append(args, filter.Role)
	}
	q.WriteString(" ORDER BY created_at DESC LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountByRole returns how many accounts hold role.
func (s *SQLiteStore) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account WHERE role = ?", role).Scan(&n)
	return n, err
}

func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var a domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	if err := scan(&a.ID, &a.Email, &a.FullName, &a.Phone, &a.PasswordHash, &a.Role, &createdAt, &a.FailedLogins, &lockedUntil); err != nil {
		return domain.Account{}, err
	}
	var err error
	if a.CreatedAt, err = storage.ParseTime("account.created_at", createdAt); err != nil {
		return domain.Account{}, err
	}
	if a.LockedUntil, err = storage.ParseNullTime("account.locked_until", lockedUntil); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

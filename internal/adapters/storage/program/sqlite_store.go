package program

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/program"
)

const columns = "id, trainer_id, client_id, name, description, start_date, duration_weeks, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new program store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Program by its ID.
// PRE: id is non-empty
// POST: Returns the program or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Program, error) {
	p, err := scanProgram(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM program WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Program{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return p, err
}

// Save persists a Program (insert or update). The trainer never changes.
// PRE: value has been validated
// POST: Program is persisted
func (s *SQLiteStore) Save(ctx context.Context, p domain.Program) error {
	var clientID any
	if p.ClientID != "" {
		clientID = p.ClientID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO program (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   client_id=excluded.client_id, name=excluded.name, description=excluded.description,
		   start_date=excluded.start_date, duration_weeks=excluded.duration_weeks`,
		p.ID, p.TrainerID, clientID, p.Name, p.Description,
		p.StartDate.Format(domain.DateLayout), p.DurationWeeks, p.CreatedAt.UTC().Format(storage.DateLayout))
	return err
}

// ListByTrainer returns a trainer's programs by start date.
func (s *SQLiteStore) ListByTrainer(ctx context.Context, trainerID string) ([]domain.Program, error) {
	return s.list(ctx, "SELECT "+columns+" FROM program WHERE trainer_id = ? ORDER BY start_date, name", trainerID)
}

// ListByClient returns programs assigned to a client by start date.
func (s *SQLiteStore) ListByClient(ctx context.Context, clientID string) ([]domain.Program, error) {
	return s.list(ctx, "SELECT "+columns+" FROM program WHERE client_id = ? ORDER BY start_date, name", clientID)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Program, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Program
	for rows.Next() {
		p, err := scanProgram(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProgram(scan func(dest ...any) error) (domain.Program, error) {
	var p domain.Program
	var clientID sql.NullString
	var startDate, createdAt string
	if err := scan(&p.ID, &p.TrainerID, &clientID, &p.Name, &p.Description, &startDate, &p.DurationWeeks, &createdAt); err != nil {
		return domain.Program{}, err
	}
	p.ClientID = clientID.String
	var err error
	if p.StartDate, err = domain.ParseDate(startDate); err != nil {
		return domain.Program{}, fmt.Errorf("%w: program.start_date %q", storage.ErrBadTimestamp, startDate)
	}
	if p.CreatedAt, err = storage.ParseTime("program.created_at", createdAt); err != nil {
		return domain.Program{}, err
	}
	return p, nil
}

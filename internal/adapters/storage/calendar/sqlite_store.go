package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/calendar"
	"coachdesk/internal/domain/program"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new calendar store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetDay loads one day with its exercises in order.
// PRE: programID is non-empty
// POST: Returns the stored day or a free day
func (s *SQLiteStore) GetDay(ctx context.Context, programID string, date time.Time) (domain.Day, error) {
	d := program.Day(date)
	var day domain.Day
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT type, notes, updated_at FROM program_day WHERE program_id = ? AND date = ?",
		programID, d.Format(program.DateLayout),
	).Scan(&day.Type, &day.Notes, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FreeDay(programID, d), nil
	}
	if err != nil {
		return domain.Day{}, err
	}
	day.ProgramID = programID
	day.Date = d
	if day.UpdatedAt, err = storage.ParseTime("program_day.updated_at", updatedAt); err != nil {
		return domain.Day{}, err
	}

	byDate, err := s.exercises(ctx, programID, d, d.AddDate(0, 0, 1))
	if err != nil {
		return domain.Day{}, err
	}
	day.Exercises = byDate[d.Format(program.DateLayout)]
	return day, nil
}

// SaveDay writes the day row and replaces its exercise rows in one transaction.
// PRE: day has been validated
// POST: Stored exercises equal day.Exercises in order
func (s *SQLiteStore) SaveDay(ctx context.Context, day domain.Day) error {
	date := program.Day(day.Date).Format(program.DateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO program_day (program_id, date, type, notes, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(program_id, date) DO UPDATE SET type=excluded.type, notes=excluded.notes, updated_at=excluded.updated_at`,
		day.ProgramID, date, day.Type, day.Notes, day.UpdatedAt.UTC().Format(storage.DateLayout))
	if err != nil {
		return fmt.Errorf("save day %s: %w", date, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM program_day_exercise WHERE program_id = ? AND date = ?", day.ProgramID, date); err != nil {
		return fmt.Errorf("clear exercises %s: %w", date, err)
	}
	for i, e := range day.Exercises {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO program_day_exercise (program_id, date, position, exercise, sets, reps, rest_seconds, weight, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			day.ProgramID, date, i, e.Exercise, e.Sets, e.Reps, e.RestSeconds, e.Weight, e.Notes)
		if err != nil {
			return fmt.Errorf("insert exercise %d on %s: %w", i, date, err)
		}
	}
	return tx.Commit()
}

// DeleteDay removes a planned day and, by cascade, its exercises.
func (s *SQLiteStore) DeleteDay(ctx context.Context, programID string, date time.Time) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM program_day WHERE program_id = ? AND date = ?",
		programID, program.Day(date).Format(program.DateLayout))
	return err
}

// ListDays returns the stored days of a program in [from, to).
func (s *SQLiteStore) ListDays(ctx context.Context, programID string, from, to time.Time) ([]domain.Day, error) {
	from, to = program.Day(from), program.Day(to)
	rows, err := s.db.QueryContext(ctx,
		"SELECT date, type, notes, updated_at FROM program_day WHERE program_id = ? AND date >= ? AND date < ? ORDER BY date",
		programID, from.Format(program.DateLayout), to.Format(program.DateLayout))
	if err != nil {
		return nil, err
	}
	var days []domain.Day
	for rows.Next() {
		var d domain.Day
		var date, updatedAt string
		if err := rows.Scan(&date, &d.Type, &d.Notes, &updatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		d.ProgramID = programID
		d.Date, err = program.ParseDate(date)
		if err == nil {
			d.UpdatedAt, err = storage.ParseTime("program_day.updated_at", updatedAt)
		}
		if err != nil {
			rows.Close()
			return nil, err
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	byDate, err := s.exercises(ctx, programID, from, to)
	if err != nil {
		return nil, err
	}
	for i := range days {
		days[i].Exercises = byDate[days[i].Date.Format(program.DateLayout)]
	}
	return days, nil
}

// exercises loads exercise rows in [from, to) grouped by date, in position order.
func (s *SQLiteStore) exercises(ctx context.Context, programID string, from, to time.Time) (map[string][]domain.ExerciseAssignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, exercise, sets, reps, rest_seconds, weight, notes FROM program_day_exercise
		 WHERE program_id = ? AND date >= ? AND date < ? ORDER BY date, position`,
		programID, from.Format(program.DateLayout), to.Format(program.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.ExerciseAssignment)
	for rows.Next() {
		var date string
		var e domain.ExerciseAssignment
		if err := rows.Scan(&date, &e.Exercise, &e.Sets, &e.Reps, &e.RestSeconds, &e.Weight, &e.Notes); err != nil {
			return nil, err
		}
		out[date] = append(out[date], e)
	}
	return out, rows.Err()
}

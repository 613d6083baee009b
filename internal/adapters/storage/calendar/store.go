package calendar

import (
	"context"
	"time"

	domain "coachdesk/internal/domain/calendar"
)

// Store persists planned program days. Dates with no row are free days.
type Store interface {
	// GetDay returns the stored day, or domain.FreeDay when nothing is planned.
	GetDay(ctx context.Context, programID string, date time.Time) (domain.Day, error)
	// SaveDay replaces the day and its exercises atomically.
	SaveDay(ctx context.Context, day domain.Day) error
	// DeleteDay removes the day so it reads as free again.
	DeleteDay(ctx context.Context, programID string, date time.Time) error
	// ListDays returns stored days in [from, to), ordered by date.
	ListDays(ctx context.Context, programID string, from, to time.Time) ([]domain.Day, error)
}

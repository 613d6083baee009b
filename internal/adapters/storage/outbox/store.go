package outbox

import (
	"context"

	domain "coachdesk/internal/domain/outbox"
)

// Store defines outbox entry persistence.
type Store interface {
	// GetByID retrieves an entry.
	// POST: Returns the entry or an error wrapping domain.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save inserts or updates an entry.
	// PRE: e has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns undelivered entries with attempts left, oldest first.
	// PRE: limit > 0
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// List returns entries matching filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]domain.Entry, error)

	// CountByStatus returns the number of entries in each status.
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status     string
	ActionType string
	Limit      int
}

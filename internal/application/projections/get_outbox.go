package projections

import (
	"context"
	"time"

	outboxStore "coachdesk/internal/adapters/storage/outbox"
	domainOutbox "coachdesk/internal/domain/outbox"
)

// GetOutboxQuery carries query parameters.
type GetOutboxQuery struct {
	Status     string // defaults to failed
	ActionType string
	Limit      int
}

// OutboxRow is one entry in the admin outbox view. Payloads are not exposed.
type OutboxRow struct {
	ID              string    `json:"id"`
	ActionType      string    `json:"action_type"`
	Status          string    `json:"status"`
	Attempts        int       `json:"attempts"`
	MaxAttempts     int       `json:"max_attempts"`
	LastAttemptedAt time.Time `json:"last_attempted_at,omitzero"`
	CreatedAt       time.Time `json:"created_at"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// GetOutboxResult carries the query result.
type GetOutboxResult struct {
	Entries []OutboxRow    `json:"entries"`
	Counts  map[string]int `json:"counts"`
}

// GetOutboxDeps holds dependencies for GetOutbox.
type GetOutboxDeps struct {
	Outbox OutboxStore
}

// QueryGetOutbox lists outbox entries for admins, failed ones by default, with per-status totals.
// PRE: Caller is an admin
// POST: Counts has an entry for every status, zero when none exist
func QueryGetOutbox(ctx context.Context, query GetOutboxQuery, deps GetOutboxDeps) (GetOutboxResult, error) {
	status := query.Status
	if status == "" {
		status = domainOutbox.StatusFailed
	}
	if status == "all" {
		status = ""
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	entries, err := deps.Outbox.List(ctx, outboxStore.ListFilter{Status: status, ActionType: query.ActionType, Limit: limit})
	if err != nil {
		return GetOutboxResult{}, err
	}
	counts, err := deps.Outbox.CountByStatus(ctx)
	if err != nil {
		return GetOutboxResult{}, err
	}
	if counts == nil {
		counts = make(map[string]int)
	}
	for _, s := range []string{domainOutbox.StatusPending, domainOutbox.StatusRetrying, domainOutbox.StatusDone, domainOutbox.StatusFailed, domainOutbox.StatusAbandoned} {
		if _, ok := counts[s]; !ok {
			counts[s] = 0
		}
	}

	rows := make([]OutboxRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, OutboxRow{
			ID:              e.ID,
			ActionType:      e.ActionType,
			Status:          e.Status,
			Attempts:        e.Attempts,
			MaxAttempts:     e.MaxAttempts,
			LastAttemptedAt: e.LastAttemptedAt,
			CreatedAt:       e.CreatedAt,
			ErrorMessage:    e.ErrorMessage,
		})
	}
	return GetOutboxResult{Entries: rows, Counts: counts}, nil
}

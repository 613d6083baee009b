package projections

import (
	"context"
	"time"

	invitationStore "coachdesk/internal/adapters/storage/invitation"
	"coachdesk/internal/application/listutil"
	domainInvitation "coachdesk/internal/domain/invitation"
)

// GetInvitationListQuery carries query parameters.
type GetInvitationListQuery struct {
	TrainerID string
	Status    string // empty for every status
	listutil.PageParams
	Now time.Time
}

// InvitationRow is one invitation as the sending trainer sees it. The token is never listed.
type InvitationRow struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name,omitempty"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expires_at"`
	AcceptedAt time.Time `json:"accepted_at,omitzero"`
	CreatedAt  time.Time `json:"created_at"`
}

// GetInvitationListResult carries the query result.
type GetInvitationListResult struct {
	Invitations []InvitationRow `json:"invitations"`
	HasMore     bool            `json:"has_more"`
}

// GetInvitationListDeps holds dependencies for GetInvitationList.
type GetInvitationListDeps struct {
	Invitations InvitationStore
}

// QueryGetInvitationList lists a trainer's invitations, newest first.
// Pending invitations past their expiry are reported as expired even before the sweep flips them.
// PRE: TrainerID is the signed-in trainer
// POST: At most PerPage rows; HasMore is true when another page exists
func QueryGetInvitationList(ctx context.Context, query GetInvitationListQuery, deps GetInvitationListDeps) (GetInvitationListResult, error) {
	perPage := query.PerPage
	if perPage < 1 {
		perPage = listutil.DefaultPerPage
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}

	// One extra row tells us whether a next page exists.
	invs, err := deps.Invitations.ListByTrainer(ctx, query.TrainerID, invitationStore.ListFilter{
		Status: query.Status,
		Limit:  perPage + 1,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return GetInvitationListResult{}, err
	}

	result := GetInvitationListResult{Invitations: make([]InvitationRow, 0, len(invs))}
	if len(invs) > perPage {
		result.HasMore = true
		invs = invs[:perPage]
	}
	for _, inv := range invs {
		status := inv.Status
		if inv.IsOverdue(now) {
			status = domainInvitation.StatusExpired
		}
		result.Invitations = append(result.Invitations, InvitationRow{
			ID:         inv.ID,
			Email:      inv.Email,
			FirstName:  inv.FirstName,
			Status:     status,
			ExpiresAt:  inv.ExpiresAt,
			AcceptedAt: inv.AcceptedAt,
			CreatedAt:  inv.CreatedAt,
		})
	}
	return result, nil
}

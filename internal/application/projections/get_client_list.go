package projections

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"coachdesk/internal/application/listutil"
	domainRelationship "coachdesk/internal/domain/relationship"
)

// ClientListSortColumns are the columns the client list can be sorted by.
var ClientListSortColumns = []string{"name", "email", "since"}

// GetClientListQuery carries query parameters.
type GetClientListQuery struct {
	TrainerID string
	Status    string // "active", "inactive" or empty for both
	listutil.ListParams
}

// ClientRow is one client on a trainer's roster.
type ClientRow struct {
	RelationshipID string    `json:"relationship_id"`
	ClientID       string    `json:"client_id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Status         string    `json:"status"`
	Since          time.Time `json:"since"`
	EndedAt        time.Time `json:"ended_at,omitzero"`
}

// GetClientListResult carries the query result.
type GetClientListResult struct {
	Clients []ClientRow       `json:"clients"`
	Page    listutil.PageInfo `json:"page"`
}

// GetClientListDeps holds dependencies for GetClientList.
type GetClientListDeps struct {
	Relationships RelationshipStore
	Accounts      AccountStore
}

// QueryGetClientList joins a trainer's relationships with the client accounts.
// PRE: TrainerID is the signed-in trainer
// POST: Returns one page of matching clients; default order is newest relationship first
func QueryGetClientList(ctx context.Context, query GetClientListQuery, deps GetClientListDeps) (GetClientListResult, error) {
	if query.Status != "" && query.Status != domainRelationship.StatusActive && query.Status != domainRelationship.StatusInactive {
		return GetClientListResult{}, fmt.Errorf("unknown status %q", query.Status)
	}
	rels, err := deps.Relationships.ListByTrainer(ctx, query.TrainerID, query.Status)
	if err != nil {
		return GetClientListResult{}, err
	}

	rows := make([]ClientRow, 0, len(rels))
	for _, rel := range rels {
		acct, err := deps.Accounts.GetByID(ctx, rel.ClientID)
		if err != nil {
			return GetClientListResult{}, fmt.Errorf("load client %s: %w", rel.ClientID, err)
		}
		if !listutil.MatchesSearch(query.Search, acct.FullName, acct.Email) {
			continue
		}
		rows = append(rows, ClientRow{
			RelationshipID: rel.ID,
			ClientID:       acct.ID,
			FullName:       acct.DisplayName(),
			Email:          acct.Email,
			Phone:          acct.Phone,
			Status:         rel.Status,
			Since:          rel.CreatedAt,
			EndedAt:        rel.EndedAt,
		})
	}

	sortClients(rows, query.SortParams)
	page, info := listutil.Paginate(rows, query.PageParams)
	return GetClientListResult{Clients: page, Page: info}, nil
}

func sortClients(rows []ClientRow, s listutil.SortParams) {
	less := func(a, b ClientRow) bool { return a.Since.After(b.Since) }
	switch s.Sort {
	case "name":
		less = func(a, b ClientRow) bool { return strings.ToLower(a.FullName) < strings.ToLower(b.FullName) }
	case "email":
		less = func(a, b ClientRow) bool { return a.Email < b.Email }
	case "since":
		less = func(a, b ClientRow) bool { return a.Since.Before(b.Since) }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if s.Desc() {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

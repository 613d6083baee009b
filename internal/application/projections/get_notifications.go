package projections

import (
	"context"
	"time"
)

// GetNotificationsQuery carries query parameters.
type GetNotificationsQuery struct {
	AccountID  string
	UnreadOnly bool
	Limit      int
}

// NotificationRow is one in-app notification.
type NotificationRow struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// GetNotificationsResult carries the query result.
type GetNotificationsResult struct {
	Notifications []NotificationRow `json:"notifications"`
	Unread        int               `json:"unread"`
}

// GetNotificationsDeps holds dependencies for GetNotifications.
type GetNotificationsDeps struct {
	Notifications NotificationStore
}

// QueryGetNotifications lists the account's newest notifications and the unread total.
// PRE: AccountID is the signed-in account
// POST: At most Limit rows (50 when unset)
func QueryGetNotifications(ctx context.Context, query GetNotificationsQuery, deps GetNotificationsDeps) (GetNotificationsResult, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	ns, err := deps.Notifications.ListForAccount(ctx, query.AccountID, query.UnreadOnly, limit)
	if err != nil {
		return GetNotificationsResult{}, err
	}
	unread, err := deps.Notifications.CountUnread(ctx, query.AccountID)
	if err != nil {
		return GetNotificationsResult{}, err
	}

	rows := make([]NotificationRow, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, NotificationRow{
			ID:        n.ID,
			Kind:      n.Kind,
			Title:     n.Title,
			Body:      n.Body,
			Read:      n.IsRead(),
			CreatedAt: n.CreatedAt,
		})
	}
	return GetNotificationsResult{Notifications: rows, Unread: unread}, nil
}

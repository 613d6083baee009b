package orchestrators

import (
	"context"
	"errors"
	"time"

	"coachdesk/internal/domain/notification"
)

// NotificationStoreForRead defines the store interface needed by MarkNotificationRead.
type NotificationStoreForRead interface {
	GetByID(ctx context.Context, id string) (notification.Notification, error)
	Save(ctx context.Context, n notification.Notification) error
}

// MarkNotificationReadInput carries input for the orchestrator.
type MarkNotificationReadInput struct {
	AccountID      string
	NotificationID string
}

// MarkNotificationReadDeps holds dependencies for MarkNotificationRead.
type MarkNotificationReadDeps struct {
	Notifications NotificationStoreForRead
	Now           func() time.Time
}

var ErrNotificationNotFound = errors.New("notification not found")

// ExecuteMarkNotificationRead marks one of the account's notifications as read.
// PRE: AccountID is the signed-in account
// POST: ReadAt is set; repeat calls keep the first read time
func ExecuteMarkNotificationRead(ctx context.Context, input MarkNotificationReadInput, deps MarkNotificationReadDeps) (notification.Notification, error) {
	n, err := deps.Notifications.GetByID(ctx, input.NotificationID)
	if err != nil || n.AccountID != input.AccountID {
		return notification.Notification{}, ErrNotificationNotFound
	}
	if n.IsRead() {
		return n, nil
	}
	n.MarkRead(deps.Now())
	if err := deps.Notifications.Save(ctx, n); err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

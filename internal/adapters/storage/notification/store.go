package notification

import (
	"context"

	domain "coachdesk/internal/domain/notification"
)

// Store persists in-app notifications.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Notification, error)
	Save(ctx context.Context, n domain.Notification) error
	ListForAccount(ctx context.Context, accountID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, accountID string) (int, error)
}

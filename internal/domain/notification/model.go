package notification

import (
	"errors"
	"time"
)

// Kind constants
const (
	KindClientJoined      = "client_joined"
	KindInvitationExpired = "invitation_expired"
)

// Domain errors
var (
	ErrEmptyAccount = errors.New("notification recipient is required")
	ErrEmptyTitle   = errors.New("notification title is required")
)

// Notification is an in-app message for one account.
type Notification struct {
	ID        string
	AccountID string
	Kind      string
	Title     string
	Body      string
	ReadAt    time.Time
	CreatedAt time.Time
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.AccountID == "" {
		return ErrEmptyAccount
	}
	if n.Title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// IsRead returns true once the recipient has opened the notification.
func (n *Notification) IsRead() bool {
	return !n.ReadAt.IsZero()
}

// MarkRead records the first time the notification was read. Later calls keep the original time.
func (n *Notification) MarkRead(now time.Time) {
	if n.ReadAt.IsZero() {
		n.ReadAt = now
	}
}

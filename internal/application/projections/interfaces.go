package projections

import (
	"context"
	"time"

	invitationStore "coachdesk/internal/adapters/storage/invitation"
	outboxStore "coachdesk/internal/adapters/storage/outbox"
	domainAccount "coachdesk/internal/domain/account"
	domainCalendar "coachdesk/internal/domain/calendar"
	domainInvitation "coachdesk/internal/domain/invitation"
	domainNotification "coachdesk/internal/domain/notification"
	domainOutbox "coachdesk/internal/domain/outbox"
	domainProgram "coachdesk/internal/domain/program"
	domainRelationship "coachdesk/internal/domain/relationship"
	domainSubscription "coachdesk/internal/domain/subscription"
)

// AccountStore interface for account lookups.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (domainAccount.Account, error)
}

// RelationshipStore interface for roster queries.
type RelationshipStore interface {
	ListByTrainer(ctx context.Context, trainerID, status string) ([]domainRelationship.Relationship, error)
	CountActive(ctx context.Context, trainerID string) (int, error)
}

// InvitationStore interface for invitation queries.
type InvitationStore interface {
	ListByTrainer(ctx context.Context, trainerID string, filter invitationStore.ListFilter) ([]domainInvitation.Invitation, error)
}

// SubscriptionStore interface for tier lookups.
type SubscriptionStore interface {
	GetByTrainer(ctx context.Context, trainerID string) (domainSubscription.Subscription, error)
}

// ProgramStore interface for program queries.
type ProgramStore interface {
	GetByID(ctx context.Context, id string) (domainProgram.Program, error)
	ListByTrainer(ctx context.Context, trainerID string) ([]domainProgram.Program, error)
	ListByClient(ctx context.Context, clientID string) ([]domainProgram.Program, error)
}

// CalendarStore interface for planned day queries.
type CalendarStore interface {
	ListDays(ctx context.Context, programID string, from, to time.Time) ([]domainCalendar.Day, error)
}

// NotificationStore interface for notification queries.
type NotificationStore interface {
	ListForAccount(ctx context.Context, accountID string, unreadOnly bool, limit int) ([]domainNotification.Notification, error)
	CountUnread(ctx context.Context, accountID string) (int, error)
}

// OutboxStore interface for outbox admin queries.
type OutboxStore interface {
	List(ctx context.Context, filter outboxStore.ListFilter) ([]domainOutbox.Entry, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

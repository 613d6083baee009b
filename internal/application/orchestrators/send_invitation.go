package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coachdesk/internal/domain/account"
	"coachdesk/internal/domain/invitation"
	"coachdesk/internal/domain/outbox"
	"coachdesk/internal/domain/relationship"
	"coachdesk/internal/metrics"
)

// AccountStoreForInvitations defines the account lookups the invitation workflow needs.
type AccountStoreForInvitations interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
}

// InvitationStoreForSend defines the store interface needed by SendInvitation.
type InvitationStoreForSend interface {
	FindPending(ctx context.Context, trainerID, email string) (invitation.Invitation, error)
	Save(ctx context.Context, inv invitation.Invitation) error
	TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
}

// RelationshipStoreForSend defines the store interface needed by SendInvitation.
type RelationshipStoreForSend interface {
	GetActive(ctx context.Context, trainerID, clientID string) (relationship.Relationship, error)
	CountActive(ctx context.Context, trainerID string) (int, error)
}

// SendInvitationInput carries input for the send invitation orchestrator.
type SendInvitationInput struct {
	TrainerID       string
	Email           string
	FirstName       string
	PersonalMessage string
}

// SendInvitationResult reports the outcome. Warning is set when the invitation exists but its
// email has not gone out yet.
type SendInvitationResult struct {
	Success    bool
	Invitation invitation.Invitation
	Message    string
	Warning    string
	Reason     invitation.Kind
}

// SendInvitationDeps holds dependencies for SendInvitation.
type SendInvitationDeps struct {
	Accounts      AccountStoreForInvitations
	Invitations   InvitationStoreForSend
	Relationships RelationshipStoreForSend
	Subscriptions SubscriptionReader
	Notifier      Notifier
	Mail          MailSettings
	TTL           time.Duration
	GenerateID    func() string
	GenerateToken func() (string, error)
	Now           func() time.Time
}

const emailPendingWarning = "The invitation was created but the email could not be sent yet. It will be retried automatically."

// ExecuteSendInvitation creates a pending invitation and queues its email.
// PRE: input.TrainerID names a trainer account
// POST: On success a pending invitation with a fresh token exists and an invitation_email entry is queued
// INVARIANT: At most one pending invitation per (trainer, email)
func ExecuteSendInvitation(ctx context.Context, input SendInvitationInput, deps SendInvitationDeps) (SendInvitationResult, error) {
	res, err := sendInvitation(ctx, input, deps)
	metrics.InvitationsSent.WithLabelValues(metrics.Outcome(string(res.Reason))).Inc()
	return res, err
}

func sendInvitation(ctx context.Context, input SendInvitationInput, deps SendInvitationDeps) (SendInvitationResult, error) {
	now := deps.Now()
	email := strings.TrimSpace(input.Email)

	trainer, err := deps.Accounts.GetByID(ctx, input.TrainerID)
	if err != nil || !trainer.IsTrainer() {
		return failSend(invitation.ErrUnauthenticated), nil
	}
	if email == trainer.Email {
		return failSend(fmt.Errorf("%w: you cannot invite yourself", invitation.ErrInvalidInput)), nil
	}

	// Existing pending invitation, unless it has quietly run out.
	pending, err := deps.Invitations.FindPending(ctx, trainer.ID, email)
	switch {
	case err == nil && pending.IsOverdue(now):
		if _, err := deps.Invitations.TransitionStatus(ctx, pending.ID, invitation.StatusPending, invitation.StatusExpired, now); err != nil {
			return SendInvitationResult{}, fmt.Errorf("expire stale invitation: %w", err)
		}
		metrics.InvitationsExpired.WithLabelValues("lazy").Inc()
	case err == nil:
		return failSend(invitation.ErrPendingExists), nil
	case !errors.Is(err, sql.ErrNoRows):
		return SendInvitationResult{}, fmt.Errorf("find pending invitation: %w", err)
	}

	// Already an active client of this trainer.
	if existing, err := deps.Accounts.GetByEmail(ctx, email); err == nil {
		if _, err := deps.Relationships.GetActive(ctx, trainer.ID, existing.ID); err == nil {
			return failSend(invitation.ErrAlreadyClient), nil
		} else if !errors.Is(err, relationship.ErrNotFound) {
			return SendInvitationResult{}, fmt.Errorf("check relationship: %w", err)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return SendInvitationResult{}, fmt.Errorf("look up invitee: %w", err)
	}

	decision, err := CanAdmit(ctx, trainer.ID, AdmissionDeps{Subscriptions: deps.Subscriptions, Relationships: deps.Relationships})
	if err != nil {
		return SendInvitationResult{}, err
	}
	if !decision.Allowed {
		return failSend(invitation.ErrLimitReached), nil
	}

	token, err := deps.GenerateToken()
	if err != nil {
		return SendInvitationResult{}, err
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = invitation.DefaultTTL
	}
	inv := invitation.Invitation{
		ID:              deps.GenerateID(),
		Token:           token,
		TrainerID:       trainer.ID,
		Email:           email,
		FirstName:       strings.TrimSpace(input.FirstName),
		PersonalMessage: strings.TrimSpace(input.PersonalMessage),
		Status:          invitation.StatusPending,
		ExpiresAt:       now.Add(ttl),
		CreatedAt:       now,
	}
	if err := inv.Validate(); err != nil {
		return failSend(err), nil
	}
	if err := deps.Invitations.Save(ctx, inv); err != nil {
		return SendInvitationResult{}, fmt.Errorf("save invitation: %w", err)
	}

	slog.Info("invitation_event", "event", "invitation_sent", "invitation_id", inv.ID, "trainer_id", trainer.ID, "email", invitation.MaskEmail(inv.Email))

	res := SendInvitationResult{
		Success:    true,
		Invitation: inv,
		Message:    "Invitation sent to " + inv.Email,
	}
	if !queueInvitationEmail(ctx, inv, trainer, deps.Mail, deps.Notifier, deps.GenerateID, now) {
		res.Warning = emailPendingWarning
	}
	return res, nil
}

// queueInvitationEmail enqueues the invitation email. It reports whether the email went out.
func queueInvitationEmail(ctx context.Context, inv invitation.Invitation, trainer account.Account, mail MailSettings, notifier Notifier, generateID func() string, now time.Time) bool {
	payload, err := invitationEmail(inv, trainer, mail)
	if err != nil {
		slog.Error("invitation_email_render_failed", "invitation_id", inv.ID, "error", err.Error())
		return false
	}
	entry, err := outbox.NewEmailEntry(generateID(), outbox.ActionInvitationEmail, payload, now)
	if err != nil {
		slog.Error("invitation_email_enqueue_failed", "invitation_id", inv.ID, "error", err.Error())
		return false
	}
	if notifier == nil {
		return false
	}
	delivered, err := notifier.Enqueue(ctx, entry)
	if err != nil {
		slog.Error("invitation_email_enqueue_failed", "invitation_id", inv.ID, "error", err.Error())
		return false
	}
	return delivered
}

func failSend(err error) SendInvitationResult {
	kind := invitation.KindOf(err)
	msg := kind.Message()
	switch kind {
	case invitation.KindInvalidInput:
		msg = err.Error()
	case invitation.KindLimitReached:
		msg = "You have reached your plan's client limit. Upgrade to invite more clients."
	}
	return SendInvitationResult{Reason: kind, Message: msg}
}

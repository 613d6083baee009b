package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coachdesk/internal/domain/account"
	"coachdesk/internal/domain/invitation"
	"coachdesk/internal/domain/notification"
	"coachdesk/internal/domain/outbox"
	"coachdesk/internal/domain/relationship"
	"coachdesk/internal/metrics"
)

// InvitationStoreForAccept defines the store interface needed by AcceptInvitation.
type InvitationStoreForAccept interface {
	GetByToken(ctx context.Context, token string) (invitation.Invitation, error)
	TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
}

// AccountReader loads accounts by ID.
type AccountReader interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// RelationshipStoreForAccept defines the store interface needed by AcceptInvitation.
type RelationshipStoreForAccept interface {
	GetByInvitationID(ctx context.Context, invitationID string) (relationship.Relationship, error)
	CountActive(ctx context.Context, trainerID string) (int, error)
	CreateIfUnderLimit(ctx context.Context, rel relationship.Relationship, limit int) error
}

// NotificationWriter stores in-app notifications.
type NotificationWriter interface {
	Save(ctx context.Context, n notification.Notification) error
}

// ClientData is the profile the accepting client supplies.
type ClientData struct {
	FullName string
	Email    string
	Phone    string
}

// AcceptInvitationInput carries input for the accept invitation orchestrator.
type AcceptInvitationInput struct {
	Token    string
	ClientID string // signed-in account; empty means unauthenticated
	Client   ClientData
}

// AcceptInvitationResult reports the outcome of an acceptance.
type AcceptInvitationResult struct {
	Success        bool
	RelationshipID string
	TrainerID      string
	Reason         invitation.Kind
	Message        string
}

// AcceptInvitationDeps holds dependencies for AcceptInvitation.
type AcceptInvitationDeps struct {
	Invitations   InvitationStoreForAccept
	Accounts      AccountReader
	Relationships RelationshipStoreForAccept
	Subscriptions SubscriptionReader
	Notifications NotificationWriter
	Notifier      Notifier
	GenerateID    func() string
	Now           func() time.Time
}

// ExecuteAcceptInvitation links the client to the inviting trainer.
// Steps short-circuit with a distinct Reason. Only storage failures that leave the outcome
// unknown are returned as errors.
// PRE: input.ClientID names the signed-in client
// POST: On success exactly one relationship references the invitation and the invitation is
// accepted (or will be repaired to accepted by a re-accept or the sweep)
// INVARIANT: The trainer's active client count never exceeds their limit
func ExecuteAcceptInvitation(ctx context.Context, input AcceptInvitationInput, deps AcceptInvitationDeps) (AcceptInvitationResult, error) {
	res, err := acceptInvitation(ctx, input, deps)
	if err == nil {
		metrics.InvitationAcceptances.WithLabelValues(metrics.Outcome(string(res.Reason))).Inc()
	}
	return res, err
}

func acceptInvitation(ctx context.Context, input AcceptInvitationInput, deps AcceptInvitationDeps) (AcceptInvitationResult, error) {
	if input.ClientID == "" {
		return failAccept(invitation.ErrUnauthenticated), nil
	}
	client, err := deps.Accounts.GetByID(ctx, input.ClientID)
	if errors.Is(err, sql.ErrNoRows) {
		return failAccept(invitation.ErrUnauthenticated), nil
	}
	if err != nil {
		return AcceptInvitationResult{}, fmt.Errorf("load client: %w", err)
	}
	if client.Role != account.RoleClient {
		slog.Info("invitation_event", "event", "accept_rejected", "account_id", client.ID, "reason", invitation.KindNotAClient)
		return failAccept(invitation.ErrNotAClient), nil
	}

	// 1. Token, expiry, status.
	if input.Token == "" {
		return failAccept(invitation.ErrNotFound), nil
	}
	inv, err := deps.Invitations.GetByToken(ctx, input.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return failAccept(invitation.ErrNotFound), nil
	}
	if err != nil {
		return AcceptInvitationResult{}, fmt.Errorf("load invitation: %w", err)
	}
	now := deps.Now()
	if err := inv.CheckUsable(now); err != nil {
		if inv.IsOverdue(now) {
			expireLazily(ctx, inv, deps.Invitations, now)
		}
		return failAccept(err), nil
	}

	// 2. The invitation is for one exact address: the signed-in account's.
	// A supplied email must also name that account.
	if client.Email != inv.Email || (input.Client.Email != "" && input.Client.Email != client.Email) {
		slog.Info("invitation_event", "event", "accept_rejected", "invitation_id", inv.ID, "reason", invitation.KindEmailMismatch)
		return failAccept(invitation.ErrEmailMismatch), nil
	}

	// 3. A previous attempt linked the client but did not flip the status.
	if rel, err := deps.Relationships.GetByInvitationID(ctx, inv.ID); err == nil {
		if rel.ClientID != client.ID {
			return failAccept(invitation.ErrAlreadyUsed), nil
		}
		markAccepted(ctx, inv, deps.Invitations, now)
		slog.Info("invitation_event", "event", "accept_repaired", "invitation_id", inv.ID, "relationship_id", rel.ID)
		return acceptedResult(rel), nil
	} else if !errors.Is(err, relationship.ErrNotFound) {
		return AcceptInvitationResult{}, fmt.Errorf("check existing relationship: %w", err)
	}

	// 4. Early, user-facing limit check.
	decision, err := CanAdmit(ctx, inv.TrainerID, AdmissionDeps{Subscriptions: deps.Subscriptions, Relationships: deps.Relationships})
	if err != nil {
		return AcceptInvitationResult{}, err
	}
	if !decision.Allowed {
		return failAccept(invitation.ErrLimitReached), nil
	}

	// 5. Conditional insert; the limit is enforced again inside the statement.
	rel := relationship.Relationship{
		ID:           deps.GenerateID(),
		TrainerID:    inv.TrainerID,
		ClientID:     client.ID,
		InvitationID: inv.ID,
		Status:       relationship.StatusActive,
		CreatedAt:    now,
	}
	if err := rel.Validate(); err != nil {
		return failAccept(fmt.Errorf("%w: %w", invitation.ErrRelationshipCreateFailed, err)), nil
	}
	err = deps.Relationships.CreateIfUnderLimit(ctx, rel, decision.Limit)
	switch {
	case errors.Is(err, relationship.ErrLimitReached):
		slog.Info("invitation_event", "event", "accept_rejected", "invitation_id", inv.ID, "reason", invitation.KindLimitReached, "race", true)
		return failAccept(invitation.ErrLimitReached), nil
	case errors.Is(err, relationship.ErrInvitationLinked):
		// A concurrent accept of the same invitation won; report its relationship.
		existing, getErr := deps.Relationships.GetByInvitationID(ctx, inv.ID)
		if getErr != nil || existing.ClientID != client.ID {
			return failAccept(invitation.ErrAlreadyUsed), nil
		}
		markAccepted(ctx, inv, deps.Invitations, now)
		return acceptedResult(existing), nil
	case errors.Is(err, relationship.ErrAlreadyActive):
		// Already linked through another route; the invitation is spent either way.
		markAccepted(ctx, inv, deps.Invitations, now)
		slog.Info("invitation_event", "event", "invitation_accepted", "invitation_id", inv.ID, "already_active", true)
		return AcceptInvitationResult{Success: true, TrainerID: inv.TrainerID}, nil
	case err != nil:
		slog.Error("relationship_create_failed", "invitation_id", inv.ID, "error", err.Error())
		return failAccept(fmt.Errorf("%w: %w", invitation.ErrRelationshipCreateFailed, err)), nil
	}

	// 6. Flip the status; a failure here is repaired later.
	markAccepted(ctx, inv, deps.Invitations, now)
	slog.Info("invitation_event", "event", "invitation_accepted", "invitation_id", inv.ID, "relationship_id", rel.ID, "trainer_id", inv.TrainerID)

	// 7. Notifications never change the outcome.
	notifyClientJoined(ctx, rel, client, deps, now)

	return acceptedResult(rel), nil
}

// markAccepted flips pending -> accepted, logging instead of failing.
func markAccepted(ctx context.Context, inv invitation.Invitation, store InvitationStoreForAccept, now time.Time) {
	if _, err := store.TransitionStatus(ctx, inv.ID, invitation.StatusPending, invitation.StatusAccepted, now); err != nil {
		slog.Error("invitation_status_update_failed", "invitation_id", inv.ID, "error", err.Error())
	}
}

// notifyClientJoined queues the welcome and trainer emails and records the trainer's in-app notification.
func notifyClientJoined(ctx context.Context, rel relationship.Relationship, client account.Account, deps AcceptInvitationDeps, now time.Time) {
	trainer, err := deps.Accounts.GetByID(ctx, rel.TrainerID)
	if err != nil {
		slog.Error("notify_client_joined_failed", "relationship_id", rel.ID, "error", err.Error())
		return
	}

	emails := []struct {
		action string
		build  func(relationship.Relationship, account.Account, account.Account) (outbox.EmailPayload, error)
	}{
		{outbox.ActionWelcomeEmail, welcomeEmail},
		{outbox.ActionTrainerNotifyEmail, trainerNotifyEmail},
	}
	for _, e := range emails {
		payload, err := e.build(rel, trainer, client)
		if err == nil {
			var entry outbox.Entry
			if entry, err = outbox.NewEmailEntry(deps.GenerateID(), e.action, payload, now); err == nil && deps.Notifier != nil {
				_, err = deps.Notifier.Enqueue(ctx, entry)
			}
		}
		if err != nil {
			slog.Error("notify_client_joined_failed", "relationship_id", rel.ID, "action_type", e.action, "error", err.Error())
		}
	}

	if deps.Notifications == nil {
		return
	}
	n := notification.Notification{
		ID:        deps.GenerateID(),
		AccountID: trainer.ID,
		Kind:      notification.KindClientJoined,
		Title:     client.DisplayName() + " joined as your client",
		Body:      client.Email,
		CreatedAt: now,
	}
	if err := deps.Notifications.Save(ctx, n); err != nil {
		slog.Error("notify_client_joined_failed", "relationship_id", rel.ID, "error", err.Error())
	}
}

func acceptedResult(rel relationship.Relationship) AcceptInvitationResult {
	return AcceptInvitationResult{Success: true, RelationshipID: rel.ID, TrainerID: rel.TrainerID}
}

func failAccept(err error) AcceptInvitationResult {
	kind := invitation.KindOf(err)
	return AcceptInvitationResult{Reason: kind, Message: kind.Message()}
}

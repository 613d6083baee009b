package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coachdesk/internal/domain/invitation"
)

// InvitationStoreForManage defines the store interface needed by cancel and resend.
type InvitationStoreForManage interface {
	GetByID(ctx context.Context, id string) (invitation.Invitation, error)
	FindPending(ctx context.Context, trainerID, email string) (invitation.Invitation, error)
	Save(ctx context.Context, inv invitation.Invitation) error
}

// ManageInvitationInput names one of the trainer's invitations.
type ManageInvitationInput struct {
	TrainerID    string
	InvitationID string
}

// CancelInvitationDeps holds dependencies for CancelInvitation.
type CancelInvitationDeps struct {
	Invitations InvitationStoreForManage
}

// ResendInvitationDeps holds dependencies for ResendInvitation.
type ResendInvitationDeps struct {
	Invitations   InvitationStoreForManage
	Accounts      AccountReader
	Notifier      Notifier
	Mail          MailSettings
	TTL           time.Duration
	GenerateID    func() string
	GenerateToken func() (string, error)
	Now           func() time.Time
}

// loadOwnInvitation returns the invitation if it belongs to trainerID. Other trainers' invitations
// are reported as not found.
func loadOwnInvitation(ctx context.Context, store InvitationStoreForManage, input ManageInvitationInput) (invitation.Invitation, error) {
	inv, err := store.GetByID(ctx, input.InvitationID)
	if errors.Is(err, sql.ErrNoRows) {
		return invitation.Invitation{}, invitation.ErrNotFound
	}
	if err != nil {
		return invitation.Invitation{}, fmt.Errorf("load invitation: %w", err)
	}
	if inv.TrainerID != input.TrainerID {
		return invitation.Invitation{}, invitation.ErrNotFound
	}
	return inv, nil
}

// ExecuteCancelInvitation withdraws a pending invitation so its link stops working.
// PRE: input.TrainerID owns the invitation
// POST: Invitation status is cancelled
func ExecuteCancelInvitation(ctx context.Context, input ManageInvitationInput, deps CancelInvitationDeps) error {
	inv, err := loadOwnInvitation(ctx, deps.Invitations, input)
	if err != nil {
		return err
	}
	if err := inv.Cancel(); err != nil {
		return err
	}
	if err := deps.Invitations.Save(ctx, inv); err != nil {
		return fmt.Errorf("save invitation: %w", err)
	}
	slog.Info("invitation_event", "event", "invitation_cancelled", "invitation_id", inv.ID, "trainer_id", inv.TrainerID)
	return nil
}

// ExecuteResendInvitation issues a fresh token and expiry for a pending or expired invitation and
// queues a new email. The previous link stops working.
// PRE: input.TrainerID owns the invitation
// POST: Invitation is pending with a new token; an invitation_email entry is queued
func ExecuteResendInvitation(ctx context.Context, input ManageInvitationInput, deps ResendInvitationDeps) (SendInvitationResult, error) {
	inv, err := loadOwnInvitation(ctx, deps.Invitations, input)
	if err != nil {
		if errors.Is(err, invitation.ErrNotFound) {
			return failSend(err), nil
		}
		return SendInvitationResult{}, err
	}

	if inv.Status == invitation.StatusExpired {
		other, err := deps.Invitations.FindPending(ctx, inv.TrainerID, inv.Email)
		switch {
		case err == nil && other.ID != inv.ID:
			return failSend(invitation.ErrPendingExists), nil
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return SendInvitationResult{}, fmt.Errorf("find pending invitation: %w", err)
		}
	}

	token, err := deps.GenerateToken()
	if err != nil {
		return SendInvitationResult{}, err
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = invitation.DefaultTTL
	}
	now := deps.Now()
	if err := inv.Renew(token, now, ttl); err != nil {
		return failSend(err), nil
	}
	if err := deps.Invitations.Save(ctx, inv); err != nil {
		return SendInvitationResult{}, fmt.Errorf("save invitation: %w", err)
	}

	trainer, err := deps.Accounts.GetByID(ctx, inv.TrainerID)
	if err != nil {
		return SendInvitationResult{}, fmt.Errorf("load trainer: %w", err)
	}
	slog.Info("invitation_event", "event", "invitation_resent", "invitation_id", inv.ID, "trainer_id", inv.TrainerID)

	res := SendInvitationResult{Success: true, Invitation: inv, Message: "Invitation re-sent to " + inv.Email}
	if !queueInvitationEmail(ctx, inv, trainer, deps.Mail, deps.Notifier, deps.GenerateID, now) {
		res.Warning = emailPendingWarning
	}
	return res, nil
}

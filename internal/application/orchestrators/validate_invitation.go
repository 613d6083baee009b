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
	"coachdesk/internal/metrics"
)

// InvitationStoreForValidate defines the store interface needed by ValidateInvitation.
type InvitationStoreForValidate interface {
	GetByToken(ctx context.Context, token string) (invitation.Invitation, error)
	TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
}

// AccountStoreForValidate defines the account lookups ValidateInvitation needs.
type AccountStoreForValidate interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// invitationTransitioner moves an invitation between statuses with a compare-and-set.
type invitationTransitioner interface {
	TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
}

// ValidateInvitationDeps holds dependencies for ValidateInvitation.
type ValidateInvitationDeps struct {
	Invitations InvitationStoreForValidate
	Accounts    AccountStoreForValidate
	Now         func() time.Time
}

// ValidateInvitationResult reports whether a token can be accepted.
// Invitation is set when Valid, and also for EmailTaken so the caller can offer sign-in.
type ValidateInvitationResult struct {
	Valid      bool
	Invitation *invitation.View
	UserExists bool
	Reason     invitation.Kind
	Message    string
}

// ExecuteValidateInvitation checks a token without consuming it. An unknown token is a
// NotFound result, not an error. Only storage failures are returned as errors.
// PRE: none
// POST: A pending invitation past its expiry is flipped to expired
func ExecuteValidateInvitation(ctx context.Context, token string, deps ValidateInvitationDeps) (ValidateInvitationResult, error) {
	res, err := validateInvitation(ctx, token, deps)
	if err == nil {
		metrics.InvitationValidations.WithLabelValues(metrics.Outcome(string(res.Reason))).Inc()
	}
	return res, err
}

func validateInvitation(ctx context.Context, token string, deps ValidateInvitationDeps) (ValidateInvitationResult, error) {
	if token == "" {
		return invalid(invitation.ErrNotFound), nil
	}
	inv, err := deps.Invitations.GetByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return invalid(invitation.ErrNotFound), nil
	}
	if err != nil {
		return ValidateInvitationResult{}, fmt.Errorf("load invitation: %w", err)
	}

	now := deps.Now()
	if err := inv.CheckUsable(now); err != nil {
		if inv.IsOverdue(now) {
			expireLazily(ctx, inv, deps.Invitations, now)
		}
		return invalid(err), nil
	}

	trainer, err := deps.Accounts.GetByID(ctx, inv.TrainerID)
	if err != nil {
		return ValidateInvitationResult{}, fmt.Errorf("load trainer: %w", err)
	}
	view := &invitation.View{
		InvitationID:    inv.ID,
		TrainerName:     trainer.DisplayName(),
		TrainerEmail:    trainer.Email,
		Email:           inv.Email,
		MaskedEmail:     invitation.MaskEmail(inv.Email),
		FirstName:       inv.FirstName,
		PersonalMessage: inv.PersonalMessage,
		ExpiresAt:       inv.ExpiresAt,
	}

	exists, err := deps.Accounts.ExistsByEmail(ctx, inv.Email)
	if err != nil {
		return ValidateInvitationResult{}, fmt.Errorf("check invitee account: %w", err)
	}
	if exists {
		return ValidateInvitationResult{
			Invitation: view,
			UserExists: true,
			Reason:     invitation.KindEmailTaken,
			Message:    invitation.KindEmailTaken.Message(),
		}, nil
	}
	return ValidateInvitationResult{Valid: true, Invitation: view}, nil
}

// expireLazily persists the pending -> expired flip. A failure leaves the sweep to retry it.
func expireLazily(ctx context.Context, inv invitation.Invitation, store invitationTransitioner, now time.Time) {
	changed, err := store.TransitionStatus(ctx, inv.ID, invitation.StatusPending, invitation.StatusExpired, now)
	if err != nil {
		slog.Error("invitation_expire_failed", "invitation_id", inv.ID, "error", err.Error())
		return
	}
	if changed {
		metrics.InvitationsExpired.WithLabelValues("lazy").Inc()
		slog.Info("invitation_event", "event", "invitation_expired", "invitation_id", inv.ID, "source", "lazy")
	}
}

func invalid(err error) ValidateInvitationResult {
	kind := invitation.KindOf(err)
	return ValidateInvitationResult{Reason: kind, Message: kind.Message()}
}

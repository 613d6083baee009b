package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coachdesk/internal/domain/invitation"
	"coachdesk/internal/domain/notification"
	"coachdesk/internal/metrics"
)

// InvitationStoreForSweep defines the store interface needed by SweepInvitations.
type InvitationStoreForSweep interface {
	ExpireOverdue(ctx context.Context, now time.Time) ([]invitation.Invitation, error)
	ListPendingLinked(ctx context.Context, limit int) ([]invitation.Invitation, error)
	TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
}

// SweepInvitationsDeps holds dependencies for SweepInvitations.
type SweepInvitationsDeps struct {
	Invitations   InvitationStoreForSweep
	Notifications NotificationWriter
	GenerateID    func() string
	Now           func() time.Time
}

// SweepInvitationsResult counts what one sweep changed.
type SweepInvitationsResult struct {
	Expired    int
	Reconciled int
}

const reconcileBatch = 100

// ExecuteSweepInvitations expires overdue pending invitations and repairs invitations whose
// relationship was created but whose status flip was lost.
// PRE: none
// POST: No pending invitation is past its expiry; up to reconcileBatch linked invitations are accepted
func ExecuteSweepInvitations(ctx context.Context, deps SweepInvitationsDeps) (SweepInvitationsResult, error) {
	now := deps.Now()
	var res SweepInvitationsResult

	// Reconcile first so an accepted-but-unflipped invitation is never reported as expired.
	linked, err := deps.Invitations.ListPendingLinked(ctx, reconcileBatch)
	if err != nil {
		return res, fmt.Errorf("list linked invitations: %w", err)
	}
	for _, inv := range linked {
		ok, err := deps.Invitations.TransitionStatus(ctx, inv.ID, invitation.StatusPending, invitation.StatusAccepted, now)
		if err != nil {
			slog.Error("invitation_reconcile_failed", "invitation_id", inv.ID, "error", err.Error())
			continue
		}
		if ok {
			res.Reconciled++
			slog.Info("invitation_event", "event", "invitation_reconciled", "invitation_id", inv.ID)
		}
	}

	expired, err := deps.Invitations.ExpireOverdue(ctx, now)
	res.Expired = len(expired)
	metrics.InvitationsExpired.WithLabelValues("sweep").Add(float64(len(expired)))
	for _, inv := range expired {
		slog.Info("invitation_event", "event", "invitation_expired", "invitation_id", inv.ID, "source", "sweep")
		notifyExpired(ctx, inv, deps, now)
	}
	if err != nil {
		return res, fmt.Errorf("expire overdue invitations: %w", err)
	}

	if res.Expired > 0 || res.Reconciled > 0 {
		slog.Info("invitation_sweep_complete", "expired", res.Expired, "reconciled", res.Reconciled)
	}
	return res, nil
}

func notifyExpired(ctx context.Context, inv invitation.Invitation, deps SweepInvitationsDeps, now time.Time) {
	if deps.Notifications == nil {
		return
	}
	n := notification.Notification{
		ID:        deps.GenerateID(),
		AccountID: inv.TrainerID,
		Kind:      notification.KindInvitationExpired,
		Title:     "Invitation to " + inv.Email + " expired",
		Body:      "Re-send it from your invitations list if they still want to join.",
		CreatedAt: now,
	}
	if err := deps.Notifications.Save(ctx, n); err != nil {
		slog.Error("notify_invitation_expired_failed", "invitation_id", inv.ID, "error", err.Error())
	}
}

package web

import (
	"errors"
	"net/http"

	"coachdesk/internal/application/listutil"
	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/application/projections"
	"coachdesk/internal/domain/relationship"
	"coachdesk/internal/domain/subscription"
)

type setSubscriptionRequest struct {
	Tier string `json:"tier" validate:"required,oneof=free pro beast"`
}

// handleListClients handles GET /api/clients?status=&q=&sort=&dir=&page=&per_page=.
func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	params := listutil.ParseListParams(r.URL.Query(), projections.ClientListSortColumns, []string{"status"})
	status := params.Filters["status"]
	if status != "" && status != relationship.StatusActive && status != relationship.StatusInactive {
		badRequest(w, "status must be active or inactive")
		return
	}
	res, err := projections.QueryGetClientList(r.Context(), projections.GetClientListQuery{
		TrainerID:  currentSession(r).AccountID,
		Status:     status,
		ListParams: params,
	}, projections.GetClientListDeps{
		Relationships: s.stores.Relationships,
		Accounts:      s.stores.Accounts,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDeactivateClient handles POST /api/clients/{id}/deactivate, where id is the relationship.
func (s *Server) handleDeactivateClient(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteDeactivateClient(r.Context(), orchestrators.DeactivateClientInput{
		TrainerID:      currentSession(r).AccountID,
		RelationshipID: r.PathValue("id"),
	}, orchestrators.DeactivateClientDeps{Relationships: s.stores.Relationships, Now: s.now})
	switch {
	case errors.Is(err, relationship.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Client not found.")
		return
	case errors.Is(err, relationship.ErrNotActive):
		writeError(w, http.StatusConflict, "not_active", "This client is already inactive.")
		return
	case err != nil:
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetSubscription handles GET /api/subscription for the signed-in trainer.
func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	res, err := projections.QueryGetSubscription(r.Context(), projections.GetSubscriptionQuery{
		TrainerID: currentSession(r).AccountID,
	}, projections.GetSubscriptionDeps{
		Subscriptions: s.stores.Subscriptions,
		Relationships: s.stores.Relationships,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSetSubscription handles PUT /api/admin/subscriptions/{trainerID}.
func (s *Server) handleSetSubscription(w http.ResponseWriter, r *http.Request) {
	var req setSubscriptionRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	sub, err := orchestrators.ExecuteSetSubscription(r.Context(), orchestrators.SetSubscriptionInput{
		TrainerID: r.PathValue("trainerID"),
		Tier:      req.Tier,
	}, orchestrators.SetSubscriptionDeps{
		Accounts:      s.stores.Accounts,
		Subscriptions: s.stores.Subscriptions,
		Now:           s.now,
	})
	switch {
	case errors.Is(err, orchestrators.ErrNotATrainer), isNoRows(err):
		writeError(w, http.StatusNotFound, "not_found", "Trainer not found.")
		return
	case errors.Is(err, subscription.ErrInvalidTier):
		badRequest(w, err.Error())
		return
	case err != nil:
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trainer_id":   sub.TrainerID,
		"tier":         sub.Tier,
		"client_limit": sub.ClientLimit(),
	})
}

package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"coachdesk/internal/application/projections"
	"coachdesk/internal/domain/outbox"
	"coachdesk/internal/metrics"
)

// handleListOutbox handles GET /admin/outbox?status=&action_type=&limit=.
// status defaults to failed; "all" lists every status.
func (s *Server) handleListOutbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	switch status {
	case "", "all", outbox.StatusPending, outbox.StatusRetrying, outbox.StatusDone, outbox.StatusFailed, outbox.StatusAbandoned:
	default:
		badRequest(w, "status must be one of: all, pending, retrying, done, failed, abandoned")
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	res, err := projections.QueryGetOutbox(r.Context(), projections.GetOutboxQuery{
		Status:     status,
		ActionType: q.Get("action_type"),
		Limit:      limit,
	}, projections.GetOutboxDeps{Outbox: s.stores.Outbox})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRetryOutbox handles POST /admin/outbox/{id}/retry: fresh attempts and one delivery now.
// A delivery that fails again is still accepted; the worker keeps retrying it.
func (s *Server) handleRetryOutbox(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.outbox.RetryEntry(r.Context(), id)
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": outbox.StatusDone})
		return
	}
	if s.writeOutboxError(w, err) {
		return
	}
	e, getErr := s.stores.Outbox.GetByID(r.Context(), id)
	if getErr != nil {
		internalError(w, errors.Join(err, getErr))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "status": e.Status, "error": e.ErrorMessage})
}

// handleAbandonOutbox handles POST /admin/outbox/{id}/abandon.
func (s *Server) handleAbandonOutbox(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.outbox.AbandonEntry(r.Context(), id); err != nil {
		if !s.writeOutboxError(w, err) {
			internalError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": outbox.StatusAbandoned})
}

// writeOutboxError answers not-found and terminal-state failures and reports whether it did.
func (s *Server) writeOutboxError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, outbox.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Outbox entry not found.")
	case errors.Is(err, outbox.ErrTerminal):
		writeError(w, http.StatusConflict, "terminal", "This entry is already delivered or abandoned.")
	default:
		return false
	}
	return true
}

// handlePerf handles GET /admin/perf?minutes=. It summarises the in-memory sample ring.
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if s.ring == nil {
		writeJSON(w, http.StatusOK, metrics.Summary{})
		return
	}
	minutes, err := strconv.Atoi(r.URL.Query().Get("minutes"))
	if err != nil || minutes <= 0 {
		minutes = 15
	}
	since := time.Now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, s.ring.Summarize(since, 10))
}

// handleHealthz handles GET /healthz. It reports 503 when the database does not answer.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

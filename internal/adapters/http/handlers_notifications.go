package web

import (
	"errors"
	"net/http"
	"strconv"

	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/application/projections"
)

// handleListNotifications handles GET /api/notifications?unread=1&limit=.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	unreadOnly, _ := strconv.ParseBool(q.Get("unread"))
	res, err := projections.QueryGetNotifications(r.Context(), projections.GetNotificationsQuery{
		AccountID:  currentSession(r).AccountID,
		UnreadOnly: unreadOnly,
		Limit:      limit,
	}, projections.GetNotificationsDeps{Notifications: s.stores.Notifications})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleMarkNotificationRead handles POST /api/notifications/{id}/read.
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := orchestrators.ExecuteMarkNotificationRead(r.Context(), orchestrators.MarkNotificationReadInput{
		AccountID:      currentSession(r).AccountID,
		NotificationID: r.PathValue("id"),
	}, orchestrators.MarkNotificationReadDeps{Notifications: s.stores.Notifications, Now: s.now})
	switch {
	case errors.Is(err, orchestrators.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Notification not found.")
		return
	case err != nil:
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": n.ID, "read_at": n.ReadAt})
}

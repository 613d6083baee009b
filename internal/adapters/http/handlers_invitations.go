package web

import (
	"net/http"
	"time"

	"coachdesk/internal/adapters/http/middleware"
	"coachdesk/internal/application/listutil"
	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/application/projections"
	"coachdesk/internal/domain/invitation"
)

type sendInvitationRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	FirstName       string `json:"first_name" validate:"max=80"`
	PersonalMessage string `json:"personal_message" validate:"max=2000"`
}

type acceptInvitationRequest struct {
	Token    string `json:"token" validate:"required"`
	FullName string `json:"full_name" validate:"max=120"`
	Email    string `json:"email" validate:"omitempty,max=254"`
	Phone    string `json:"phone" validate:"max=32"`
	// Password signs an invitee without an account up inline.
	Password string `json:"password" validate:"omitempty,min=12,max=72"`
}

// invitationResponse is a sent invitation. The token only ever travels in the email.
type invitationResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type sendInvitationResponse struct {
	Invitation invitationResponse `json:"invitation"`
	Message    string             `json:"message"`
	Warning    string             `json:"warning,omitempty"`
}

type validateInvitationResponse struct {
	Valid      bool             `json:"valid"`
	Invitation *invitation.View `json:"invitation,omitempty"`
	UserExists bool             `json:"user_exists"`
	ErrorKind  string           `json:"error_kind,omitempty"`
	Message    string           `json:"message,omitempty"`
}

type acceptInvitationResponse struct {
	Success        bool             `json:"success"`
	RelationshipID string           `json:"relationship_id,omitempty"`
	TrainerID      string           `json:"trainer_id"`
	Session        *sessionResponse `json:"session,omitempty"`
}

func newInvitationResponse(inv invitation.Invitation) invitationResponse {
	return invitationResponse{
		ID:        inv.ID,
		Email:     inv.Email,
		FirstName: inv.FirstName,
		Status:    inv.Status,
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
}

func (s *Server) sendInvitationDeps() orchestrators.SendInvitationDeps {
	return orchestrators.SendInvitationDeps{
		Accounts:      s.stores.Accounts,
		Invitations:   s.stores.Invitations,
		Relationships: s.stores.Relationships,
		Subscriptions: s.stores.Subscriptions,
		Notifier:      s.outbox,
		Mail:          s.opts.Mail,
		TTL:           s.opts.InvitationTTL,
		GenerateID:    s.generateID,
		GenerateToken: s.generateToken,
		Now:           s.now,
	}
}

func (s *Server) acceptInvitationDeps() orchestrators.AcceptInvitationDeps {
	return orchestrators.AcceptInvitationDeps{
		Invitations:   s.stores.Invitations,
		Accounts:      s.stores.Accounts,
		Relationships: s.stores.Relationships,
		Subscriptions: s.stores.Subscriptions,
		Notifications: s.stores.Notifications,
		Notifier:      s.outbox,
		GenerateID:    s.generateID,
		Now:           s.now,
	}
}

// handleSendInvitation handles POST /api/invitations.
func (s *Server) handleSendInvitation(w http.ResponseWriter, r *http.Request) {
	var req sendInvitationRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := orchestrators.ExecuteSendInvitation(r.Context(), orchestrators.SendInvitationInput{
		TrainerID:       currentSession(r).AccountID,
		Email:           req.Email,
		FirstName:       req.FirstName,
		PersonalMessage: req.PersonalMessage,
	}, s.sendInvitationDeps())
	if err != nil {
		internalError(w, err)
		return
	}
	writeSendResult(w, res, http.StatusCreated)
}

// handleResendInvitation handles POST /api/invitations/{id}/resend.
func (s *Server) handleResendInvitation(w http.ResponseWriter, r *http.Request) {
	res, err := orchestrators.ExecuteResendInvitation(r.Context(), orchestrators.ManageInvitationInput{
		TrainerID:    currentSession(r).AccountID,
		InvitationID: r.PathValue("id"),
	}, orchestrators.ResendInvitationDeps{
		Invitations:   s.stores.Invitations,
		Accounts:      s.stores.Accounts,
		Notifier:      s.outbox,
		Mail:          s.opts.Mail,
		TTL:           s.opts.InvitationTTL,
		GenerateID:    s.generateID,
		GenerateToken: s.generateToken,
		Now:           s.now,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeSendResult(w, res, http.StatusOK)
}

func writeSendResult(w http.ResponseWriter, res orchestrators.SendInvitationResult, okStatus int) {
	if !res.Success {
		writeKind(w, res.Reason, res.Message)
		return
	}
	writeJSON(w, okStatus, sendInvitationResponse{
		Invitation: newInvitationResponse(res.Invitation),
		Message:    res.Message,
		Warning:    res.Warning,
	})
}

// handleCancelInvitation handles POST /api/invitations/{id}/cancel.
func (s *Server) handleCancelInvitation(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteCancelInvitation(r.Context(), orchestrators.ManageInvitationInput{
		TrainerID:    currentSession(r).AccountID,
		InvitationID: r.PathValue("id"),
	}, orchestrators.CancelInvitationDeps{Invitations: s.stores.Invitations})
	if err != nil {
		if k := invitation.KindOf(err); k != invitation.KindInternal {
			writeKind(w, k, "")
			return
		}
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListInvitations handles GET /api/invitations?status=&page=&per_page=.
func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	switch status {
	case "", invitation.StatusPending, invitation.StatusAccepted, invitation.StatusExpired, invitation.StatusCancelled:
	default:
		badRequest(w, "status must be one of: pending, accepted, expired, cancelled")
		return
	}
	res, err := projections.QueryGetInvitationList(r.Context(), projections.GetInvitationListQuery{
		TrainerID:  currentSession(r).AccountID,
		Status:     status,
		PageParams: listutil.ParsePageParams(q),
		Now:        s.now(),
	}, projections.GetInvitationListDeps{Invitations: s.stores.Invitations})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleValidateInvitation handles GET /api/invitations/validate?token=.
// An unusable token is a normal answer: 200 with valid=false and the reason.
func (s *Server) handleValidateInvitation(w http.ResponseWriter, r *http.Request) {
	res, err := orchestrators.ExecuteValidateInvitation(r.Context(), r.URL.Query().Get("token"), orchestrators.ValidateInvitationDeps{
		Invitations: s.stores.Invitations,
		Accounts:    s.stores.Accounts,
		Now:         s.now,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validateInvitationResponse{
		Valid:      res.Valid,
		Invitation: res.Invitation,
		UserExists: res.UserExists,
		ErrorKind:  string(res.Reason),
		Message:    res.Message,
	})
}

// handleAcceptInvitation handles POST /api/invitations/accept.
// A signed-in account accepts as itself. Without a session, a password signs the invitee up first.
func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	client := orchestrators.ClientData{FullName: req.FullName, Email: req.Email, Phone: req.Phone}

	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		res, err := orchestrators.ExecuteAcceptInvitation(r.Context(), orchestrators.AcceptInvitationInput{
			Token:    req.Token,
			ClientID: sess.AccountID,
			Client:   client,
		}, s.acceptInvitationDeps())
		if err != nil {
			internalError(w, err)
			return
		}
		writeAcceptResult(w, res, nil)
		return
	}

	if req.Password == "" {
		writeKind(w, invitation.KindUnauthenticated, "")
		return
	}
	res, err := orchestrators.ExecuteSignUpAndAccept(r.Context(), orchestrators.SignUpAndAcceptInput{
		Token:    req.Token,
		Client:   client,
		Password: req.Password,
	}, orchestrators.SignUpAndAcceptDeps{
		Accept: s.acceptInvitationDeps(),
		Create: s.createAccountDeps(),
	})
	if err != nil {
		internalError(w, err)
		return
	}
	var sess *sessionResponse
	if res.Account.ID != "" {
		started, err := s.startSession(w, res.Account.ID, res.Account.Email, res.Account.Role)
		if err != nil {
			internalError(w, err)
			return
		}
		sess = &started
	}
	writeAcceptResult(w, res.AcceptInvitationResult, sess)
}

func writeAcceptResult(w http.ResponseWriter, res orchestrators.AcceptInvitationResult, sess *sessionResponse) {
	if !res.Success {
		writeKind(w, res.Reason, res.Message)
		return
	}
	writeJSON(w, http.StatusOK, acceptInvitationResponse{
		Success:        true,
		RelationshipID: res.RelationshipID,
		TrainerID:      res.TrainerID,
		Session:        sess,
	})
}

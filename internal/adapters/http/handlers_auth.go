package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/csrf"

	"coachdesk/internal/adapters/http/middleware"
	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/domain/account"
	"coachdesk/internal/domain/invitation"
)

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=12,max=72"`
	FullName string `json:"full_name" validate:"max=120"`
	Phone    string `json:"phone" validate:"max=32"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=12,max=72"`
}

type sessionResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type meResponse struct {
	sessionResponse
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// startSession signs the account in on this response.
func (s *Server) startSession(w http.ResponseWriter, accountID, email, role string) (sessionResponse, error) {
	token, err := s.sessions.Create(accountID, email, role)
	if err != nil {
		return sessionResponse{}, err
	}
	middleware.SetSessionCookie(w, token, s.sessions.TTL(), s.opts.SecureCookies)
	return sessionResponse{AccountID: accountID, Email: email, Role: role}, nil
}

// handleCSRFToken hands form-based clients the token to echo back in gorilla.csrf.Token.
func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})
}

// handleSignup handles POST /api/auth/signup for trainers.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	acct, err := orchestrators.ExecuteCreateAccount(r.Context(), orchestrators.CreateAccountInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     account.RoleTrainer,
	}, s.createAccountDeps())
	switch {
	case errors.Is(err, orchestrators.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, string(invitation.KindEmailTaken), "An account already exists for this email.")
		return
	case err != nil && isAccountFieldError(err):
		badRequest(w, err.Error())
		return
	case err != nil:
		internalError(w, err)
		return
	}
	resp, err := s.startSession(w, acct.ID, acct.Email, acct.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleLogin handles POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, orchestrators.LoginDeps{AccountStore: s.stores.Accounts, Now: s.now})
	switch {
	case errors.Is(err, orchestrators.ErrAccountLocked):
		writeError(w, http.StatusLocked, "account_locked", "Too many failed attempts. Try again in a few minutes.")
		return
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect.")
		return
	case err != nil:
		internalError(w, err)
		return
	}
	resp, err := s.startSession(w, result.AccountID, result.Email, result.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogout handles POST /api/auth/logout. It succeeds without a session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		s.sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w, s.opts.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe handles GET /api/auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	acct, err := s.stores.Accounts.GetByID(r.Context(), sess.AccountID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		sessionResponse: sessionResponse{AccountID: acct.ID, Email: acct.Email, Role: acct.Role},
		FullName:        acct.FullName,
		Phone:           acct.Phone,
	})
}

// handleChangePassword handles POST /api/auth/password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       currentSession(r).AccountID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}, orchestrators.ChangePasswordDeps{AccountStore: s.stores.Accounts})
	switch {
	case errors.Is(err, orchestrators.ErrCurrentPasswordWrong):
		writeError(w, http.StatusForbidden, "wrong_password", err.Error())
		return
	case errors.Is(err, orchestrators.ErrNewPasswordSame), isAccountFieldError(err):
		badRequest(w, err.Error())
		return
	case err != nil:
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createAccountDeps() orchestrators.CreateAccountDeps {
	return orchestrators.CreateAccountDeps{
		AccountStore: s.stores.Accounts,
		GenerateID:   s.generateID,
		Now:          s.now,
	}
}

// isAccountFieldError reports whether err is an account validation failure safe to echo.
func isAccountFieldError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{
		account.ErrEmptyEmail, account.ErrEmailTooLong, account.ErrInvalidEmail,
		account.ErrFullNameTooLong, account.ErrPhoneTooLong, account.ErrInvalidRole,
		account.ErrEmptyPassword, account.ErrPasswordTooShort,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coachdesk/internal/domain/account"
	"coachdesk/internal/domain/invitation"
)

// SignUpAndAcceptInput carries an invitee who has no account yet.
type SignUpAndAcceptInput struct {
	Token    string
	Client   ClientData
	Password string
}

// SignUpAndAcceptDeps holds dependencies for SignUpAndAccept.
type SignUpAndAcceptDeps struct {
	Accept AcceptInvitationDeps
	Create CreateAccountDeps
}

// SignUpAndAcceptResult is the acceptance outcome plus the account created for it.
type SignUpAndAcceptResult struct {
	AcceptInvitationResult
	Account account.Account
}

// ExecuteSignUpAndAccept creates a client account for the invited address and accepts the invitation.
// Token and email are checked before the account is created so a rejected invitation leaves no account.
// PRE: none
// POST: On success the client account exists and is linked to the trainer
func ExecuteSignUpAndAccept(ctx context.Context, input SignUpAndAcceptInput, deps SignUpAndAcceptDeps) (SignUpAndAcceptResult, error) {
	if input.Token == "" {
		return SignUpAndAcceptResult{AcceptInvitationResult: failAccept(invitation.ErrNotFound)}, nil
	}
	inv, err := deps.Accept.Invitations.GetByToken(ctx, input.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return SignUpAndAcceptResult{AcceptInvitationResult: failAccept(invitation.ErrNotFound)}, nil
	}
	if err != nil {
		return SignUpAndAcceptResult{}, fmt.Errorf("load invitation: %w", err)
	}
	now := deps.Accept.Now()
	if err := inv.CheckUsable(now); err != nil {
		if inv.IsOverdue(now) {
			expireLazily(ctx, inv, deps.Accept.Invitations, now)
		}
		return SignUpAndAcceptResult{AcceptInvitationResult: failAccept(err)}, nil
	}
	if input.Client.Email != inv.Email {
		return SignUpAndAcceptResult{AcceptInvitationResult: failAccept(invitation.ErrEmailMismatch)}, nil
	}

	acct, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email:    input.Client.Email,
		Password: input.Password,
		FullName: input.Client.FullName,
		Phone:    input.Client.Phone,
		Role:     account.RoleClient,
	}, deps.Create)
	switch {
	case errors.Is(err, ErrEmailAlreadyExists):
		return SignUpAndAcceptResult{AcceptInvitationResult: failAccept(invitation.ErrEmailTaken)}, nil
	case err != nil && isAccountInputError(err):
		res := failAccept(fmt.Errorf("%w: %w", invitation.ErrInvalidInput, err))
		res.Message = err.Error()
		return SignUpAndAcceptResult{AcceptInvitationResult: res}, nil
	case err != nil:
		return SignUpAndAcceptResult{}, err
	}

	res, err := ExecuteAcceptInvitation(ctx, AcceptInvitationInput{
		Token:    input.Token,
		ClientID: acct.ID,
		Client:   input.Client,
	}, deps.Accept)
	return SignUpAndAcceptResult{AcceptInvitationResult: res, Account: acct}, err
}

// isAccountInputError reports whether err came from account field or password validation.
func isAccountInputError(err error) bool {
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

package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coachdesk/internal/adapters/storage"
	"coachdesk/internal/domain/account"
)

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, a account.Account) error
	CountByRole(ctx context.Context, role string) (int, error)
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     string
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	GenerateID   func() string
	Now          func() time.Time
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteCreateAccount coordinates account creation.
// PRE: Valid email, password >= 12 chars, valid role
// POST: Account created with hashed password
// INVARIANT: Email must be unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (account.Account, error) {
	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     strings.TrimSpace(input.Email),
		FullName:  strings.TrimSpace(input.FullName),
		Phone:     strings.TrimSpace(input.Phone),
		Role:      input.Role,
		CreatedAt: deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, err
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return account.Account{}, err
	}

	exists, err := deps.AccountStore.ExistsByEmail(ctx, acct.Email)
	if err != nil {
		return account.Account{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return account.Account{}, ErrEmailAlreadyExists
	}

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		// Lost a race with another sign-up for the same address.
		if storage.IsUniqueViolation(err, "account.email") {
			return account.Account{}, ErrEmailAlreadyExists
		}
		return account.Account{}, err
	}

	slog.Info("auth_event", "event", "account_created", "account_id", acct.ID, "role", acct.Role)
	return acct, nil
}

// ExecuteSeedAdmin creates the admin account when none exists.
// PRE: Database is migrated
// POST: Exactly one admin exists if email and password were provided
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := deps.AccountStore.CountByRole(ctx, account.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	acct, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email:    email,
		Password: password,
		FullName: "Administrator",
		Role:     account.RoleAdmin,
	}, deps)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	slog.Info("auth_event", "event", "admin_seeded", "account_id", acct.ID)
	return nil
}

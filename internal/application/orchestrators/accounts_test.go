package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"coachdesk/internal/domain/account"
	"coachdesk/internal/domain/program"
	"coachdesk/internal/domain/relationship"
	"coachdesk/internal/domain/subscription"
)

func TestCreateAccountAndLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	acct, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email: " pat@example.com ", Password: "a long enough password", FullName: "Pat", Role: account.RoleTrainer,
	}, f.createDeps())
	if err != nil {
		t.Fatalf("ExecuteCreateAccount() = %v", err)
	}
	if acct.Email != "pat@example.com" || acct.PasswordHash == "" {
		t.Errorf("account = %+v", acct)
	}
	if _, err := ExecuteCreateAccount(ctx, CreateAccountInput{Email: "pat@example.com", Password: "a long enough password", Role: account.RoleTrainer}, f.createDeps()); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("duplicate = %v", err)
	}

	deps := LoginDeps{AccountStore: f.accounts, Now: f.clock}
	res, err := ExecuteLogin(ctx, LoginInput{Email: "pat@example.com", Password: "a long enough password"}, deps)
	if err != nil || res.AccountID != acct.ID || res.Role != account.RoleTrainer {
		t.Fatalf("ExecuteLogin() = %+v, %v", res, err)
	}
}

// TestLogin_Lockout tests that repeated failures lock the account until the lockout passes.
func TestLogin_Lockout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	acct, err := ExecuteCreateAccount(ctx, CreateAccountInput{Email: "pat@example.com", Password: "a long enough password", Role: account.RoleTrainer}, f.createDeps())
	if err != nil {
		t.Fatal(err)
	}
	deps := LoginDeps{AccountStore: f.accounts, Now: f.clock}

	for i := 0; i < account.MaxFailedLogins; i++ {
		if _, err := ExecuteLogin(ctx, LoginInput{Email: acct.Email, Password: "wrong password!!"}, deps); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d = %v", i+1, err)
		}
	}
	if _, err := ExecuteLogin(ctx, LoginInput{Email: acct.Email, Password: "a long enough password"}, deps); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("login while locked = %v, want ErrAccountLocked", err)
	}

	f.now = fixedTime.Add(account.LockoutDuration + time.Second)
	if _, err := ExecuteLogin(ctx, LoginInput{Email: acct.Email, Password: "a long enough password"}, deps); err != nil {
		t.Fatalf("login after lockout = %v", err)
	}
	if stored, _ := f.accounts.GetByID(ctx, acct.ID); stored.FailedLogins != 0 {
		t.Errorf("FailedLogins = %d after success", stored.FailedLogins)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	acct, _ := ExecuteCreateAccount(ctx, CreateAccountInput{Email: "pat@example.com", Password: "a long enough password", Role: account.RoleTrainer}, f.createDeps())
	deps := ChangePasswordDeps{AccountStore: f.accounts}

	if err := ExecuteChangePassword(ctx, ChangePasswordInput{AccountID: acct.ID, CurrentPassword: "nope nope nope", NewPassword: "another long password"}, deps); !errors.Is(err, ErrCurrentPasswordWrong) {
		t.Errorf("wrong current = %v", err)
	}
	if err := ExecuteChangePassword(ctx, ChangePasswordInput{AccountID: acct.ID, CurrentPassword: "a long enough password", NewPassword: "a long enough password"}, deps); !errors.Is(err, ErrNewPasswordSame) {
		t.Errorf("same password = %v", err)
	}
	if err := ExecuteChangePassword(ctx, ChangePasswordInput{AccountID: acct.ID, CurrentPassword: "a long enough password", NewPassword: "another long password"}, deps); err != nil {
		t.Fatalf("change = %v", err)
	}
	if _, err := ExecuteLogin(ctx, LoginInput{Email: acct.Email, Password: "another long password"}, LoginDeps{AccountStore: f.accounts, Now: f.clock}); err != nil {
		t.Errorf("login with new password = %v", err)
	}
}

func TestSeedAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := ExecuteSeedAdmin(ctx, f.createDeps(), "admin@example.com", "an admin password"); err != nil {
			t.Fatalf("seed #%d = %v", i+1, err)
		}
	}
	if n, _ := f.accounts.CountByRole(ctx, account.RoleAdmin); n != 1 {
		t.Errorf("admins = %d, want 1", n)
	}
	if err := ExecuteSeedAdmin(ctx, f.createDeps(), "", ""); err != nil {
		t.Errorf("seed without credentials = %v", err)
	}
}

func TestSetSubscription(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	deps := SetSubscriptionDeps{Accounts: f.accounts, Subscriptions: f.subscriptions, Now: f.clock}

	sub, err := ExecuteSetSubscription(ctx, SetSubscriptionInput{TrainerID: f.trainer.ID, Tier: subscription.TierPro}, deps)
	if err != nil || sub.ClientLimit() != 25 {
		t.Fatalf("set pro = %+v, %v", sub, err)
	}
	if _, err := ExecuteSetSubscription(ctx, SetSubscriptionInput{TrainerID: f.trainer.ID, Tier: "platinum"}, deps); !errors.Is(err, subscription.ErrInvalidTier) {
		t.Errorf("bad tier = %v", err)
	}
	f.addClient("client-1", "c@example.com")
	if _, err := ExecuteSetSubscription(ctx, SetSubscriptionInput{TrainerID: "client-1", Tier: subscription.TierPro}, deps); !errors.Is(err, ErrNotATrainer) {
		t.Errorf("client tier = %v", err)
	}
}

// TestDeactivateClient tests that ending a relationship frees a slot for a new client.
func TestDeactivateClient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.fillRoster(3)
	deps := DeactivateClientDeps{Relationships: f.relationships, Now: f.clock}

	if err := ExecuteDeactivateClient(ctx, DeactivateClientInput{TrainerID: "trainer-2", RelationshipID: "rel-existing-0"}, deps); !errors.Is(err, relationship.ErrNotFound) {
		t.Errorf("other trainer = %v", err)
	}
	if err := ExecuteDeactivateClient(ctx, DeactivateClientInput{TrainerID: f.trainer.ID, RelationshipID: "rel-existing-0"}, deps); err != nil {
		t.Fatal(err)
	}
	if err := ExecuteDeactivateClient(ctx, DeactivateClientInput{TrainerID: f.trainer.ID, RelationshipID: "rel-existing-0"}, deps); !errors.Is(err, relationship.ErrNotActive) {
		t.Errorf("second deactivate = %v", err)
	}

	decision, err := CanAdmit(ctx, f.trainer.ID, AdmissionDeps{Subscriptions: f.subscriptions, Relationships: f.relationships})
	if err != nil || !decision.Allowed || decision.Active != 2 || decision.Limit != 3 {
		t.Errorf("CanAdmit() = %+v, %v", decision, err)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_ = f.notifications.Save(ctx, notificationFor("n1", f.trainer.ID))
	deps := MarkNotificationReadDeps{Notifications: f.notifications, Now: f.clock}

	if _, err := ExecuteMarkNotificationRead(ctx, MarkNotificationReadInput{AccountID: "someone", NotificationID: "n1"}, deps); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("other account = %v", err)
	}
	n, err := ExecuteMarkNotificationRead(ctx, MarkNotificationReadInput{AccountID: f.trainer.ID, NotificationID: "n1"}, deps)
	if err != nil || !n.ReadAt.Equal(fixedTime) {
		t.Fatalf("mark read = %+v, %v", n, err)
	}
	f.now = fixedTime.Add(time.Hour)
	n, _ = ExecuteMarkNotificationRead(ctx, MarkNotificationReadInput{AccountID: f.trainer.ID, NotificationID: "n1"}, deps)
	if !n.ReadAt.Equal(fixedTime) {
		t.Errorf("second read moved ReadAt to %v", n.ReadAt)
	}
}

func TestCreateProgram(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	programs := newMockProgramStore()
	deps := CreateProgramDeps{Programs: programs, Relationships: f.relationships, GenerateID: f.ids, Now: f.clock}

	p, err := ExecuteCreateProgram(ctx, CreateProgramInput{
		TrainerID: f.trainer.ID, Name: " Base block ", StartDate: time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC), DurationWeeks: 4,
	}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Base block" || !p.StartDate.Equal(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("program = %+v", p)
	}
	if _, ok := programs.programs[p.ID]; !ok {
		t.Error("program not stored")
	}

	if _, err := ExecuteCreateProgram(ctx, CreateProgramInput{TrainerID: f.trainer.ID, ClientID: "stranger", Name: "X", StartDate: fixedTime, DurationWeeks: 1}, deps); !errors.Is(err, ErrClientNotLinked) {
		t.Errorf("unlinked client = %v", err)
	}
	if _, err := ExecuteCreateProgram(ctx, CreateProgramInput{TrainerID: f.trainer.ID, Name: "X", StartDate: fixedTime, DurationWeeks: 53}, deps); !errors.Is(err, program.ErrInvalidDuration) {
		t.Errorf("53 weeks = %v", err)
	}
}

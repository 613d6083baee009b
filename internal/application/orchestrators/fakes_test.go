package orchestrators

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"coachdesk/internal/adapters/email"
	"coachdesk/internal/domain/account"
	"coachdesk/internal/domain/calendar"
	"coachdesk/internal/domain/invitation"
	"coachdesk/internal/domain/notification"
	"coachdesk/internal/domain/outbox"
	"coachdesk/internal/domain/program"
	"coachdesk/internal/domain/relationship"
	"coachdesk/internal/domain/subscription"
)

var fixedTime = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// sequentialIDs returns a generator yielding id-1, id-2, ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func sequentialTokens() func() (string, error) {
	next := sequentialIDs()
	return func() (string, error) { return "tok-" + next(), nil }
}

// --- accounts ---

type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]account.Account
}

func newMockAccountStore(accts ...account.Account) *mockAccountStore {
	m := &mockAccountStore{accounts: make(map[string]account.Account)}
	for _, a := range accts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account not found: %w", sql.ErrNoRows)
	}
	return a, nil
}

func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return account.Account{}, fmt.Errorf("account not found: %w", sql.ErrNoRows)
}

func (m *mockAccountStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockAccountStore) Save(_ context.Context, a account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountStore) CountByRole(_ context.Context, role string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.accounts {
		if a.Role == role {
			n++
		}
	}
	return n, nil
}

// --- invitations ---

type mockInvitationStore struct {
	mu            sync.Mutex
	invitations   map[string]invitation.Invitation
	relationships *mockRelationshipStore // for ListPendingLinked
	failFlipTo    string                 // TransitionStatus to this status fails
}

func newMockInvitationStore(rels *mockRelationshipStore) *mockInvitationStore {
	return &mockInvitationStore{invitations: make(map[string]invitation.Invitation), relationships: rels}
}

func (m *mockInvitationStore) GetByID(_ context.Context, id string) (invitation.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok {
		return invitation.Invitation{}, fmt.Errorf("invitation not found: %w", sql.ErrNoRows)
	}
	return inv, nil
}

func (m *mockInvitationStore) GetByToken(_ context.Context, token string) (invitation.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.Token == token {
			return inv, nil
		}
	}
	return invitation.Invitation{}, fmt.Errorf("invitation not found: %w", sql.ErrNoRows)
}

func (m *mockInvitationStore) FindPending(_ context.Context, trainerID, email string) (invitation.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.TrainerID == trainerID && inv.Email == email && inv.Status == invitation.StatusPending {
			return inv, nil
		}
	}
	return invitation.Invitation{}, fmt.Errorf("invitation not found: %w", sql.ErrNoRows)
}

func (m *mockInvitationStore) Save(_ context.Context, inv invitation.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations[inv.ID] = inv
	return nil
}

func (m *mockInvitationStore) TransitionStatus(_ context.Context, id, from, to string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if to == m.failFlipTo {
		return false, fmt.Errorf("disk I/O error")
	}
	inv, ok := m.invitations[id]
	if !ok || inv.Status != from {
		return false, nil
	}
	inv.Status = to
	if to == invitation.StatusAccepted {
		inv.AcceptedAt = at
	}
	m.invitations[id] = inv
	return true, nil
}

func (m *mockInvitationStore) ExpireOverdue(ctx context.Context, now time.Time) ([]invitation.Invitation, error) {
	m.mu.Lock()
	var overdue []invitation.Invitation
	for _, inv := range m.invitations {
		if inv.IsOverdue(now) {
			overdue = append(overdue, inv)
		}
	}
	m.mu.Unlock()

	var changed []invitation.Invitation
	for _, inv := range overdue {
		if ok, _ := m.TransitionStatus(ctx, inv.ID, invitation.StatusPending, invitation.StatusExpired, now); ok {
			inv.Status = invitation.StatusExpired
			changed = append(changed, inv)
		}
	}
	return changed, nil
}

func (m *mockInvitationStore) ListPendingLinked(ctx context.Context, limit int) ([]invitation.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []invitation.Invitation
	for _, inv := range m.invitations {
		if inv.Status != invitation.StatusPending {
			continue
		}
		if _, err := m.relationships.GetByInvitationID(ctx, inv.ID); err == nil {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvitationStore) get(id string) invitation.Invitation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invitations[id]
}

// --- relationships ---

type mockRelationshipStore struct {
	mu        sync.Mutex
	rels      map[string]relationship.Relationship
	createErr error
}

func newMockRelationshipStore() *mockRelationshipStore {
	return &mockRelationshipStore{rels: make(map[string]relationship.Relationship)}
}

func (m *mockRelationshipStore) GetByID(_ context.Context, id string) (relationship.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rels[id]
	if !ok {
		return relationship.Relationship{}, relationship.ErrNotFound
	}
	return r, nil
}

func (m *mockRelationshipStore) GetByInvitationID(_ context.Context, invitationID string) (relationship.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rels {
		if invitationID != "" && r.InvitationID == invitationID {
			return r, nil
		}
	}
	return relationship.Relationship{}, relationship.ErrNotFound
}

func (m *mockRelationshipStore) GetActive(_ context.Context, trainerID, clientID string) (relationship.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rels {
		if r.TrainerID == trainerID && r.ClientID == clientID && r.IsActive() {
			return r, nil
		}
	}
	return relationship.Relationship{}, relationship.ErrNotFound
}

func (m *mockRelationshipStore) countActiveLocked(trainerID string) int {
	n := 0
	for _, r := range m.rels {
		if r.TrainerID == trainerID && r.IsActive() {
			n++
		}
	}
	return n
}

func (m *mockRelationshipStore) CountActive(_ context.Context, trainerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countActiveLocked(trainerID), nil
}

// CreateIfUnderLimit mirrors the SQLite statement: count, uniqueness and insert under one lock.
func (m *mockRelationshipStore) CreateIfUnderLimit(_ context.Context, rel relationship.Relationship, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, r := range m.rels {
		if rel.InvitationID != "" && r.InvitationID == rel.InvitationID {
			return relationship.ErrInvitationLinked
		}
		if r.TrainerID == rel.TrainerID && r.ClientID == rel.ClientID && r.IsActive() {
			return relationship.ErrAlreadyActive
		}
	}
	if limit != subscription.Unlimited && m.countActiveLocked(rel.TrainerID) >= limit {
		return relationship.ErrLimitReached
	}
	m.rels[rel.ID] = rel
	return nil
}

func (m *mockRelationshipStore) Save(_ context.Context, rel relationship.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rels[rel.ID] = rel
	return nil
}

func (m *mockRelationshipStore) all() []relationship.Relationship {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]relationship.Relationship, 0, len(m.rels))
	for _, r := range m.rels {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- subscriptions ---

type mockSubscriptionStore struct {
	subs map[string]subscription.Subscription
}

func newMockSubscriptionStore() *mockSubscriptionStore {
	return &mockSubscriptionStore{subs: make(map[string]subscription.Subscription)}
}

func (m *mockSubscriptionStore) GetByTrainer(_ context.Context, trainerID string) (subscription.Subscription, error) {
	if s, ok := m.subs[trainerID]; ok {
		return s, nil
	}
	return subscription.Default(trainerID), nil
}

func (m *mockSubscriptionStore) Save(_ context.Context, s subscription.Subscription) error {
	m.subs[s.TrainerID] = s
	return nil
}

// --- notifications ---

type mockNotificationStore struct {
	mu    sync.Mutex
	items map[string]notification.Notification
}

func newMockNotificationStore() *mockNotificationStore {
	return &mockNotificationStore{items: make(map[string]notification.Notification)}
}

func (m *mockNotificationStore) GetByID(_ context.Context, id string) (notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok {
		return notification.Notification{}, sql.ErrNoRows
	}
	return n, nil
}

func (m *mockNotificationStore) Save(_ context.Context, n notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[n.ID] = n
	return nil
}

func (m *mockNotificationStore) forAccount(accountID string) []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notification.Notification
	for _, n := range m.items {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	return out
}

// --- outbox ---

type mockOutboxStore struct {
	mu      sync.Mutex
	entries map[string]outbox.Entry
	order   []string
}

func newMockOutboxStore() *mockOutboxStore {
	return &mockOutboxStore{entries: make(map[string]outbox.Entry)}
}

func (m *mockOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return outbox.Entry{}, outbox.ErrNotFound
	}
	return e, nil
}

func (m *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, id := range m.order {
		e := m.entries[id]
		if (e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying) && e.Attempts < e.MaxAttempts {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockOutboxStore) byAction(action string) []outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, id := range m.order {
		if e := m.entries[id]; e.ActionType == action {
			out = append(out, e)
		}
	}
	return out
}

// --- programs and calendar ---

type mockProgramStore struct {
	programs map[string]program.Program
}

func newMockProgramStore(ps ...program.Program) *mockProgramStore {
	m := &mockProgramStore{programs: make(map[string]program.Program)}
	for _, p := range ps {
		m.programs[p.ID] = p
	}
	return m
}

func (m *mockProgramStore) GetByID(_ context.Context, id string) (program.Program, error) {
	p, ok := m.programs[id]
	if !ok {
		return program.Program{}, program.ErrNotFound
	}
	return p, nil
}

func (m *mockProgramStore) Save(_ context.Context, p program.Program) error {
	m.programs[p.ID] = p
	return nil
}

type mockCalendarStore struct {
	days map[string]calendar.Day
}

func newMockCalendarStore() *mockCalendarStore {
	return &mockCalendarStore{days: make(map[string]calendar.Day)}
}

func dayKey(programID string, date time.Time) string {
	return programID + "/" + program.Day(date).Format(program.DateLayout)
}

func (m *mockCalendarStore) GetDay(_ context.Context, programID string, date time.Time) (calendar.Day, error) {
	if d, ok := m.days[dayKey(programID, date)]; ok {
		d.Exercises = append([]calendar.ExerciseAssignment(nil), d.Exercises...)
		return d, nil
	}
	return calendar.FreeDay(programID, program.Day(date)), nil
}

func (m *mockCalendarStore) SaveDay(_ context.Context, d calendar.Day) error {
	d.Exercises = append([]calendar.ExerciseAssignment(nil), d.Exercises...)
	m.days[dayKey(d.ProgramID, d.Date)] = d
	return nil
}

func (m *mockCalendarStore) DeleteDay(_ context.Context, programID string, date time.Time) error {
	delete(m.days, dayKey(programID, date))
	return nil
}

// --- wiring ---

// fixture is a trainer with the workflow stores and a memory mail sender.
type fixture struct {
	trainer       account.Account
	accounts      *mockAccountStore
	invitations   *mockInvitationStore
	relationships *mockRelationshipStore
	subscriptions *mockSubscriptionStore
	notifications *mockNotificationStore
	outbox        *mockOutboxStore
	sender        *email.MemorySender
	processor     *OutboxProcessor
	ids           func() string
	now           time.Time
}

func newFixture() *fixture {
	trainer := account.Account{ID: "trainer-1", Email: "coach@example.com", FullName: "Casey Coach", Role: account.RoleTrainer, CreatedAt: fixedTime}
	rels := newMockRelationshipStore()
	f := &fixture{
		trainer:       trainer,
		accounts:      newMockAccountStore(trainer),
		invitations:   newMockInvitationStore(rels),
		relationships: rels,
		subscriptions: newMockSubscriptionStore(),
		notifications: newMockNotificationStore(),
		outbox:        newMockOutboxStore(),
		sender:        email.NewMemorySender(),
		ids:           sequentialIDs(),
		now:           fixedTime,
	}
	f.processor = NewOutboxProcessor(f.outbox, EmailExecutors(f.sender), OutboxProcessorConfig{Now: f.clock})
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) sendDeps() SendInvitationDeps {
	return SendInvitationDeps{
		Accounts:      f.accounts,
		Invitations:   f.invitations,
		Relationships: f.relationships,
		Subscriptions: f.subscriptions,
		Notifier:      f.processor,
		Mail:          MailSettings{AppBaseURL: "https://app.coachdesk.test"},
		TTL:           invitation.DefaultTTL,
		GenerateID:    f.ids,
		GenerateToken: sequentialTokens(),
		Now:           f.clock,
	}
}

func (f *fixture) validateDeps() ValidateInvitationDeps {
	return ValidateInvitationDeps{Invitations: f.invitations, Accounts: f.accounts, Now: f.clock}
}

func (f *fixture) acceptDeps() AcceptInvitationDeps {
	return AcceptInvitationDeps{
		Invitations:   f.invitations,
		Accounts:      f.accounts,
		Relationships: f.relationships,
		Subscriptions: f.subscriptions,
		Notifications: f.notifications,
		Notifier:      f.processor,
		GenerateID:    f.ids,
		Now:           f.clock,
	}
}

func (f *fixture) createDeps() CreateAccountDeps {
	return CreateAccountDeps{AccountStore: f.accounts, GenerateID: f.ids, Now: f.clock}
}

// addClient stores a client account.
func (f *fixture) addClient(id, addr string) account.Account {
	a := account.Account{ID: id, Email: addr, FullName: "Client " + id, Role: account.RoleClient, CreatedAt: fixedTime}
	f.accounts.accounts[id] = a
	return a
}

// addInvitation stores a pending invitation for addr with the given token.
func (f *fixture) addInvitation(id, token, addr string, expires time.Time) invitation.Invitation {
	inv := invitation.Invitation{
		ID: id, Token: token, TrainerID: f.trainer.ID, Email: addr,
		Status: invitation.StatusPending, ExpiresAt: expires, CreatedAt: fixedTime,
	}
	f.invitations.invitations[id] = inv
	return inv
}

// fillRoster adds n active clients for the trainer.
func (f *fixture) fillRoster(n int) {
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("existing-%d", i)
		f.addClient(id, id+"@example.com")
		f.relationships.rels["rel-"+id] = relationship.Relationship{
			ID: "rel-" + id, TrainerID: f.trainer.ID, ClientID: id, Status: relationship.StatusActive, CreatedAt: fixedTime,
		}
	}
}

func notificationFor(id, accountID string) notification.Notification {
	return notification.Notification{ID: id, AccountID: accountID, Kind: notification.KindClientJoined, Title: "Hello", CreatedAt: fixedTime}
}

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coachdesk/internal/adapters/http/middleware"
	"coachdesk/internal/adapters/storage"
	accountStore "coachdesk/internal/adapters/storage/account"
	calendarStore "coachdesk/internal/adapters/storage/calendar"
	invitationStore "coachdesk/internal/adapters/storage/invitation"
	notificationStore "coachdesk/internal/adapters/storage/notification"
	outboxStore "coachdesk/internal/adapters/storage/outbox"
	programStore "coachdesk/internal/adapters/storage/program"
	relationshipStore "coachdesk/internal/adapters/storage/relationship"
	subscriptionStore "coachdesk/internal/adapters/storage/subscription"
	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/domain/account"
	"coachdesk/internal/domain/invitation"
	"coachdesk/internal/metrics"
)

// Stores holds all store implementations the handlers use.
type Stores struct {
	Accounts      *accountStore.SQLiteStore
	Invitations   *invitationStore.SQLiteStore
	Relationships *relationshipStore.SQLiteStore
	Subscriptions *subscriptionStore.SQLiteStore
	Programs      *programStore.SQLiteStore
	Calendar      *calendarStore.SQLiteStore
	Notifications *notificationStore.SQLiteStore
	Outbox        *outboxStore.SQLiteStore
}

// NewStores builds every SQLite store over db.
func NewStores(db storage.SQLDB) *Stores {
	return &Stores{
		Accounts:      accountStore.NewSQLiteStore(db),
		Invitations:   invitationStore.NewSQLiteStore(db),
		Relationships: relationshipStore.NewSQLiteStore(db),
		Subscriptions: subscriptionStore.NewSQLiteStore(db),
		Programs:      programStore.NewSQLiteStore(db),
		Calendar:      calendarStore.NewSQLiteStore(db),
		Notifications: notificationStore.NewSQLiteStore(db),
		Outbox:        outboxStore.NewSQLiteStore(db),
	}
}

// Pinger reports database reachability for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures a Server. Zero values take the defaults noted per field.
type Options struct {
	Stores *Stores
	Outbox *orchestrators.OutboxProcessor
	DB     Pinger
	Ring   *metrics.Ring // optional; /admin/perf reports nothing without it

	Mail          orchestrators.MailSettings
	InvitationTTL time.Duration // invitation.DefaultTTL

	CSRFKey            []byte // 32 bytes
	SecureCookies      bool
	TrustedOrigins     []string
	RateLimitPerSecond int           // 10
	SlowRequest        time.Duration // middleware.DefaultSlowRequest
	SessionTTL         time.Duration // middleware.DefaultSessionTTL

	Now           func() time.Time       // time.Now
	GenerateID    func() string          // uuid
	GenerateToken func() (string, error) // invitation.GenerateToken
}

// Server owns the HTTP handlers and their dependencies. Nothing is global.
type Server struct {
	stores   *Stores
	outbox   *orchestrators.OutboxProcessor
	db       Pinger
	ring     *metrics.Ring
	sessions *middleware.SessionStore
	limiter  *middleware.RateLimiter
	opts     Options

	now           func() time.Time
	generateID    func() string
	generateToken func() (string, error)
}

// NewServer builds a Server from opts.
// PRE: opts.Stores and opts.Outbox are set; opts.CSRFKey is 32 bytes
// POST: Server is ready; Handler returns the full middleware chain
func NewServer(opts Options) *Server {
	if opts.InvitationTTL <= 0 {
		opts.InvitationTTL = invitation.DefaultTTL
	}
	if opts.RateLimitPerSecond <= 0 {
		opts.RateLimitPerSecond = 10
	}
	s := &Server{
		stores:        opts.Stores,
		outbox:        opts.Outbox,
		db:            opts.DB,
		ring:          opts.Ring,
		opts:          opts,
		now:           opts.Now,
		generateID:    opts.GenerateID,
		generateToken: opts.GenerateToken,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generateID == nil {
		s.generateID = func() string { return uuid.New().String() }
	}
	if s.generateToken == nil {
		s.generateToken = invitation.GenerateToken
	}
	s.sessions = middleware.NewSessionStore(opts.SessionTTL, s.now)
	s.limiter = middleware.NewRateLimiter(opts.RateLimitPerSecond)
	return s
}

// Sessions exposes the session store so tests and tooling can sign accounts in.
func (s *Server) Sessions() *middleware.SessionStore {
	return s.sessions
}

// Handler wires routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> RoutePattern -> Mux
	return middleware.Chain(middleware.RoutePattern(mux),
		middleware.SecurityHeaders,
		middleware.CSRF(s.opts.CSRFKey, middleware.CSRFOptions{
			Secure:         s.opts.SecureCookies,
			TrustedOrigins: s.opts.TrustedOrigins,
		}),
		middleware.Auth(s.sessions),
		middleware.RateLimit(s.limiter),
		middleware.Timing(s.ring, s.opts.SlowRequest),
	)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	trainer := middleware.RequireRole(account.RoleTrainer)
	admin := middleware.RequireRole(account.RoleAdmin)
	signedIn := middleware.RequireAuth

	// Auth
	mux.HandleFunc("GET /api/auth/csrf", s.handleCSRFToken)
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.Handle("GET /api/auth/me", signedIn(http.HandlerFunc(s.handleMe)))
	mux.Handle("POST /api/auth/password", signedIn(http.HandlerFunc(s.handleChangePassword)))

	// Invitations
	mux.HandleFunc("GET /api/invitations/validate", s.handleValidateInvitation)
	mux.HandleFunc("POST /api/invitations/accept", s.handleAcceptInvitation)
	mux.Handle("POST /api/invitations", trainer(http.HandlerFunc(s.handleSendInvitation)))
	mux.Handle("GET /api/invitations", trainer(http.HandlerFunc(s.handleListInvitations)))
	mux.Handle("POST /api/invitations/{id}/cancel", trainer(http.HandlerFunc(s.handleCancelInvitation)))
	mux.Handle("POST /api/invitations/{id}/resend", trainer(http.HandlerFunc(s.handleResendInvitation)))

	// Clients and subscription
	mux.Handle("GET /api/clients", trainer(http.HandlerFunc(s.handleListClients)))
	mux.Handle("POST /api/clients/{id}/deactivate", trainer(http.HandlerFunc(s.handleDeactivateClient)))
	mux.Handle("GET /api/subscription", trainer(http.HandlerFunc(s.handleGetSubscription)))
	mux.Handle("PUT /api/admin/subscriptions/{trainerID}", admin(http.HandlerFunc(s.handleSetSubscription)))

	// Programs and calendar
	mux.Handle("POST /api/programs", trainer(http.HandlerFunc(s.handleCreateProgram)))
	mux.Handle("GET /api/programs", signedIn(http.HandlerFunc(s.handleListPrograms)))
	mux.Handle("GET /api/programs/{id}/calendar", signedIn(http.HandlerFunc(s.handleGetCalendar)))
	mux.Handle("PUT /api/programs/{id}/days/{date}", trainer(http.HandlerFunc(s.handleSetDay)))
	mux.Handle("DELETE /api/programs/{id}/days/{date}", trainer(http.HandlerFunc(s.handleClearDay)))
	mux.Handle("POST /api/programs/{id}/days/{date}/exercises", trainer(http.HandlerFunc(s.handleAddExercise)))
	mux.Handle("PUT /api/programs/{id}/days/{date}/exercises/{index}", trainer(http.HandlerFunc(s.handleUpdateExercise)))
	mux.Handle("DELETE /api/programs/{id}/days/{date}/exercises/{index}", trainer(http.HandlerFunc(s.handleRemoveExercise)))
	mux.Handle("POST /api/programs/{id}/days/{date}/exercises/{index}/move", trainer(http.HandlerFunc(s.handleMoveExercise)))

	// Notifications
	mux.Handle("GET /api/notifications", signedIn(http.HandlerFunc(s.handleListNotifications)))
	mux.Handle("POST /api/notifications/{id}/read", signedIn(http.HandlerFunc(s.handleMarkNotificationRead)))

	// Admin and ops
	mux.Handle("GET /admin/outbox", admin(http.HandlerFunc(s.handleListOutbox)))
	mux.Handle("POST /admin/outbox/{id}/retry", admin(http.HandlerFunc(s.handleRetryOutbox)))
	mux.Handle("POST /admin/outbox/{id}/abandon", admin(http.HandlerFunc(s.handleAbandonOutbox)))
	mux.Handle("GET /admin/perf", admin(http.HandlerFunc(s.handlePerf)))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealthz)
}

package main

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"coachdesk/internal/adapters/email"
	web "coachdesk/internal/adapters/http"
	"coachdesk/internal/adapters/storage"
	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/config"
	"coachdesk/internal/metrics"
	"coachdesk/internal/supervisor"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err.Error())
		os.Exit(1)
	}
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_exit", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	db, err := storage.Open(cfg.Database.Path, cfg.Database.MaxOpenConn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.MigrateDB(db); err != nil {
		return err
	}
	if v, _, err := storage.SchemaVersion(db); err == nil {
		logger.Info("database_ready", "path", cfg.Database.Path, "schema_version", v)
	}

	ring := metrics.NewRing(metrics.DefaultRingSize)
	timed := storage.NewTimedDB(db, ring, time.Duration(cfg.Database.SlowQueryMs)*time.Millisecond)
	stores := web.NewStores(timed)

	var sender email.Sender
	if cfg.Email.ResendKey != "" {
		sender = email.NewResendSender(cfg.Email.ResendKey, cfg.Email.From, cfg.Email.ReplyTo)
	} else {
		logger.Warn("email_disabled", "reason", "no resend key; emails are logged and dropped")
		sender = email.NewNoopSender()
	}
	sender = email.NewBreakerSender(sender, email.BreakerConfig{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	})

	processor := orchestrators.NewOutboxProcessor(stores.Outbox, orchestrators.EmailExecutors(sender), orchestrators.OutboxProcessorConfig{
		BatchSize:   cfg.Outbox.BatchSize,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})

	newID := func() string { return uuid.New().String() }
	createDeps := orchestrators.CreateAccountDeps{AccountStore: stores.Accounts, GenerateID: newID, Now: time.Now}
	if err := orchestrators.ExecuteSeedAdmin(context.Background(), createDeps, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return err
	}
	if cfg.Admin.SeedDemo {
		if err := orchestrators.ExecuteSeedDemoAccounts(context.Background(), orchestrators.SeedDemoDeps{
			Create:        createDeps,
			Relationships: stores.Relationships,
		}); err != nil {
			return err
		}
	}

	csrfKey, err := cfg.CSRFKeyBytes()
	if err != nil {
		return err
	}
	if csrfKey == nil {
		// Development only: tokens stop validating on restart.
		csrfKey = make([]byte, 32)
		_, _ = rand.Read(csrfKey)
		logger.Warn("csrf_key_generated", "reason", "server.csrf_key is unset")
	}

	srv := web.NewServer(web.Options{
		Stores:             stores,
		Outbox:             processor,
		DB:                 timed,
		Ring:               ring,
		Mail:               orchestrators.MailSettings{AppBaseURL: cfg.Email.AppBaseURL},
		InvitationTTL:      cfg.Invitation.TTL,
		CSRFKey:            csrfKey,
		SecureCookies:      cfg.IsProduction(),
		TrustedOrigins:     cfg.Server.TrustedOrigins,
		RateLimitPerSecond: cfg.Server.RateLimitPerSecond,
		GenerateID:         newID,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sweep, err := supervisor.NewCronService(logger, supervisor.Job{
		Name:     "invitation_sweep",
		Schedule: cfg.Invitation.SweepSchedule,
		Run: func(ctx context.Context) error {
			_, err := orchestrators.ExecuteSweepInvitations(ctx, orchestrators.SweepInvitationsDeps{
				Invitations:   stores.Invitations,
				Notifications: stores.Notifications,
				GenerateID:    newID,
				Now:           time.Now,
			})
			return err
		},
	})
	if err != nil {
		return err
	}

	tree := supervisor.NewTree(logger, supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddAPIService(supervisor.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))
	tree.AddWorker(supervisor.NewOutboxWorker(processor, cfg.Outbox.Interval))
	tree.AddWorker(sweep)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("server_starting", "addr", cfg.Server.Addr, "env", cfg.Server.Env, "version", version)
	err = tree.Serve(ctx)
	if report, repErr := tree.UnstoppedServiceReport(); repErr == nil && len(report) > 0 {
		logger.Warn("services_not_stopped", "count", len(report))
	}
	if ctx.Err() != nil {
		logger.Info("server_stopped")
		return nil
	}
	return err
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

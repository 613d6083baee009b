package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
)

// HTTPServer is the lifecycle subset of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService runs an HTTP server as a supervised service.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps server. A non-positive shutdownTimeout becomes 10s.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve listens until ctx is cancelled, then shuts the server down gracefully.
// PRE: server is not already listening
// POST: Returns ctx.Err() after a clean shutdown, or the listener's failure
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

// OutboxRunner delivers due outbox entries.
type OutboxRunner interface {
	ProcessPending(ctx context.Context) error
}

// OutboxWorker drains the outbox on a fixed interval.
type OutboxWorker struct {
	runner   OutboxRunner
	interval time.Duration
}

// NewOutboxWorker builds a worker. A non-positive interval becomes one minute.
func NewOutboxWorker(runner OutboxRunner, interval time.Duration) *OutboxWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &OutboxWorker{runner: runner, interval: interval}
}

// Serve runs one pass immediately and then one per tick until ctx is cancelled.
// A failed pass is logged; the next tick tries again.
func (w *OutboxWorker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.runner.ProcessPending(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("outbox_worker_pass_failed", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *OutboxWorker) String() string { return "outbox-worker" }

// Job is one scheduled unit of work.
type Job struct {
	Name     string
	Schedule string // standard cron spec or a descriptor such as "@every 15m"
	Run      func(ctx context.Context) error
}

// CronService runs jobs on their cron schedules while it is being served.
type CronService struct {
	logger *slog.Logger
	jobs   []Job
}

// NewCronService validates every schedule up front so a typo fails at startup.
// PRE: jobs have a Name and a Run func
// POST: Returns a service or the first schedule parse error
func NewCronService(logger *slog.Logger, jobs ...Job) (*CronService, error) {
	for _, j := range jobs {
		if _, err := cron.ParseStandard(j.Schedule); err != nil {
			return nil, fmt.Errorf("job %s: bad schedule %q: %w", j.Name, j.Schedule, err)
		}
	}
	return &CronService{logger: logger, jobs: jobs}, nil
}

// Serve starts the scheduler and stops it, waiting for running jobs, when ctx is cancelled.
func (c *CronService) Serve(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(c.logger.Handler(), slog.LevelInfo))
	sched := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	for _, j := range c.jobs {
		if _, err := sched.AddFunc(j.Schedule, c.wrap(ctx, j)); err != nil {
			return fmt.Errorf("schedule %s: %w", j.Name, err)
		}
		c.logger.Info("job_scheduled", "job", j.Name, "schedule", j.Schedule)
	}
	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	return ctx.Err()
}

func (c *CronService) wrap(ctx context.Context, j Job) func() {
	return func() {
		start := time.Now()
		if err := j.Run(ctx); err != nil {
			c.logger.Error("job_failed", "job", j.Name, "error", err.Error())
			return
		}
		c.logger.Debug("job_complete", "job", j.Name, "duration_ms", time.Since(start).Milliseconds())
	}
}

func (c *CronService) String() string { return "cron" }

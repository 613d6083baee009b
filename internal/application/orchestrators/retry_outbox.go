package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coachdesk/internal/adapters/email"
	domain "coachdesk/internal/domain/outbox"
	"coachdesk/internal/metrics"
)

// OutboxStoreForProcessor defines the store interface needed by OutboxProcessor.
type OutboxStoreForProcessor interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
}

// Notifier accepts side effects for at-least-once delivery.
type Notifier interface {
	// Enqueue persists e and tries it once right away. delivered is false when the
	// entry was stored but the first attempt failed; the worker retries it later.
	Enqueue(ctx context.Context, e domain.Entry) (delivered bool, err error)
}

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given payload.
	// Returns the external ID (e.g., provider message ID) and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessorConfig tunes retries. Zero values take the defaults.
type OutboxProcessorConfig struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	BatchSize   int
	MaxAttempts int
	Now         func() time.Time
}

// OutboxProcessor delivers outbox entries and retries failures with exponential backoff.
type OutboxProcessor struct {
	store       OutboxStoreForProcessor
	executors   map[string]ActionExecutor
	baseDelay   time.Duration
	maxDelay    time.Duration
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store OutboxStoreForProcessor, executors map[string]ActionExecutor, cfg OutboxProcessorConfig) *OutboxProcessor {
	p := &OutboxProcessor{
		store:       store,
		executors:   executors,
		baseDelay:   30 * time.Second,
		maxDelay:    1 * time.Hour,
		batchSize:   10,
		maxAttempts: domain.DefaultMaxAttempts,
		now:         time.Now,
	}
	if cfg.BaseDelay > 0 {
		p.baseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		p.maxDelay = cfg.MaxDelay
	}
	if cfg.BatchSize > 0 {
		p.batchSize = cfg.BatchSize
	}
	if cfg.MaxAttempts > 0 {
		p.maxAttempts = cfg.MaxAttempts
	}
	if cfg.Now != nil {
		p.now = cfg.Now
	}
	return p
}

// Enqueue stores the entry and makes the first delivery attempt.
// The attempt is recorded before the first save, so a concurrent ProcessPending
// sees the entry in backoff and leaves it to this call.
// PRE: e is a valid pending entry
// POST: e is persisted; delivered reports whether the first attempt succeeded
func (p *OutboxProcessor) Enqueue(ctx context.Context, e domain.Entry) (bool, error) {
	e.MaxAttempts = p.maxAttempts
	if err := e.Validate(); err != nil {
		return false, err
	}
	e.MarkAttempt(p.now())
	if err := p.store.Save(ctx, e); err != nil {
		return false, fmt.Errorf("save outbox entry: %w", err)
	}
	if err := p.execute(ctx, &e); err != nil {
		return false, nil
	}
	return true, nil
}

// ProcessPending delivers due entries, oldest first.
// PRE: Context is valid
// POST: Due entries are attempted once; entries still in backoff are skipped
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDue(p.now(), p.baseDelay, p.maxDelay) {
			continue
		}
		if err := p.deliver(ctx, &entry); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// deliver records an attempt on e, runs its executor and saves the outcome.
func (p *OutboxProcessor) deliver(ctx context.Context, e *domain.Entry) error {
	e.MarkAttempt(p.now())
	return p.execute(ctx, e)
}

// execute runs the executor for an entry whose attempt is already recorded and saves
// the outcome. The returned error is the delivery failure; a failure to save the
// outcome is logged.
func (p *OutboxProcessor) execute(ctx context.Context, e *domain.Entry) error {
	executor, ok := p.executors[e.ActionType]
	if !ok {
		err := fmt.Errorf("no executor registered for action type: %s", e.ActionType)
		e.MarkFailed(err)
		p.save(ctx, *e)
		return err
	}

	externalID, err := executor.Execute(ctx, e.Payload)
	if err != nil {
		e.MarkFailed(err)
		metrics.OutboxDeliveries.WithLabelValues(e.ActionType, "failed").Inc()
		slog.Warn("outbox_action_failed", "entry_id", e.ID, "action_type", e.ActionType, "attempt", e.Attempts, "status", e.Status, "error", err.Error())
	} else {
		e.MarkSuccess(externalID)
		metrics.OutboxDeliveries.WithLabelValues(e.ActionType, "done").Inc()
		slog.Info("outbox_action_succeeded", "entry_id", e.ID, "action_type", e.ActionType, "external_id", externalID)
	}
	p.save(ctx, *e)
	return err
}

func (p *OutboxProcessor) save(ctx context.Context, e domain.Entry) {
	if err := p.store.Save(ctx, e); err != nil {
		slog.Error("outbox_save_failed", "entry_id", e.ID, "error", err.Error())
	}
}

// RetryEntry grants a failed entry a fresh set of attempts and delivers it now (admin retry).
// PRE: entryID is non-empty
// POST: Entry is attempted once; returns the delivery error, if any
func (p *OutboxProcessor) RetryEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if err := entry.Reset(); err != nil {
		return fmt.Errorf("entry %s: %w", entryID, err)
	}
	slog.Info("outbox_event", "event", "entry_retried", "entry_id", entryID, "action_type", entry.ActionType)
	return p.deliver(ctx, &entry)
}

// AbandonEntry marks an entry as abandoned by admin.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if err := entry.MarkAbandoned(); err != nil {
		return fmt.Errorf("entry %s: %w", entryID, err)
	}
	slog.Info("outbox_event", "event", "entry_abandoned", "entry_id", entryID, "action_type", entry.ActionType)
	return p.store.Save(ctx, entry)
}

// EmailExecutor sends the email carried by an outbox payload.
type EmailExecutor struct {
	Sender email.Sender
}

// Execute sends an email from the payload.
// PRE: payload is valid JSON matching outbox.EmailPayload
// POST: email handed to the sender, returns the provider message ID
// INVARIANT: outbox entry status managed by caller
func (e *EmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	p, err := domain.DecodeEmail(payload)
	if err != nil {
		return "", err
	}
	if e.Sender == nil {
		return "", errors.New("email sender is not configured")
	}
	res, err := e.Sender.Send(ctx, email.SendRequest{
		To:      []string{p.To},
		Subject: p.Subject,
		HTML:    p.HTML,
		ReplyTo: p.ReplyTo,
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// EmailExecutors registers one EmailExecutor for every email action type.
func EmailExecutors(sender email.Sender) map[string]ActionExecutor {
	exec := &EmailExecutor{Sender: sender}
	return map[string]ActionExecutor{
		domain.ActionInvitationEmail:    exec,
		domain.ActionWelcomeEmail:       exec,
		domain.ActionTrainerNotifyEmail: exec,
	}
}

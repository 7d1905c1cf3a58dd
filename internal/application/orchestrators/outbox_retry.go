package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubhouse/internal/adapters/email"
	"clubhouse/internal/domain/failure"
	domainOutbox "clubhouse/internal/domain/outbox"
)

// OutboxStoreForDelivery reads due entries and stores delivery results.
type OutboxStoreForDelivery interface {
	ListPending(ctx context.Context, limit int) ([]domainOutbox.Entry, error)
	Save(ctx context.Context, e domainOutbox.Entry) error
}

// DeliveryRecorder counts delivery outcomes.
type DeliveryRecorder interface {
	RecordDelivery(result string)
}

// OutboxDeliveryDeps provides the dependencies for delivering outbox entries.
type OutboxDeliveryDeps struct {
	OutboxStore OutboxStoreForDelivery
	Sender      email.Sender
	Recorder    DeliveryRecorder // optional
	Now         func() time.Time
	BatchSize   int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// OutboxDeliveryReport summarises one delivery pass.
type OutboxDeliveryReport struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
}

// ExecuteDeliverOutbox sends due notification emails.
// It implements exponential backoff and respects max attempts.
// PRE: Deps are valid and store is connected
// POST: every due entry was attempted once and its result saved
func ExecuteDeliverOutbox(ctx context.Context, deps OutboxDeliveryDeps) (OutboxDeliveryReport, error) {
	if deps.BatchSize <= 0 {
		deps.BatchSize = 50
	}
	if deps.BaseDelay <= 0 {
		deps.BaseDelay = time.Minute
	}
	if deps.MaxDelay <= 0 {
		deps.MaxDelay = time.Hour
	}

	entries, err := deps.OutboxStore.ListPending(ctx, deps.BatchSize)
	if err != nil {
		return OutboxDeliveryReport{}, fmt.Errorf("list pending outbox entries: %w", err)
	}

	var report OutboxDeliveryReport
	for _, entry := range entries {
		now := deps.Now()
		if !entry.CanRetry() {
			continue
		}
		if !entry.IsDue(now, deps.BaseDelay, deps.MaxDelay) {
			report.Skipped++
			slog.Debug("outbox_retry_skipped_backoff", "entry_id", entry.ID, "attempts", entry.Attempts)
			continue
		}
		report.Processed++

		entry.MarkAttempt(now)
		messageID, err := deliver(ctx, deps.Sender, entry)
		result := "sent"
		if err != nil {
			entry.MarkFailed(err)
			report.Failed++
			result = "failed"
			slog.Error("outbox_delivery_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "error", err)
		} else {
			entry.MarkSuccess(messageID)
			report.Succeeded++
			slog.Info("outbox_delivery_succeeded", "entry_id", entry.ID, "attempt", entry.Attempts, "message_id", messageID)
		}
		if deps.Recorder != nil {
			deps.Recorder.RecordDelivery(result)
		}

		if saveErr := deps.OutboxStore.Save(ctx, entry); saveErr != nil {
			slog.Error("outbox_delivery_save_failed", "entry_id", entry.ID, "error", saveErr)
		}
	}

	if report.Processed > 0 {
		slog.Info("outbox_delivery_complete", "processed", report.Processed, "succeeded", report.Succeeded, "failed", report.Failed)
	}
	return report, nil
}

// deliver renders and sends one email entry.
// PRE: entry.ActionType is email
// POST: provider message id on success
func deliver(ctx context.Context, sender email.Sender, entry domainOutbox.Entry) (string, error) {
	if entry.ActionType != domainOutbox.ActionTypeEmail {
		return "", fmt.Errorf("unknown action type: %s", entry.ActionType)
	}
	payload, err := entry.Email()
	if err != nil {
		return "", fmt.Errorf("decode email payload: %w", err)
	}
	html, err := email.RenderMarkdown(payload.Markdown)
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	res, err := sender.Send(ctx, email.SendRequest{
		To:      payload.To,
		Subject: payload.Subject,
		HTML:    html,
		Text:    payload.Markdown,
		Kind:    payload.Kind,
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// OutboxWorkerConfig holds configuration for the delivery worker.
type OutboxWorkerConfig struct {
	Interval time.Duration // How often to run delivery
	Enabled  bool
}

// StartOutboxWorker starts a background goroutine that periodically delivers outbox entries.
// PRE: Context is valid, deps are initialized
// POST: Goroutine started, returns a stop function that waits for it to exit
func StartOutboxWorker(ctx context.Context, deps OutboxDeliveryDeps, cfg OutboxWorkerConfig) func() {
	if !cfg.Enabled {
		return func() {}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("outbox_worker_stopped")
				return
			case <-ticker.C:
				if _, err := ExecuteDeliverOutbox(ctx, deps); err != nil {
					slog.Error("outbox_worker_error", "error", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// OutboxStoreForAdmin loads single entries for manual handling.
type OutboxStoreForAdmin interface {
	GetByID(ctx context.Context, id string) (domainOutbox.Entry, error)
	Save(ctx context.Context, e domainOutbox.Entry) error
}

// OutboxAdminDeps holds dependencies for manual outbox actions.
type OutboxAdminDeps struct {
	Scopes      ScopeResolver
	OutboxStore OutboxStoreForAdmin
	Sender      email.Sender
	Recorder    DeliveryRecorder // optional
	Now         func() time.Time
}

// ExecuteRetryOutboxEntry requeues a failed entry and attempts delivery immediately.
// PRE: actor is an admin
// POST: entry is done, or retrying with one attempt spent
func ExecuteRetryOutboxEntry(ctx context.Context, actorID, entryID string, deps OutboxAdminDeps) (domainOutbox.Entry, error) {
	entry, err := loadOutboxEntryAsAdmin(ctx, actorID, entryID, deps)
	if err != nil {
		return domainOutbox.Entry{}, err
	}
	if err := entry.Requeue(); err != nil {
		return domainOutbox.Entry{}, failure.Conflict("%s", err.Error())
	}

	entry.MarkAttempt(deps.Now())
	result := "sent"
	if messageID, err := deliver(ctx, deps.Sender, entry); err != nil {
		entry.MarkFailed(err)
		result = "failed"
	} else {
		entry.MarkSuccess(messageID)
	}
	if deps.Recorder != nil {
		deps.Recorder.RecordDelivery(result)
	}
	if err := deps.OutboxStore.Save(ctx, entry); err != nil {
		return domainOutbox.Entry{}, fmt.Errorf("save outbox entry: %w", err)
	}
	slog.Info("outbox_manual_retry", "entry_id", entry.ID, "actor_id", actorID, "result", result)
	return entry, nil
}

// ExecuteAbandonOutboxEntry stops delivery of an undelivered entry.
// PRE: actor is an admin
func ExecuteAbandonOutboxEntry(ctx context.Context, actorID, entryID string, deps OutboxAdminDeps) (domainOutbox.Entry, error) {
	entry, err := loadOutboxEntryAsAdmin(ctx, actorID, entryID, deps)
	if err != nil {
		return domainOutbox.Entry{}, err
	}
	if err := entry.MarkAbandoned(); err != nil {
		return domainOutbox.Entry{}, failure.Conflict("%s", err.Error())
	}
	if err := deps.OutboxStore.Save(ctx, entry); err != nil {
		return domainOutbox.Entry{}, fmt.Errorf("save outbox entry: %w", err)
	}
	slog.Warn("outbox_entry_abandoned", "entry_id", entry.ID, "actor_id", actorID)
	return entry, nil
}

func loadOutboxEntryAsAdmin(ctx context.Context, actorID, entryID string, deps OutboxAdminDeps) (domainOutbox.Entry, error) {
	actor, err := deps.Scopes.Resolve(ctx, actorID)
	if err != nil {
		return domainOutbox.Entry{}, err
	}
	if !actor.IsAdmin() {
		return domainOutbox.Entry{}, failure.Unauthorized("only admins may manage the outbox")
	}
	return deps.OutboxStore.GetByID(ctx, entryID)
}

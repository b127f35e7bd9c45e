package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"flock/internal/adapters/email"
	outboxStore "flock/internal/adapters/storage/outbox"
	attendancedomain "flock/internal/domain/attendance"
	domainOutbox "flock/internal/domain/outbox"
)

// AttendanceStoreForRetry provides both write modes for replayed marks.
type AttendanceStoreForRetry interface {
	Save(ctx context.Context, r attendancedomain.Record) error
	SaveIfUnrecorded(ctx context.Context, r attendancedomain.Record) (bool, error)
}

// OutboxRetryDeps provides the dependencies for retrying outbox entries.
type OutboxRetryDeps struct {
	OutboxStore     outboxStore.Store
	AttendanceStore AttendanceStoreForRetry
	EmailSender     email.Sender
}

// ExecuteOutboxRetry processes pending and retryable failed outbox entries.
// It implements exponential backoff and respects max attempts.
// PRE: Deps are valid and store is connected
// POST: All eligible entries are processed, results logged
func ExecuteOutboxRetry(ctx context.Context, deps OutboxRetryDeps) error {
	entries, err := deps.OutboxStore.ListPending(ctx, 100)
	if err != nil {
		return fmt.Errorf("failed to list retryable outbox entries: %w", err)
	}

	if len(entries) == 0 {
		return nil
	}

	slog.Info("outbox_retry_start", "count", len(entries))

	var processed, succeeded, failed int
	baseDelay := 1 * time.Minute
	maxDelay := 1 * time.Hour

	for _, entry := range entries {
		processed++

		// Check if enough time has passed since last attempt
		if !entry.LastAttemptedAt.IsZero() {
			nextRetry := entry.LastAttemptedAt.Add(entry.NextRetryDelay(baseDelay, maxDelay))
			if time.Now().Before(nextRetry) {
				slog.Debug("outbox_retry_skipped_backoff", "entry_id", entry.ID, "next_retry", nextRetry)
				continue
			}
		}

		entry.MarkAttempt()

		var err error
		switch entry.ActionType {
		case domainOutbox.ActionTypeAttendanceMark:
			err = retryAttendanceMark(ctx, deps.AttendanceStore, entry)
		case domainOutbox.ActionTypeEmail:
			err = retryEmail(ctx, deps.EmailSender, entry)
		default:
			err = fmt.Errorf("unknown action type: %s", entry.ActionType)
		}

		if err != nil {
			entry.MarkFailed(err)
			failed++
			slog.Error("outbox_retry_failed", "entry_id", entry.ID, "action", entry.ActionType, "attempt", entry.Attempts, "error", err)
		} else {
			entry.MarkSuccess()
			succeeded++
			slog.Info("outbox_retry_succeeded", "entry_id", entry.ID, "action", entry.ActionType, "attempt", entry.Attempts)
		}

		if saveErr := deps.OutboxStore.Save(ctx, entry); saveErr != nil {
			slog.Error("outbox_retry_save_failed", "entry_id", entry.ID, "error", saveErr)
		}
	}

	slog.Info("outbox_retry_complete", "processed", processed, "succeeded", succeeded, "failed", failed)
	return nil
}

// retryAttendanceMark replays a failed attendance write. Synthesized
// defaults use the conditional insert so a later explicit mark wins.
// PRE: Entry payload is a MarkReplay
// POST: The mark is persisted, or an error is returned for backoff
func retryAttendanceMark(ctx context.Context, store AttendanceStoreForRetry, entry domainOutbox.Entry) error {
	if store == nil {
		return fmt.Errorf("no attendance store configured")
	}

	var replay attendancedomain.MarkReplay
	if err := json.Unmarshal([]byte(entry.Payload), &replay); err != nil {
		return fmt.Errorf("failed to unmarshal attendance mark payload: %w", err)
	}
	if err := replay.Record.Validate(); err != nil {
		return fmt.Errorf("invalid replayed record: %w", err)
	}

	if replay.Conditional {
		inserted, err := store.SaveIfUnrecorded(ctx, replay.Record)
		if err != nil {
			return err
		}
		if !inserted {
			slog.Debug("outbox_retry_mark_superseded", "member_id", replay.Record.MemberID, "date", replay.Record.Date)
		}
		return nil
	}
	return store.Save(ctx, replay.Record)
}

// retryEmail resends an email from the outbox payload.
// PRE: Entry payload contains the send request fields
// POST: Email handed to the sender, or an error is returned for backoff
func retryEmail(ctx context.Context, sender email.Sender, entry domainOutbox.Entry) error {
	if sender == nil {
		return fmt.Errorf("no email sender configured")
	}

	var payload struct {
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
	}
	if err := json.Unmarshal([]byte(entry.Payload), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email payload: %w", err)
	}

	_, err := sender.Send(ctx, email.SendRequest{
		To:      payload.To,
		Subject: payload.Subject,
		HTML:    payload.HTML,
	})
	return err
}

// OutboxRetryConfig holds configuration for the retry scheduler.
type OutboxRetryConfig struct {
	Interval time.Duration // How often to run retries
	Enabled  bool
}

// DefaultOutboxRetryConfig returns sensible defaults.
func DefaultOutboxRetryConfig() OutboxRetryConfig {
	return OutboxRetryConfig{
		Interval: 1 * time.Minute,
		Enabled:  true,
	}
}

// StartOutboxRetryScheduler starts a background goroutine that periodically retries outbox entries.
// PRE: Context is valid, deps are initialized
// POST: Goroutine started, returns cancel function
func StartOutboxRetryScheduler(ctx context.Context, deps OutboxRetryDeps, cfg OutboxRetryConfig) func() {
	if !cfg.Enabled {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := ExecuteOutboxRetry(ctx, deps); err != nil {
					slog.Error("outbox_retry_scheduler_error", "error", err)
				}
			}
		}
	}()

	return cancel
}

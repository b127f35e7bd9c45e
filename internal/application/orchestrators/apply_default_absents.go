package orchestrators

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	attendancedomain "flock/internal/domain/attendance"
	memberdomain "flock/internal/domain/member"
	outboxdomain "flock/internal/domain/outbox"

	"github.com/google/uuid"
)

// MemberListerForAbsents provides the active roster for the sweep.
type MemberListerForAbsents interface {
	ListActive(ctx context.Context) ([]memberdomain.Member, error)
}

// AttendanceStoreForAbsents provides the conditional insert used for
// synthesized defaults.
type AttendanceStoreForAbsents interface {
	ListByDate(ctx context.Context, date string) ([]attendancedomain.Record, error)
	SaveIfUnrecorded(ctx context.Context, r attendancedomain.Record) (bool, error)
}

// OutboxStoreForAbsents queues failed default writes for background retry.
type OutboxStoreForAbsents interface {
	Save(ctx context.Context, e outboxdomain.Entry) error
}

// ApplyDefaultAbsentsDeps holds dependencies for the sweep.
type ApplyDefaultAbsentsDeps struct {
	MemberStore     MemberListerForAbsents
	AttendanceStore AttendanceStoreForAbsents
	OutboxStore     OutboxStoreForAbsents
	Now             func() time.Time
}

// ApplyDefaultAbsentsResult carries the aggregate outcome of one sweep.
type ApplyDefaultAbsentsResult struct {
	Defaulted int // members newly marked absent
	Skipped   int // members who already had an explicit mark
	Failed    int // members whose default write failed and was queued
}

// ExecuteApplyDefaultAbsents marks every active member with no recorded
// status for the date as absent. Each member is handled in isolation: one
// failed write never aborts the sweep, it is queued to the outbox and the
// sweep moves on. Explicit marks are never overwritten; the conditional
// insert makes the race with a concurrent explicit mark harmless.
// PRE: date is YYYY-MM-DD
// POST: Every roster member has a recorded status for the date, except those
// whose write failed (queued for retry)
func ExecuteApplyDefaultAbsents(ctx context.Context, date string, deps ApplyDefaultAbsentsDeps) (ApplyDefaultAbsentsResult, error) {
	roster, err := deps.MemberStore.ListActive(ctx)
	if err != nil {
		return ApplyDefaultAbsentsResult{}, err
	}
	recorded, err := deps.AttendanceStore.ListByDate(ctx, date)
	if err != nil {
		return ApplyDefaultAbsentsResult{}, err
	}

	marked := make(map[string]bool, len(recorded))
	for _, r := range recorded {
		if r.Status != attendancedomain.StatusUnrecorded {
			marked[r.MemberID] = true
		}
	}

	var result ApplyDefaultAbsentsResult
	now := deps.Now()

	for _, m := range roster {
		if marked[m.ID] {
			result.Skipped++
			continue
		}

		rec := attendancedomain.Record{
			ID:         uuid.NewString(),
			MemberID:   m.ID,
			FullName:   m.FullName(),
			AgeGroup:   m.AgeGroup,
			Date:       date,
			Status:     attendancedomain.StatusAbsent,
			RecordedAt: now,
		}

		inserted, err := deps.AttendanceStore.SaveIfUnrecorded(ctx, rec)
		if err != nil {
			result.Failed++
			slog.Warn("default_absent_write_failed", "member_id", m.ID, "date", date, "error", err)
			queueDefaultAbsentRetry(ctx, deps.OutboxStore, rec, now)
			continue
		}
		if !inserted {
			// An explicit mark landed between the roster read and the
			// insert; it wins.
			result.Skipped++
			continue
		}
		result.Defaulted++
	}

	slog.Info("default_absents_applied",
		"date", date,
		"defaulted", result.Defaulted,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// queueDefaultAbsentRetry stores a failed default write in the outbox.
func queueDefaultAbsentRetry(ctx context.Context, store OutboxStoreForAbsents, rec attendancedomain.Record, now time.Time) {
	payload, err := json.Marshal(attendancedomain.MarkReplay{Record: rec, Conditional: true})
	if err != nil {
		slog.Error("default_absent_payload_failed", "member_id", rec.MemberID, "error", err)
		return
	}
	entry := outboxdomain.Entry{
		ID:          uuid.NewString(),
		ActionType:  outboxdomain.ActionTypeAttendanceMark,
		Payload:     string(payload),
		Status:      outboxdomain.StatusPending,
		MaxAttempts: 5,
		CreatedAt:   now,
	}
	if err := store.Save(ctx, entry); err != nil {
		slog.Error("default_absent_outbox_failed", "member_id", rec.MemberID, "error", err)
	}
}

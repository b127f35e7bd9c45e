// Package snapshot holds the server-side working copy of one calendar date's
// attendance roster. The attendance screen always operates on the snapshot,
// never on the raw tables, so a failed reload degrades to stale data instead
// of a blank page.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	attendancedomain "flock/internal/domain/attendance"
	memberdomain "flock/internal/domain/member"
	outboxdomain "flock/internal/domain/outbox"
)

// MemberLister provides the active congregation roster.
type MemberLister interface {
	ListActive(ctx context.Context) ([]memberdomain.Member, error)
}

// RecordStore provides attendance record persistence.
type RecordStore interface {
	ListByDate(ctx context.Context, date string) ([]attendancedomain.Record, error)
	Save(ctx context.Context, value attendancedomain.Record) error
}

// OutboxStore queues failed writes for background retry.
type OutboxStore interface {
	Save(ctx context.Context, e outboxdomain.Entry) error
}

// Errors returned by Mark.
var (
	ErrNotInRoster   = errors.New("member is not in the loaded roster")
	ErrInvalidStatus = errors.New("status must be 'present' or 'absent'")
)

// Store is the per-date attendance snapshot. One row exists per active member;
// unmarked members carry an empty status. All state transitions replace the
// row slice as a whole under the mutex.
// INVARIANT: at most one row per (member_id, date); summary matches rows
type Store struct {
	members MemberLister
	records RecordStore
	outbox  OutboxStore

	mu           sync.Mutex
	selectedDate string
	rows         []attendancedomain.Record
	summary      attendancedomain.Summary
	generation   uint64
}

// NewStore creates a snapshot store with no date selected.
func NewStore(members MemberLister, records RecordStore, outbox OutboxStore) *Store {
	return &Store{
		members: members,
		records: records,
		outbox:  outbox,
	}
}

// SelectedDate returns the currently selected calendar date, or "" before the
// first SetSelectedDate.
func (s *Store) SelectedDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedDate
}

// SetSelectedDate switches the snapshot to a new calendar date and reloads.
// PRE: t is any wall-clock time; its local calendar date is used
// POST: SelectedDate() is the normalized date; rows reflect it unless the
// reload failed, in which case the previous rows are kept
func (s *Store) SetSelectedDate(ctx context.Context, t time.Time) error {
	date := attendancedomain.NormalizeDate(t)

	s.mu.Lock()
	s.selectedDate = date
	s.mu.Unlock()

	return s.Reload(ctx)
}

// Reload rebuilds the snapshot for the selected date. Stale responses lose:
// a reload that started before a later SetSelectedDate or Reload is discarded
// on completion. On load failure the previous rows stay in place.
// POST: rows and summary are consistent with each other
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	date := s.selectedDate
	s.mu.Unlock()

	if date == "" {
		return nil
	}

	roster, err := s.members.ListActive(ctx)
	if err != nil {
		slog.Warn("snapshot_reload_failed", "date", date, "error", err)
		return err
	}
	recorded, err := s.records.ListByDate(ctx, date)
	if err != nil {
		slog.Warn("snapshot_reload_failed", "date", date, "error", err)
		return err
	}

	byMember := make(map[string]attendancedomain.Record, len(recorded))
	for _, r := range recorded {
		byMember[r.MemberID] = r
	}

	rows := make([]attendancedomain.Record, 0, len(roster))
	for _, m := range roster {
		if r, ok := byMember[m.ID]; ok {
			rows = append(rows, r)
			continue
		}
		rows = append(rows, attendancedomain.Record{
			MemberID: m.ID,
			FullName: m.FullName(),
			AgeGroup: m.AgeGroup,
			Date:     date,
			Status:   attendancedomain.StatusUnrecorded,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].FullName < rows[j].FullName })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		// A newer reload superseded this one while it was loading.
		slog.Debug("snapshot_reload_discarded", "date", date)
		return nil
	}
	s.rows = rows
	s.summary = attendancedomain.Recompute(rows, len(rows))
	return nil
}

// Rows returns a copy of the current roster rows.
func (s *Store) Rows() []attendancedomain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]attendancedomain.Record, len(s.rows))
	copy(out, s.rows)
	return out
}

// Summary returns the current per-date counts.
func (s *Store) Summary() attendancedomain.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Generation returns the roster generation, bumped on every reload. The
// absence scheduler uses it to detect roster changes.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// FilterByName returns the rows whose full name contains the query,
// case-insensitive. An empty query returns all rows.
func (s *Store) FilterByName(query string) []attendancedomain.Record {
	rows := s.Rows()
	if strings.TrimSpace(query) == "" {
		return rows
	}
	q := strings.ToLower(query)
	out := rows[:0]
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.FullName), q) {
			out = append(out, r)
		}
	}
	return out
}

// Mark sets a member's status for the selected date. The in-memory row is
// replaced first so the screen updates immediately; if persistence then
// fails, the write is queued to the outbox and the optimistic row stands.
// PRE: the member is in the loaded roster; status is present or absent
// POST: the row for the member carries the new status; summary is recomputed
func (s *Store) Mark(ctx context.Context, memberID, status string) (attendancedomain.Record, error) {
	if status != attendancedomain.StatusPresent && status != attendancedomain.StatusAbsent {
		return attendancedomain.Record{}, ErrInvalidStatus
	}

	s.mu.Lock()
	idx := -1
	for i, r := range s.rows {
		if r.MemberID == memberID {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return attendancedomain.Record{}, ErrNotInRoster
	}

	updated := s.rows[idx]
	if updated.ID == "" {
		updated.ID = uuid.NewString()
	}
	updated.Status = status
	updated.RecordedAt = time.Now()

	rows := make([]attendancedomain.Record, len(s.rows))
	copy(rows, s.rows)
	rows[idx] = updated
	s.rows = rows
	s.summary = attendancedomain.Recompute(rows, len(rows))
	s.mu.Unlock()

	if err := s.records.Save(ctx, updated); err != nil {
		slog.Warn("attendance_mark_persist_failed", "member_id", memberID, "date", updated.Date, "error", err)
		if qerr := s.enqueueRetry(ctx, updated); qerr != nil {
			return updated, qerr
		}
	}
	return updated, nil
}

// enqueueRetry stores a failed mark in the outbox for the background worker.
func (s *Store) enqueueRetry(ctx context.Context, rec attendancedomain.Record) error {
	payload, err := json.Marshal(attendancedomain.MarkReplay{Record: rec})
	if err != nil {
		return err
	}
	entry := outboxdomain.Entry{
		ID:          uuid.NewString(),
		ActionType:  outboxdomain.ActionTypeAttendanceMark,
		Payload:     string(payload),
		Status:      outboxdomain.StatusPending,
		MaxAttempts: 5,
		CreatedAt:   time.Now(),
	}
	if err := s.outbox.Save(ctx, entry); err != nil {
		slog.Error("attendance_mark_outbox_failed", "member_id", rec.MemberID, "error", err)
		return err
	}
	slog.Info("attendance_mark_queued", "member_id", rec.MemberID, "date", rec.Date)
	return nil
}

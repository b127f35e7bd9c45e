// Package absence arms a one-shot timer that marks every still-unrecorded
// member absent once a cutoff time passes on the current day.
package absence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the scheduler lifecycle for the currently armed date.
type State string

const (
	// StatePending means no timer is armed (no date selected, or the
	// selected date is not today).
	StatePending State = "pending"
	// StateArmed means a timer is set for today's cutoff.
	StateArmed State = "armed"
	// StateApplying means the default-absence sweep is running.
	StateApplying State = "applying"
	// StateApplied means the sweep has run for the armed (date, roster).
	StateApplied State = "applied"
)

// DefaultCutoff is the wall-clock time-of-day when unmarked members are
// defaulted to absent.
const DefaultCutoff = "13:00"

// ApplyFunc runs the default-absence sweep for a date.
type ApplyFunc func(ctx context.Context, date string) error

// ParseCutoff parses an "HH:MM" wall-clock time into an offset from midnight.
// PRE: s is "HH:MM" in 24-hour form
// POST: Returns the offset, or an error for malformed input
func ParseCutoff(s string) (time.Duration, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("cutoff must be HH:MM: %w", err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("cutoff out of range: %q", s)
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, nil
}

// Scheduler owns at most one pending cutoff timer. Re-arming for a new date
// or roster generation cancels the previous timer, so a date flip can never
// default-absent the wrong day.
// INVARIANT: at most one live timer; the sweep runs at most once per
// (date, generation) pair
type Scheduler struct {
	cutoff time.Duration
	apply  ApplyFunc
	now    func() time.Time

	mu        sync.Mutex
	state     State
	timer     *time.Timer
	armedDate string
	armedGen  uint64
}

// NewScheduler creates a scheduler in the Pending state.
// PRE: apply is non-nil; cutoff is an offset from midnight
func NewScheduler(cutoff time.Duration, apply ApplyFunc) *Scheduler {
	return &Scheduler{
		cutoff: cutoff,
		apply:  apply,
		now:    time.Now,
		state:  StatePending,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Arm schedules the sweep for the given date and roster generation. Dates
// other than today disarm the scheduler: past days were already settled and
// future days get their own timer when they arrive. If the cutoff has
// already passed today, the sweep runs immediately.
// POST: any previously armed timer is cancelled
func (s *Scheduler) Arm(date string, generation uint64) {
	s.mu.Lock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	now := s.now()
	today := now.Format("2006-01-02")
	if date != today {
		s.state = StatePending
		s.armedDate = ""
		s.mu.Unlock()
		slog.Debug("absence_rule_disarmed", "date", date, "today", today)
		return
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	fireAt := midnight.Add(s.cutoff)
	delay := fireAt.Sub(now)

	s.state = StateArmed
	s.armedDate = date
	s.armedGen = generation

	if delay <= 0 {
		s.mu.Unlock()
		slog.Info("absence_rule_cutoff_passed", "date", date)
		s.fire(date, generation)
		return
	}

	s.timer = time.AfterFunc(delay, func() { s.fire(date, generation) })
	s.mu.Unlock()
	slog.Info("absence_rule_armed", "date", date, "fire_at", fireAt.Format(time.RFC3339))
}

// Cancel stops any armed timer and returns to Pending.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = StatePending
	s.armedDate = ""
}

// fire runs the sweep if the armed (date, generation) still matches. A timer
// that outlived a re-arm is a no-op here.
func (s *Scheduler) fire(date string, generation uint64) {
	s.mu.Lock()
	if s.state != StateArmed || s.armedDate != date || s.armedGen != generation {
		s.mu.Unlock()
		return
	}
	s.state = StateApplying
	s.mu.Unlock()

	err := s.apply(context.Background(), date)

	s.mu.Lock()
	// A re-arm during the sweep takes precedence over the terminal state.
	if s.state == StateApplying && s.armedDate == date && s.armedGen == generation {
		s.state = StateApplied
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("absence_rule_apply_failed", "date", date, "error", err)
		return
	}
	slog.Info("absence_rule_applied", "date", date)
}

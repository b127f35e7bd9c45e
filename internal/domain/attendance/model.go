package attendance

import (
	"errors"
	"time"
)

// Status constants. An empty status means "not yet recorded"; such rows are
// excluded from both summary counts.
const (
	StatusPresent    = "present"
	StatusAbsent     = "absent"
	StatusUnrecorded = ""
)

// Domain errors
var (
	ErrEmptyMemberID = errors.New("attendance must be associated with a member")
	ErrInvalidDate   = errors.New("attendance date must be in YYYY-MM-DD format")
	ErrInvalidStatus = errors.New("attendance status must be 'present' or 'absent'")
)

// Record is one member's attendance mark for one calendar date. FullName and
// AgeGroup are denormalized from the member for display. At most one record
// exists per (member_id, date).
type Record struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"memberId"`
	FullName   string    `json:"fullName"`
	AgeGroup   string    `json:"ageGroup"`
	Date       string    `json:"date"` // YYYY-MM-DD, timezone-naive calendar date
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Validate checks if the Record has valid data.
// PRE: Record struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: MemberID non-empty, Date well-formed, Status explicit
func (r *Record) Validate() error {
	if r.MemberID == "" {
		return ErrEmptyMemberID
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return ErrInvalidDate
	}
	if r.Status != StatusPresent && r.Status != StatusAbsent {
		return ErrInvalidStatus
	}
	return nil
}

// Key returns the (member, date) identity used for replace-in-place updates.
// INVARIANT: Record fields are not mutated
func (r *Record) Key() string {
	return r.MemberID + "|" + r.Date
}

// MarkReplay is the outbox payload for an attendance write that failed to
// persist. Conditional distinguishes synthesized defaults, which must never
// overwrite an explicit mark when replayed.
type MarkReplay struct {
	Record      Record `json:"record"`
	Conditional bool   `json:"conditional"`
}

// Summary holds the derived per-date counts. Unrecorded members count toward
// TotalCount only, so PresentCount+AbsentCount <= TotalCount always holds.
type Summary struct {
	TotalCount   int `json:"totalCount"`
	PresentCount int `json:"presentCount"`
	AbsentCount  int `json:"absentCount"`
}

// Recompute derives a Summary from the explicit records of one date.
// PRE: records all belong to the same date; totalMembers is the roster size
// POST: PresentCount+AbsentCount <= TotalCount
func Recompute(records []Record, totalMembers int) Summary {
	s := Summary{TotalCount: totalMembers}
	for _, r := range records {
		switch r.Status {
		case StatusPresent:
			s.PresentCount++
		case StatusAbsent:
			s.AbsentCount++
		}
	}
	return s
}

// NormalizeDate renders a time as the local calendar date, YYYY-MM-DD.
// The wall-clock date is used as-is, with no UTC shifting.
func NormalizeDate(t time.Time) string {
	return t.Format("2006-01-02")
}

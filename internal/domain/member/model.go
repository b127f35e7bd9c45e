package member

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength   = 100
	MaxReasonLength = 500
)

// Member status constants
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Marital status constants
const (
	MaritalSingle    = "Single"
	MaritalMarried   = "Married"
	MaritalWidowed   = "Widowed"
	MaritalSeparated = "Separated"
)

// Consolidation tri-state constants
const (
	ConsolidationYes        = "Yes"
	ConsolidationNo         = "No"
	ConsolidationInProgress = "In Progress"
)

// Age group constants, derived from date of birth and marital status.
const (
	AgeGroupChildren     = "Children"
	AgeGroupYouth        = "Youth"
	AgeGroupYoungAdult   = "Young Adult"
	AgeGroupYoungMarried = "Young Married"
	AgeGroupMiddleAdult  = "Middle Adult"
	AgeGroupSeniorAdult  = "Senior Adult"
)

// OthersSentinel is the ministry option that unlocks a free-text elaboration field.
const OthersSentinel = "Others"

// KnownMinistries lists the ministries offered on the registration form.
var KnownMinistries = []string{"Media", "Praise Team", "Content Writer", "Ushering", "Kids Ministry", "Technical", OthersSentinel}

// KnownTrainings lists the spiritual trainings tracked per member.
var KnownTrainings = []string{"Life Class", "SOL 1", "SOL 2", "SOL 3"}

// ValidMaritalStatuses contains all valid marital status values.
var ValidMaritalStatuses = []string{MaritalSingle, MaritalMarried, MaritalWidowed, MaritalSeparated}

// ValidConsolidations contains all valid consolidation values.
var ValidConsolidations = []string{ConsolidationYes, ConsolidationNo, ConsolidationInProgress}

// Domain errors
var (
	ErrEmptyFirstName       = errors.New("first name cannot be empty")
	ErrEmptyLastName        = errors.New("last name cannot be empty")
	ErrInvalidMaritalStatus = errors.New("marital status must be one of: Single, Married, Widowed, Separated")
	ErrInvalidStatus        = errors.New("member status must be 'Active' or 'Inactive'")
	ErrInvalidConsolidation = errors.New("consolidation must be one of: Yes, No, In Progress")
	ErrInvalidDateOfBirth   = errors.New("date of birth must be in YYYY-MM-DD format")
)

// Member holds the full membership record. Composite fields (ChurchMinistry,
// Trainings, Households) are stored as delimited strings; the codec functions in
// this package convert them to and from their structured edit-form shapes.
type Member struct {
	ID                 string
	FirstName          string
	LastName           string
	DateOfBirth        string // YYYY-MM-DD
	Gender             string
	MaritalStatus      string
	ContactNumber      string
	Address            string
	AgeGroup           string // derived, never hand-edited
	PrevChurchAttendee bool
	PrevChurch         string
	InvitedBy          string
	DateAttended       string // YYYY-MM
	AttendingCellGroup bool
	CellLeaderName     string
	ChurchMinistry     string // encoded, e.g. "Media, Praise Team"
	MinistryOthers     string // free-text elaboration when "Others" is selected
	Trainings          string // encoded, e.g. "Life Class (2020), SOL 1 (2022)"
	WillingTraining    bool
	Consolidation      string // Yes, No, In Progress
	WaterBaptized      bool
	Status             string // Active, Inactive
	Reason             string
	Households         string // encoded, e.g. "Ana Cruz - Spouse (1990-01-01); ..."
	PhotoURL           string
}

// FullName returns the display name used in attendance rows and search.
// INVARIANT: Member fields are not mutated
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// IsActive returns true if the member is currently active.
// INVARIANT: Status field is not mutated
func (m *Member) IsActive() bool {
	return m.Status == StatusActive
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: FirstName and LastName must not be empty; enumerated fields hold known values
func (m *Member) Validate() error {
	if strings.TrimSpace(m.FirstName) == "" {
		return ErrEmptyFirstName
	}
	if strings.TrimSpace(m.LastName) == "" {
		return ErrEmptyLastName
	}
	if len(m.FirstName) > MaxNameLength || len(m.LastName) > MaxNameLength {
		return errors.New("name cannot exceed 100 characters")
	}
	if m.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", m.DateOfBirth); err != nil {
			return ErrInvalidDateOfBirth
		}
	}
	if m.MaritalStatus != "" && !containsString(ValidMaritalStatuses, m.MaritalStatus) {
		return ErrInvalidMaritalStatus
	}
	if m.Status != StatusActive && m.Status != StatusInactive {
		return ErrInvalidStatus
	}
	if m.Consolidation != "" && !containsString(ValidConsolidations, m.Consolidation) {
		return ErrInvalidConsolidation
	}
	if len(m.Reason) > MaxReasonLength {
		return errors.New("reason cannot exceed 500 characters")
	}
	return nil
}

// RecomputeAgeGroup refreshes the derived AgeGroup from DateOfBirth and
// MaritalStatus. Callers must invoke this after any change to either input.
// POST: AgeGroup holds the classification for the reference time
func (m *Member) RecomputeAgeGroup(ref time.Time) {
	m.AgeGroup = CalculateAgeGroup(m.DateOfBirth, m.MaritalStatus, ref)
}

// CalculateAgeGroup classifies a birthdate into an age group band. Married
// adults aged 18-39 are "Young Married"; everyone else in that band is
// "Young Adult". An empty or malformed birthdate yields an empty group.
// PRE: dob is YYYY-MM-DD or empty
// POST: Returns one of the age group constants, or "" when dob is unusable
// INVARIANT: Pure function of (dob, maritalStatus, ref), no stored state
func CalculateAgeGroup(dob, maritalStatus string, ref time.Time) string {
	if dob == "" {
		return ""
	}
	birth, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return ""
	}

	age := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() || (ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		age--
	}

	switch {
	case age < 13:
		return AgeGroupChildren
	case age <= 17:
		return AgeGroupYouth
	case age <= 39:
		if maritalStatus == MaritalMarried {
			return AgeGroupYoungMarried
		}
		return AgeGroupYoungAdult
	case age <= 59:
		return AgeGroupMiddleAdult
	default:
		return AgeGroupSeniorAdult
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

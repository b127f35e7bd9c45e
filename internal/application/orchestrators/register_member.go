package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"flock/internal/domain/member"

	"github.com/google/uuid"
)

// MemberStore defines the interface for member persistence.
type MemberStore interface {
	Save(ctx context.Context, m member.Member) error
	GetByID(ctx context.Context, id string) (member.Member, error)
	Delete(ctx context.Context, id string) error
}

// MemberFormInput carries the registration/edit form fields. Ministries,
// households and trainings arrive in their structured edit shapes and are
// encoded into the stored delimited strings here.
type MemberFormInput struct {
	FirstName          string
	LastName           string
	DateOfBirth        string // YYYY-MM-DD
	Gender             string
	MaritalStatus      string
	ContactNumber      string
	Address            string
	PrevChurchAttendee bool
	PrevChurch         string
	InvitedBy          string
	DateAttended       string // YYYY-MM
	AttendingCellGroup bool
	CellLeaderName     string
	Ministries         []string
	MinistryOthers     string
	Trainings          map[string]string // training name -> year ("" when unknown)
	WillingTraining    bool
	Consolidation      string
	WaterBaptized      bool
	Status             string
	Reason             string
	Households         []member.HouseholdMember
	PhotoURL           string
}

// RegisterMemberDeps holds dependencies for RegisterMember.
type RegisterMemberDeps struct {
	MemberStore MemberStore
	Now         func() time.Time
}

// ExecuteRegisterMember coordinates member registration.
// PRE: First and last name present; enumerated fields hold known values
// POST: Member created with generated ID; AgeGroup derived from the form,
// never taken from the caller
func ExecuteRegisterMember(ctx context.Context, input MemberFormInput, deps RegisterMemberDeps) (string, error) {
	m := memberFromForm(input)
	m.ID = uuid.New().String()
	if m.Status == "" {
		m.Status = member.StatusActive
	}
	m.RecomputeAgeGroup(deps.Now())

	if err := m.Validate(); err != nil {
		return "", err
	}

	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return "", err
	}

	slog.Info("member_event", "event", "member_registered", "member_id", m.ID, "age_group", m.AgeGroup)
	return m.ID, nil
}

// memberFromForm builds a Member from form input, encoding the structured
// composite fields into their stored string shapes.
func memberFromForm(input MemberFormInput) member.Member {
	return member.Member{
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		DateOfBirth:        input.DateOfBirth,
		Gender:             input.Gender,
		MaritalStatus:      input.MaritalStatus,
		ContactNumber:      input.ContactNumber,
		Address:            input.Address,
		PrevChurchAttendee: input.PrevChurchAttendee,
		PrevChurch:         input.PrevChurch,
		InvitedBy:          input.InvitedBy,
		DateAttended:       input.DateAttended,
		AttendingCellGroup: input.AttendingCellGroup,
		CellLeaderName:     input.CellLeaderName,
		ChurchMinistry:     member.EncodeMinistries(input.Ministries),
		MinistryOthers:     input.MinistryOthers,
		Trainings:          member.EncodeTrainings(input.Trainings),
		WillingTraining:    input.WillingTraining,
		Consolidation:      input.Consolidation,
		WaterBaptized:      input.WaterBaptized,
		Status:             input.Status,
		Reason:             input.Reason,
		Households:         member.EncodeHouseholds(input.Households),
		PhotoURL:           input.PhotoURL,
	}
}

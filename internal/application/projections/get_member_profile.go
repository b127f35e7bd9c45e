package projections

import (
	"context"

	domainMember "flock/internal/domain/member"
)

// GetMemberProfileQuery carries query parameters.
type GetMemberProfileQuery struct {
	MemberID string
}

// GetMemberProfileResult is the edit-form shape of a member: the stored
// delimited composite fields are decoded into their structured forms so the
// form can render checkboxes and repeatable rows directly.
type GetMemberProfileResult struct {
	MemberID           string                         `json:"memberId"`
	FirstName          string                         `json:"firstName"`
	LastName           string                         `json:"lastName"`
	DateOfBirth        string                         `json:"dateOfBirth"`
	Gender             string                         `json:"gender"`
	MaritalStatus      string                         `json:"maritalStatus"`
	ContactNumber      string                         `json:"contactNumber"`
	Address            string                         `json:"address"`
	AgeGroup           string                         `json:"ageGroup"`
	PrevChurchAttendee bool                           `json:"prevChurchAttendee"`
	PrevChurch         string                         `json:"prevChurch"`
	InvitedBy          string                         `json:"invitedBy"`
	DateAttended       string                         `json:"dateAttended"`
	AttendingCellGroup bool                           `json:"attendingCellGroup"`
	CellLeaderName     string                         `json:"cellLeaderName"`
	Ministries         []string                       `json:"ministries"`
	MinistryOthers     string                         `json:"ministryOthers"`
	Trainings          map[string]string              `json:"trainings"`
	WillingTraining    bool                           `json:"willingTraining"`
	Consolidation      string                         `json:"consolidation"`
	WaterBaptized      bool                           `json:"waterBaptized"`
	Status             string                         `json:"status"`
	Reason             string                         `json:"reason"`
	Households         []domainMember.HouseholdMember `json:"households"`
	PhotoURL           string                         `json:"photoUrl"`
	RecentAttendance   []AttendanceHistoryRow         `json:"recentAttendance"`
}

// AttendanceHistoryRow is one line of a member's attendance history.
type AttendanceHistoryRow struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// GetMemberProfileDeps holds dependencies for GetMemberProfile.
type GetMemberProfileDeps struct {
	MemberStore     MemberStore
	AttendanceStore AttendanceStore // optional: nil skips the history
}

// QueryGetMemberProfile retrieves a member in edit-form shape.
// PRE: Valid member ID
// POST: Composite fields decoded; malformed stored segments are dropped by
// the codecs rather than failing the load
func QueryGetMemberProfile(ctx context.Context, query GetMemberProfileQuery, deps GetMemberProfileDeps) (GetMemberProfileResult, error) {
	m, err := deps.MemberStore.GetByID(ctx, query.MemberID)
	if err != nil {
		return GetMemberProfileResult{}, err
	}

	result := GetMemberProfileResult{
		MemberID:           m.ID,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		DateOfBirth:        m.DateOfBirth,
		Gender:             m.Gender,
		MaritalStatus:      m.MaritalStatus,
		ContactNumber:      m.ContactNumber,
		Address:            m.Address,
		AgeGroup:           m.AgeGroup,
		PrevChurchAttendee: m.PrevChurchAttendee,
		PrevChurch:         m.PrevChurch,
		InvitedBy:          m.InvitedBy,
		DateAttended:       m.DateAttended,
		AttendingCellGroup: m.AttendingCellGroup,
		CellLeaderName:     m.CellLeaderName,
		Ministries:         domainMember.DecodeMinistries(m.ChurchMinistry),
		MinistryOthers:     m.MinistryOthers,
		Trainings:          domainMember.DecodeTrainings(m.Trainings),
		WillingTraining:    m.WillingTraining,
		Consolidation:      m.Consolidation,
		WaterBaptized:      m.WaterBaptized,
		Status:             m.Status,
		Reason:             m.Reason,
		Households:         domainMember.DecodeHouseholds(m.Households),
		PhotoURL:           m.PhotoURL,
	}

	// Recent attendance history (optional)
	if deps.AttendanceStore != nil {
		if records, err := deps.AttendanceStore.ListByMemberID(ctx, query.MemberID); err == nil {
			const historyLimit = 30
			for i, r := range records {
				if i >= historyLimit {
					break
				}
				result.RecentAttendance = append(result.RecentAttendance, AttendanceHistoryRow{
					Date:   r.Date,
					Status: r.Status,
				})
			}
		}
	}

	return result, nil
}

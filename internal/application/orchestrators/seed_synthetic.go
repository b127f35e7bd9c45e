package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	memberFilter "flock/internal/adapters/storage/member"
	attendancedomain "flock/internal/domain/attendance"
	"flock/internal/domain/member"
	"flock/internal/domain/notice"

	"github.com/google/uuid"
)

// SyntheticSeedDeps holds all stores needed for synthetic data seeding.
type SyntheticSeedDeps struct {
	MemberStore     synMemberStore
	AttendanceStore synAttendanceStore
	NoticeStore     synNoticeStore
}

type synMemberStore interface {
	Save(ctx context.Context, m member.Member) error
	List(ctx context.Context, filter memberFilter.ListFilter) ([]member.Member, error)
}
type synAttendanceStore interface {
	Save(ctx context.Context, r attendancedomain.Record) error
}
type synNoticeStore interface {
	Save(ctx context.Context, n notice.Notice) error
}

// syntheticMemberDef describes one seeded member. Birthdates are chosen to
// cover every age band, including the married 18-39 split.
type syntheticMemberDef struct {
	First, Last   string
	DOB           string
	Gender        string
	Marital       string
	Contact       string
	Address       string
	Ministries    []string
	Trainings     map[string]string
	Consolidation string
	Baptized      bool
	CellLeader    string
	DateAttended  string
	Households    []member.HouseholdMember
}

func syntheticMembers() []syntheticMemberDef {
	return []syntheticMemberDef{
		{
			First: "Ana", Last: "Cruz", DOB: "1992-04-12", Gender: "Female",
			Marital: member.MaritalMarried, Contact: "0917-555-0101",
			Address: "14 Mabini St", Ministries: []string{"Praise Team"},
			Trainings:     map[string]string{"Life Class": "2019", "SOL 1": "2021"},
			Consolidation: member.ConsolidationYes, Baptized: true,
			CellLeader: "Ruth Garcia", DateAttended: "2018-06",
			Households: []member.HouseholdMember{{Name: "Marco Cruz", Relationship: "Spouse", DateOfBirth: "1990-09-03"}},
		},
		{
			First: "Ben", Last: "Reyes", DOB: "2010-11-30", Gender: "Male",
			Marital: member.MaritalSingle, Contact: "0917-555-0102",
			Address: "7 Rizal Ave", Consolidation: member.ConsolidationInProgress,
			DateAttended: "2024-01",
		},
		{
			First: "Carla", Last: "Santos", DOB: "1998-02-08", Gender: "Female",
			Marital: member.MaritalSingle, Contact: "0917-555-0103",
			Address: "22 Luna St", Ministries: []string{"Media", "Content Writer"},
			Trainings:     map[string]string{"Life Class": "2023"},
			Consolidation: member.ConsolidationNo,
			DateAttended:  "2022-09",
		},
		{
			First: "Diego", Last: "Lim", DOB: "1975-07-19", Gender: "Male",
			Marital: member.MaritalMarried, Contact: "0917-555-0104",
			Address: "3 Bonifacio Rd", Ministries: []string{"Ushering"},
			Trainings:     map[string]string{"Life Class": "2015", "SOL 1": "2016", "SOL 2": "2017", "SOL 3": "2018"},
			Consolidation: member.ConsolidationYes, Baptized: true,
			CellLeader: "Diego Lim", DateAttended: "2012-03",
			Households: []member.HouseholdMember{
				{Name: "Teresa Lim", Relationship: "Spouse", DateOfBirth: "1978-01-25"},
				{Name: "Miguel Lim", Relationship: "Child", DateOfBirth: "2012-05-14"},
			},
		},
		{
			First: "Elena", Last: "Torres", DOB: "1958-12-02", Gender: "Female",
			Marital: member.MaritalWidowed, Contact: "0917-555-0105",
			Address: "31 Aguinaldo St", Ministries: []string{"Kids Ministry"},
			Trainings:     map[string]string{"Life Class": "2010"},
			Consolidation: member.ConsolidationYes, Baptized: true,
			DateAttended: "2008-11",
		},
		{
			First: "Franco", Last: "Dela Rosa", DOB: "2020-03-22", Gender: "Male",
			Marital: member.MaritalSingle, Contact: "0917-555-0106",
			Address: "14 Mabini St", DateAttended: "2024-12",
		},
	}
}

// ExecuteSeedSynthetic populates development data: a roster covering every
// age band, two weeks of Sunday attendance, and a couple of notices.
// It is idempotent, returning early when any members already exist.
// PRE: Database is migrated.
// POST: Store holds synthetic members, attendance history, and notices.
func ExecuteSeedSynthetic(ctx context.Context, deps SyntheticSeedDeps) error {
	existing, err := deps.MemberStore.List(ctx, memberFilter.ListFilter{Limit: 1})
	if err != nil {
		return fmt.Errorf("seed synthetic: list members: %w", err)
	}
	if len(existing) > 0 {
		return nil // data already present
	}

	now := time.Now()
	var members []member.Member
	for _, def := range syntheticMembers() {
		m := member.Member{
			ID:                 uuid.New().String(),
			FirstName:          def.First,
			LastName:           def.Last,
			DateOfBirth:        def.DOB,
			Gender:             def.Gender,
			MaritalStatus:      def.Marital,
			ContactNumber:      def.Contact,
			Address:            def.Address,
			DateAttended:       def.DateAttended,
			AttendingCellGroup: def.CellLeader != "",
			CellLeaderName:     def.CellLeader,
			ChurchMinistry:     member.EncodeMinistries(def.Ministries),
			Trainings:          member.EncodeTrainings(def.Trainings),
			WillingTraining:    len(def.Trainings) == 0,
			Consolidation:      def.Consolidation,
			WaterBaptized:      def.Baptized,
			Status:             member.StatusActive,
			Households:         member.EncodeHouseholds(def.Households),
		}
		m.RecomputeAgeGroup(now)
		if err := deps.MemberStore.Save(ctx, m); err != nil {
			return fmt.Errorf("seed synthetic member %s: %w", m.FullName(), err)
		}
		members = append(members, m)
	}

	// Two weeks of Sunday attendance. The most recent Sunday mixes present
	// and absent so the table and reports have something to show.
	lastSunday := previousSunday(now)
	weekBefore := lastSunday.AddDate(0, 0, -7)
	for i, m := range members {
		for di, day := range []time.Time{weekBefore, lastSunday} {
			status := attendancedomain.StatusPresent
			if (i+di)%3 == 0 {
				status = attendancedomain.StatusAbsent
			}
			rec := attendancedomain.Record{
				ID:         uuid.New().String(),
				MemberID:   m.ID,
				FullName:   m.FullName(),
				AgeGroup:   m.AgeGroup,
				Date:       day.Format("2006-01-02"),
				Status:     status,
				RecordedAt: day.Add(11 * time.Hour),
			}
			if err := deps.AttendanceStore.Save(ctx, rec); err != nil {
				return fmt.Errorf("seed synthetic attendance for %s: %w", m.FullName(), err)
			}
		}
	}

	notices := []notice.Notice{
		{
			ID:          uuid.New().String(),
			Type:        notice.TypeAnnouncement,
			Status:      notice.StatusPublished,
			Title:       "Water Baptism Sign-ups",
			Content:     "Sign-ups for the **next water baptism** are open at the welcome desk.",
			AuthorName:  "Admin",
			Color:       notice.ColorBlue,
			CreatedAt:   now,
			PublishedAt: now,
		},
		{
			ID:         uuid.New().String(),
			Type:       notice.TypeEvent,
			Status:     notice.StatusDraft,
			Title:      "Family Day",
			Content:    "Bring your household members for the annual *Family Day* picnic.",
			AuthorName: "Admin",
			Color:      notice.ColorGreen,
			CreatedAt:  now,
		},
	}
	for _, n := range notices {
		if err := deps.NoticeStore.Save(ctx, n); err != nil {
			return fmt.Errorf("seed synthetic notice %q: %w", n.Title, err)
		}
	}

	slog.Info("seed_event", "event", "synthetic_seeded",
		"members", len(members),
		"attendance_days", 2,
		"notices", len(notices),
	)
	return nil
}

// previousSunday returns the most recent Sunday at midnight, today if it is one.
func previousSunday(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

package orchestrators

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	attendanceStore "flock/internal/adapters/storage/attendance"
	memberStore "flock/internal/adapters/storage/member"
)

// memberExportHeader is the column order for member report downloads. It
// matches the import column names so an exported file can be re-imported.
var memberExportHeader = []string{
	"FIRST NAME", "LAST NAME", "DATE OF BIRTH", "GENDER", "MARITAL STATUS",
	"CONTACT NUMBER", "ADDRESS", "AGE GROUP", "PREVIOUS CHURCH", "INVITED BY",
	"DATE ATTENDED", "CELL LEADER", "MINISTRY", "TRAININGS", "CONSOLIDATION",
	"WATER BAPTIZED", "STATUS", "REASON", "HOUSEHOLDS",
}

// attendanceExportHeader is the column order for attendance report downloads.
var attendanceExportHeader = []string{"FULL NAME", "AGE GROUP", "DATE", "STATUS"}

// ExportMembersInput carries the list filters for a member report download.
// The same filter shape drives the directory list view, so the download
// always matches what the screen shows.
type ExportMembersInput struct {
	Filter         memberStore.ListFilter
	AdminAccountID string
}

// ExportMembersDeps holds external dependencies for the member export.
type ExportMembersDeps struct {
	MemberStore memberStore.Store
}

// ExecuteExportMembers streams the filtered member list as CSV to w.
// PRE: w is writable; deps.MemberStore is connected
// POST: Header row plus one row per matching member written; row count returned
func ExecuteExportMembers(ctx context.Context, w io.Writer, input ExportMembersInput, deps ExportMembersDeps) (int, error) {
	filter := input.Filter
	// Exports ignore pagination, fetch the whole filtered set.
	filter.Limit = 100000
	filter.Offset = 0

	members, err := deps.MemberStore.List(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to list members for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(memberExportHeader); err != nil {
		return 0, fmt.Errorf("failed to write export header: %w", err)
	}

	for _, m := range members {
		row := []string{
			m.FirstName, m.LastName, m.DateOfBirth, m.Gender, m.MaritalStatus,
			m.ContactNumber, m.Address, m.AgeGroup, m.PrevChurch, m.InvitedBy,
			m.DateAttended, m.CellLeaderName, m.ChurchMinistry, m.Trainings, m.Consolidation,
			yesNo(m.WaterBaptized), m.Status, m.Reason, m.Households,
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("failed to write export row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}

	slog.Info("members_export", "admin", input.AdminAccountID, "rows", len(members))
	return len(members), nil
}

// ExportAttendanceInput carries the date range for an attendance report download.
// Dates are YYYY-MM-DD; an empty DateTo means single-day export of DateFrom.
type ExportAttendanceInput struct {
	DateFrom       string
	DateTo         string
	AdminAccountID string
}

// ExportAttendanceDeps holds external dependencies for the attendance export.
type ExportAttendanceDeps struct {
	AttendanceStore attendanceStore.Store
}

// ExecuteExportAttendance streams attendance records for a date range as CSV to w.
// PRE: input.DateFrom is a valid YYYY-MM-DD date
// POST: Header row plus one row per record written; row count returned
func ExecuteExportAttendance(ctx context.Context, w io.Writer, input ExportAttendanceInput, deps ExportAttendanceDeps) (int, error) {
	if input.DateFrom == "" {
		return 0, fmt.Errorf("date range start is required")
	}
	dateTo := input.DateTo
	if dateTo == "" {
		dateTo = input.DateFrom
	}

	records, err := deps.AttendanceStore.ListByDateRange(ctx, input.DateFrom, dateTo)
	if err != nil {
		return 0, fmt.Errorf("failed to list attendance for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(attendanceExportHeader); err != nil {
		return 0, fmt.Errorf("failed to write export header: %w", err)
	}

	for _, r := range records {
		if err := cw.Write([]string{r.FullName, r.AgeGroup, r.Date, r.Status}); err != nil {
			return 0, fmt.Errorf("failed to write export row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}

	slog.Info("attendance_export", "admin", input.AdminAccountID, "from", input.DateFrom, "to", dateTo, "rows", len(records))
	return len(records), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

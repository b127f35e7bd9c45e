package orchestrators

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	memberStore "flock/internal/adapters/storage/member"
	domain "flock/internal/domain/member"
)

// ImportMembersInput carries the parsed CSV reader and import options.
// PRE: Reader is a valid CSV stream with a header row; AdminAccountID is non-empty.
// POST: Returns importedCount and per-row failure messages; writes are skipped when DryRun=true.
// INVARIANT: Existing members are never deleted; IDs are preserved on update.
type ImportMembersInput struct {
	Reader         io.Reader
	AdminAccountID string
	DryRun         bool
	UpdateMode     bool
}

// ImportMembersResult holds aggregate counts and per-row failures from an import run.
// FailedRows entries are formatted "row N: message" for direct display.
type ImportMembersResult struct {
	Total         int
	ImportedCount int
	Updated       int
	Skipped       int
	FailedRows    []string
	DryRun        bool
	Unknown       []string
}

// ImportMembersDeps holds external dependencies for the import orchestrator.
type ImportMembersDeps struct {
	MemberStore memberStore.Store
	GenerateID  func() string
	Now         func() time.Time
}

// ExecuteImportMembers parses a CSV stream and creates or updates member records.
// Rows are matched against existing members by full name plus date of birth.
// PRE: Input.Reader contains a valid CSV with at least FIRST NAME and LAST NAME columns.
// POST: Members are created/updated/skipped according to DryRun and UpdateMode flags;
//
//	importedCount and per-row failures are returned; audit log is emitted.
//
// INVARIANT: When DryRun=true no writes occur; existing member IDs are always preserved on update.
func ExecuteImportMembers(ctx context.Context, input ImportMembersInput, deps ImportMembersDeps) (ImportMembersResult, error) {
	cr := csv.NewReader(input.Reader)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return ImportMembersResult{}, err
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToUpper(strings.TrimSpace(h))] = i
	}

	if _, ok := colIdx["FIRST NAME"]; !ok {
		return ImportMembersResult{}, &ImportMembersValidationError{Message: "CSV missing required column: FIRST NAME"}
	}
	if _, ok := colIdx["LAST NAME"]; !ok {
		return ImportMembersResult{}, &ImportMembersValidationError{Message: "CSV missing required column: LAST NAME"}
	}

	known := map[string]bool{
		"ID": true, "FIRST NAME": true, "LAST NAME": true, "DATE OF BIRTH": true,
		"GENDER": true, "MARITAL STATUS": true, "CONTACT NUMBER": true, "ADDRESS": true,
		"PREVIOUS CHURCH": true, "INVITED BY": true, "DATE ATTENDED": true,
		"CELL LEADER": true, "MINISTRY": true, "TRAININGS": true, "CONSOLIDATION": true,
		"WATER BAPTIZED": true, "STATUS": true, "REASON": true, "HOUSEHOLDS": true,
	}
	var unknownCols []string
	for _, h := range header {
		if !known[strings.ToUpper(strings.TrimSpace(h))] {
			unknownCols = append(unknownCols, h)
		}
	}

	getCol := func(row []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	result := ImportMembersResult{DryRun: input.DryRun, Unknown: unknownCols}
	rowNum := 1

	for {
		row, err := cr.Read()
		if err != nil {
			break
		}
		rowNum++
		result.Total++

		firstName := getCol(row, "FIRST NAME")
		lastName := getCol(row, "LAST NAME")

		if firstName == "" || lastName == "" {
			result.FailedRows = append(result.FailedRows, fmt.Sprintf("row %d: first name and last name are required", rowNum))
			continue
		}

		m := domain.Member{
			FirstName:          firstName,
			LastName:           lastName,
			DateOfBirth:        getCol(row, "DATE OF BIRTH"),
			Gender:             getCol(row, "GENDER"),
			MaritalStatus:      normalizeEnum(getCol(row, "MARITAL STATUS"), domain.ValidMaritalStatuses),
			ContactNumber:      getCol(row, "CONTACT NUMBER"),
			Address:            getCol(row, "ADDRESS"),
			PrevChurch:         getCol(row, "PREVIOUS CHURCH"),
			InvitedBy:          getCol(row, "INVITED BY"),
			DateAttended:       getCol(row, "DATE ATTENDED"),
			CellLeaderName:     getCol(row, "CELL LEADER"),
			ChurchMinistry:     getCol(row, "MINISTRY"),
			Trainings:          getCol(row, "TRAININGS"),
			Consolidation:      normalizeEnum(getCol(row, "CONSOLIDATION"), domain.ValidConsolidations),
			WaterBaptized:      parseYesNo(getCol(row, "WATER BAPTIZED")),
			Status:             domain.StatusActive,
			Reason:             getCol(row, "REASON"),
			Households:         getCol(row, "HOUSEHOLDS"),
			PrevChurchAttendee: getCol(row, "PREVIOUS CHURCH") != "",
			AttendingCellGroup: getCol(row, "CELL LEADER") != "",
		}
		if status := getCol(row, "STATUS"); strings.EqualFold(status, domain.StatusInactive) {
			m.Status = domain.StatusInactive
		}
		m.RecomputeAgeGroup(deps.Now())

		if err := m.Validate(); err != nil {
			result.FailedRows = append(result.FailedRows, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}

		existing, exists, lookupErr := findExistingMember(ctx, deps.MemberStore, &m)
		if lookupErr != nil {
			slog.Error("members_import_lookup_failed", "row", rowNum, "name", m.FullName(), "err", lookupErr)
			result.FailedRows = append(result.FailedRows, fmt.Sprintf("row %d: lookup failed (see server log)", rowNum))
			continue
		}

		if exists && !input.UpdateMode {
			result.Skipped++
			continue
		}

		if input.DryRun {
			if exists {
				result.Updated++
			} else {
				result.ImportedCount++
			}
			continue
		}

		if exists {
			m.ID = existing.ID
			if err := deps.MemberStore.Save(ctx, m); err != nil {
				slog.Error("members_import_save_failed", "row", rowNum, "name", m.FullName(), "err", err)
				result.FailedRows = append(result.FailedRows, fmt.Sprintf("row %d: save failed (see server log)", rowNum))
				continue
			}
			result.Updated++
		} else {
			m.ID = deps.GenerateID()
			if err := deps.MemberStore.Save(ctx, m); err != nil {
				slog.Error("members_import_save_failed", "row", rowNum, "name", m.FullName(), "err", err)
				result.FailedRows = append(result.FailedRows, fmt.Sprintf("row %d: save failed (see server log)", rowNum))
				continue
			}
			result.ImportedCount++
		}
	}

	slog.Info("members_import",
		"admin", input.AdminAccountID,
		"dry_run", input.DryRun,
		"update_mode", input.UpdateMode,
		"total", result.Total,
		"imported", result.ImportedCount,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", len(result.FailedRows),
	)

	return result, nil
}

// findExistingMember matches an imported row to a stored member by full name,
// and by date of birth when the row carries one.
func findExistingMember(ctx context.Context, store memberStore.Store, m *domain.Member) (domain.Member, bool, error) {
	candidates, err := store.SearchByName(ctx, m.FullName(), 10)
	if err != nil {
		return domain.Member{}, false, err
	}
	for _, c := range candidates {
		if !strings.EqualFold(c.FullName(), m.FullName()) {
			continue
		}
		if m.DateOfBirth != "" && c.DateOfBirth != "" && c.DateOfBirth != m.DateOfBirth {
			continue
		}
		return c, true, nil
	}
	return domain.Member{}, false, nil
}

// normalizeEnum returns the canonical casing for a known enum value, or ""
// when the cell does not match any valid option.
func normalizeEnum(value string, valid []string) string {
	for _, v := range valid {
		if strings.EqualFold(value, v) {
			return v
		}
	}
	return ""
}

func parseYesNo(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

// ImportMembersValidationError is returned when the CSV structure is invalid (e.g. missing required columns).
type ImportMembersValidationError struct {
	Message string
}

// Error implements the error interface.
// PRE: e.Message is set.
// POST: returns the validation error message string.
// INVARIANT: message is never empty for a valid ImportMembersValidationError.
func (e *ImportMembersValidationError) Error() string {
	return e.Message
}

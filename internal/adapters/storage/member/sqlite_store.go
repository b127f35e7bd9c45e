package member

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"flock/internal/adapters/storage"
	domain "flock/internal/domain/member"
)

// memberColumns is the full column list in scan order.
const memberColumns = "id, first_name, last_name, date_of_birth, gender, marital_status, contact_number, address, age_group, prev_church_attendee, prev_church, invited_by, date_attended, attending_cell_group, cell_leader_name, church_ministry, ministry_others, trainings, willing_training, consolidation, water_baptized, status, reason, households, photo_url"

// SQLiteStore implements the member Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// scanMember scans a single member row. Nullable text columns map to "".
func scanMember(scan func(dest ...any) error) (domain.Member, error) {
	var entity domain.Member
	var dob, gender, marital, contact, address, ageGroup sql.NullString
	var prevChurch, invitedBy, dateAttended, cellLeader sql.NullString
	var ministry, ministryOthers, trainings, consolidation sql.NullString
	var reason, households, photoURL sql.NullString
	var prevAttendee, cellGroup, willing, baptized int

	err := scan(
		&entity.ID,
		&entity.FirstName,
		&entity.LastName,
		&dob,
		&gender,
		&marital,
		&contact,
		&address,
		&ageGroup,
		&prevAttendee,
		&prevChurch,
		&invitedBy,
		&dateAttended,
		&cellGroup,
		&cellLeader,
		&ministry,
		&ministryOthers,
		&trainings,
		&willing,
		&consolidation,
		&baptized,
		&entity.Status,
		&reason,
		&households,
		&photoURL,
	)
	if err != nil {
		return domain.Member{}, err
	}

	entity.DateOfBirth = dob.String
	entity.Gender = gender.String
	entity.MaritalStatus = marital.String
	entity.ContactNumber = contact.String
	entity.Address = address.String
	entity.AgeGroup = ageGroup.String
	entity.PrevChurchAttendee = prevAttendee != 0
	entity.PrevChurch = prevChurch.String
	entity.InvitedBy = invitedBy.String
	entity.DateAttended = dateAttended.String
	entity.AttendingCellGroup = cellGroup != 0
	entity.CellLeaderName = cellLeader.String
	entity.ChurchMinistry = ministry.String
	entity.MinistryOthers = ministryOthers.String
	entity.Trainings = trainings.String
	entity.WillingTraining = willing != 0
	entity.Consolidation = consolidation.String
	entity.WaterBaptized = baptized != 0
	entity.Reason = reason.String
	entity.Households = households.String
	entity.PhotoURL = photoURL.String
	return entity, nil
}

// scanMembers scans all rows from a List/Search query.
func scanMembers(rows *sql.Rows) ([]domain.Member, error) {
	var results []domain.Member
	for rows.Next() {
		entity, err := scanMember(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	query := "SELECT " + memberColumns + " FROM member WHERE id = ?"

	row := s.db.QueryRowContext(ctx, query, id)

	entity, err := scanMember(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Member{}, fmt.Errorf("member not found: %w", err)
	}
	return entity, err
}

// Save persists a Member to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Upsert implementation
	fields := strings.Split(memberColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO member (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		memberColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	// Empty households means "no household members recorded"; store NULL so
	// filters can distinguish it from an encoded list.
	var households interface{}
	if entity.Households != "" {
		households = entity.Households
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.FirstName,
		entity.LastName,
		entity.DateOfBirth,
		entity.Gender,
		entity.MaritalStatus,
		entity.ContactNumber,
		entity.Address,
		entity.AgeGroup,
		boolToInt(entity.PrevChurchAttendee),
		entity.PrevChurch,
		entity.InvitedBy,
		entity.DateAttended,
		boolToInt(entity.AttendingCellGroup),
		entity.CellLeaderName,
		entity.ChurchMinistry,
		entity.MinistryOthers,
		entity.Trainings,
		boolToInt(entity.WillingTraining),
		entity.Consolidation,
		boolToInt(entity.WaterBaptized),
		entity.Status,
		entity.Reason,
		households,
		entity.PhotoURL,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a Member and their attendance history.
// PRE: id is non-empty
// POST: Member and all attendance rows for the member are removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance WHERE member_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM member WHERE id = ?", id); err != nil {
		return err
	}

	return tx.Commit()
}

// SearchByName finds members whose name matches the query (case-insensitive LIKE).
// PRE: query is non-empty, limit > 0
// POST: Returns matching members ordered by name
func (s *SQLiteStore) SearchByName(ctx context.Context, query string, limit int) ([]domain.Member, error) {
	q := "SELECT " + memberColumns + " FROM member WHERE (first_name LIKE ? OR last_name LIKE ? OR first_name || ' ' || last_name LIKE ?) ORDER BY last_name, first_name LIMIT ?"
	term := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, q, term, term, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMembers(rows)
}

// ListActive returns every active member, ordered by name. Used by the daily
// roster builder, which needs the full congregation rather than a page.
// POST: Returns all members with status 'Active'
func (s *SQLiteStore) ListActive(ctx context.Context) ([]domain.Member, error) {
	q := "SELECT " + memberColumns + " FROM member WHERE status = ? ORDER BY last_name, first_name"
	rows, err := s.db.QueryContext(ctx, q, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMembers(rows)
}

// listWhereClause builds the WHERE clause and args for List/Count queries.
func listWhereClause(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any

	if filter.Search != "" {
		where += " AND (first_name LIKE ? OR last_name LIKE ? OR first_name || ' ' || last_name LIKE ?)"
		term := "%" + filter.Search + "%"
		args = append(args, term, term, term)
	}
	if filter.AgeGroup != "" {
		where += " AND age_group = ?"
		args = append(args, filter.AgeGroup)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Ministry != "" {
		where += " AND church_ministry LIKE ?"
		args = append(args, "%"+filter.Ministry+"%")
	}
	if filter.Training != "" {
		where += " AND trainings LIKE ?"
		args = append(args, "%"+filter.Training+"%")
	}
	if filter.MaritalStatus != "" {
		where += " AND marital_status = ?"
		args = append(args, filter.MaritalStatus)
	}
	if filter.BirthMonth >= 1 && filter.BirthMonth <= 12 {
		where += " AND strftime('%m', date_of_birth) = ?"
		args = append(args, fmt.Sprintf("%02d", filter.BirthMonth))
	}
	if filter.WaterBaptized == "yes" {
		where += " AND water_baptized = 1"
	} else if filter.WaterBaptized == "no" {
		where += " AND water_baptized = 0"
	}
	if filter.DateAttendedFrom != "" {
		where += " AND date_attended >= ?"
		args = append(args, filter.DateAttendedFrom)
	}
	if filter.DateAttendedTo != "" {
		where += " AND date_attended <= ?"
		args = append(args, filter.DateAttendedTo)
	}
	return where, args
}

// sortClause returns a safe ORDER BY clause. Only allowed columns are accepted.
func sortClause(filter ListFilter) string {
	allowed := map[string]string{
		"first_name": "first_name", "last_name": "last_name",
		"age_group": "age_group", "status": "status",
		"date_attended": "date_attended",
	}
	col, ok := allowed[filter.Sort]
	if !ok {
		return " ORDER BY last_name ASC, first_name ASC"
	}
	dir := "ASC"
	if filter.Dir == "desc" {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir
}

// Count returns the total number of members matching the filter.
// PRE: filter has valid parameters
// POST: Returns count >= 0
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhereClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM member"+where, args...).Scan(&count)
	return count, err
}

// List retrieves a list of Members based on the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	where, args := listWhereClause(filter)
	query := "SELECT " + memberColumns + " FROM member" + where
	query += sortClause(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMembers(rows)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

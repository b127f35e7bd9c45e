package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"flock/internal/adapters/storage"
	domain "flock/internal/domain/attendance"
)

// dateLayout matches the storage format of recorded_at timestamps.
const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const recordColumns = "id, member_id, full_name, age_group, date, status, recorded_at"

// SQLiteStore implements the attendance Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new attendance store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// scanRecord scans a single attendance row.
func scanRecord(scan func(dest ...any) error) (domain.Record, error) {
	var entity domain.Record
	var ageGroup sql.NullString
	var recordedAt string
	err := scan(
		&entity.ID,
		&entity.MemberID,
		&entity.FullName,
		&ageGroup,
		&entity.Date,
		&entity.Status,
		&recordedAt,
	)
	if err != nil {
		return domain.Record{}, err
	}
	entity.AgeGroup = ageGroup.String
	if recordedAt != "" {
		parsed, parseErr := time.Parse(dateLayout, recordedAt)
		if parseErr != nil {
			return domain.Record{}, fmt.Errorf("failed to parse recorded_at: %w", parseErr)
		}
		entity.RecordedAt = parsed
	}
	return entity, nil
}

// scanRecords scans all rows from a list query.
func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	var results []domain.Record
	for rows.Next() {
		entity, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// GetByMemberAndDate retrieves the attendance record for one member on one date.
// PRE: memberID is non-empty, date is YYYY-MM-DD
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByMemberAndDate(ctx context.Context, memberID, date string) (domain.Record, error) {
	query := "SELECT " + recordColumns + " FROM attendance WHERE member_id = ? AND date = ?"

	row := s.db.QueryRowContext(ctx, query, memberID, date)

	entity, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Record{}, fmt.Errorf("attendance record not found: %w", err)
	}
	return entity, err
}

// ListByDate retrieves all attendance records for a calendar date.
// PRE: date is YYYY-MM-DD
// POST: Returns records for the date ordered by member name
func (s *SQLiteStore) ListByDate(ctx context.Context, date string) ([]domain.Record, error) {
	query := "SELECT " + recordColumns + " FROM attendance WHERE date = ? ORDER BY full_name"

	rows, err := s.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByMemberID retrieves all attendance records for a member, newest first.
// PRE: memberID is non-empty
// POST: Returns records for the given member ordered by date descending
func (s *SQLiteStore) ListByMemberID(ctx context.Context, memberID string) ([]domain.Record, error) {
	query := "SELECT " + recordColumns + " FROM attendance WHERE member_id = ? ORDER BY date DESC"

	rows, err := s.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByDateRange retrieves attendance in [startDate, endDate], both inclusive.
// PRE: startDate and endDate are YYYY-MM-DD
// POST: Returns records ordered by date then member name
func (s *SQLiteStore) ListByDateRange(ctx context.Context, startDate, endDate string) ([]domain.Record, error) {
	query := "SELECT " + recordColumns + " FROM attendance WHERE date >= ? AND date <= ? ORDER BY date, full_name"

	rows, err := s.db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Save persists a Record, replacing any existing mark for the same
// (member_id, date) pair.
// PRE: entity has been validated
// POST: At most one record exists for the (member_id, date) pair
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO attendance (id, member_id, full_name, age_group, date, status, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id, date) DO UPDATE SET
			full_name=excluded.full_name,
			age_group=excluded.age_group,
			status=excluded.status,
			recorded_at=excluded.recorded_at`

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.MemberID,
		entity.FullName,
		entity.AgeGroup,
		entity.Date,
		entity.Status,
		entity.RecordedAt.Format(dateLayout),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// SaveIfUnrecorded inserts a Record only when the (member_id, date) pair has
// no existing mark. Used by the default-absence sweep, which must never
// overwrite an explicit mark.
// PRE: entity has been validated
// POST: Returns true if a row was inserted, false if a mark already existed
func (s *SQLiteStore) SaveIfUnrecorded(ctx context.Context, entity domain.Record) (bool, error) {
	query := `INSERT INTO attendance (id, member_id, full_name, age_group, date, status, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id, date) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.MemberID,
		entity.FullName,
		entity.AgeGroup,
		entity.Date,
		entity.Status,
		entity.RecordedAt.Format(dateLayout),
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteByMemberID removes all attendance records for a member.
// PRE: memberID is non-empty
// POST: No attendance rows remain for the member
func (s *SQLiteStore) DeleteByMemberID(ctx context.Context, memberID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM attendance WHERE member_id = ?", memberID)
	return err
}

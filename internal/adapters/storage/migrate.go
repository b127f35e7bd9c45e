package storage

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// A migration moves the schema from version N-1 to version N.
type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

// migrations is the ordered chain applied by MigrateDB. Never edit a shipped
// migration; append a new one instead.
var migrations = []migration{
	{version: 1, name: "baseline_schema", apply: applyBaseline},
	{version: 2, name: "attendance_date_index", apply: applyAttendanceDateIndex},
}

// LatestSchemaVersion returns the version the database reaches after all
// migrations have been applied.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion reads the current schema version from the database.
// POST: Returns 0 for a database that has never been migrated
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// MigrateDB brings the database up to the latest schema version. Before any
// migration runs against a file-backed database, the file is copied aside so a
// bad migration can be rolled back by hand.
// PRE: db is open; dbPath is the backing file or ":memory:"
// POST: SchemaVersion(db) == LatestSchemaVersion()
func MigrateDB(db *sql.DB, dbPath string) error {
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current >= LatestSchemaVersion() {
		return nil
	}

	if err := backupDatabase(dbPath, current); err != nil {
		return fmt.Errorf("failed to back up database before migration: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}

		slog.Info("schema_migration_applied", "version", m.version, "name", m.name)
	}

	return nil
}

// backupDatabase copies the database file aside before migrating. In-memory
// and missing databases are skipped.
func backupDatabase(dbPath string, fromVersion int) error {
	if dbPath == "" || dbPath == ":memory:" {
		return nil
	}
	src, err := os.Open(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	backupPath := fmt.Sprintf("%s.v%d.bak", dbPath, fromVersion)
	dst, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return nil
}

// applyBaseline creates the full baseline schema. IF NOT EXISTS makes it
// safe on databases that predate version tracking.
func applyBaseline(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		password_change_required INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS member (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		date_of_birth TEXT,
		gender TEXT,
		marital_status TEXT,
		contact_number TEXT,
		address TEXT,
		age_group TEXT,
		prev_church_attendee INTEGER NOT NULL DEFAULT 0,
		prev_church TEXT,
		invited_by TEXT,
		date_attended TEXT,
		attending_cell_group INTEGER NOT NULL DEFAULT 0,
		cell_leader_name TEXT,
		church_ministry TEXT,
		ministry_others TEXT,
		trainings TEXT,
		willing_training INTEGER NOT NULL DEFAULT 0,
		consolidation TEXT,
		water_baptized INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		reason TEXT,
		households TEXT,
		photo_url TEXT
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		full_name TEXT NOT NULL,
		age_group TEXT,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		UNIQUE (member_id, date),
		FOREIGN KEY (member_id) REFERENCES member(id)
	);

	CREATE TABLE IF NOT EXISTS notice (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		created_by TEXT NOT NULL,
		author_name TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT 'orange',
		pinned INTEGER NOT NULL DEFAULT 0,
		pinned_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT,
		published_at TEXT
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT,
		created_at TEXT NOT NULL,
		error_message TEXT
	);
	`)
	return err
}

// applyAttendanceDateIndex speeds up the daily roster query, which filters by
// date alone rather than the (member_id, date) unique pair.
func applyAttendanceDateIndex(tx *sql.Tx) error {
	_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date)")
	return err
}

package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	_ "modernc.org/sqlite"

	emailPkg "flock/internal/adapters/email"
	web "flock/internal/adapters/http"
	"flock/internal/adapters/http/perf"
	"flock/internal/adapters/storage"
	accountStore "flock/internal/adapters/storage/account"
	attendanceStore "flock/internal/adapters/storage/attendance"
	memberStore "flock/internal/adapters/storage/member"
	noticeStore "flock/internal/adapters/storage/notice"
	outboxStorePkg "flock/internal/adapters/storage/outbox"
	"flock/internal/application/absence"
	"flock/internal/application/orchestrators"
	"flock/internal/application/snapshot"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Initialize database with WAL mode, foreign keys, and busy timeout
	dbPath := "flock.db"
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	// Health check
	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	// Run database migrations
	if err := storage.MigrateDB(db, dbPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	log.Println("Database initialized successfully!")

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector)

	// Create store instances (using timed DB for query instrumentation)
	acctStore := accountStore.NewSQLiteStore(db)
	stores := &web.Stores{
		AccountStore:    acctStore,
		MemberStore:     memberStore.NewSQLiteStore(timedDB),
		AttendanceStore: attendanceStore.NewSQLiteStore(timedDB),
		NoticeStore:     noticeStore.NewSQLiteStore(timedDB),
		OutboxStore:     outboxStorePkg.NewSQLiteStore(timedDB),
	}

	// Seed default admin account if no accounts exist
	adminEmail := envOrDefault("FLOCK_ADMIN_EMAIL", "admin@flock.local")
	adminPassword := envOrDefault("FLOCK_ADMIN_PASSWORD", "Change me soon")
	seedDeps := orchestrators.CreateAccountDeps{AccountStore: acctStore, OutboxStore: stores.OutboxStore}
	if err := orchestrators.ExecuteSeedAdmin(context.Background(), seedDeps, adminEmail, adminPassword); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	// Seed test accounts for each role (all environments, idempotent)
	testAcctDeps := orchestrators.TestAccountSeedDeps{AccountStore: acctStore}
	if err := orchestrators.ExecuteSeedTestAccounts(context.Background(), testAcctDeps); err != nil {
		log.Fatalf("failed to seed test accounts: %v", err)
	}

	// Seed synthetic data for development only
	if os.Getenv("FLOCK_ENV") != "production" {
		synDeps := orchestrators.SyntheticSeedDeps{
			MemberStore:     stores.MemberStore,
			AttendanceStore: stores.AttendanceStore,
			NoticeStore:     stores.NoticeStore,
		}
		if err := orchestrators.ExecuteSeedSynthetic(context.Background(), synDeps); err != nil {
			log.Fatalf("failed to seed synthetic data: %v", err)
		}
		log.Println("Synthetic seed data loaded (dev mode)")
	}

	// Configure email sender for outbox-driven notifications
	resendKey := os.Getenv("FLOCK_RESEND_KEY")
	emailFrom := envOrDefault("FLOCK_RESEND_FROM", "Flock <noreply@flock.local>")
	var sender emailPkg.Sender
	if resendKey != "" {
		sender = emailPkg.NewResendSender(resendKey, emailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		if os.Getenv("FLOCK_ENV") == "production" {
			log.Println("WARNING: FLOCK_RESEND_KEY is not set, email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop, set FLOCK_RESEND_KEY for real delivery)")
		}
	}

	// Start outbox background worker for retrying failed writes and notifications
	retryDeps := orchestrators.OutboxRetryDeps{
		OutboxStore:     stores.OutboxStore,
		AttendanceStore: stores.AttendanceStore,
		EmailSender:     sender,
	}
	stopRetry := orchestrators.StartOutboxRetryScheduler(context.Background(), retryDeps, orchestrators.DefaultOutboxRetryConfig())
	defer stopRetry()

	// Attendance working state: in-memory snapshot of the selected date plus
	// the cutoff scheduler that defaults unmarked members to absent.
	snap := snapshot.NewStore(stores.MemberStore, stores.AttendanceStore, stores.OutboxStore)
	cutoff, err := absence.ParseCutoff(envOrDefault("FLOCK_ABSENCE_CUTOFF", absence.DefaultCutoff))
	if err != nil {
		log.Fatalf("invalid FLOCK_ABSENCE_CUTOFF: %v", err)
	}
	sched := absence.NewScheduler(cutoff, func(ctx context.Context, date string) error {
		deps := orchestrators.ApplyDefaultAbsentsDeps{
			MemberStore:     stores.MemberStore,
			AttendanceStore: stores.AttendanceStore,
			OutboxStore:     stores.OutboxStore,
			Now:             time.Now,
		}
		result, err := orchestrators.ExecuteApplyDefaultAbsents(ctx, date, deps)
		if err != nil {
			return err
		}
		log.Printf("absence sweep %s: defaulted=%d skipped=%d failed=%d", date, result.Defaulted, result.Skipped, result.Failed)
		if snap.SelectedDate() == date {
			return snap.Reload(ctx)
		}
		return nil
	})
	defer sched.Cancel()

	// Load today's roster and arm the cutoff so the default-absence sweep
	// fires even before anyone opens the attendance page.
	if err := snap.SetSelectedDate(context.Background(), time.Now()); err != nil {
		log.Printf("WARNING: initial attendance load failed: %v", err)
	}
	sched.Arm(snap.SelectedDate(), snap.Generation())

	web.SetAttendanceState(snap, sched)

	// Create HTTP handler with middleware (pass collector for timing + dashboard)
	mux := web.NewMux("static", stores, collector)

	// Start server
	addr := envOrDefault("FLOCK_ADDR", ":8080")
	log.Printf("Flock %s starting on %s (env=%s, schema=%d)", version, addr, envOrDefault("FLOCK_ENV", "development"), storage.LatestSchemaVersion())

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

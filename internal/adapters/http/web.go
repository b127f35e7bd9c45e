package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"time"

	"flock/internal/adapters/http/middleware"
	"flock/internal/adapters/http/perf"
	accountStore "flock/internal/adapters/storage/account"
	attendanceStore "flock/internal/adapters/storage/attendance"
	memberStore "flock/internal/adapters/storage/member"
	noticeStore "flock/internal/adapters/storage/notice"
	outboxStore "flock/internal/adapters/storage/outbox"
	"flock/internal/application/absence"
	"flock/internal/application/snapshot"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore    accountStore.Store
	MemberStore     memberStore.Store
	AttendanceStore attendanceStore.Store
	NoticeStore     noticeStore.Store
	OutboxStore     outboxStore.Store
}

// loadCSRFKey reads the CSRF secret from FLOCK_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("FLOCK_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("FLOCK_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("FLOCK_ENV") == "production" {
		log.Fatal("FLOCK_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (sessions won't survive restart). Set FLOCK_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Attendance working state: snapshot of the selected date plus the cutoff
// scheduler that defaults unmarked members to absent.
var attendanceSnapshot *snapshot.Store
var absenceScheduler *absence.Scheduler

// SetAttendanceState wires the snapshot store and absence scheduler used by
// the attendance handlers. Must be called before NewMux in cmd/server.
func SetAttendanceState(snap *snapshot.Store, sched *absence.Scheduler) {
	attendanceSnapshot = snap
	absenceScheduler = sched
}

// NewMux wires HTTP handlers for the app.
func NewMux(staticDir string, s *Stores, collector *perf.Collector) http.Handler {
	stores = s
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = os.Getenv("FLOCK_ENV") == "production"

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	registerRoutes(mux)

	// CSRF key: 32-byte hex-encoded secret from env var
	csrfKey := loadCSRFKey()

	// Rate limiter: configurable requests per second per IP (OWASP A04)
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector),
	)
}

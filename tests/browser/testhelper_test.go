package browser_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	_ "modernc.org/sqlite"

	web "flock/internal/adapters/http"
	"flock/internal/adapters/storage"
	accountStore "flock/internal/adapters/storage/account"
	attendanceStore "flock/internal/adapters/storage/attendance"
	memberStore "flock/internal/adapters/storage/member"
	noticeStore "flock/internal/adapters/storage/notice"
	outboxStore "flock/internal/adapters/storage/outbox"
	"flock/internal/application/absence"
	"flock/internal/application/orchestrators"
	"flock/internal/application/snapshot"
)

const (
	adminEmail    = "admin@test.church"
	adminPassword = "TestPass123!"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	DB      *sql.DB
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
	Stores  *web.Stores
	AdminID string
}

// newTestApp creates a fully wired app with a temp SQLite DB and starts an HTTP server.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := tmpDir + "/test.db"
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := storage.MigrateDB(db, dbPath); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	acctStore := accountStore.NewSQLiteStore(db)
	stores := &web.Stores{
		AccountStore:    acctStore,
		MemberStore:     memberStore.NewSQLiteStore(db),
		AttendanceStore: attendanceStore.NewSQLiteStore(db),
		NoticeStore:     noticeStore.NewSQLiteStore(db),
		OutboxStore:     outboxStore.NewSQLiteStore(db),
	}

	// Seed admin without PasswordChangeRequired so login works immediately
	ctx := context.Background()
	adminID, err := orchestrators.ExecuteCreateAccount(ctx, orchestrators.CreateAccountInput{
		Email:                  adminEmail,
		Password:               adminPassword,
		Role:                   "admin",
		PasswordChangeRequired: false,
	}, orchestrators.CreateAccountDeps{AccountStore: acctStore, OutboxStore: stores.OutboxStore})
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	// Attendance snapshot with a late cutoff so the default-absence sweep
	// never fires mid-test.
	snap := snapshot.NewStore(stores.MemberStore, stores.AttendanceStore, stores.OutboxStore)
	cutoff, err := absence.ParseCutoff("23:59")
	if err != nil {
		t.Fatalf("failed to parse cutoff: %v", err)
	}
	sched := absence.NewScheduler(cutoff, func(ctx context.Context, date string) error {
		deps := orchestrators.ApplyDefaultAbsentsDeps{
			MemberStore:     stores.MemberStore,
			AttendanceStore: stores.AttendanceStore,
			OutboxStore:     stores.OutboxStore,
			Now:             time.Now,
		}
		_, err := orchestrators.ExecuteApplyDefaultAbsents(ctx, date, deps)
		return err
	})
	web.SetAttendanceState(snap, sched)

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	// Start HTTP server
	mux := web.NewMux("static", stores, nil)
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	// Start Playwright
	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		DB:      db,
		Server:  srv,
		PW:      pw,
		Browser: browser,
		Stores:  stores,
		AdminID: adminID,
	}

	t.Cleanup(func() {
		sched.Cancel()
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})

	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// loginAs authenticates through the JSON login endpoint. The session cookie
// lands in the page's browser context, so later page.Request() calls carry it.
func (a *testApp) loginAs(t *testing.T, page playwright.Page, email, password string) {
	t.Helper()
	resp, err := page.Request().Post(a.BaseURL+"/login", playwright.APIRequestContextPostOptions{
		Data:    fmt.Sprintf(`{"email":%q,"password":%q}`, email, password),
		Headers: map[string]string{"Content-Type": "application/json"},
	})
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	if resp.Status() != 200 {
		body, _ := resp.Text()
		t.Fatalf("login: status=%d want 200: %s", resp.Status(), body)
	}
}

// login authenticates as the seeded admin.
func (a *testApp) login(t *testing.T, page playwright.Page) {
	t.Helper()
	a.loginAs(t, page, adminEmail, adminPassword)
}

// seedTestAccounts seeds the one-per-role test accounts.
func (a *testApp) seedTestAccounts(t *testing.T) {
	t.Helper()
	deps := orchestrators.TestAccountSeedDeps{AccountStore: a.Stores.AccountStore}
	if err := orchestrators.ExecuteSeedTestAccounts(context.Background(), deps); err != nil {
		t.Fatalf("failed to seed test accounts: %v", err)
	}
}

// postJSON issues an authenticated JSON POST through the page's request context.
func (a *testApp) postJSON(t *testing.T, page playwright.Page, path, body string) playwright.APIResponse {
	t.Helper()
	resp, err := page.Request().Post(a.BaseURL+path, playwright.APIRequestContextPostOptions{
		Data:    body,
		Headers: map[string]string{"Content-Type": "application/json"},
	})
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

// get issues a GET through the page's request context.
func (a *testApp) get(t *testing.T, page playwright.Page, path string) playwright.APIResponse {
	t.Helper()
	resp, err := page.Request().Get(a.BaseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flock/internal/adapters/http/middleware"
	accountStore "flock/internal/adapters/storage/account"
	memberStore "flock/internal/adapters/storage/member"
	noticeStore "flock/internal/adapters/storage/notice"
	"flock/internal/application/absence"
	"flock/internal/application/snapshot"
	accountDomain "flock/internal/domain/account"
	attendanceDomain "flock/internal/domain/attendance"
	memberDomain "flock/internal/domain/member"
	noticeDomain "flock/internal/domain/notice"
	outboxDomain "flock/internal/domain/outbox"
)

// Mock implementations for testing

type mockMemberStore struct {
	members map[string]memberDomain.Member
}

// GetByID implements the member store interface for testing.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (m *mockMemberStore) GetByID(ctx context.Context, id string) (memberDomain.Member, error) {
	if mem, ok := m.members[id]; ok {
		return mem, nil
	}
	return memberDomain.Member{}, sql.ErrNoRows
}

// Save implements the member store interface for testing.
// PRE: entity has been validated
// POST: Entity is persisted
func (m *mockMemberStore) Save(ctx context.Context, mem memberDomain.Member) error {
	if m.members == nil {
		m.members = make(map[string]memberDomain.Member)
	}
	m.members[mem.ID] = mem
	return nil
}

// Delete implements the member store interface for testing.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (m *mockMemberStore) Delete(ctx context.Context, id string) error {
	delete(m.members, id)
	return nil
}

// List implements the member store interface for testing.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (m *mockMemberStore) List(ctx context.Context, filter memberStore.ListFilter) ([]memberDomain.Member, error) {
	var list []memberDomain.Member
	for _, mem := range m.members {
		list = append(list, mem)
	}
	return list, nil
}

// Count implements the member store interface for testing.
// PRE: filter has valid parameters
// POST: Returns count of matching entities
func (m *mockMemberStore) Count(ctx context.Context, filter memberStore.ListFilter) (int, error) {
	return len(m.members), nil
}

// ListActive implements the member store interface for testing.
// PRE: none
// POST: Returns members with Active status
func (m *mockMemberStore) ListActive(ctx context.Context) ([]memberDomain.Member, error) {
	var list []memberDomain.Member
	for _, mem := range m.members {
		if mem.Status == memberDomain.StatusActive {
			list = append(list, mem)
		}
	}
	return list, nil
}

// SearchByName implements the member store interface for testing.
// PRE: query is non-empty
// POST: Returns matching members
func (m *mockMemberStore) SearchByName(ctx context.Context, query string, limit int) ([]memberDomain.Member, error) {
	var list []memberDomain.Member
	for _, mem := range m.members {
		if len(list) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(mem.FullName()), strings.ToLower(query)) {
			list = append(list, mem)
		}
	}
	return list, nil
}

type mockAttendanceStore struct {
	records map[string]attendanceDomain.Record // keyed member_id|date
}

func attKey(memberID, date string) string { return memberID + "|" + date }

// GetByMemberAndDate implements the attendance store interface for testing.
// PRE: memberID and date are non-empty
// POST: Returns the record or an error if not found
func (m *mockAttendanceStore) GetByMemberAndDate(ctx context.Context, memberID, date string) (attendanceDomain.Record, error) {
	if r, ok := m.records[attKey(memberID, date)]; ok {
		return r, nil
	}
	return attendanceDomain.Record{}, sql.ErrNoRows
}

// ListByDate implements the attendance store interface for testing.
// PRE: date is non-empty
// POST: Returns records for the given date
func (m *mockAttendanceStore) ListByDate(ctx context.Context, date string) ([]attendanceDomain.Record, error) {
	var list []attendanceDomain.Record
	for _, r := range m.records {
		if r.Date == date {
			list = append(list, r)
		}
	}
	return list, nil
}

// ListByMemberID implements the attendance store interface for testing.
// PRE: memberID is non-empty
// POST: Returns records for the given member
func (m *mockAttendanceStore) ListByMemberID(ctx context.Context, memberID string) ([]attendanceDomain.Record, error) {
	var list []attendanceDomain.Record
	for _, r := range m.records {
		if r.MemberID == memberID {
			list = append(list, r)
		}
	}
	return list, nil
}

// ListByDateRange implements the attendance store interface for testing.
// PRE: startDate <= endDate
// POST: Returns records within the range
func (m *mockAttendanceStore) ListByDateRange(ctx context.Context, startDate, endDate string) ([]attendanceDomain.Record, error) {
	var list []attendanceDomain.Record
	for _, r := range m.records {
		if r.Date >= startDate && r.Date <= endDate {
			list = append(list, r)
		}
	}
	return list, nil
}

// Save implements the attendance store interface for testing.
// PRE: entity has been validated
// POST: Entity is persisted
func (m *mockAttendanceStore) Save(ctx context.Context, r attendanceDomain.Record) error {
	if m.records == nil {
		m.records = make(map[string]attendanceDomain.Record)
	}
	m.records[attKey(r.MemberID, r.Date)] = r
	return nil
}

// SaveIfUnrecorded implements the attendance store interface for testing.
// PRE: entity has been validated
// POST: Entity inserted only when no record exists for (member, date)
func (m *mockAttendanceStore) SaveIfUnrecorded(ctx context.Context, r attendanceDomain.Record) (bool, error) {
	if _, ok := m.records[attKey(r.MemberID, r.Date)]; ok {
		return false, nil
	}
	return true, m.Save(ctx, r)
}

// DeleteByMemberID implements the attendance store interface for testing.
// PRE: memberID is non-empty
// POST: All records for the member are removed
func (m *mockAttendanceStore) DeleteByMemberID(ctx context.Context, memberID string) error {
	for k, r := range m.records {
		if r.MemberID == memberID {
			delete(m.records, k)
		}
	}
	return nil
}

type mockNoticeStore struct {
	notices map[string]noticeDomain.Notice
}

// GetByID implements the notice store interface for testing.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (m *mockNoticeStore) GetByID(ctx context.Context, id string) (noticeDomain.Notice, error) {
	if n, ok := m.notices[id]; ok {
		return n, nil
	}
	return noticeDomain.Notice{}, sql.ErrNoRows
}

// Save implements the notice store interface for testing.
// PRE: entity has been validated
// POST: Entity is persisted
func (m *mockNoticeStore) Save(ctx context.Context, n noticeDomain.Notice) error {
	if m.notices == nil {
		m.notices = make(map[string]noticeDomain.Notice)
	}
	m.notices[n.ID] = n
	return nil
}

// Delete implements the notice store interface for testing.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (m *mockNoticeStore) Delete(ctx context.Context, id string) error {
	delete(m.notices, id)
	return nil
}

// List implements the notice store interface for testing.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (m *mockNoticeStore) List(ctx context.Context, filter noticeStore.ListFilter) ([]noticeDomain.Notice, error) {
	var list []noticeDomain.Notice
	for _, n := range m.notices {
		list = append(list, n)
	}
	return list, nil
}

// ListPublished implements the notice store interface for testing.
// PRE: none
// POST: Returns published notices, optionally filtered by type
func (m *mockNoticeStore) ListPublished(ctx context.Context, noticeType string) ([]noticeDomain.Notice, error) {
	var list []noticeDomain.Notice
	for _, n := range m.notices {
		if n.Status != noticeDomain.StatusPublished {
			continue
		}
		if noticeType != "" && n.Type != noticeType {
			continue
		}
		list = append(list, n)
	}
	return list, nil
}

type mockAccountStore struct {
	accounts map[string]accountDomain.Account
}

// GetByID implements the account store interface for testing.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (m *mockAccountStore) GetByID(ctx context.Context, id string) (accountDomain.Account, error) {
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return accountDomain.Account{}, sql.ErrNoRows
}

// GetByEmail implements the account store interface for testing.
// PRE: email is non-empty
// POST: Returns the entity or an error if not found
func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (accountDomain.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return accountDomain.Account{}, sql.ErrNoRows
}

// Save implements the account store interface for testing.
// PRE: entity has been validated
// POST: Entity is persisted
func (m *mockAccountStore) Save(ctx context.Context, a accountDomain.Account) error {
	if m.accounts == nil {
		m.accounts = make(map[string]accountDomain.Account)
	}
	m.accounts[a.ID] = a
	return nil
}

// Delete implements the account store interface for testing.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (m *mockAccountStore) Delete(ctx context.Context, id string) error {
	delete(m.accounts, id)
	return nil
}

// List implements the account store interface for testing.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (m *mockAccountStore) List(ctx context.Context, filter accountStore.ListFilter) ([]accountDomain.Account, error) {
	var list []accountDomain.Account
	for _, a := range m.accounts {
		list = append(list, a)
	}
	return list, nil
}

// Count implements the account store interface for testing.
// PRE: none
// POST: Returns number of accounts
func (m *mockAccountStore) Count(ctx context.Context) (int, error) {
	return len(m.accounts), nil
}

type mockOutboxStore struct {
	entries map[string]outboxDomain.Entry
}

// GetByID implements the outbox store interface for testing.
// PRE: id is non-empty
// POST: Returns the entry or an error if not found
func (m *mockOutboxStore) GetByID(ctx context.Context, id string) (outboxDomain.Entry, error) {
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return outboxDomain.Entry{}, sql.ErrNoRows
}

// Save implements the outbox store interface for testing.
// PRE: entity has been validated
// POST: Entity is persisted
func (m *mockOutboxStore) Save(ctx context.Context, e outboxDomain.Entry) error {
	if m.entries == nil {
		m.entries = make(map[string]outboxDomain.Entry)
	}
	m.entries[e.ID] = e
	return nil
}

// ListPending implements the outbox store interface for testing.
// PRE: limit > 0
// POST: Returns pending or retrying entries
func (m *mockOutboxStore) ListPending(ctx context.Context, limit int) ([]outboxDomain.Entry, error) {
	var list []outboxDomain.Entry
	for _, e := range m.entries {
		if e.Status == outboxDomain.StatusPending || e.Status == outboxDomain.StatusRetrying {
			list = append(list, e)
		}
	}
	return list, nil
}

// ListFailed implements the outbox store interface for testing.
// PRE: limit > 0
// POST: Returns failed entries
func (m *mockOutboxStore) ListFailed(ctx context.Context, limit int) ([]outboxDomain.Entry, error) {
	return nil, nil
}

// ListByActionType implements the outbox store interface for testing.
// PRE: actionType is non-empty
// POST: Returns matching entries
func (m *mockOutboxStore) ListByActionType(ctx context.Context, actionType string, status string, limit int) ([]outboxDomain.Entry, error) {
	return nil, nil
}

// Delete implements the outbox store interface for testing.
// PRE: id is non-empty
// POST: Entry with given id is removed
func (m *mockOutboxStore) Delete(ctx context.Context, id string) error {
	delete(m.entries, id)
	return nil
}

// setupHandlers wires fresh mocks into the package globals and returns them.
func setupHandlers(t *testing.T) (*mockMemberStore, *mockAttendanceStore, *mockNoticeStore, *mockAccountStore) {
	t.Helper()

	members := &mockMemberStore{members: make(map[string]memberDomain.Member)}
	attendances := &mockAttendanceStore{records: make(map[string]attendanceDomain.Record)}
	notices := &mockNoticeStore{notices: make(map[string]noticeDomain.Notice)}
	accounts := &mockAccountStore{accounts: make(map[string]accountDomain.Account)}
	outbox := &mockOutboxStore{entries: make(map[string]outboxDomain.Entry)}

	stores = &Stores{
		AccountStore:    accounts,
		MemberStore:     members,
		AttendanceStore: attendances,
		NoticeStore:     notices,
		OutboxStore:     outbox,
	}
	sessions = middleware.NewSessionStore()
	attendanceSnapshot = snapshot.NewStore(members, attendances, outbox)
	cutoff, _ := absence.ParseCutoff(absence.DefaultCutoff)
	absenceScheduler = absence.NewScheduler(cutoff, func(ctx context.Context, date string) error { return nil })
	t.Cleanup(absenceScheduler.Cancel)

	return members, attendances, notices, accounts
}

func activeMember(id, first, last string) memberDomain.Member {
	return memberDomain.Member{
		ID:            id,
		FirstName:     first,
		LastName:      last,
		DateOfBirth:   "1990-05-01",
		MaritalStatus: memberDomain.MaritalSingle,
		AgeGroup:      memberDomain.AgeGroupYoungAdult,
		Status:        memberDomain.StatusActive,
	}
}

func sessionRequest(method, target, body, role string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if role != "" {
		ctx := middleware.ContextWithSession(r.Context(), middleware.Session{
			AccountID: "acct-1",
			Email:     "staff@flock.church",
			Role:      role,
			CreatedAt: time.Now(),
		})
		r = r.WithContext(ctx)
	}
	return r
}

// TestHandleLogin_SuccessSetsCookie verifies a valid login returns the role
// and sets the session cookie.
func TestHandleLogin_SuccessSetsCookie(t *testing.T) {
	_, _, _, accounts := setupHandlers(t)

	acct := accountDomain.Account{ID: "acct-1", Email: "pastor@flock.church", Role: accountDomain.RoleAdmin}
	if err := acct.SetPassword("a-long-password!"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	accounts.accounts[acct.ID] = acct

	req := sessionRequest("POST", "/login", `{"email":"pastor@flock.church","password":"a-long-password!"}`, "")
	rec := httptest.NewRecorder()
	handleLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. Body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["role"] != accountDomain.RoleAdmin {
		t.Errorf("role = %v, want admin", resp["role"])
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}
}

// TestHandleLogin_WrongPassword verifies bad credentials return 401.
func TestHandleLogin_WrongPassword(t *testing.T) {
	_, _, _, accounts := setupHandlers(t)

	acct := accountDomain.Account{ID: "acct-1", Email: "pastor@flock.church", Role: accountDomain.RoleAdmin}
	if err := acct.SetPassword("a-long-password!"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	accounts.accounts[acct.ID] = acct

	req := sessionRequest("POST", "/login", `{"email":"pastor@flock.church","password":"wrong-password!!"}`, "")
	rec := httptest.NewRecorder()
	handleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestHandleMembers_Register verifies member registration via POST /members.
func TestHandleMembers_Register(t *testing.T) {
	members, _, _, _ := setupHandlers(t)

	body := `{"firstName":"Ana","lastName":"Cruz","dateOfBirth":"1992-03-15","maritalStatus":"Married","ministries":["Media"]}`
	req := sessionRequest("POST", "/members", body, accountDomain.RolePersonal)
	rec := httptest.NewRecorder()
	handleMembers(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201. Body: %s", rec.Code, rec.Body.String())
	}
	if len(members.members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members.members))
	}
	for _, m := range members.members {
		if m.AgeGroup != memberDomain.AgeGroupYoungMarried {
			t.Errorf("AgeGroup = %q, want %q", m.AgeGroup, memberDomain.AgeGroupYoungMarried)
		}
		if m.ChurchMinistry != "Media" {
			t.Errorf("ChurchMinistry = %q, want Media", m.ChurchMinistry)
		}
	}
}

// TestHandleMembers_RegisterRejectsMissingName verifies validation failures
// surface as 400.
func TestHandleMembers_RegisterRejectsMissingName(t *testing.T) {
	setupHandlers(t)

	req := sessionRequest("POST", "/members", `{"firstName":"Ana"}`, accountDomain.RolePersonal)
	rec := httptest.NewRecorder()
	handleMembers(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestHandleMembers_List verifies the directory returns rows and pagination.
func TestHandleMembers_List(t *testing.T) {
	members, _, _, _ := setupHandlers(t)
	members.members["m1"] = activeMember("m1", "Ana", "Cruz")
	members.members["m2"] = activeMember("m2", "Ben", "Reyes")

	req := sessionRequest("GET", "/members?page=1&per_page=10", "", accountDomain.RolePersonal)
	rec := httptest.NewRecorder()
	handleMembers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Rows []struct {
			FullName string `json:"fullName"`
		} `json:"rows"`
		Page struct {
			Total int `json:"Total"`
		} `json:"page"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(resp.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(resp.Rows))
	}
	if resp.Page.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Page.Total)
	}
}

// TestHandleMemberByID_ProfileAndNotFound verifies GET /members/{id}.
func TestHandleMemberByID_ProfileAndNotFound(t *testing.T) {
	members, _, _, _ := setupHandlers(t)
	m := activeMember("m1", "Ana", "Cruz")
	m.ChurchMinistry = "Media, Praise Team"
	members.members["m1"] = m

	req := sessionRequest("GET", "/members/m1", "", accountDomain.RolePersonal)
	rec := httptest.NewRecorder()
	handleMemberByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. Body: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		MemberID   string   `json:"memberId"`
		Ministries []string `json:"ministries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.MemberID != "m1" {
		t.Errorf("memberId = %q, want m1", resp.MemberID)
	}
	if len(resp.Ministries) != 2 {
		t.Errorf("ministries = %v, want 2 entries", resp.Ministries)
	}

	req = sessionRequest("GET", "/members/nope", "", accountDomain.RolePersonal)
	rec = httptest.NewRecorder()
	handleMemberByID(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}
}

// TestHandleMemberByID_Delete verifies DELETE removes the member.
func TestHandleMemberByID_Delete(t *testing.T) {
	members, _, _, _ := setupHandlers(t)
	members.members["m1"] = activeMember("m1", "Ana", "Cruz")

	req := sessionRequest("DELETE", "/members/m1", "", accountDomain.RolePersonal)
	rec := httptest.NewRecorder()
	handleMemberByID(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(members.members) != 0 {
		t.Errorf("expected member removed, got %d", len(members.members))
	}
}

// TestHandleAttendance_LoadAndMark verifies the marking screen round trip:
// GET loads the roster for a date, POST marks a member present.
func TestHandleAttendance_LoadAndMark(t *testing.T) {
	members, attendances, _, _ := setupHandlers(t)
	members.members["m1"] = activeMember("m1", "Ana", "Cruz")
	members.members["m2"] = activeMember("m2", "Ben", "Reyes")

	today := time.Now().Format("2006-01-02")
	req := sessionRequest("GET", "/attendance?date="+today, "", accountDomain.RoleAttendance)
	rec := httptest.NewRecorder()
	handleAttendance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200. Body: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Date string                    `json:"date"`
		Rows []attendanceDomain.Record `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if page.Date != today {
		t.Errorf("date = %q, want %q", page.Date, today)
	}
	if len(page.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(page.Rows))
	}

	req = sessionRequest("POST", "/attendance", `{"memberId":"m1","status":"present"}`, accountDomain.RoleAttendance)
	rec = httptest.NewRecorder()
	handleAttendance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d, want 200. Body: %s", rec.Code, rec.Body.String())
	}
	saved, ok := attendances.records[attKey("m1", today)]
	if !ok {
		t.Fatal("expected mark to be persisted")
	}
	if saved.Status != attendanceDomain.StatusPresent {
		t.Errorf("status = %q, want present", saved.Status)
	}
}

// TestHandleAttendance_RejectsBadStatus verifies invalid statuses are 400.
func TestHandleAttendance_RejectsBadStatus(t *testing.T) {
	members, _, _, _ := setupHandlers(t)
	members.members["m1"] = activeMember("m1", "Ana", "Cruz")

	today := time.Now().Format("2006-01-02")
	rec := httptest.NewRecorder()
	handleAttendance(rec, sessionRequest("GET", "/attendance?date="+today, "", accountDomain.RoleAttendance))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handleAttendance(rec, sessionRequest("POST", "/attendance", `{"memberId":"m1","status":"late"}`, accountDomain.RoleAttendance))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestHandleImportMembers verifies a CSV body creates members and reports counts.
func TestHandleImportMembers(t *testing.T) {
	members, _, _, _ := setupHandlers(t)

	csvBody := "FIRST NAME,LAST NAME,DATE OF BIRTH,MARITAL STATUS\nAna,Cruz,1990-03-15,Married\nBen,Reyes,2010-07-01,Single\n"
	req := httptest.NewRequest("POST", "/import/members", strings.NewReader(csvBody))
	req.Header.Set("Content-Type", "text/csv")
	req = req.WithContext(middleware.ContextWithSession(req.Context(), middleware.Session{
		AccountID: "acct-1", Email: "reports@flock.church", Role: accountDomain.RoleReports, CreatedAt: time.Now(),
	}))

	rec := httptest.NewRecorder()
	handleImportMembers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. Body: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ImportedCount int      `json:"importedCount"`
		FailedRows    []string `json:"failedRows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.ImportedCount != 2 {
		t.Errorf("importedCount = %d, want 2", resp.ImportedCount)
	}
	if len(resp.FailedRows) != 0 {
		t.Errorf("failedRows = %v, want none", resp.FailedRows)
	}
	if len(members.members) != 2 {
		t.Errorf("stored members = %d, want 2", len(members.members))
	}
}

// TestHandleExportMembers verifies the CSV download headers and content.
func TestHandleExportMembers(t *testing.T) {
	members, _, _, _ := setupHandlers(t)
	members.members["m1"] = activeMember("m1", "Ana", "Cruz")

	req := sessionRequest("POST", "/export/members", `{"status":"Active"}`, accountDomain.RoleReports)
	rec := httptest.NewRecorder()
	handleExportMembers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "FIRST NAME,LAST NAME") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Ana") {
		t.Errorf("row = %q, want Ana", lines[1])
	}
}

// TestHandleNotices_PublishedOnlyForStaff verifies non-admin GET sees only
// published notices, with markdown rendered to HTML.
func TestHandleNotices_PublishedOnlyForStaff(t *testing.T) {
	_, _, notices, _ := setupHandlers(t)
	notices.notices["n1"] = noticeDomain.Notice{
		ID: "n1", Type: noticeDomain.TypeAnnouncement, Status: noticeDomain.StatusPublished,
		Title: "Service moved", Content: "Now at **10am**",
	}
	notices.notices["n2"] = noticeDomain.Notice{
		ID: "n2", Type: noticeDomain.TypeAnnouncement, Status: noticeDomain.StatusDraft,
		Title: "Draft", Content: "unpublished",
	}

	req := sessionRequest("GET", "/notices", "", accountDomain.RolePersonal)
	rec := httptest.NewRecorder()
	handleNotices(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var views []struct {
		ID          string `json:"ID"`
		ContentHTML string `json:"contentHtml"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("notices = %d, want 1 (drafts hidden)", len(views))
	}
	if !strings.Contains(views[0].ContentHTML, "<strong>10am</strong>") {
		t.Errorf("ContentHTML = %q, want rendered markdown", views[0].ContentHTML)
	}
}

// TestHandleNotices_CreateRequiresAdmin verifies POST is admin-gated.
func TestHandleNotices_CreateRequiresAdmin(t *testing.T) {
	_, _, notices, _ := setupHandlers(t)

	body := `{"type":"announcement","title":"Potluck","content":"Bring a plate"}`
	req := sessionRequest("POST", "/notices", body, accountDomain.RolePersonal)
	rec := httptest.NewRecorder()
	handleNotices(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin status = %d, want 403", rec.Code)
	}

	req = sessionRequest("POST", "/notices", body, accountDomain.RoleAdmin)
	rec = httptest.NewRecorder()
	handleNotices(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin status = %d, want 201. Body: %s", rec.Code, rec.Body.String())
	}
	if len(notices.notices) != 1 {
		t.Errorf("stored notices = %d, want 1", len(notices.notices))
	}
}

// TestRequireRole_GatesMembers verifies the role middleware wired in
// registerRoutes blocks the wrong roles.
func TestRequireRole_GatesMembers(t *testing.T) {
	setupHandlers(t)

	gate := middleware.RequireRole(accountDomain.RolePersonal, accountDomain.RoleAdmin)
	handler := gate(http.HandlerFunc(handleMembers))

	// No session
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest("GET", "/members", "", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	// Wrong role
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest("GET", "/members", "", accountDomain.RoleAttendance))
	if rec.Code != http.StatusForbidden {
		t.Errorf("attendance role status = %d, want 403", rec.Code)
	}

	// Allowed role
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest("GET", "/members", "", accountDomain.RolePersonal))
	if rec.Code != http.StatusOK {
		t.Errorf("personal role status = %d, want 200", rec.Code)
	}
}

// TestHandleHealth verifies the liveness endpoint.
func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	handleHealth(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

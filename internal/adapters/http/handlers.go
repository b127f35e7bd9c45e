package web

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"flock/internal/adapters/http/middleware"
	accountStore "flock/internal/adapters/storage/account"
	memberStore "flock/internal/adapters/storage/member"
	noticeStore "flock/internal/adapters/storage/notice"
	"flock/internal/application/listutil"
	"flock/internal/application/orchestrators"
	"flock/internal/application/projections"
	"flock/internal/application/snapshot"
	accountDomain "flock/internal/domain/account"
	attendanceDomain "flock/internal/domain/attendance"
	memberDomain "flock/internal/domain/member"
	noticeDomain "flock/internal/domain/notice"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// memberForm is the JSON shape of the registration/edit form. It mirrors
// MemberFormInput with wire names matching the member profile projection, so
// a loaded profile can be submitted back unchanged.
type memberForm struct {
	FirstName          string                         `json:"firstName"`
	LastName           string                         `json:"lastName"`
	DateOfBirth        string                         `json:"dateOfBirth"`
	Gender             string                         `json:"gender"`
	MaritalStatus      string                         `json:"maritalStatus"`
	ContactNumber      string                         `json:"contactNumber"`
	Address            string                         `json:"address"`
	PrevChurchAttendee bool                           `json:"prevChurchAttendee"`
	PrevChurch         string                         `json:"prevChurch"`
	InvitedBy          string                         `json:"invitedBy"`
	DateAttended       string                         `json:"dateAttended"`
	AttendingCellGroup bool                           `json:"attendingCellGroup"`
	CellLeaderName     string                         `json:"cellLeaderName"`
	Ministries         []string                       `json:"ministries"`
	MinistryOthers     string                         `json:"ministryOthers"`
	Trainings          map[string]string              `json:"trainings"`
	WillingTraining    bool                           `json:"willingTraining"`
	Consolidation      string                         `json:"consolidation"`
	WaterBaptized      bool                           `json:"waterBaptized"`
	Status             string                         `json:"status"`
	Reason             string                         `json:"reason"`
	Households         []memberDomain.HouseholdMember `json:"households"`
	PhotoURL           string                         `json:"photoUrl"`
}

func (f memberForm) toInput() orchestrators.MemberFormInput {
	return orchestrators.MemberFormInput{
		FirstName:          f.FirstName,
		LastName:           f.LastName,
		DateOfBirth:        f.DateOfBirth,
		Gender:             f.Gender,
		MaritalStatus:      f.MaritalStatus,
		ContactNumber:      f.ContactNumber,
		Address:            f.Address,
		PrevChurchAttendee: f.PrevChurchAttendee,
		PrevChurch:         f.PrevChurch,
		InvitedBy:          f.InvitedBy,
		DateAttended:       f.DateAttended,
		AttendingCellGroup: f.AttendingCellGroup,
		CellLeaderName:     f.CellLeaderName,
		Ministries:         f.Ministries,
		MinistryOthers:     f.MinistryOthers,
		Trainings:          f.Trainings,
		WillingTraining:    f.WillingTraining,
		Consolidation:      f.Consolidation,
		WaterBaptized:      f.WaterBaptized,
		Status:             f.Status,
		Reason:             f.Reason,
		Households:         f.Households,
		PhotoURL:           f.PhotoURL,
	}
}

// handleLogin handles POST /login.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var input orchestrators.LoginInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input.Email = r.FormValue("Email")
		input.Password = r.FormValue("Password")
	} else {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		input.Email = body.Email
		input.Password = body.Password
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
	})
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, orchestrators.ErrAccountLocked) {
			status = http.StatusForbidden
		}
		http.Error(w, err.Error(), status)
		return
	}

	token, err := sessions.Create(result.AccountID, result.Email, result.Role, result.PasswordChangeRequired)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]any{
		"accountId":              result.AccountID,
		"email":                  result.Email,
		"role":                   result.Role,
		"passwordChangeRequired": result.PasswordChangeRequired,
	})
}

// handleLogout handles POST /logout.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleChangePassword handles POST /change-password.
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       session.AccountID,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	}, orchestrators.ChangePasswordDeps{
		AccountStore: stores.AccountStore,
	})
	if err != nil {
		switch {
		case errors.Is(err, orchestrators.ErrCurrentPasswordWrong),
			errors.Is(err, orchestrators.ErrNewPasswordSame),
			errors.Is(err, accountDomain.ErrPasswordTooShort),
			errors.Is(err, accountDomain.ErrEmptyPassword):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			internalError(w, err)
		}
		return
	}

	// Clear the forced change flag on the live session
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		session.PasswordChangeRequired = false
		sessions.Update(cookie.Value, session)
	}

	w.WriteHeader(http.StatusNoContent)
}

// memberFilterKeys are the recognised directory filter query parameters.
var memberFilterKeys = []string{
	"age_group", "status", "ministry", "training", "marital_status",
	"birth_month", "water_baptized", "date_from", "date_to",
}

// memberSortColumns are the sortable directory columns.
var memberSortColumns = []string{"first_name", "last_name", "age_group", "status", "date_attended"}

// handleMembers handles GET (directory list) and POST (register) for /members.
func handleMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		lp := listutil.ParseListParams(r.URL.Query(), memberSortColumns, memberFilterKeys)

		query := projections.GetMemberListQuery{
			Page:             lp.Page,
			PerPage:          lp.PerPage,
			Search:           lp.Search,
			AgeGroup:         lp.Filters["age_group"],
			Status:           lp.Filters["status"],
			Ministry:         lp.Filters["ministry"],
			Training:         lp.Filters["training"],
			MaritalStatus:    lp.Filters["marital_status"],
			BirthMonth:       lp.Filters["birth_month"],
			WaterBaptized:    lp.Filters["water_baptized"],
			DateAttendedFrom: lp.Filters["date_from"],
			DateAttendedTo:   lp.Filters["date_to"],
			Sort:             lp.Sort,
			Dir:              lp.Dir,
		}

		result, err := projections.QueryGetMemberList(ctx, query, projections.GetMemberListDeps{
			MemberStore: stores.MemberStore,
		})
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if r.Method == "POST" {
		var form memberForm
		if err := strictDecode(r, &form); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		id, err := orchestrators.ExecuteRegisterMember(ctx, form.toInput(), orchestrators.RegisterMemberDeps{
			MemberStore: stores.MemberStore,
			Now:         timeNow,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleMemberByID handles GET/PUT/DELETE for /members/{id}.
func handleMemberByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimPrefix(r.URL.Path, "/members/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case "GET":
		result, err := projections.QueryGetMemberProfile(ctx, projections.GetMemberProfileQuery{
			MemberID: id,
		}, projections.GetMemberProfileDeps{
			MemberStore:     stores.MemberStore,
			AttendanceStore: stores.AttendanceStore,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "member not found", http.StatusNotFound)
				return
			}
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case "PUT":
		var form memberForm
		if err := strictDecode(r, &form); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		err := orchestrators.ExecuteUpdateMember(ctx, orchestrators.UpdateMemberInput{
			MemberID: id,
			Form:     form.toInput(),
		}, orchestrators.UpdateMemberDeps{
			MemberStore: stores.MemberStore,
			Now:         timeNow,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "member not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case "DELETE":
		err := orchestrators.ExecuteDeleteMember(ctx, id, orchestrators.DeleteMemberDeps{
			MemberStore: stores.MemberStore,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "member not found", http.StatusNotFound)
				return
			}
			internalError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleMemberSearch handles GET /members/search?q=<name>
func handleMemberSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
		return
	}

	results, err := stores.MemberStore.SearchByName(r.Context(), query, 10)
	if err != nil {
		internalError(w, err)
		return
	}

	type hit struct {
		ID       string `json:"id"`
		FullName string `json:"fullName"`
		AgeGroup string `json:"ageGroup"`
		Status   string `json:"status"`
	}
	hits := make([]hit, 0, len(results))
	for i := range results {
		m := &results[i]
		hits = append(hits, hit{ID: m.ID, FullName: m.FullName(), AgeGroup: m.AgeGroup, Status: m.Status})
	}
	writeJSON(w, http.StatusOK, hits)
}

// handleAttendance handles the marking screen: GET loads the snapshot for a
// date (switching dates reloads it and re-arms the cutoff timer), POST marks
// one member present or absent on the selected date.
func handleAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		dateParam := r.URL.Query().Get("date")
		target := timeNow()
		if dateParam != "" {
			parsed, err := time.ParseInLocation("2006-01-02", dateParam, time.Local)
			if err != nil {
				http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			target = parsed
		}

		date := attendanceDomain.NormalizeDate(target)
		if attendanceSnapshot.SelectedDate() != date {
			// Reload failure keeps the previous rows; the screen shows
			// stale data rather than nothing.
			if err := attendanceSnapshot.SetSelectedDate(ctx, target); err != nil {
				slog.Warn("attendance_date_switch_failed", "date", date, "error", err)
			}
			if absenceScheduler != nil {
				absenceScheduler.Arm(date, attendanceSnapshot.Generation())
			}
		}

		rows := attendanceSnapshot.FilterByName(r.URL.Query().Get("q"))
		if rows == nil {
			rows = []attendanceDomain.Record{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"date":    attendanceSnapshot.SelectedDate(),
			"rows":    rows,
			"summary": attendanceSnapshot.Summary(),
		})
		return
	}

	if r.Method == "POST" {
		var body struct {
			MemberID string `json:"memberId"`
			Status   string `json:"status"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		rec, err := attendanceSnapshot.Mark(ctx, body.MemberID, body.Status)
		if err != nil {
			if errors.Is(err, snapshot.ErrInvalidStatus) || errors.Is(err, snapshot.ErrNotInRoster) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"record":  rec,
			"summary": attendanceSnapshot.Summary(),
		})
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleAttendanceReport handles GET /reports/attendance?date_from=&date_to=
func handleAttendanceReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	result, err := projections.QueryGetAttendanceReport(r.Context(), projections.GetAttendanceReportQuery{
		DateFrom: r.URL.Query().Get("date_from"),
		DateTo:   r.URL.Query().Get("date_to"),
	}, projections.GetAttendanceReportDeps{
		AttendanceStore: stores.AttendanceStore,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleImportMembers handles POST /import/members. The CSV arrives either as
// a multipart "file" part or as the raw request body.
func handleImportMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, _ := middleware.GetSessionFromContext(r.Context())

	input := orchestrators.ImportMembersInput{
		AdminAccountID: session.AccountID,
		DryRun:         r.URL.Query().Get("dry_run") == "true",
		UpdateMode:     r.URL.Query().Get("update") == "true",
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			http.Error(w, "Invalid upload", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file part is required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		input.Reader = file
	} else {
		input.Reader = r.Body
	}

	result, err := orchestrators.ExecuteImportMembers(r.Context(), input, orchestrators.ImportMembersDeps{
		MemberStore: stores.MemberStore,
		GenerateID:  generateID,
		Now:         timeNow,
	})
	if err != nil {
		var verr *orchestrators.ImportMembersValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		internalError(w, err)
		return
	}

	failedRows := result.FailedRows
	if failedRows == nil {
		failedRows = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":          result.Total,
		"importedCount":  result.ImportedCount,
		"updated":        result.Updated,
		"skipped":        result.Skipped,
		"failedRows":     failedRows,
		"dryRun":         result.DryRun,
		"unknownColumns": result.Unknown,
	})
}

// exportFilter is the JSON filter payload shared by the export endpoints.
// Field names match the directory list query parameters.
type exportFilter struct {
	Search           string `json:"q"`
	AgeGroup         string `json:"age_group"`
	Status           string `json:"status"`
	Ministry         string `json:"ministry"`
	Training         string `json:"training"`
	MaritalStatus    string `json:"marital_status"`
	WaterBaptized    string `json:"water_baptized"`
	DateAttendedFrom string `json:"date_from"`
	DateAttendedTo   string `json:"date_to"`
}

// handleExportMembers handles POST /export/members: streams the filtered
// member list as a CSV download.
func handleExportMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, _ := middleware.GetSessionFromContext(r.Context())

	var body exportFilter
	if r.ContentLength > 0 {
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}

	filter := memberStore.ListFilter{
		Search:           stripSentinel(body.Search),
		AgeGroup:         stripSentinel(body.AgeGroup),
		Status:           stripSentinel(body.Status),
		Ministry:         stripSentinel(body.Ministry),
		Training:         stripSentinel(body.Training),
		MaritalStatus:    stripSentinel(body.MaritalStatus),
		WaterBaptized:    stripSentinel(body.WaterBaptized),
		DateAttendedFrom: body.DateAttendedFrom,
		DateAttendedTo:   body.DateAttendedTo,
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="members_`+timeNow().Format("2006-01-02")+`.csv"`)

	count, err := orchestrators.ExecuteExportMembers(r.Context(), w, orchestrators.ExportMembersInput{
		Filter:         filter,
		AdminAccountID: session.AccountID,
	}, orchestrators.ExportMembersDeps{
		MemberStore: stores.MemberStore,
	})
	if err != nil {
		// Headers may already be out; log and drop the connection state.
		slog.Error("export_members_failed", "error", err)
		return
	}
	slog.Info("export_event", "event", "members_exported", "rows", count, "account_id", session.AccountID)
}

// handleExportAttendance handles POST /export/attendance with a date range.
func handleExportAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, _ := middleware.GetSessionFromContext(r.Context())

	var body struct {
		DateFrom string `json:"date_from"`
		DateTo   string `json:"date_to"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if body.DateFrom == "" {
		http.Error(w, "date_from is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance_`+body.DateFrom+`.csv"`)

	count, err := orchestrators.ExecuteExportAttendance(r.Context(), w, orchestrators.ExportAttendanceInput{
		DateFrom:       body.DateFrom,
		DateTo:         body.DateTo,
		AdminAccountID: session.AccountID,
	}, orchestrators.ExportAttendanceDeps{
		AttendanceStore: stores.AttendanceStore,
	})
	if err != nil {
		slog.Error("export_attendance_failed", "error", err)
		return
	}
	slog.Info("export_event", "event", "attendance_exported", "rows", count, "account_id", session.AccountID)
}

// noticeView is a notice plus its markdown body rendered to HTML.
type noticeView struct {
	noticeDomain.Notice
	ContentHTML string `json:"contentHtml"`
}

func renderNotices(notices []noticeDomain.Notice) []noticeView {
	views := make([]noticeView, 0, len(notices))
	for _, n := range notices {
		var buf bytes.Buffer
		if err := mdRenderer.Convert([]byte(n.Content), &buf); err != nil {
			slog.Warn("notice_render_failed", "notice_id", n.ID, "error", err)
			buf.Reset()
		}
		views = append(views, noticeView{Notice: n, ContentHTML: buf.String()})
	}
	return views
}

// requireAdmin checks the session role and writes the error response itself.
func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	if session.Role != accountDomain.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return middleware.Session{}, false
	}
	return session, true
}

// handleNotices handles GET (board) and POST (admin create) for /notices.
func handleNotices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		noticeType := r.URL.Query().Get("type")
		var (
			notices []noticeDomain.Notice
			err     error
		)
		if middleware.IsAdmin(ctx) && r.URL.Query().Get("all") == "true" {
			// Admins can see drafts
			notices, err = stores.NoticeStore.List(ctx, noticeStore.ListFilter{Type: noticeType, Limit: 100})
		} else {
			notices, err = stores.NoticeStore.ListPublished(ctx, noticeType)
		}
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, renderNotices(notices))
		return
	}

	if r.Method == "POST" {
		sess, ok := requireAdmin(w, r)
		if !ok {
			return
		}
		var input struct {
			Type       string `json:"type"`
			Title      string `json:"title"`
			Content    string `json:"content"`
			AuthorName string `json:"authorName"`
			Color      string `json:"color"`
		}
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		n, err := orchestrators.ExecuteCreateNotice(ctx, orchestrators.CreateNoticeInput{
			Type:       input.Type,
			Title:      input.Title,
			Content:    input.Content,
			AuthorName: input.AuthorName,
			Color:      input.Color,
			CreatedBy:  sess.AccountID,
		}, orchestrators.CreateNoticeDeps{
			NoticeStore: stores.NoticeStore,
			GenerateID:  generateID,
			Now:         timeNow,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, n)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleNoticePublish handles POST /notices/publish
func handleNoticePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var input struct {
		NoticeID string `json:"noticeId"`
	}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	n, err := orchestrators.ExecutePublishNotice(r.Context(), orchestrators.PublishNoticeInput{
		NoticeID:    input.NoticeID,
		PublisherID: sess.AccountID,
	}, orchestrators.PublishNoticeDeps{
		NoticeStore: stores.NoticeStore,
		Now:         timeNow,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleNoticeEdit handles POST /notices/edit
func handleNoticeEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	var input struct {
		NoticeID   string `json:"noticeId"`
		Title      string `json:"title"`
		Content    string `json:"content"`
		Type       string `json:"type"`
		AuthorName string `json:"authorName"`
		Color      string `json:"color"`
	}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	n, err := orchestrators.ExecuteEditNotice(r.Context(), orchestrators.EditNoticeInput{
		NoticeID:   input.NoticeID,
		Title:      input.Title,
		Content:    input.Content,
		Type:       input.Type,
		AuthorName: input.AuthorName,
		Color:      input.Color,
	}, orchestrators.EditNoticeDeps{
		NoticeStore: stores.NoticeStore,
		Now:         timeNow,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleNoticePin handles POST /notices/pin (toggle pin/unpin)
func handleNoticePin(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	var input struct {
		NoticeID string `json:"noticeId"`
		Pinned   bool   `json:"pinned"`
	}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	n, err := orchestrators.ExecutePinNotice(r.Context(), orchestrators.PinNoticeInput{
		NoticeID: input.NoticeID,
		Pinned:   input.Pinned,
	}, orchestrators.PinNoticeDeps{
		NoticeStore: stores.NoticeStore,
		Now:         timeNow,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleAccounts handles GET (list) and POST (create) for /accounts.
// Password hashes never leave the server.
func handleAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		accounts, err := stores.AccountStore.List(ctx, accountStore.ListFilter{Limit: 100})
		if err != nil {
			internalError(w, err)
			return
		}
		type row struct {
			ID                     string    `json:"id"`
			Email                  string    `json:"email"`
			Role                   string    `json:"role"`
			CreatedAt              time.Time `json:"createdAt"`
			PasswordChangeRequired bool      `json:"passwordChangeRequired"`
		}
		rows := make([]row, 0, len(accounts))
		for _, a := range accounts {
			rows = append(rows, row{
				ID:                     a.ID,
				Email:                  a.Email,
				Role:                   a.Role,
				CreatedAt:              a.CreatedAt,
				PasswordChangeRequired: a.PasswordChangeRequired,
			})
		}
		writeJSON(w, http.StatusOK, rows)
		return
	}

	if r.Method == "POST" {
		var input struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		id, err := orchestrators.ExecuteCreateAccount(ctx, orchestrators.CreateAccountInput{
			Email:                  input.Email,
			Password:               input.Password,
			Role:                   input.Role,
			PasswordChangeRequired: true,
		}, orchestrators.CreateAccountDeps{
			AccountStore: stores.AccountStore,
			OutboxStore:  stores.OutboxStore,
		})
		if err != nil {
			if errors.Is(err, orchestrators.ErrEmailAlreadyExists) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handlePerfSnapshot handles GET /admin/perf: aggregated request and query
// timings from the ring buffer, last 15 minutes.
func handlePerfSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if perfCollector == nil {
		http.Error(w, "perf collection disabled", http.StatusNotFound)
		return
	}
	snap := perfCollector.Snapshot(timeNow().Add(-15*time.Minute), 10)
	writeJSON(w, http.StatusOK, snap)
}

// handleHealth handles GET /health.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func stripSentinel(v string) string {
	if v == listutil.AllSentinel {
		return ""
	}
	return v
}

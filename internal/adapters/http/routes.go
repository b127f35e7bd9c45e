package web

import (
	"net/http"

	"flock/internal/adapters/http/middleware"
	"flock/internal/domain/account"
)

// registerRoutes attaches every application route to the mux. Role gates:
// personal owns registration and member records, attendance owns marking,
// logsandreports owns reports and import/export, admin owns accounts and
// notices. Admin passes every gate.
func registerRoutes(mux *http.ServeMux) {
	personal := middleware.RequireRole(account.RolePersonal, account.RoleAdmin)
	marking := middleware.RequireRole(account.RoleAttendance, account.RoleAdmin)
	reports := middleware.RequireRole(account.RoleReports, account.RoleAdmin)
	admin := middleware.RequireRole(account.RoleAdmin)

	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.HandleFunc("/change-password", handleChangePassword)
	mux.HandleFunc("/health", handleHealth)

	mux.Handle("/members", personal(http.HandlerFunc(handleMembers)))
	mux.Handle("/members/", personal(http.HandlerFunc(handleMemberByID)))
	mux.Handle("/members/search", personal(http.HandlerFunc(handleMemberSearch)))

	mux.Handle("/attendance", marking(http.HandlerFunc(handleAttendance)))

	mux.Handle("/reports/attendance", reports(http.HandlerFunc(handleAttendanceReport)))
	mux.Handle("/import/members", reports(http.HandlerFunc(handleImportMembers)))
	mux.Handle("/export/members", reports(http.HandlerFunc(handleExportMembers)))
	mux.Handle("/export/attendance", reports(http.HandlerFunc(handleExportAttendance)))

	mux.Handle("/notices", middleware.RequireAuth(http.HandlerFunc(handleNotices)))
	mux.Handle("/notices/publish", admin(http.HandlerFunc(handleNoticePublish)))
	mux.Handle("/notices/edit", admin(http.HandlerFunc(handleNoticeEdit)))
	mux.Handle("/notices/pin", admin(http.HandlerFunc(handleNoticePin)))

	mux.Handle("/accounts", admin(http.HandlerFunc(handleAccounts)))
	mux.Handle("/admin/perf", admin(http.HandlerFunc(handlePerfSnapshot)))
}

package browser_test

import (
	"encoding/json"
	"strings"
	"testing"
)

type noticeView struct {
	ID          string `json:"ID"`
	Title       string `json:"Title"`
	Status      string `json:"Status"`
	Pinned      bool   `json:"Pinned"`
	ContentHTML string `json:"contentHtml"`
}

// TestNotices_DraftThenPublish verifies a draft stays hidden from staff until
// an admin publishes it, and that Markdown content is rendered.
func TestNotices_DraftThenPublish(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	app := newTestApp(t)
	app.seedTestAccounts(t)

	adminPage := app.newPage(t)
	app.login(t, adminPage)

	createResp := app.postJSON(t, adminPage, "/notices", `{
		"type": "announcement",
		"title": "Service moved",
		"content": "Sunday service is now at **10am**.",
		"authorName": "Pastor Rewi",
		"color": "orange"
	}`)
	if createResp.Status() != 201 {
		body, _ := createResp.Text()
		t.Fatalf("create: status=%d want 201: %s", createResp.Status(), body)
	}
	var created struct {
		ID     string `json:"ID"`
		Status string `json:"Status"`
	}
	createText, _ := createResp.Text()
	if err := json.Unmarshal([]byte(createText), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if created.Status != "draft" {
		t.Errorf("new notice status=%q want draft", created.Status)
	}

	// Staff sees no drafts
	staffPage := app.newPage(t)
	app.loginAs(t, staffPage, "personal@flock.church", "Shepherd+staff!")
	staffResp := app.get(t, staffPage, "/notices")
	if staffResp.Status() != 200 {
		t.Fatalf("staff list: status=%d want 200", staffResp.Status())
	}
	var staffNotices []noticeView
	staffText, _ := staffResp.Text()
	if err := json.Unmarshal([]byte(staffText), &staffNotices); err != nil {
		t.Fatalf("decode staff list: %v", err)
	}
	if len(staffNotices) != 0 {
		t.Errorf("staff sees %d notices before publish, want 0", len(staffNotices))
	}

	// Publish, then the staff board shows it with rendered Markdown
	pubResp := app.postJSON(t, adminPage, "/notices/publish", `{"noticeId":"`+created.ID+`"}`)
	if pubResp.Status() != 200 {
		body, _ := pubResp.Text()
		t.Fatalf("publish: status=%d want 200: %s", pubResp.Status(), body)
	}

	afterResp := app.get(t, staffPage, "/notices")
	var after []noticeView
	afterText, _ := afterResp.Text()
	if err := json.Unmarshal([]byte(afterText), &after); err != nil {
		t.Fatalf("decode published list: %v", err)
	}
	if len(after) != 1 {
		t.Fatalf("staff sees %d notices after publish, want 1: %s", len(after), afterText)
	}
	if after[0].Title != "Service moved" {
		t.Errorf("title=%q want %q", after[0].Title, "Service moved")
	}
	if !strings.Contains(after[0].ContentHTML, "<strong>10am</strong>") {
		t.Errorf("contentHtml missing rendered markdown: %s", after[0].ContentHTML)
	}
}

// TestNotices_StaffCannotManage verifies non-admin accounts cannot create or
// publish notices.
func TestNotices_StaffCannotManage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	app := newTestApp(t)
	app.seedTestAccounts(t)

	staffPage := app.newPage(t)
	app.loginAs(t, staffPage, "attendance@flock.church", "Shepherd+staff!")

	create := app.postJSON(t, staffPage, "/notices", `{"type":"announcement","title":"Nope","content":"x","authorName":"Staff","color":"red"}`)
	if create.Status() != 403 {
		t.Errorf("staff create: status=%d want 403", create.Status())
	}

	publish := app.postJSON(t, staffPage, "/notices/publish", `{"noticeId":"whatever"}`)
	if publish.Status() != 403 {
		t.Errorf("staff publish: status=%d want 403", publish.Status())
	}
}

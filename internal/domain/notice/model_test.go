package notice_test

import (
	"testing"
	"time"

	"flock/internal/domain/notice"
)

// TestNoticeValidation tests validation of Notice.
func TestNoticeValidation(t *testing.T) {
	tests := []struct {
		name    string
		notice  notice.Notice
		wantErr bool
	}{
		{
			name:    "valid announcement",
			notice:  notice.Notice{Title: "Sunday Service", Content: "Service starts at **9am**.", Type: notice.TypeAnnouncement, Status: notice.StatusDraft},
			wantErr: false,
		},
		{
			name:    "empty title",
			notice:  notice.Notice{Content: "body", Type: notice.TypeEvent, Status: notice.StatusDraft},
			wantErr: true,
		},
		{
			name:    "empty content",
			notice:  notice.Notice{Title: "t", Type: notice.TypeEvent, Status: notice.StatusDraft},
			wantErr: true,
		},
		{
			name:    "unknown type",
			notice:  notice.Notice{Title: "t", Content: "c", Type: "meme", Status: notice.StatusDraft},
			wantErr: true,
		},
		{
			name:    "unknown color",
			notice:  notice.Notice{Title: "t", Content: "c", Type: notice.TypePrayer, Status: notice.StatusPublished, Color: "mauve"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.notice.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestPinLifecycle tests pin/unpin transitions.
func TestPinLifecycle(t *testing.T) {
	n := notice.Notice{Title: "t", Content: "c", Type: notice.TypeAnnouncement, Status: notice.StatusPublished}
	now := time.Now()

	if err := n.Pin(now); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if err := n.Pin(now); err == nil {
		t.Error("expected error pinning an already-pinned notice")
	}
	if err := n.Unpin(); err != nil {
		t.Fatalf("Unpin: %v", err)
	}
	if err := n.Unpin(); err == nil {
		t.Error("expected error unpinning an unpinned notice")
	}
}

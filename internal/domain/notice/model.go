package notice

import (
	"errors"
	"time"
)

// Notice types
const (
	TypeAnnouncement = "announcement"
	TypeEvent        = "event"
	TypePrayer       = "prayer"
)

// Notice statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Color presets, the predefined highlight colours for notices.
const (
	ColorOrange = "orange" // #F9B232, default
	ColorRed    = "red"    // #e74c3c
	ColorGreen  = "green"  // #27ae60
	ColorBlue   = "blue"   // #2980b9
	ColorPurple = "purple" // #8e44ad
	ColorTeal   = "teal"   // #16a085
	ColorGrey   = "grey"   // #7f8c8d
)

// ColorHex maps preset names to hex values.
var ColorHex = map[string]string{
	ColorOrange: "#F9B232",
	ColorRed:    "#e74c3c",
	ColorGreen:  "#27ae60",
	ColorBlue:   "#2980b9",
	ColorPurple: "#8e44ad",
	ColorTeal:   "#16a085",
	ColorGrey:   "#7f8c8d",
}

// ValidColors contains all valid colour preset names.
var ValidColors = []string{ColorOrange, ColorRed, ColorGreen, ColorBlue, ColorPurple, ColorTeal, ColorGrey}

// ValidTypes contains all valid notice types.
var ValidTypes = []string{TypeAnnouncement, TypeEvent, TypePrayer}

// ValidStatuses contains all valid notice statuses.
var ValidStatuses = []string{StatusDraft, StatusPublished}

// Domain errors
var (
	ErrEmptyTitle    = errors.New("notice title cannot be empty")
	ErrEmptyContent  = errors.New("notice content cannot be empty")
	ErrInvalidType   = errors.New("notice type must be one of: announcement, event, prayer")
	ErrInvalidStatus = errors.New("notice status must be one of: draft, published")
	ErrInvalidColor  = errors.New("notice color must be one of: orange, red, green, blue, purple, teal, grey")
	ErrAlreadyPinned = errors.New("notice is already pinned")
	ErrNotPinned     = errors.New("notice is not pinned")
)

// Notice represents an announcement shown on the church board.
// Content supports Markdown formatting.
type Notice struct {
	ID          string
	Type        string // announcement, event, prayer
	Status      string // draft, published
	Title       string
	Content     string // Markdown content
	CreatedBy   string // AccountID of creator
	AuthorName  string // Display name of the author
	Color       string // Highlight colour preset
	Pinned      bool   // Whether pinned to top of notice list
	PinnedAt    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt time.Time
}

// Validate checks if the Notice has valid data.
// PRE: Notice struct is populated
// POST: Returns nil if valid, error otherwise
func (n *Notice) Validate() error {
	if n.Title == "" {
		return ErrEmptyTitle
	}
	if n.Content == "" {
		return ErrEmptyContent
	}
	if !contains(ValidTypes, n.Type) {
		return ErrInvalidType
	}
	if !contains(ValidStatuses, n.Status) {
		return ErrInvalidStatus
	}
	if n.Color != "" && !contains(ValidColors, n.Color) {
		return ErrInvalidColor
	}
	return nil
}

// Publish transitions the notice from draft to published.
// PRE: Notice is a draft
// POST: Status is published, PublishedAt set
func (n *Notice) Publish(now time.Time) {
	n.Status = StatusPublished
	n.PublishedAt = now
}

// Pin marks the notice as pinned to the top of the board.
// PRE: Notice is not already pinned
// POST: Pinned is true, PinnedAt set
func (n *Notice) Pin(now time.Time) error {
	if n.Pinned {
		return ErrAlreadyPinned
	}
	n.Pinned = true
	n.PinnedAt = now
	return nil
}

// Unpin removes the pin.
// PRE: Notice is pinned
// POST: Pinned is false
func (n *Notice) Unpin() error {
	if !n.Pinned {
		return ErrNotPinned
	}
	n.Pinned = false
	n.PinnedAt = time.Time{}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

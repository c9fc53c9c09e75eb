package inbox

import "time"

// Notification is the write-once row. Broadcasts (audience != "direct") are
// shared by every matching user; per-user read/delete state lives in the
// notification_reads side table.
type Notification struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Body        string                 `json:"body"`
	Data        map[string]interface{} `json:"data,omitempty"`
	RecipientID *string                `json:"recipient_id,omitempty"`
	Audience    string                 `json:"audience"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Item is a notification as one user sees it.
type Item struct {
	Notification
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// ListOptions filter a user's notification feed.
type ListOptions struct {
	Limit      int
	Offset     int
	Type       string
	UnreadOnly bool
}

// Preferences are the per-user delivery toggles consulted by the push policy.
type Preferences struct {
	EventReminders    bool `json:"eventReminders"`
	MarketplaceAlerts bool `json:"marketplaceAlerts"`
	NoticeUpdates     bool `json:"noticeUpdates"`
	ClassroomAlerts   bool `json:"classroomAlerts"`
	ChatAlerts        bool `json:"chatAlerts"`
	AdminAlerts       bool `json:"adminAlerts"`
}

// DefaultPreferences: everything on until the user opts out.
func DefaultPreferences() Preferences {
	return Preferences{
		EventReminders:    true,
		MarketplaceAlerts: true,
		NoticeUpdates:     true,
		ClassroomAlerts:   true,
		ChatAlerts:        true,
		AdminAlerts:       true,
	}
}

// PreferenceKeys lists the accepted patch field names, in API order.
var PreferenceKeys = []string{
	"eventReminders",
	"marketplaceAlerts",
	"noticeUpdates",
	"classroomAlerts",
	"chatAlerts",
	"adminAlerts",
}

// Allows reports whether the named toggle is on. Unknown toggles are allowed.
func (p Preferences) Allows(toggle string) bool {
	switch toggle {
	case "eventReminders":
		return p.EventReminders
	case "marketplaceAlerts":
		return p.MarketplaceAlerts
	case "noticeUpdates":
		return p.NoticeUpdates
	case "classroomAlerts":
		return p.ClassroomAlerts
	case "chatAlerts":
		return p.ChatAlerts
	case "adminAlerts":
		return p.AdminAlerts
	default:
		return true
	}
}

func (p *Preferences) set(key string, value bool) {
	switch key {
	case "eventReminders":
		p.EventReminders = value
	case "marketplaceAlerts":
		p.MarketplaceAlerts = value
	case "noticeUpdates":
		p.NoticeUpdates = value
	case "classroomAlerts":
		p.ClassroomAlerts = value
	case "chatAlerts":
		p.ChatAlerts = value
	case "adminAlerts":
		p.AdminAlerts = value
	}
}

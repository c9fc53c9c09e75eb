package notify

// Payload is the one message shape both delivery channels consume. Title and
// Body drive the visible notification; Data rides along for client routing.
// A payload with only Data set is a data-only push and never produces an
// in-app row.
type Payload struct {
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Type returns the notification type tag, defaulting for untagged payloads.
func (p Payload) Type() string {
	if t := p.Data["type"]; t != "" {
		return t
	}
	return "user_notification"
}

// title/body may also arrive inside Data for data-only callers.
func (p Payload) derivedTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Data["title"]
}

func (p Payload) derivedBody() string {
	if p.Body != "" {
		return p.Body
	}
	return p.Data["body"]
}

// broadcastType maps a recognized push topic to the in-app notification type
// recorded for the audience row. Unknown topics get no in-app row.
func broadcastType(topic string) string {
	switch topic {
	case "books":
		return "book_listed"
	case "events":
		return "event_published"
	default:
		return ""
	}
}

// ToggleForType maps a notification type to the preference toggle that gates
// its push delivery. Unmapped types are always allowed.
func ToggleForType(ntype string) string {
	switch {
	case ntype == "book_listed",
		ntype == "purchase_request",
		ntype == "purchase_request_cancelled",
		ntype == "purchase_request_removed",
		ntype == "request_response":
		return "marketplaceAlerts"
	case ntype == "event_published", ntype == "event_reminder":
		return "eventReminders"
	case ntype == "notice_update":
		return "noticeUpdates"
	case ntype == "classroom_alert":
		return "classroomAlerts"
	case ntype == "chat_message":
		return "chatAlerts"
	case ntype == "admin_moderation_update", ntype == "admin_announcement", ntype == "admin_alert":
		return "adminAlerts"
	default:
		return ""
	}
}

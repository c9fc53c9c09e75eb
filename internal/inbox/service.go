package inbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/campusshelf/campusshelf/internal/apperr"
	"github.com/campusshelf/campusshelf/internal/notify"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service handles the per-user notification feed and delivery preferences.
// It also backs the dispatcher: it is the inbox writer and the push policy.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// audienceForRole maps a user role to the broadcast audience it can see.
func audienceForRole(role string) string {
	switch role {
	case "student":
		return "students"
	case "teacher":
		return "teachers"
	case "admin":
		return "admins"
	default:
		return ""
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// ===== Feed =====

func (s *Service) List(ctx context.Context, userID, role string, opt ListOptions) ([]Item, error) {
	opt.Limit = clampLimit(opt.Limit)
	if opt.Offset < 0 {
		opt.Offset = 0
	}
	items, err := s.store.ListVisible(ctx, userID, audienceForRole(role), opt)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch notifications.", err)
	}
	return items, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID, role string) (int, error) {
	count, err := s.store.CountUnread(ctx, userID, audienceForRole(role))
	if err != nil {
		return 0, apperr.Internal("Failed to fetch unread count.", err)
	}
	return count, nil
}

// MarkRead records a read receipt. Notifications outside the caller's
// visibility are reported as not found, never as forbidden.
func (s *Service) MarkRead(ctx context.Context, notificationID, userID, role string) error {
	visible, err := s.store.IsVisible(ctx, notificationID, userID, audienceForRole(role))
	if err != nil {
		return apperr.Internal("Failed to update notification.", err)
	}
	if !visible {
		return apperr.NotFound("Notification not found.")
	}
	if err := s.store.MarkRead(ctx, notificationID, userID); err != nil {
		return apperr.Internal("Failed to update notification.", err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID, role string) (int, error) {
	count, err := s.store.MarkAllRead(ctx, userID, audienceForRole(role))
	if err != nil {
		return 0, apperr.Internal("Failed to update notifications.", err)
	}
	return count, nil
}

// Delete hides a notification from the caller only. Broadcast rows stay
// intact for everyone else.
func (s *Service) Delete(ctx context.Context, notificationID, userID, role string) error {
	visible, err := s.store.IsVisible(ctx, notificationID, userID, audienceForRole(role))
	if err != nil {
		return apperr.Internal("Failed to delete notification.", err)
	}
	if !visible {
		return apperr.NotFound("Notification not found.")
	}
	if err := s.store.SoftDelete(ctx, notificationID, userID); err != nil {
		return apperr.Internal("Failed to delete notification.", err)
	}
	return nil
}

// ===== Preferences =====

func (s *Service) Preferences(ctx context.Context, userID string) (Preferences, error) {
	p, _, err := s.store.Preferences(ctx, userID)
	if err != nil {
		return Preferences{}, apperr.Internal("Failed to fetch preferences.", err)
	}
	return p, nil
}

// UpdatePreferences applies a partial update. Unknown keys and non-boolean
// values are rejected before anything is written.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, patch map[string]interface{}) (Preferences, error) {
	if len(patch) == 0 {
		return Preferences{}, apperr.Validation("No preferences provided.")
	}
	known := map[string]bool{}
	for _, k := range PreferenceKeys {
		known[k] = true
	}
	for key, value := range patch {
		if !known[key] {
			return Preferences{}, apperr.Validation("Unknown preference: " + key)
		}
		if _, ok := value.(bool); !ok {
			return Preferences{}, apperr.Validation("Preference " + key + " must be a boolean.")
		}
	}

	current, _, err := s.store.Preferences(ctx, userID)
	if err != nil {
		return Preferences{}, apperr.Internal("Failed to update preferences.", err)
	}
	for key, value := range patch {
		current.set(key, value.(bool))
	}
	if err := s.store.SavePreferences(ctx, userID, current); err != nil {
		return Preferences{}, apperr.Internal("Failed to update preferences.", err)
	}
	return current, nil
}

// ===== Dispatcher hooks =====

// CreateDirect writes an in-app row addressed to one user.
func (s *Service) CreateDirect(ctx context.Context, recipientID, ntype, title, body string, data map[string]string) error {
	_, err := s.store.InsertDirect(ctx, recipientID, ntype, title, body, data)
	return err
}

// CreateBroadcast writes one shared row for an audience.
func (s *Service) CreateBroadcast(ctx context.Context, audience, ntype, title, body string, data map[string]string) error {
	_, err := s.store.InsertBroadcast(ctx, audience, ntype, title, body, data)
	return err
}

// PushAllowed gates the push channel on the user's toggles. The in-app row is
// written regardless. Lookup failures default to sending.
func (s *Service) PushAllowed(ctx context.Context, userID, ntype string) bool {
	toggle := notify.ToggleForType(ntype)
	if toggle == "" {
		return true
	}
	p, _, err := s.store.Preferences(ctx, userID)
	if err != nil {
		s.log.Warn("preference lookup failed, allowing push",
			zap.String("user_id", userID), zap.Error(err))
		return true
	}
	return p.Allows(toggle)
}

package inbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists notifications and per-user read state.
type Store interface {
	InsertDirect(ctx context.Context, recipientID, ntype, title, body string, data map[string]string) (string, error)
	InsertBroadcast(ctx context.Context, audience, ntype, title, body string, data map[string]string) (string, error)
	ListVisible(ctx context.Context, userID, audience string, opt ListOptions) ([]Item, error)
	CountUnread(ctx context.Context, userID, audience string) (int, error)
	IsVisible(ctx context.Context, notificationID, userID, audience string) (bool, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID, audience string) (int, error)
	SoftDelete(ctx context.Context, notificationID, userID string) error
	Preferences(ctx context.Context, userID string) (Preferences, bool, error)
	SavePreferences(ctx context.Context, userID string, p Preferences) error
}

// PGStore is the pgx-backed Store.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func marshalData(data map[string]string) ([]byte, error) {
	if len(data) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(data)
}

func (s *PGStore) InsertDirect(ctx context.Context, recipientID, ntype, title, body string, data map[string]string) (string, error) {
	raw, err := marshalData(data)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO notifications (id, type, title, body, data, recipient_id, audience, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'direct', NOW())
	`, id, ntype, title, body, raw, recipientID)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PGStore) InsertBroadcast(ctx context.Context, audience, ntype, title, body string, data map[string]string) (string, error) {
	raw, err := marshalData(data)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO notifications (id, type, title, body, data, recipient_id, audience, created_at)
		VALUES ($1, $2, $3, $4, $5, NULL, $6, NOW())
	`, id, ntype, title, body, raw, audience)
	if err != nil {
		return "", err
	}
	return id, nil
}

// visibleWhere matches direct rows addressed to the user plus broadcasts for
// everyone or for the user's role audience, minus rows the user soft-deleted.
// $1 = user id, $2 = role audience ("" for none).
const visibleWhere = `
	(n.recipient_id = $1::uuid OR n.audience = 'all' OR ($2 <> '' AND n.audience = $2))
	AND r.deleted_at IS NULL`

func (s *PGStore) ListVisible(ctx context.Context, userID, audience string, opt ListOptions) ([]Item, error) {
	query := `
		SELECT n.id::text, n.type, n.title, n.body, n.data,
		       n.recipient_id::text, n.audience, n.created_at, r.read_at
		FROM notifications n
		LEFT JOIN notification_reads r
		  ON r.notification_id = n.id AND r.user_id = $1::uuid
		WHERE ` + visibleWhere
	args := []interface{}{userID, audience}
	if opt.Type != "" {
		args = append(args, opt.Type)
		query += fmt.Sprintf(" AND n.type = $%d", len(args))
	}
	if opt.UnreadOnly {
		query += " AND r.read_at IS NULL"
	}
	args = append(args, opt.Limit, opt.Offset)
	query += fmt.Sprintf(" ORDER BY n.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		var raw []byte
		if err := rows.Scan(&it.ID, &it.Type, &it.Title, &it.Body, &raw,
			&it.RecipientID, &it.Audience, &it.CreatedAt, &it.ReadAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &it.Data)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PGStore) CountUnread(ctx context.Context, userID, audience string) (int, error) {
	var count int
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM notifications n
		LEFT JOIN notification_reads r
		  ON r.notification_id = n.id AND r.user_id = $1::uuid
		WHERE `+visibleWhere+` AND r.read_at IS NULL
	`, userID, audience).Scan(&count)
	return count, err
}

func (s *PGStore) IsVisible(ctx context.Context, notificationID, userID, audience string) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM notifications n
			LEFT JOIN notification_reads r
			  ON r.notification_id = n.id AND r.user_id = $1::uuid
			WHERE n.id = $3::uuid AND `+visibleWhere+`
		)
	`, userID, audience, notificationID).Scan(&ok)
	return ok, err
}

func (s *PGStore) MarkRead(ctx context.Context, notificationID, userID string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO notification_reads (id, notification_id, user_id, read_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (notification_id, user_id) DO UPDATE SET read_at = NOW()
	`, uuid.New().String(), notificationID, userID)
	return err
}

func (s *PGStore) MarkAllRead(ctx context.Context, userID, audience string) (int, error) {
	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO notification_reads (id, notification_id, user_id, read_at)
		SELECT gen_random_uuid(), n.id, $1::uuid, NOW()
		FROM notifications n
		LEFT JOIN notification_reads r
		  ON r.notification_id = n.id AND r.user_id = $1::uuid
		WHERE `+visibleWhere+` AND r.read_at IS NULL
		ON CONFLICT (notification_id, user_id) DO UPDATE SET read_at = NOW()
	`, userID, audience)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PGStore) SoftDelete(ctx context.Context, notificationID, userID string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO notification_reads (id, notification_id, user_id, deleted_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (notification_id, user_id) DO UPDATE SET deleted_at = NOW()
	`, uuid.New().String(), notificationID, userID)
	return err
}

func (s *PGStore) Preferences(ctx context.Context, userID string) (Preferences, bool, error) {
	var p Preferences
	err := s.Pool.QueryRow(ctx, `
		SELECT event_reminders, marketplace_alerts, notice_updates,
		       classroom_alerts, chat_alerts, admin_alerts
		FROM notification_preferences WHERE user_id = $1::uuid
	`, userID).Scan(&p.EventReminders, &p.MarketplaceAlerts, &p.NoticeUpdates,
		&p.ClassroomAlerts, &p.ChatAlerts, &p.AdminAlerts)
	if err == pgx.ErrNoRows {
		return DefaultPreferences(), false, nil
	}
	if err != nil {
		return Preferences{}, false, err
	}
	return p, true, nil
}

func (s *PGStore) SavePreferences(ctx context.Context, userID string, p Preferences) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO notification_preferences
			(user_id, event_reminders, marketplace_alerts, notice_updates,
			 classroom_alerts, chat_alerts, admin_alerts, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			event_reminders = EXCLUDED.event_reminders,
			marketplace_alerts = EXCLUDED.marketplace_alerts,
			notice_updates = EXCLUDED.notice_updates,
			classroom_alerts = EXCLUDED.classroom_alerts,
			chat_alerts = EXCLUDED.chat_alerts,
			admin_alerts = EXCLUDED.admin_alerts,
			updated_at = NOW()
	`, userID, p.EventReminders, p.MarketplaceAlerts, p.NoticeUpdates,
		p.ClassroomAlerts, p.ChatAlerts, p.AdminAlerts)
	return err
}

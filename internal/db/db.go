package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/campusshelf/campusshelf/internal/config"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the schema the handlers rely on.
func Init(ctx context.Context, cfg config.Config, log *zap.Logger) {
	var err error
	Conn, err = pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatal("unable to connect to database", zap.Error(err))
	}

	if err = Conn.Ping(ctx); err != nil {
		log.Fatal("unable to ping database", zap.Error(err))
	}

	log.Info("connected to Postgres")

	ensureUsersTable(ctx, log)
	ensureListingsTable(ctx, log)
	ensurePurchaseRequestsTable(ctx, log)
	ensureTrustTables(ctx, log)
	ensureNotificationTables(ctx, log)
}

// Close releases the pool. Safe to call when Init never ran.
func Close() {
	if Conn != nil {
		Conn.Close()
	}
}

func ensureUsersTable(ctx context.Context, log *zap.Logger) {
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            image TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student','teacher','admin')),
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            fcm_token TEXT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	if err != nil {
		log.Error("failed to ensure users table", zap.Error(err))
	}
}

func ensureListingsTable(ctx context.Context, log *zap.Logger) {
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS listings (
            id UUID PRIMARY KEY,
            seller_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            author TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            condition TEXT NOT NULL DEFAULT 'good',
            price BIGINT NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available','sold')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller_id);
        CREATE INDEX IF NOT EXISTS idx_listings_status_created ON listings(status, created_at);
    `)
	if err != nil {
		log.Error("failed to ensure listings table", zap.Error(err))
	}
}

func ensurePurchaseRequestsTable(ctx context.Context, log *zap.Logger) {
	// The unique index on (listing_id, buyer_id) is the authoritative guard
	// against concurrent duplicate requests; the service's existence check
	// only produces a friendlier message.
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS purchase_requests (
            id UUID PRIMARY KEY,
            listing_id UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
            buyer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            message TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'requested' CHECK (status IN ('requested','accepted','rejected','completed')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            responded_at TIMESTAMP WITH TIME ZONE NULL,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE UNIQUE INDEX IF NOT EXISTS purchase_requests_listing_buyer_idx
            ON purchase_requests(listing_id, buyer_id);
        CREATE INDEX IF NOT EXISTS idx_purchase_requests_buyer ON purchase_requests(buyer_id);
        CREATE INDEX IF NOT EXISTS idx_purchase_requests_listing ON purchase_requests(listing_id);
    `)
	if err != nil {
		log.Error("failed to ensure purchase_requests table", zap.Error(err))
	}
}

func ensureTrustTables(ctx context.Context, log *zap.Logger) {
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS user_blocks (
            id UUID PRIMARY KEY,
            blocker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            blocked_user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            reason TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE UNIQUE INDEX IF NOT EXISTS user_blocks_pair_idx
            ON user_blocks(blocker_id, blocked_user_id);
        CREATE INDEX IF NOT EXISTS idx_user_blocks_blocked ON user_blocks(blocked_user_id);
    `)
	if err != nil {
		log.Error("failed to ensure user_blocks table", zap.Error(err))
	}

	_, err = Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS seller_ratings (
            id UUID PRIMARY KEY,
            seller_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            rater_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            listing_id UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            review TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE UNIQUE INDEX IF NOT EXISTS seller_ratings_unique_idx
            ON seller_ratings(seller_id, rater_id, listing_id);
        CREATE INDEX IF NOT EXISTS idx_seller_ratings_seller ON seller_ratings(seller_id);
    `)
	if err != nil {
		log.Error("failed to ensure seller_ratings table", zap.Error(err))
	}

	_, err = Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS marketplace_reports (
            id UUID PRIMARY KEY,
            reporter_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            reported_user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            listing_id UUID NULL REFERENCES listings(id) ON DELETE SET NULL,
            category TEXT NOT NULL,
            description TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open','in_review','resolved','rejected')),
            resolution_notes TEXT NOT NULL DEFAULT '',
            reviewed_by UUID NULL REFERENCES users(id) ON DELETE SET NULL,
            reviewed_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_marketplace_reports_status ON marketplace_reports(status);
        CREATE INDEX IF NOT EXISTS idx_marketplace_reports_reporter ON marketplace_reports(reporter_id);
    `)
	if err != nil {
		log.Error("failed to ensure marketplace_reports table", zap.Error(err))
	}
}

func ensureNotificationTables(ctx context.Context, log *zap.Logger) {
	// Broadcast rows are written once; per-user read/delete state lives in
	// notification_reads so wide audiences never fan out at creation time.
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT NOT NULL,
            data JSONB NULL,
            recipient_id UUID NULL REFERENCES users(id) ON DELETE CASCADE,
            audience TEXT NOT NULL DEFAULT 'direct' CHECK (audience IN ('direct','all','students','teachers','admins')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created ON notifications(recipient_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_audience_created ON notifications(audience, created_at);

        CREATE TABLE IF NOT EXISTS notification_reads (
            id UUID PRIMARY KEY,
            notification_id UUID NOT NULL REFERENCES notifications(id) ON DELETE CASCADE,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            read_at TIMESTAMP WITH TIME ZONE NULL,
            deleted_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE UNIQUE INDEX IF NOT EXISTS notification_reads_unique_idx
            ON notification_reads(notification_id, user_id);

        CREATE TABLE IF NOT EXISTS notification_preferences (
            user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            event_reminders BOOLEAN NOT NULL DEFAULT TRUE,
            marketplace_alerts BOOLEAN NOT NULL DEFAULT TRUE,
            notice_updates BOOLEAN NOT NULL DEFAULT TRUE,
            classroom_alerts BOOLEAN NOT NULL DEFAULT TRUE,
            chat_alerts BOOLEAN NOT NULL DEFAULT TRUE,
            admin_alerts BOOLEAN NOT NULL DEFAULT TRUE,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	if err != nil {
		log.Error("failed to ensure notification tables", zap.Error(err))
	}
}

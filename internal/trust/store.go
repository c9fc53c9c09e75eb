package trust

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusshelf/campusshelf/internal/user"
)

// Store persists blocks, ratings and moderation reports.
type Store interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	BlockExists(ctx context.Context, blockerID, blockedUserID string) (bool, error)
	InsertBlock(ctx context.Context, blockerID, blockedUserID, reason string) error
	DeleteBlock(ctx context.Context, blockerID, blockedUserID string) error
	ListBlocks(ctx context.Context, blockerID string) ([]Block, error)
	BlockedUserIDs(ctx context.Context, userID string) ([]string, error)
	IsBlockedBetween(ctx context.Context, userID, otherUserID string) (bool, error)

	ListingSeller(ctx context.Context, listingID string) (string, bool, error)
	HasAcceptedRequest(ctx context.Context, listingID, buyerID string) (bool, error)
	UpsertRating(ctx context.Context, sellerID, raterID, listingID string, rating int, review string) (Rating, error)
	Reputation(ctx context.Context, sellerID string) (Reputation, error)

	InsertReport(ctx context.Context, reporterID, reportedUserID string, listingID *string, category, description string) (Report, error)
	ReportsByReporter(ctx context.Context, reporterID string) ([]Report, error)
	ListReports(ctx context.Context, status string) ([]Report, error)
	UpdateReport(ctx context.Context, reportID, reviewerID, status, resolutionNotes string) (Report, bool, error)

	Stats(ctx context.Context) (Stats, error)
}

// PGStore is the pgx-backed Store.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

// ===== Blocks =====

func (s *PGStore) UserExists(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1::uuid AND is_active)`,
		userID).Scan(&ok)
	return ok, err
}

func (s *PGStore) BlockExists(ctx context.Context, blockerID, blockedUserID string) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_blocks
			WHERE blocker_id = $1::uuid AND blocked_user_id = $2::uuid
		)
	`, blockerID, blockedUserID).Scan(&ok)
	return ok, err
}

func (s *PGStore) InsertBlock(ctx context.Context, blockerID, blockedUserID, reason string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO user_blocks (id, blocker_id, blocked_user_id, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (blocker_id, blocked_user_id) DO NOTHING
	`, uuid.New().String(), blockerID, blockedUserID, reason)
	return err
}

func (s *PGStore) DeleteBlock(ctx context.Context, blockerID, blockedUserID string) error {
	_, err := s.Pool.Exec(ctx,
		`DELETE FROM user_blocks WHERE blocker_id = $1::uuid AND blocked_user_id = $2::uuid`,
		blockerID, blockedUserID)
	return err
}

func (s *PGStore) ListBlocks(ctx context.Context, blockerID string) ([]Block, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT b.id::text, b.blocker_id::text, b.blocked_user_id::text, b.reason, b.created_at,
		       u.id::text, u.name, u.email, COALESCE(u.image, '')
		FROM user_blocks b
		JOIN users u ON u.id = b.blocked_user_id
		WHERE b.blocker_id = $1::uuid
		ORDER BY b.created_at DESC
	`, blockerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []Block{}
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.ID, &b.BlockerID, &b.BlockedUserID, &b.Reason, &b.CreatedAt,
			&b.BlockedUser.ID, &b.BlockedUser.Name, &b.BlockedUser.Email, &b.BlockedUser.Image); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// BlockedUserIDs returns everyone in a block relation with the user, from
// either side.
func (s *PGStore) BlockedUserIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT CASE WHEN blocker_id = $1::uuid THEN blocked_user_id ELSE blocker_id END::text
		FROM user_blocks
		WHERE blocker_id = $1::uuid OR blocked_user_id = $1::uuid
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[string]bool{}
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

func (s *PGStore) IsBlockedBetween(ctx context.Context, userID, otherUserID string) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_blocks
			WHERE (blocker_id = $1::uuid AND blocked_user_id = $2::uuid)
			   OR (blocker_id = $2::uuid AND blocked_user_id = $1::uuid)
		)
	`, userID, otherUserID).Scan(&ok)
	return ok, err
}

// ===== Ratings =====

func (s *PGStore) ListingSeller(ctx context.Context, listingID string) (string, bool, error) {
	var sellerID string
	err := s.Pool.QueryRow(ctx,
		`SELECT seller_id::text FROM listings WHERE id = $1::uuid`,
		listingID).Scan(&sellerID)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sellerID, true, nil
}

func (s *PGStore) HasAcceptedRequest(ctx context.Context, listingID, buyerID string) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM purchase_requests
			WHERE listing_id = $1::uuid AND buyer_id = $2::uuid
			  AND status IN ('accepted', 'completed')
		)
	`, listingID, buyerID).Scan(&ok)
	return ok, err
}

func (s *PGStore) UpsertRating(ctx context.Context, sellerID, raterID, listingID string, rating int, review string) (Rating, error) {
	var r Rating
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO seller_ratings (id, seller_id, rater_id, listing_id, rating, review)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (seller_id, rater_id, listing_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			review = EXCLUDED.review,
			updated_at = NOW()
		RETURNING id::text, seller_id::text, rater_id::text, listing_id::text,
		          rating, review, created_at, updated_at
	`, uuid.New().String(), sellerID, raterID, listingID, rating, review).Scan(
		&r.ID, &r.SellerID, &r.RaterID, &r.ListingID, &r.Rating, &r.Review, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *PGStore) Reputation(ctx context.Context, sellerID string) (Reputation, error) {
	rep := Reputation{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}

	err := s.Pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
		FROM seller_ratings WHERE seller_id = $1::uuid
	`, sellerID).Scan(&rep.AverageRating, &rep.TotalRatings)
	if err != nil {
		return Reputation{}, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT rating, COUNT(*) FROM seller_ratings
		WHERE seller_id = $1::uuid GROUP BY rating
	`, sellerID)
	if err != nil {
		return Reputation{}, err
	}
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			rows.Close()
			return Reputation{}, err
		}
		rep.Distribution[rating] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Reputation{}, err
	}

	err = s.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM listings
		WHERE seller_id = $1::uuid AND status = 'sold'
	`, sellerID).Scan(&rep.SoldCount)
	if err != nil {
		return Reputation{}, err
	}

	recent, err := s.Pool.Query(ctx, `
		SELECT r.id::text, r.seller_id::text, r.rater_id::text, r.listing_id::text,
		       r.rating, r.review, r.created_at, r.updated_at,
		       u.id::text, u.name, COALESCE(u.image, ''), l.title
		FROM seller_ratings r
		JOIN users u ON u.id = r.rater_id
		JOIN listings l ON l.id = r.listing_id
		WHERE r.seller_id = $1::uuid
		ORDER BY r.created_at DESC
		LIMIT 10
	`, sellerID)
	if err != nil {
		return Reputation{}, err
	}
	defer recent.Close()

	rep.RecentRatings = []RecentRating{}
	for recent.Next() {
		var rr RecentRating
		if err := recent.Scan(&rr.ID, &rr.SellerID, &rr.RaterID, &rr.ListingID,
			&rr.Rating.Rating, &rr.Review, &rr.CreatedAt, &rr.UpdatedAt,
			&rr.Rater.ID, &rr.Rater.Name, &rr.Rater.Image, &rr.ListingTitle); err != nil {
			return Reputation{}, err
		}
		rep.RecentRatings = append(rep.RecentRatings, rr)
	}
	return rep, recent.Err()
}

// ===== Reports =====

const reportColumns = `
	r.id::text, r.reporter_id::text, r.reported_user_id::text, r.listing_id::text,
	r.category, r.description, r.status, r.resolution_notes,
	r.reviewed_by::text, r.reviewed_at, r.created_at, r.updated_at`

const reportReturning = `
	id::text, reporter_id::text, reported_user_id::text, listing_id::text,
	category, description, status, resolution_notes,
	reviewed_by::text, reviewed_at, created_at, updated_at`

type userSummary struct {
	ID, Name, Email string
}

func (u userSummary) summary() *user.Summary {
	return &user.Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

func scanReport(row pgx.Row) (Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.ReporterID, &r.ReportedUserID, &r.ListingID,
		&r.Category, &r.Description, &r.Status, &r.ResolutionNotes,
		&r.ReviewedBy, &r.ReviewedAt, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *PGStore) InsertReport(ctx context.Context, reporterID, reportedUserID string, listingID *string, category, description string) (Report, error) {
	return scanReport(s.Pool.QueryRow(ctx, `
		INSERT INTO marketplace_reports
			(id, reporter_id, reported_user_id, listing_id, category, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'open')
		RETURNING `+reportReturning+`
	`, uuid.New().String(), reporterID, reportedUserID, listingID, category, description))
}

func (s *PGStore) ReportsByReporter(ctx context.Context, reporterID string) ([]Report, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+reportColumns+`,
		       u.id::text, u.name, u.email
		FROM marketplace_reports r
		JOIN users u ON u.id = r.reported_user_id
		WHERE r.reporter_id = $1::uuid
		ORDER BY r.created_at DESC
	`, reporterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		var r Report
		var reported userSummary
		if err := rows.Scan(&r.ID, &r.ReporterID, &r.ReportedUserID, &r.ListingID,
			&r.Category, &r.Description, &r.Status, &r.ResolutionNotes,
			&r.ReviewedBy, &r.ReviewedAt, &r.CreatedAt, &r.UpdatedAt,
			&reported.ID, &reported.Name, &reported.Email); err != nil {
			return nil, err
		}
		r.ReportedUser = reported.summary()
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *PGStore) ListReports(ctx context.Context, status string) ([]Report, error) {
	query := `
		SELECT ` + reportColumns + `,
		       rep.id::text, rep.name, rep.email,
		       tgt.id::text, tgt.name, tgt.email
		FROM marketplace_reports r
		JOIN users rep ON rep.id = r.reporter_id
		JOIN users tgt ON tgt.id = r.reported_user_id`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE r.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY r.created_at DESC`

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		var r Report
		var reporter, reported userSummary
		if err := rows.Scan(&r.ID, &r.ReporterID, &r.ReportedUserID, &r.ListingID,
			&r.Category, &r.Description, &r.Status, &r.ResolutionNotes,
			&r.ReviewedBy, &r.ReviewedAt, &r.CreatedAt, &r.UpdatedAt,
			&reporter.ID, &reporter.Name, &reporter.Email,
			&reported.ID, &reported.Name, &reported.Email); err != nil {
			return nil, err
		}
		r.Reporter = reporter.summary()
		r.ReportedUser = reported.summary()
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *PGStore) UpdateReport(ctx context.Context, reportID, reviewerID, status, resolutionNotes string) (Report, bool, error) {
	r, err := scanReport(s.Pool.QueryRow(ctx, `
		UPDATE marketplace_reports SET
			status = $1,
			resolution_notes = $2,
			reviewed_by = $3,
			reviewed_at = NOW(),
			updated_at = NOW()
		WHERE id = $4::uuid
		RETURNING `+reportReturning+`
	`, status, resolutionNotes, reviewerID, reportID))
	if err == pgx.ErrNoRows {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, err
	}
	return r, true, nil
}

// ===== Stats =====

func (s *PGStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM marketplace_reports WHERE status IN ('open', 'in_review')),
			(SELECT COUNT(*) FROM seller_ratings),
			(SELECT COALESCE(AVG(rating), 0)::float8 FROM seller_ratings),
			(SELECT COUNT(*) FROM user_blocks)
	`).Scan(&st.OpenReports, &st.RatingsCount, &st.AverageRating, &st.ActiveBlocks)
	return st, err
}

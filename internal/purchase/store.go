package purchase

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusshelf/campusshelf/internal/user"
)

// Store persists purchase requests.
type Store interface {
	ListingByID(ctx context.Context, listingID string) (ListingInfo, bool, error)
	UserSummary(ctx context.Context, userID string) (user.Summary, bool, error)
	ExistingForBuyer(ctx context.Context, listingID, buyerID string) (Request, bool, error)
	Insert(ctx context.Context, listingID, buyerID, message string) (Request, error)
	ByID(ctx context.Context, requestID string) (Request, bool, error)
	ForListing(ctx context.Context, listingID string) ([]Request, error)
	Mine(ctx context.Context, buyerID string) ([]Request, error)
	Incoming(ctx context.Context, sellerID string) ([]Request, error)
	MarkResponded(ctx context.Context, requestID, status string) (Request, bool, error)
	Delete(ctx context.Context, requestID string) error
	AuthorizedIDs(ctx context.Context, requestIDs []string, userID string) ([]string, error)
	DeleteMany(ctx context.Context, requestIDs []string) (int, error)
}

// PGStore is the pgx-backed Store.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) ListingByID(ctx context.Context, listingID string) (ListingInfo, bool, error) {
	var l ListingInfo
	err := s.Pool.QueryRow(ctx, `
		SELECT id::text, seller_id::text, title, status, price
		FROM listings WHERE id = $1::uuid
	`, listingID).Scan(&l.ID, &l.SellerID, &l.Title, &l.Status, &l.Price)
	if err == pgx.ErrNoRows {
		return ListingInfo{}, false, nil
	}
	if err != nil {
		return ListingInfo{}, false, err
	}
	return l, true, nil
}

func (s *PGStore) UserSummary(ctx context.Context, userID string) (user.Summary, bool, error) {
	var u user.Summary
	err := s.Pool.QueryRow(ctx, `
		SELECT id::text, name, COALESCE(image, '') FROM users WHERE id = $1::uuid
	`, userID).Scan(&u.ID, &u.Name, &u.Image)
	if err == pgx.ErrNoRows {
		return user.Summary{}, false, nil
	}
	if err != nil {
		return user.Summary{}, false, err
	}
	return u, true, nil
}

const requestColumns = `
	pr.id::text, pr.listing_id::text, pr.buyer_id::text, pr.message,
	pr.status, pr.responded_at, pr.created_at, pr.updated_at`

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.ListingID, &r.BuyerID, &r.Message,
		&r.Status, &r.RespondedAt, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *PGStore) ExistingForBuyer(ctx context.Context, listingID, buyerID string) (Request, bool, error) {
	r, err := scanRequest(s.Pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM purchase_requests pr
		WHERE pr.listing_id = $1::uuid AND pr.buyer_id = $2::uuid
	`, listingID, buyerID))
	if err == pgx.ErrNoRows {
		return Request{}, false, nil
	}
	if err != nil {
		return Request{}, false, err
	}
	return r, true, nil
}

// Insert relies on the (listing_id, buyer_id) unique index to reject
// concurrent duplicates; callers translate the 23505 error.
func (s *PGStore) Insert(ctx context.Context, listingID, buyerID, message string) (Request, error) {
	return scanRequest(s.Pool.QueryRow(ctx, `
		INSERT INTO purchase_requests (id, listing_id, buyer_id, message, status)
		VALUES ($1, $2, $3, $4, 'requested')
		RETURNING id::text, listing_id::text, buyer_id::text, message,
		          status, responded_at, created_at, updated_at
	`, uuid.New().String(), listingID, buyerID, message))
}

func (s *PGStore) ByID(ctx context.Context, requestID string) (Request, bool, error) {
	var r Request
	var l ListingInfo
	err := s.Pool.QueryRow(ctx, `
		SELECT `+requestColumns+`,
		       l.id::text, l.seller_id::text, l.title, l.status, l.price
		FROM purchase_requests pr
		JOIN listings l ON l.id = pr.listing_id
		WHERE pr.id = $1::uuid
	`, requestID).Scan(&r.ID, &r.ListingID, &r.BuyerID, &r.Message,
		&r.Status, &r.RespondedAt, &r.CreatedAt, &r.UpdatedAt,
		&l.ID, &l.SellerID, &l.Title, &l.Status, &l.Price)
	if err == pgx.ErrNoRows {
		return Request{}, false, nil
	}
	if err != nil {
		return Request{}, false, err
	}
	r.Listing = &l
	return r, true, nil
}

func (s *PGStore) ForListing(ctx context.Context, listingID string) ([]Request, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+requestColumns+`,
		       u.id::text, u.name, u.email, COALESCE(u.image, '')
		FROM purchase_requests pr
		JOIN users u ON u.id = pr.buyer_id
		WHERE pr.listing_id = $1::uuid
		ORDER BY pr.created_at DESC
	`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWithBuyer(rows)
}

func (s *PGStore) Mine(ctx context.Context, buyerID string) ([]Request, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+requestColumns+`,
		       l.id::text, l.seller_id::text, l.title, l.status, l.price,
		       su.id::text, su.name, COALESCE(su.image, '')
		FROM purchase_requests pr
		JOIN listings l ON l.id = pr.listing_id
		JOIN users su ON su.id = l.seller_id
		WHERE pr.buyer_id = $1::uuid
		ORDER BY pr.created_at DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []Request{}
	for rows.Next() {
		var r Request
		var l ListingInfo
		var seller user.Summary
		if err := rows.Scan(&r.ID, &r.ListingID, &r.BuyerID, &r.Message,
			&r.Status, &r.RespondedAt, &r.CreatedAt, &r.UpdatedAt,
			&l.ID, &l.SellerID, &l.Title, &l.Status, &l.Price,
			&seller.ID, &seller.Name, &seller.Image); err != nil {
			return nil, err
		}
		l.Seller = &seller
		r.Listing = &l
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *PGStore) Incoming(ctx context.Context, sellerID string) ([]Request, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+requestColumns+`,
		       u.id::text, u.name, u.email, COALESCE(u.image, ''),
		       l.id::text, l.seller_id::text, l.title, l.status, l.price
		FROM purchase_requests pr
		JOIN listings l ON l.id = pr.listing_id
		JOIN users u ON u.id = pr.buyer_id
		WHERE l.seller_id = $1::uuid
		ORDER BY pr.created_at DESC
	`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []Request{}
	for rows.Next() {
		var r Request
		var buyer user.Summary
		var l ListingInfo
		if err := rows.Scan(&r.ID, &r.ListingID, &r.BuyerID, &r.Message,
			&r.Status, &r.RespondedAt, &r.CreatedAt, &r.UpdatedAt,
			&buyer.ID, &buyer.Name, &buyer.Email, &buyer.Image,
			&l.ID, &l.SellerID, &l.Title, &l.Status, &l.Price); err != nil {
			return nil, err
		}
		r.Buyer = &buyer
		r.Listing = &l
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// MarkResponded flips a pending request in one statement. A missing result
// means the request is gone or was already responded to.
func (s *PGStore) MarkResponded(ctx context.Context, requestID, status string) (Request, bool, error) {
	r, err := scanRequest(s.Pool.QueryRow(ctx, `
		UPDATE purchase_requests SET
			status = $1,
			responded_at = NOW(),
			updated_at = NOW()
		WHERE id = $2::uuid AND status = 'requested'
		RETURNING id::text, listing_id::text, buyer_id::text, message,
		          status, responded_at, created_at, updated_at
	`, status, requestID))
	if err == pgx.ErrNoRows {
		return Request{}, false, nil
	}
	if err != nil {
		return Request{}, false, err
	}
	return r, true, nil
}

func (s *PGStore) Delete(ctx context.Context, requestID string) error {
	_, err := s.Pool.Exec(ctx,
		`DELETE FROM purchase_requests WHERE id = $1::uuid`, requestID)
	return err
}

// AuthorizedIDs filters a batch down to requests the user may delete, as
// buyer or as seller of the listing.
func (s *PGStore) AuthorizedIDs(ctx context.Context, requestIDs []string, userID string) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT pr.id::text
		FROM purchase_requests pr
		JOIN listings l ON l.id = pr.listing_id
		WHERE pr.id = ANY($1::uuid[])
		  AND (pr.buyer_id = $2::uuid OR l.seller_id = $2::uuid)
	`, requestIDs, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PGStore) DeleteMany(ctx context.Context, requestIDs []string) (int, error) {
	tag, err := s.Pool.Exec(ctx,
		`DELETE FROM purchase_requests WHERE id = ANY($1::uuid[])`, requestIDs)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func collectWithBuyer(rows pgx.Rows) ([]Request, error) {
	requests := []Request{}
	for rows.Next() {
		var r Request
		var buyer user.Summary
		if err := rows.Scan(&r.ID, &r.ListingID, &r.BuyerID, &r.Message,
			&r.Status, &r.RespondedAt, &r.CreatedAt, &r.UpdatedAt,
			&buyer.ID, &buyer.Name, &buyer.Email, &buyer.Image); err != nil {
			return nil, err
		}
		r.Buyer = &buyer
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

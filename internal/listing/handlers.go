package listing

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campusshelf/campusshelf/internal/apperr"
	"github.com/campusshelf/campusshelf/internal/notify"
)

// BlockLister resolves the symmetric block exclusion set for browse.
type BlockLister interface {
	BlockedUserIDs(ctx context.Context, userID string) ([]string, error)
}

// Notifier announces new books off the request path.
type Notifier interface {
	QueueToTopic(topic string, p notify.Payload)
}

// Handler serves the listing endpoints.
type Handler struct {
	Pool     *pgxpool.Pool
	Blocks   BlockLister
	Notifier Notifier
	Log      *zap.Logger
}

func NewHandler(pool *pgxpool.Pool, blocks BlockLister, notifier Notifier, log *zap.Logger) *Handler {
	return &Handler{Pool: pool, Blocks: blocks, Notifier: notifier, Log: log}
}

const listingColumns = `
	l.id::text, l.seller_id::text, l.title, l.author, l.description,
	l.condition, l.price, l.status, l.created_at, l.updated_at`

// ===== POST /marketplace/listings =====

func (h *Handler) Create(c echo.Context) error {
	sellerID, _ := c.Get("user_id").(string)

	var body struct {
		Title       string `json:"title"`
		Author      string `json:"author"`
		Description string `json:"description"`
		Condition   string `json:"condition"`
		Price       int64  `json:"price"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.JSON(c, apperr.Validation("Invalid request body."))
	}
	body.Title = strings.TrimSpace(body.Title)
	if body.Title == "" {
		return apperr.JSON(c, apperr.Validation("Title is required."))
	}
	if body.Price < 0 {
		return apperr.JSON(c, apperr.Validation("Price cannot be negative."))
	}
	if body.Condition == "" {
		body.Condition = "good"
	}

	var l Listing
	err := h.Pool.QueryRow(c.Request().Context(), `
		INSERT INTO listings (id, seller_id, title, author, description, condition, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'available')
		RETURNING id::text, seller_id::text, title, author, description,
		          condition, price, status, created_at, updated_at
	`, uuid.New().String(), sellerID, body.Title, strings.TrimSpace(body.Author),
		strings.TrimSpace(body.Description), body.Condition, body.Price).Scan(
		&l.ID, &l.SellerID, &l.Title, &l.Author, &l.Description,
		&l.Condition, &l.Price, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		h.Log.Error("failed to create listing", zap.Error(err))
		return apperr.JSON(c, apperr.Internal("Failed to create listing.", err))
	}

	if h.Notifier != nil {
		h.Notifier.QueueToTopic("books", notify.Payload{
			Title: "New book listed!",
			Body:  fmt.Sprintf("%q is now available.", l.Title),
			Data: map[string]string{
				"listingId":    l.ID,
				"listingTitle": l.Title,
			},
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Listing created.",
		"listing": l,
	})
}

// ===== GET /marketplace/listings =====

// Browse returns available listings, hiding sellers the caller is in a block
// relation with, in either direction.
func (h *Handler) Browse(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	ctx := c.Request().Context()

	excluded := []string{}
	if h.Blocks != nil && userID != "" {
		ids, err := h.Blocks.BlockedUserIDs(ctx, userID)
		if err != nil {
			h.Log.Warn("block lookup failed, browsing unfiltered", zap.Error(err))
		} else {
			excluded = ids
		}
	}

	rows, err := h.Pool.Query(ctx, `
		SELECT `+listingColumns+`,
		       u.id::text, u.name, COALESCE(u.image, '')
		FROM listings l
		JOIN users u ON u.id = l.seller_id
		WHERE l.status = 'available'
		  AND NOT (l.seller_id = ANY($1::uuid[]))
		ORDER BY l.created_at DESC
		LIMIT 100
	`, excluded)
	if err != nil {
		return apperr.JSON(c, apperr.Internal("Failed to fetch listings.", err))
	}
	defer rows.Close()

	listings, err := collectWithSeller(rows)
	if err != nil {
		return apperr.JSON(c, apperr.Internal("Failed to fetch listings.", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "listings": listings})
}

// ===== GET /marketplace/listings/mine =====

func (h *Handler) Mine(c echo.Context) error {
	sellerID, _ := c.Get("user_id").(string)

	rows, err := h.Pool.Query(c.Request().Context(), `
		SELECT `+listingColumns+`
		FROM listings l
		WHERE l.seller_id = $1::uuid
		ORDER BY l.created_at DESC
	`, sellerID)
	if err != nil {
		return apperr.JSON(c, apperr.Internal("Failed to fetch listings.", err))
	}
	defer rows.Close()

	listings := []Listing{}
	for rows.Next() {
		var l Listing
		if err := rows.Scan(&l.ID, &l.SellerID, &l.Title, &l.Author, &l.Description,
			&l.Condition, &l.Price, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return apperr.JSON(c, apperr.Internal("Failed to fetch listings.", err))
		}
		listings = append(listings, l)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "listings": listings})
}

// ===== GET /marketplace/listings/:id =====

func (h *Handler) Get(c echo.Context) error {
	var l Listing
	var seller struct{ ID, Name, Image string }
	err := h.Pool.QueryRow(c.Request().Context(), `
		SELECT `+listingColumns+`,
		       u.id::text, u.name, COALESCE(u.image, '')
		FROM listings l
		JOIN users u ON u.id = l.seller_id
		WHERE l.id = $1::uuid
	`, c.Param("id")).Scan(
		&l.ID, &l.SellerID, &l.Title, &l.Author, &l.Description,
		&l.Condition, &l.Price, &l.Status, &l.CreatedAt, &l.UpdatedAt,
		&seller.ID, &seller.Name, &seller.Image)
	if err == pgx.ErrNoRows {
		return apperr.JSON(c, apperr.NotFound("Listing not found."))
	}
	if err != nil {
		return apperr.JSON(c, apperr.Internal("Failed to fetch listing.", err))
	}
	l.Seller = summaryOf(seller.ID, seller.Name, seller.Image)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "listing": l})
}

// ===== PATCH /marketplace/listings/:id/status =====

func (h *Handler) SetStatus(c echo.Context) error {
	sellerID, _ := c.Get("user_id").(string)

	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil || (body.Status != "available" && body.Status != "sold") {
		return apperr.JSON(c, apperr.Validation("status must be 'available' or 'sold'."))
	}

	tag, err := h.Pool.Exec(c.Request().Context(), `
		UPDATE listings SET status = $1, updated_at = NOW()
		WHERE id = $2::uuid AND seller_id = $3::uuid
	`, body.Status, c.Param("id"), sellerID)
	if err != nil {
		return apperr.JSON(c, apperr.Internal("Failed to update listing.", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.JSON(c, apperr.NotFound("Listing not found."))
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Listing updated."})
}

// ===== DELETE /marketplace/listings/:id =====

func (h *Handler) Delete(c echo.Context) error {
	sellerID, _ := c.Get("user_id").(string)

	tag, err := h.Pool.Exec(c.Request().Context(), `
		DELETE FROM listings WHERE id = $1::uuid AND seller_id = $2::uuid
	`, c.Param("id"), sellerID)
	if err != nil {
		return apperr.JSON(c, apperr.Internal("Failed to delete listing.", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.JSON(c, apperr.NotFound("Listing not found."))
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Listing deleted."})
}

func collectWithSeller(rows pgx.Rows) ([]Listing, error) {
	listings := []Listing{}
	for rows.Next() {
		var l Listing
		var id, name, image string
		if err := rows.Scan(&l.ID, &l.SellerID, &l.Title, &l.Author, &l.Description,
			&l.Condition, &l.Price, &l.Status, &l.CreatedAt, &l.UpdatedAt,
			&id, &name, &image); err != nil {
			return nil, err
		}
		l.Seller = summaryOf(id, name, image)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

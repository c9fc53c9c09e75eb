package purchase

import (
	"time"

	"github.com/campusshelf/campusshelf/internal/user"
)

// Request statuses. "requested" is the only state a seller can respond to.
const (
	StatusRequested = "requested"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

// ListingInfo is the slice of a listing the request flows need.
type ListingInfo struct {
	ID       string        `json:"id"`
	SellerID string        `json:"seller_id"`
	Title    string        `json:"title"`
	Status   string        `json:"status"`
	Price    int64         `json:"price"`
	Seller   *user.Summary `json:"seller,omitempty"`
}

// Request is a buyer's purchase request for one listing. One request per
// buyer and listing, enforced by a unique index.
type Request struct {
	ID          string        `json:"id"`
	ListingID   string        `json:"listing_id"`
	BuyerID     string        `json:"buyer_id"`
	Message     string        `json:"message,omitempty"`
	Status      string        `json:"status"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Buyer       *user.Summary `json:"buyer,omitempty"`
	Listing     *ListingInfo  `json:"listing,omitempty"`
}

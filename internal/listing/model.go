package listing

import (
	"time"

	"github.com/campusshelf/campusshelf/internal/user"
)

// Listing is a book for sale. Price is stored in cents.
type Listing struct {
	ID          string        `json:"id"`
	SellerID    string        `json:"seller_id"`
	Title       string        `json:"title"`
	Author      string        `json:"author,omitempty"`
	Description string        `json:"description,omitempty"`
	Condition   string        `json:"condition"`
	Price       int64         `json:"price"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Seller      *user.Summary `json:"seller,omitempty"`
}

func summaryOf(id, name, image string) *user.Summary {
	return &user.Summary{ID: id, Name: name, Image: image}
}

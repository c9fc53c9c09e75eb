package trust

import (
	"time"

	"github.com/campusshelf/campusshelf/internal/user"
)

// ReportCategories are the accepted marketplace report categories.
var ReportCategories = []string{"spam", "fraud", "abusive", "fake_listing", "suspicious_payment", "other"}

// ReportStatuses are the moderation workflow states.
var ReportStatuses = []string{"open", "in_review", "resolved", "rejected"}

func validCategory(c string) bool {
	for _, v := range ReportCategories {
		if v == c {
			return true
		}
	}
	return false
}

func validStatus(s string) bool {
	for _, v := range ReportStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Block is one direction of a block relation. Visibility rules treat the
// relation as symmetric regardless of who created it.
type Block struct {
	ID            string       `json:"id"`
	BlockerID     string       `json:"blocker_id"`
	BlockedUserID string       `json:"blocked_user_id"`
	Reason        string       `json:"reason,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	BlockedUser   user.Summary `json:"blocked_user"`
}

// Rating is a buyer's rating of a seller for one listing.
type Rating struct {
	ID        string    `json:"id"`
	SellerID  string    `json:"seller_id"`
	RaterID   string    `json:"rater_id"`
	ListingID string    `json:"listing_id"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecentRating is a rating enriched for the reputation view.
type RecentRating struct {
	Rating
	Rater        user.Summary `json:"rater"`
	ListingTitle string       `json:"listing_title"`
}

// Reputation is the aggregate view of a seller.
type Reputation struct {
	AverageRating float64        `json:"averageRating"`
	TotalRatings  int            `json:"totalRatings"`
	SoldCount     int            `json:"soldCount"`
	Distribution  map[int]int    `json:"distribution"`
	RecentRatings []RecentRating `json:"recentRatings"`
}

// Report is a marketplace moderation report.
type Report struct {
	ID              string        `json:"id"`
	ReporterID      string        `json:"reporter_id"`
	ReportedUserID  string        `json:"reported_user_id"`
	ListingID       *string       `json:"listing_id,omitempty"`
	Category        string        `json:"category"`
	Description     string        `json:"description"`
	Status          string        `json:"status"`
	ResolutionNotes string        `json:"resolution_notes,omitempty"`
	ReviewedBy      *string       `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Reporter        *user.Summary `json:"reporter,omitempty"`
	ReportedUser    *user.Summary `json:"reported_user,omitempty"`
}

// Stats is the moderation dashboard summary.
type Stats struct {
	OpenReports   int     `json:"openReports"`
	RatingsCount  int     `json:"ratingsCount"`
	AverageRating float64 `json:"averageRating"`
	ActiveBlocks  int     `json:"activeBlocks"`
}

package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/campusshelf/campusshelf/internal/apperr"
	"github.com/campusshelf/campusshelf/internal/notify"
)

// Notifier is the slice of the dispatcher the request flows need. Responses
// on the request path go out synchronously with a bounded timeout; cleanup
// notifications are queued.
type Notifier interface {
	SyncToUser(ctx context.Context, userID string, p notify.Payload)
	QueueToUser(userID string, p notify.Payload)
}

// BlockChecker reports whether a block exists between two users.
type BlockChecker interface {
	IsBlockedBetween(ctx context.Context, userID, otherUserID string) (bool, error)
}

// Service implements the purchase request lifecycle.
type Service struct {
	store    Store
	blocks   BlockChecker
	notifier Notifier
	log      *zap.Logger
}

func NewService(store Store, blocks BlockChecker, notifier Notifier, log *zap.Logger) *Service {
	return &Service{store: store, blocks: blocks, notifier: notifier, log: log}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func duplicateError(status string) error {
	msg := "You have already requested this book."
	if status == StatusRejected {
		msg = "Your previous request was rejected."
	}
	return apperr.Conflict(msg).WithMeta("existingStatus", status)
}

// Create inserts a request and notifies the seller. The unique index on
// (listing_id, buyer_id) is the final word on duplicates; the pre-check only
// exists to report the previous status.
func (s *Service) Create(ctx context.Context, listingID, buyerID, message string) (Request, error) {
	listing, found, err := s.store.ListingByID(ctx, listingID)
	if err != nil {
		return Request{}, apperr.Internal("Failed to send request.", err)
	}
	if !found {
		return Request{}, apperr.NotFound("Listing not found.")
	}
	if listing.SellerID == buyerID {
		return Request{}, apperr.Validation("You cannot request to buy your own book.")
	}
	blocked, err := s.blocks.IsBlockedBetween(ctx, buyerID, listing.SellerID)
	if err != nil {
		return Request{}, apperr.Internal("Failed to send request.", err)
	}
	if blocked {
		return Request{}, apperr.Forbidden("Request is blocked due to trust settings between users.")
	}
	if listing.Status != "available" {
		return Request{}, apperr.Conflict("This book is no longer available.")
	}

	if existing, ok, err := s.store.ExistingForBuyer(ctx, listingID, buyerID); err != nil {
		return Request{}, apperr.Internal("Failed to send request.", err)
	} else if ok {
		return Request{}, duplicateError(existing.Status)
	}

	request, err := s.store.Insert(ctx, listingID, buyerID, strings.TrimSpace(message))
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race against a concurrent request from the same buyer.
			if existing, ok, lookupErr := s.store.ExistingForBuyer(ctx, listingID, buyerID); lookupErr == nil && ok {
				return Request{}, duplicateError(existing.Status)
			}
			return Request{}, duplicateError(StatusRequested)
		}
		return Request{}, apperr.Internal("Failed to send request.", err)
	}

	buyerName := "Someone"
	data := map[string]string{
		"type":         "purchase_request",
		"listingId":    listingID,
		"requestId":    request.ID,
		"buyerId":      buyerID,
		"listingTitle": listing.Title,
		"iconKey":      "book",
	}
	if buyer, ok, err := s.store.UserSummary(ctx, buyerID); err == nil && ok {
		if name := strings.TrimSpace(buyer.Name); name != "" {
			buyerName = name
		}
		if buyer.Image != "" {
			data["actorAvatarUrl"] = buyer.Image
		}
	}
	data["buyerName"] = buyerName
	data["actorName"] = buyerName

	s.notifier.SyncToUser(ctx, listing.SellerID, notify.Payload{
		Title: "New Purchase Request!",
		Body:  fmt.Sprintf("%s is interested in your book: %s.", buyerName, listing.Title),
		Data:  data,
	})

	return request, nil
}

func (s *Service) ForListing(ctx context.Context, listingID, sellerID string) ([]Request, error) {
	listing, found, err := s.store.ListingByID(ctx, listingID)
	if err != nil {
		return nil, apperr.Internal("Failed to get requests.", err)
	}
	if !found {
		return nil, apperr.NotFound("Listing not found.")
	}
	if listing.SellerID != sellerID {
		return nil, apperr.Forbidden("You are not authorized to view these requests.")
	}
	requests, err := s.store.ForListing(ctx, listingID)
	if err != nil {
		return nil, apperr.Internal("Failed to get requests.", err)
	}
	return requests, nil
}

func (s *Service) Mine(ctx context.Context, buyerID string) ([]Request, error) {
	requests, err := s.store.Mine(ctx, buyerID)
	if err != nil {
		return nil, apperr.Internal("Failed to get your requests.", err)
	}
	return requests, nil
}

func (s *Service) Incoming(ctx context.Context, sellerID string) ([]Request, error) {
	requests, err := s.store.Incoming(ctx, sellerID)
	if err != nil {
		return nil, apperr.Internal("Failed to get incoming requests.", err)
	}
	return requests, nil
}

// Respond accepts or rejects a pending request. The conditional update is
// the race guard: whichever response lands first wins, the loser sees a
// conflict.
func (s *Service) Respond(ctx context.Context, requestID, sellerID string, accept bool) (Request, string, error) {
	request, found, err := s.store.ByID(ctx, requestID)
	if err != nil {
		return Request{}, "", apperr.Internal("Failed to respond to request.", err)
	}
	if !found {
		return Request{}, "", apperr.NotFound("Request not found.")
	}
	if request.Listing == nil || request.Listing.SellerID != sellerID {
		return Request{}, "", apperr.Forbidden("You are not authorized to respond to this request.")
	}
	if request.Status != StatusRequested {
		return Request{}, "", apperr.Conflict("This request has already been responded to.")
	}

	newStatus := StatusRejected
	if accept {
		newStatus = StatusAccepted
	}
	updated, won, err := s.store.MarkResponded(ctx, requestID, newStatus)
	if err != nil {
		return Request{}, "", apperr.Internal("Failed to respond to request.", err)
	}
	if !won {
		return Request{}, "", apperr.Conflict("This request has already been responded to.")
	}

	sellerName := "Seller"
	data := map[string]string{
		"type":         "request_response",
		"listingId":    request.ListingID,
		"requestId":    request.ID,
		"sellerId":     sellerID,
		"listingTitle": request.Listing.Title,
		"status":       newStatus,
		"iconKey":      "book",
	}
	if seller, ok, err := s.store.UserSummary(ctx, sellerID); err == nil && ok {
		if name := strings.TrimSpace(seller.Name); name != "" {
			sellerName = name
		}
		if seller.Image != "" {
			data["actorAvatarUrl"] = seller.Image
		}
	}
	data["actorName"] = sellerName

	title := "Request Rejected"
	body := fmt.Sprintf("Your request for %q was rejected.", request.Listing.Title)
	responseMsg := "Request rejected."
	if accept {
		title = "Request Accepted!"
		body = fmt.Sprintf("Your request for %q was accepted! You can now see the seller's contact info.", request.Listing.Title)
		responseMsg = "Request accepted! Buyer can now see your contact info."
	}
	s.notifier.SyncToUser(ctx, request.BuyerID, notify.Payload{Title: title, Body: body, Data: data})

	return updated, responseMsg, nil
}

// Status returns the caller's request for a listing, if any.
func (s *Service) Status(ctx context.Context, listingID, buyerID string) (*Request, error) {
	request, found, err := s.store.ExistingForBuyer(ctx, listingID, buyerID)
	if err != nil {
		return nil, apperr.Internal("Failed to get request status.", err)
	}
	if !found {
		return nil, nil
	}
	return &request, nil
}

// Cancel withdraws a pending request. Responded requests are immutable
// history here; Delete is the endpoint for clearing those.
func (s *Service) Cancel(ctx context.Context, requestID, buyerID string) error {
	request, found, err := s.store.ByID(ctx, requestID)
	if err != nil {
		return apperr.Internal("Failed to cancel request.", err)
	}
	if !found {
		return apperr.NotFound("Request not found.")
	}
	if request.BuyerID != buyerID {
		return apperr.Forbidden("You are not authorized to cancel this request.")
	}
	if request.Status != StatusRequested {
		return apperr.Conflict("Only pending requests can be cancelled.")
	}
	if err := s.store.Delete(ctx, requestID); err != nil {
		return apperr.Internal("Failed to cancel request.", err)
	}

	if request.Listing != nil {
		buyerName := "A buyer"
		actorName := "Buyer"
		data := map[string]string{
			"type":         "purchase_request_cancelled",
			"requestId":    requestID,
			"listingId":    request.ListingID,
			"buyerId":      buyerID,
			"listingTitle": request.Listing.Title,
			"iconKey":      "book",
		}
		if buyer, ok, err := s.store.UserSummary(ctx, buyerID); err == nil && ok {
			if name := strings.TrimSpace(buyer.Name); name != "" {
				buyerName = name
				actorName = name
			}
			if buyer.Image != "" {
				data["actorAvatarUrl"] = buyer.Image
			}
		}
		data["actorName"] = actorName

		s.notifier.QueueToUser(request.Listing.SellerID, notify.Payload{
			Title: "Purchase request cancelled",
			Body:  fmt.Sprintf("%s cancelled a request for %q.", buyerName, request.Listing.Title),
			Data:  data,
		})
	}
	return nil
}

// Delete removes a request in any state so either party can clear history.
// The counterpart is told the request is gone.
func (s *Service) Delete(ctx context.Context, requestID, userID string) error {
	request, found, err := s.store.ByID(ctx, requestID)
	if err != nil {
		return apperr.Internal("Failed to delete request.", err)
	}
	if !found {
		return apperr.NotFound("Request not found.")
	}
	if request.Listing == nil {
		return apperr.NotFound("Listing not found.")
	}
	if request.BuyerID != userID && request.Listing.SellerID != userID {
		return apperr.Forbidden("You are not authorized to delete this request.")
	}
	if err := s.store.Delete(ctx, requestID); err != nil {
		return apperr.Internal("Failed to delete request.", err)
	}

	counterpartID := request.Listing.SellerID
	if request.BuyerID != userID {
		counterpartID = request.BuyerID
	}
	s.notifier.QueueToUser(counterpartID, notify.Payload{
		Title: "Purchase request removed",
		Body:  fmt.Sprintf("A purchase request for %q was removed.", request.Listing.Title),
		Data: map[string]string{
			"type":      "purchase_request_removed",
			"requestId": requestID,
			"listingId": request.ListingID,
			"iconKey":   "book",
		},
	})
	return nil
}

// DeleteMany removes the authorized subset of a batch and reports how many
// were deleted.
func (s *Service) DeleteMany(ctx context.Context, requestIDs []string, userID string) (int, error) {
	if len(requestIDs) == 0 {
		return 0, nil
	}
	authorized, err := s.store.AuthorizedIDs(ctx, requestIDs, userID)
	if err != nil {
		return 0, apperr.Internal("Failed to delete requests.", err)
	}
	if len(authorized) == 0 {
		return 0, apperr.Forbidden("No authorized requests found to delete.")
	}
	count, err := s.store.DeleteMany(ctx, authorized)
	if err != nil {
		return 0, apperr.Internal("Failed to delete requests.", err)
	}
	return count, nil
}

package trust

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusshelf/campusshelf/internal/apperr"
	"github.com/campusshelf/campusshelf/internal/cache"
	"github.com/campusshelf/campusshelf/internal/notify"
)

// Notifier is the slice of the dispatcher the trust flows need.
type Notifier interface {
	QueueToUser(userID string, p notify.Payload)
}

// Service implements blocks, seller ratings and moderation reports.
type Service struct {
	store    Store
	cache    *cache.Client
	notifier Notifier
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewService(store Store, c *cache.Client, notifier Notifier, cacheTTL time.Duration, log *zap.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Service{store: store, cache: c, notifier: notifier, cacheTTL: cacheTTL, log: log}
}

// ===== Blocks =====

// BlockUser is idempotent: blocking an already blocked user succeeds.
func (s *Service) BlockUser(ctx context.Context, blockerID, blockedUserID, reason string) (string, error) {
	if blockerID == blockedUserID {
		return "", apperr.Validation("You cannot block yourself.")
	}
	exists, err := s.store.UserExists(ctx, blockedUserID)
	if err != nil {
		return "", apperr.Internal("Failed to block user.", err)
	}
	if !exists {
		return "", apperr.NotFound("User not found.")
	}
	already, err := s.store.BlockExists(ctx, blockerID, blockedUserID)
	if err != nil {
		return "", apperr.Internal("Failed to block user.", err)
	}
	if already {
		return "User already blocked.", nil
	}
	if err := s.store.InsertBlock(ctx, blockerID, blockedUserID, strings.TrimSpace(reason)); err != nil {
		return "", apperr.Internal("Failed to block user.", err)
	}
	return "User blocked successfully.", nil
}

func (s *Service) UnblockUser(ctx context.Context, blockerID, blockedUserID string) error {
	if err := s.store.DeleteBlock(ctx, blockerID, blockedUserID); err != nil {
		return apperr.Internal("Failed to unblock user.", err)
	}
	return nil
}

func (s *Service) ListBlocked(ctx context.Context, blockerID string) ([]Block, error) {
	blocks, err := s.store.ListBlocks(ctx, blockerID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch blocked users.", err)
	}
	return blocks, nil
}

// BlockedUserIDs is the symmetric exclusion set used by browse and messaging.
func (s *Service) BlockedUserIDs(ctx context.Context, userID string) ([]string, error) {
	return s.store.BlockedUserIDs(ctx, userID)
}

// IsBlockedBetween reports whether a block exists in either direction.
func (s *Service) IsBlockedBetween(ctx context.Context, userID, otherUserID string) (bool, error) {
	return s.store.IsBlockedBetween(ctx, userID, otherUserID)
}

// ===== Ratings =====

func (s *Service) RateSeller(ctx context.Context, sellerID, raterID, listingID string, rating int, review string) (Rating, error) {
	if sellerID == raterID {
		return Rating{}, apperr.Validation("You cannot rate yourself.")
	}
	if rating < 1 || rating > 5 {
		return Rating{}, apperr.Validation("Rating must be an integer between 1 and 5.")
	}
	blocked, err := s.store.IsBlockedBetween(ctx, sellerID, raterID)
	if err != nil {
		return Rating{}, apperr.Internal("Failed to submit rating.", err)
	}
	if blocked {
		return Rating{}, apperr.Forbidden("Rating is disabled while block rules are active between users.")
	}
	owner, found, err := s.store.ListingSeller(ctx, listingID)
	if err != nil {
		return Rating{}, apperr.Internal("Failed to submit rating.", err)
	}
	if !found || owner != sellerID {
		return Rating{}, apperr.Validation("This listing does not belong to the specified seller.")
	}
	interacted, err := s.store.HasAcceptedRequest(ctx, listingID, raterID)
	if err != nil {
		return Rating{}, apperr.Internal("Failed to submit rating.", err)
	}
	if !interacted {
		return Rating{}, apperr.Forbidden("You can rate sellers only after a request is accepted.")
	}

	saved, err := s.store.UpsertRating(ctx, sellerID, raterID, listingID, rating, strings.TrimSpace(review))
	if err != nil {
		return Rating{}, apperr.Internal("Failed to submit rating.", err)
	}
	s.cache.Del(ctx, reputationCacheKey(sellerID))
	return saved, nil
}

func reputationCacheKey(sellerID string) string {
	return "reputation:" + sellerID
}

func (s *Service) SellerReputation(ctx context.Context, sellerID string) (Reputation, error) {
	key := reputationCacheKey(sellerID)
	if cached := s.cache.Get(ctx, key); cached != "" {
		var rep Reputation
		if err := json.Unmarshal([]byte(cached), &rep); err == nil {
			return rep, nil
		}
	}

	rep, err := s.store.Reputation(ctx, sellerID)
	if err != nil {
		return Reputation{}, apperr.Internal("Failed to fetch seller reputation.", err)
	}
	rep.AverageRating = math.Round(rep.AverageRating*10) / 10

	if raw, err := json.Marshal(rep); err == nil {
		s.cache.Set(ctx, key, string(raw), s.cacheTTL)
	}
	return rep, nil
}

// ===== Reports =====

func (s *Service) CreateReport(ctx context.Context, reporterID, reportedUserID string, listingID *string, category, description string) (Report, error) {
	if reporterID == reportedUserID {
		return Report{}, apperr.Validation("You cannot report yourself.")
	}
	if !validCategory(category) {
		return Report{}, apperr.Validation("Invalid report category.")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return Report{}, apperr.Validation("Please provide a report description.")
	}
	if listingID != nil && *listingID != "" {
		_, found, err := s.store.ListingSeller(ctx, *listingID)
		if err != nil {
			return Report{}, apperr.Internal("Failed to submit report.", err)
		}
		if !found {
			return Report{}, apperr.NotFound("Listing not found.")
		}
	} else {
		listingID = nil
	}

	report, err := s.store.InsertReport(ctx, reporterID, reportedUserID, listingID, category, description)
	if err != nil {
		return Report{}, apperr.Internal("Failed to submit report.", err)
	}
	return report, nil
}

func (s *Service) MyReports(ctx context.Context, reporterID string) ([]Report, error) {
	reports, err := s.store.ReportsByReporter(ctx, reporterID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch reports.", err)
	}
	return reports, nil
}

func (s *Service) ModerationReports(ctx context.Context, status string) ([]Report, error) {
	if status != "" && !validStatus(status) {
		return nil, apperr.Validation("Invalid report status.")
	}
	reports, err := s.store.ListReports(ctx, status)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch reports.", err)
	}
	return reports, nil
}

// ReviewReport moves a report through the moderation workflow and notifies
// the reporter off the request path.
func (s *Service) ReviewReport(ctx context.Context, reportID, reviewerID, status, resolutionNotes string) (Report, error) {
	if !validStatus(status) {
		return Report{}, apperr.Validation("Invalid report status.")
	}
	report, found, err := s.store.UpdateReport(ctx, reportID, reviewerID, status, strings.TrimSpace(resolutionNotes))
	if err != nil {
		return Report{}, apperr.Internal("Failed to update report.", err)
	}
	if !found {
		return Report{}, apperr.NotFound("Report not found.")
	}

	if s.notifier != nil {
		s.notifier.QueueToUser(report.ReporterID, notify.Payload{
			Title: "Moderation update",
			Body:  "Your marketplace report is now marked as " + strings.ReplaceAll(status, "_", " ") + ".",
			Data: map[string]string{
				"type":     "admin_moderation_update",
				"reportId": report.ID,
				"status":   status,
				"iconKey":  "general",
			},
		})
	}
	return report, nil
}

// ===== Stats =====

func (s *Service) TrustStats(ctx context.Context) (Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return Stats{}, apperr.Internal("Failed to fetch trust stats.", err)
	}
	st.AverageRating = math.Round(st.AverageRating*10) / 10
	return st, nil
}

package trust

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/campusshelf/campusshelf/internal/apperr"
	"github.com/campusshelf/campusshelf/internal/notify"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UserExists(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) BlockExists(ctx context.Context, blockerID, blockedUserID string) (bool, error) {
	args := m.Called(ctx, blockerID, blockedUserID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) InsertBlock(ctx context.Context, blockerID, blockedUserID, reason string) error {
	args := m.Called(ctx, blockerID, blockedUserID, reason)
	return args.Error(0)
}

func (m *mockStore) DeleteBlock(ctx context.Context, blockerID, blockedUserID string) error {
	args := m.Called(ctx, blockerID, blockedUserID)
	return args.Error(0)
}

func (m *mockStore) ListBlocks(ctx context.Context, blockerID string) ([]Block, error) {
	args := m.Called(ctx, blockerID)
	return args.Get(0).([]Block), args.Error(1)
}

func (m *mockStore) BlockedUserIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) IsBlockedBetween(ctx context.Context, userID, otherUserID string) (bool, error) {
	args := m.Called(ctx, userID, otherUserID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ListingSeller(ctx context.Context, listingID string) (string, bool, error) {
	args := m.Called(ctx, listingID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStore) HasAcceptedRequest(ctx context.Context, listingID, buyerID string) (bool, error) {
	args := m.Called(ctx, listingID, buyerID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) UpsertRating(ctx context.Context, sellerID, raterID, listingID string, rating int, review string) (Rating, error) {
	args := m.Called(ctx, sellerID, raterID, listingID, rating, review)
	return args.Get(0).(Rating), args.Error(1)
}

func (m *mockStore) Reputation(ctx context.Context, sellerID string) (Reputation, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).(Reputation), args.Error(1)
}

func (m *mockStore) InsertReport(ctx context.Context, reporterID, reportedUserID string, listingID *string, category, description string) (Report, error) {
	args := m.Called(ctx, reporterID, reportedUserID, listingID, category, description)
	return args.Get(0).(Report), args.Error(1)
}

func (m *mockStore) ReportsByReporter(ctx context.Context, reporterID string) ([]Report, error) {
	args := m.Called(ctx, reporterID)
	return args.Get(0).([]Report), args.Error(1)
}

func (m *mockStore) ListReports(ctx context.Context, status string) ([]Report, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]Report), args.Error(1)
}

func (m *mockStore) UpdateReport(ctx context.Context, reportID, reviewerID, status, resolutionNotes string) (Report, bool, error) {
	args := m.Called(ctx, reportID, reviewerID, status, resolutionNotes)
	return args.Get(0).(Report), args.Bool(1), args.Error(2)
}

func (m *mockStore) Stats(ctx context.Context) (Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(Stats), args.Error(1)
}

type fakeNotifier struct {
	users    []string
	payloads []notify.Payload
}

func (f *fakeNotifier) QueueToUser(userID string, p notify.Payload) {
	f.users = append(f.users, userID)
	f.payloads = append(f.payloads, p)
}

func newTestService(store Store, n Notifier) *Service {
	return NewService(store, nil, n, time.Minute, zap.NewNop())
}

func TestBlockSelfRejected(t *testing.T) {
	svc := newTestService(new(mockStore), nil)

	_, err := svc.BlockUser(context.Background(), "u1", "u1", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.EqualError(t, err, "You cannot block yourself.")
}

func TestBlockUnknownUserNotFound(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, nil)
	ctx := context.Background()

	store.On("UserExists", ctx, "ghost").Return(false, nil)

	_, err := svc.BlockUser(ctx, "u1", "ghost", "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestBlockIdempotent(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, nil)
	ctx := context.Background()

	store.On("UserExists", ctx, "u2").Return(true, nil)
	store.On("BlockExists", ctx, "u1", "u2").Return(true, nil)

	msg, err := svc.BlockUser(ctx, "u1", "u2", "")
	assert.NoError(t, err)
	assert.Equal(t, "User already blocked.", msg)
	store.AssertNotCalled(t, "InsertBlock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBlockInserts(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, nil)
	ctx := context.Background()

	store.On("UserExists", ctx, "u2").Return(true, nil)
	store.On("BlockExists", ctx, "u1", "u2").Return(false, nil)
	store.On("InsertBlock", ctx, "u1", "u2", "spam messages").Return(nil)

	msg, err := svc.BlockUser(ctx, "u1", "u2", "  spam messages  ")
	assert.NoError(t, err)
	assert.Equal(t, "User blocked successfully.", msg)
	store.AssertExpectations(t)
}

func TestRateSellerGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("self rating", func(t *testing.T) {
		svc := newTestService(new(mockStore), nil)
		_, err := svc.RateSeller(ctx, "u1", "u1", "l1", 5, "")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("out of range", func(t *testing.T) {
		svc := newTestService(new(mockStore), nil)
		_, err := svc.RateSeller(ctx, "seller", "buyer", "l1", 6, "")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		_, err = svc.RateSeller(ctx, "seller", "buyer", "l1", 0, "")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("blocked pair", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("IsBlockedBetween", ctx, "seller", "buyer").Return(true, nil)

		_, err := svc.RateSeller(ctx, "seller", "buyer", "l1", 4, "")
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("wrong seller", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("IsBlockedBetween", ctx, "seller", "buyer").Return(false, nil)
		store.On("ListingSeller", ctx, "l1").Return("someone-else", true, nil)

		_, err := svc.RateSeller(ctx, "seller", "buyer", "l1", 4, "")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.EqualError(t, err, "This listing does not belong to the specified seller.")
	})

	t.Run("no accepted request", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("IsBlockedBetween", ctx, "seller", "buyer").Return(false, nil)
		store.On("ListingSeller", ctx, "l1").Return("seller", true, nil)
		store.On("HasAcceptedRequest", ctx, "l1", "buyer").Return(false, nil)

		_, err := svc.RateSeller(ctx, "seller", "buyer", "l1", 4, "")
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
		assert.EqualError(t, err, "You can rate sellers only after a request is accepted.")
	})
}

func TestRateSellerUpserts(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, nil)
	ctx := context.Background()

	store.On("IsBlockedBetween", ctx, "seller", "buyer").Return(false, nil)
	store.On("ListingSeller", ctx, "l1").Return("seller", true, nil)
	store.On("HasAcceptedRequest", ctx, "l1", "buyer").Return(true, nil)
	store.On("UpsertRating", ctx, "seller", "buyer", "l1", 4, "great seller").
		Return(Rating{ID: "r1", Rating: 4}, nil)

	saved, err := svc.RateSeller(ctx, "seller", "buyer", "l1", 4, " great seller ")
	assert.NoError(t, err)
	assert.Equal(t, "r1", saved.ID)
	store.AssertExpectations(t)
}

func TestCreateReportValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("self report", func(t *testing.T) {
		svc := newTestService(new(mockStore), nil)
		_, err := svc.CreateReport(ctx, "u1", "u1", nil, "spam", "desc")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("bad category", func(t *testing.T) {
		svc := newTestService(new(mockStore), nil)
		_, err := svc.CreateReport(ctx, "u1", "u2", nil, "rude", "desc")
		assert.EqualError(t, err, "Invalid report category.")
	})

	t.Run("empty description", func(t *testing.T) {
		svc := newTestService(new(mockStore), nil)
		_, err := svc.CreateReport(ctx, "u1", "u2", nil, "fraud", "   ")
		assert.EqualError(t, err, "Please provide a report description.")
	})

	t.Run("unknown listing", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		listing := "l-missing"
		store.On("ListingSeller", ctx, listing).Return("", false, nil)

		_, err := svc.CreateReport(ctx, "u1", "u2", &listing, "fraud", "sold a fake")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestReviewReportNotifiesReporter(t *testing.T) {
	store := new(mockStore)
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)
	ctx := context.Background()

	store.On("UpdateReport", ctx, "rep1", "admin1", "in_review", "looking into it").
		Return(Report{ID: "rep1", ReporterID: "u1", Status: "in_review"}, true, nil)

	report, err := svc.ReviewReport(ctx, "rep1", "admin1", "in_review", "looking into it")
	assert.NoError(t, err)
	assert.Equal(t, "in_review", report.Status)

	if assert.Len(t, notifier.payloads, 1) {
		assert.Equal(t, []string{"u1"}, notifier.users)
		p := notifier.payloads[0]
		assert.Equal(t, "Moderation update", p.Title)
		assert.Equal(t, "Your marketplace report is now marked as in review.", p.Body)
		assert.Equal(t, "admin_moderation_update", p.Data["type"])
	}
}

func TestReviewReportRejectsBadStatus(t *testing.T) {
	svc := newTestService(new(mockStore), nil)

	_, err := svc.ReviewReport(context.Background(), "rep1", "admin1", "closed", "")
	assert.EqualError(t, err, "Invalid report status.")
}

func TestReviewReportMissing(t *testing.T) {
	store := new(mockStore)
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)
	ctx := context.Background()

	store.On("UpdateReport", ctx, "rep404", "admin1", "resolved", "").
		Return(Report{}, false, nil)

	_, err := svc.ReviewReport(ctx, "rep404", "admin1", "resolved", "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, notifier.payloads)
}

func TestTrustStatsRoundsAverage(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, nil)
	ctx := context.Background()

	store.On("Stats", ctx).Return(Stats{RatingsCount: 3, AverageRating: 4.3333333}, nil)

	st, err := svc.TrustStats(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 4.3, st.AverageRating)
}

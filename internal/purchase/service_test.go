package purchase

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/campusshelf/campusshelf/internal/apperr"
	"github.com/campusshelf/campusshelf/internal/notify"
	"github.com/campusshelf/campusshelf/internal/user"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListingByID(ctx context.Context, listingID string) (ListingInfo, bool, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).(ListingInfo), args.Bool(1), args.Error(2)
}

func (m *mockStore) UserSummary(ctx context.Context, userID string) (user.Summary, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(user.Summary), args.Bool(1), args.Error(2)
}

func (m *mockStore) ExistingForBuyer(ctx context.Context, listingID, buyerID string) (Request, bool, error) {
	args := m.Called(ctx, listingID, buyerID)
	return args.Get(0).(Request), args.Bool(1), args.Error(2)
}

func (m *mockStore) Insert(ctx context.Context, listingID, buyerID, message string) (Request, error) {
	args := m.Called(ctx, listingID, buyerID, message)
	return args.Get(0).(Request), args.Error(1)
}

func (m *mockStore) ByID(ctx context.Context, requestID string) (Request, bool, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).(Request), args.Bool(1), args.Error(2)
}

func (m *mockStore) ForListing(ctx context.Context, listingID string) ([]Request, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).([]Request), args.Error(1)
}

func (m *mockStore) Mine(ctx context.Context, buyerID string) ([]Request, error) {
	args := m.Called(ctx, buyerID)
	return args.Get(0).([]Request), args.Error(1)
}

func (m *mockStore) Incoming(ctx context.Context, sellerID string) ([]Request, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).([]Request), args.Error(1)
}

func (m *mockStore) MarkResponded(ctx context.Context, requestID, status string) (Request, bool, error) {
	args := m.Called(ctx, requestID, status)
	return args.Get(0).(Request), args.Bool(1), args.Error(2)
}

func (m *mockStore) Delete(ctx context.Context, requestID string) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

func (m *mockStore) AuthorizedIDs(ctx context.Context, requestIDs []string, userID string) ([]string, error) {
	args := m.Called(ctx, requestIDs, userID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) DeleteMany(ctx context.Context, requestIDs []string) (int, error) {
	args := m.Called(ctx, requestIDs)
	return args.Int(0), args.Error(1)
}

type fakeBlocks struct {
	blocked bool
}

func (f *fakeBlocks) IsBlockedBetween(ctx context.Context, a, b string) (bool, error) {
	return f.blocked, nil
}

type fakeNotifier struct {
	sync    []notify.Payload
	queued  []notify.Payload
	targets []string
}

func (f *fakeNotifier) SyncToUser(ctx context.Context, userID string, p notify.Payload) {
	f.targets = append(f.targets, userID)
	f.sync = append(f.sync, p)
}

func (f *fakeNotifier) QueueToUser(userID string, p notify.Payload) {
	f.targets = append(f.targets, userID)
	f.queued = append(f.queued, p)
}

func newTestService(store Store, blocked bool, n *fakeNotifier) *Service {
	if n == nil {
		n = &fakeNotifier{}
	}
	return NewService(store, &fakeBlocks{blocked: blocked}, n, zap.NewNop())
}

func availableListing() ListingInfo {
	return ListingInfo{ID: "l1", SellerID: "seller", Title: "Calculus I", Status: "available"}
}

func TestCreateRejectsOwnListing(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	store.On("ListingByID", ctx, "l1").Return(availableListing(), true, nil)

	_, err := svc.Create(ctx, "l1", "seller", "")
	assert.EqualError(t, err, "You cannot request to buy your own book.")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateRejectsBlockedPair(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, true, nil)
	ctx := context.Background()

	store.On("ListingByID", ctx, "l1").Return(availableListing(), true, nil)

	_, err := svc.Create(ctx, "l1", "buyer", "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestCreateRejectsUnavailableListing(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	sold := availableListing()
	sold.Status = "sold"
	store.On("ListingByID", ctx, "l1").Return(sold, true, nil)

	_, err := svc.Create(ctx, "l1", "buyer", "")
	assert.EqualError(t, err, "This book is no longer available.")
}

func TestCreateDuplicateCarriesExistingStatus(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	store.On("ListingByID", ctx, "l1").Return(availableListing(), true, nil)
	store.On("ExistingForBuyer", ctx, "l1", "buyer").
		Return(Request{ID: "r1", Status: StatusRejected}, true, nil)

	_, err := svc.Create(ctx, "l1", "buyer", "")
	assert.EqualError(t, err, "Your previous request was rejected.")

	var appErr *apperr.Error
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, StatusRejected, appErr.Meta["existingStatus"])
	}
}

func TestCreateUniqueViolationBecomesConflict(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	store.On("ListingByID", ctx, "l1").Return(availableListing(), true, nil)
	store.On("ExistingForBuyer", ctx, "l1", "buyer").
		Return(Request{}, false, nil).Once()
	store.On("Insert", ctx, "l1", "buyer", "").
		Return(Request{}, &pgconn.PgError{Code: "23505"})
	store.On("ExistingForBuyer", ctx, "l1", "buyer").
		Return(Request{ID: "r1", Status: StatusRequested}, true, nil).Once()

	_, err := svc.Create(ctx, "l1", "buyer", "")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.EqualError(t, err, "You have already requested this book.")
}

func TestCreateNotifiesSeller(t *testing.T) {
	store := new(mockStore)
	notifier := &fakeNotifier{}
	svc := newTestService(store, false, notifier)
	ctx := context.Background()

	store.On("ListingByID", ctx, "l1").Return(availableListing(), true, nil)
	store.On("ExistingForBuyer", ctx, "l1", "buyer").Return(Request{}, false, nil)
	store.On("Insert", ctx, "l1", "buyer", "still available?").
		Return(Request{ID: "r1", ListingID: "l1", BuyerID: "buyer", Status: StatusRequested}, nil)
	store.On("UserSummary", ctx, "buyer").
		Return(user.Summary{ID: "buyer", Name: "Asha"}, true, nil)

	request, err := svc.Create(ctx, "l1", "buyer", " still available? ")
	assert.NoError(t, err)
	assert.Equal(t, "r1", request.ID)

	if assert.Len(t, notifier.sync, 1) {
		assert.Equal(t, []string{"seller"}, notifier.targets)
		p := notifier.sync[0]
		assert.Equal(t, "New Purchase Request!", p.Title)
		assert.Equal(t, "Asha is interested in your book: Calculus I.", p.Body)
		assert.Equal(t, "purchase_request", p.Data["type"])
		assert.Equal(t, "Asha", p.Data["buyerName"])
	}
}

func TestRespondRequiresSeller(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	listing := availableListing()
	store.On("ByID", ctx, "r1").Return(Request{
		ID: "r1", ListingID: "l1", BuyerID: "buyer",
		Status: StatusRequested, Listing: &listing,
	}, true, nil)

	_, _, err := svc.Respond(ctx, "r1", "stranger", true)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestRespondAlreadyHandled(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	listing := availableListing()
	store.On("ByID", ctx, "r1").Return(Request{
		ID: "r1", ListingID: "l1", BuyerID: "buyer",
		Status: StatusAccepted, Listing: &listing,
	}, true, nil)

	_, _, err := svc.Respond(ctx, "r1", "seller", true)
	assert.EqualError(t, err, "This request has already been responded to.")
	store.AssertNotCalled(t, "MarkResponded", mock.Anything, mock.Anything, mock.Anything)
}

func TestRespondLosesRace(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	listing := availableListing()
	store.On("ByID", ctx, "r1").Return(Request{
		ID: "r1", ListingID: "l1", BuyerID: "buyer",
		Status: StatusRequested, Listing: &listing,
	}, true, nil)
	store.On("MarkResponded", ctx, "r1", StatusAccepted).Return(Request{}, false, nil)

	_, _, err := svc.Respond(ctx, "r1", "seller", true)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRespondAcceptNotifiesBuyer(t *testing.T) {
	store := new(mockStore)
	notifier := &fakeNotifier{}
	svc := newTestService(store, false, notifier)
	ctx := context.Background()

	listing := availableListing()
	store.On("ByID", ctx, "r1").Return(Request{
		ID: "r1", ListingID: "l1", BuyerID: "buyer",
		Status: StatusRequested, Listing: &listing,
	}, true, nil)
	store.On("MarkResponded", ctx, "r1", StatusAccepted).
		Return(Request{ID: "r1", Status: StatusAccepted}, true, nil)
	store.On("UserSummary", ctx, "seller").
		Return(user.Summary{ID: "seller", Name: "Binod"}, true, nil)

	updated, msg, err := svc.Respond(ctx, "r1", "seller", true)
	assert.NoError(t, err)
	assert.Equal(t, StatusAccepted, updated.Status)
	assert.Equal(t, "Request accepted! Buyer can now see your contact info.", msg)

	if assert.Len(t, notifier.sync, 1) {
		p := notifier.sync[0]
		assert.Equal(t, "Request Accepted!", p.Title)
		assert.Equal(t, "request_response", p.Data["type"])
		assert.Equal(t, StatusAccepted, p.Data["status"])
	}
}

func TestCancelOnlyPending(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	listing := availableListing()
	store.On("ByID", ctx, "r1").Return(Request{
		ID: "r1", ListingID: "l1", BuyerID: "buyer",
		Status: StatusAccepted, Listing: &listing,
	}, true, nil)

	err := svc.Cancel(ctx, "r1", "buyer")
	assert.EqualError(t, err, "Only pending requests can be cancelled.")
}

func TestCancelQueuesSellerNotice(t *testing.T) {
	store := new(mockStore)
	notifier := &fakeNotifier{}
	svc := newTestService(store, false, notifier)
	ctx := context.Background()

	listing := availableListing()
	store.On("ByID", ctx, "r1").Return(Request{
		ID: "r1", ListingID: "l1", BuyerID: "buyer",
		Status: StatusRequested, Listing: &listing,
	}, true, nil)
	store.On("Delete", ctx, "r1").Return(nil)
	store.On("UserSummary", ctx, "buyer").
		Return(user.Summary{ID: "buyer", Name: "Asha"}, true, nil)

	assert.NoError(t, svc.Cancel(ctx, "r1", "buyer"))
	if assert.Len(t, notifier.queued, 1) {
		assert.Equal(t, []string{"seller"}, notifier.targets)
		assert.Equal(t, "Purchase request cancelled", notifier.queued[0].Title)
	}
	assert.Empty(t, notifier.sync)
}

func TestDeleteNotifiesCounterpart(t *testing.T) {
	store := new(mockStore)
	notifier := &fakeNotifier{}
	svc := newTestService(store, false, notifier)
	ctx := context.Background()

	listing := availableListing()
	store.On("ByID", ctx, "r1").Return(Request{
		ID: "r1", ListingID: "l1", BuyerID: "buyer",
		Status: StatusRejected, Listing: &listing,
	}, true, nil)
	store.On("Delete", ctx, "r1").Return(nil)

	// Seller deletes, buyer is told.
	assert.NoError(t, svc.Delete(ctx, "r1", "seller"))
	assert.Equal(t, []string{"buyer"}, notifier.targets)
	if assert.Len(t, notifier.queued, 1) {
		assert.Equal(t, "Purchase request removed", notifier.queued[0].Title)
	}
}

func TestDeleteManyAuthorizedSubset(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	ids := []string{"r1", "r2", "r3"}
	store.On("AuthorizedIDs", ctx, ids, "buyer").Return([]string{"r1", "r3"}, nil)
	store.On("DeleteMany", ctx, []string{"r1", "r3"}).Return(2, nil)

	count, err := svc.DeleteMany(ctx, ids, "buyer")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeleteManyNoneAuthorized(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	store.On("AuthorizedIDs", ctx, []string{"r1"}, "buyer").Return([]string{}, nil)

	_, err := svc.DeleteMany(ctx, []string{"r1"}, "buyer")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	store.AssertNotCalled(t, "DeleteMany", mock.Anything, mock.Anything)
}

func TestDeleteManyEmptyInput(t *testing.T) {
	svc := newTestService(new(mockStore), false, nil)

	count, err := svc.DeleteMany(context.Background(), nil, "buyer")
	assert.NoError(t, err)
	assert.Zero(t, count)
}

func TestStatusAbsentIsNil(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, false, nil)
	ctx := context.Background()

	store.On("ExistingForBuyer", ctx, "l1", "buyer").Return(Request{}, false, nil)

	request, err := svc.Status(ctx, "l1", "buyer")
	assert.NoError(t, err)
	assert.Nil(t, request)
}

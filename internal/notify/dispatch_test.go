package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingInbox struct {
	mu         sync.Mutex
	direct     []string
	broadcasts []string
	failDirect bool
}

func (r *recordingInbox) CreateDirect(ctx context.Context, recipientID, ntype, title, body string, data map[string]string) error {
	if r.failDirect {
		return errors.New("insert failed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct = append(r.direct, recipientID+"/"+ntype)
	return nil
}

func (r *recordingInbox) CreateBroadcast(ctx context.Context, audience, ntype, title, body string, data map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, audience+"/"+ntype)
	return nil
}

func (r *recordingInbox) directCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.direct)
}

type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) DeviceToken(ctx context.Context, userID string) (string, error) {
	return s.token, s.err
}

type staticPolicy struct {
	allowed bool
}

func (s *staticPolicy) PushAllowed(ctx context.Context, userID, ntype string) bool {
	return s.allowed
}

type recordingPusher struct {
	ready   bool
	tokens  []string
	topics  []string
	sendErr error
}

func (r *recordingPusher) Ready() bool { return r.ready }

func (r *recordingPusher) SendToToken(ctx context.Context, token string, p Payload) error {
	r.tokens = append(r.tokens, token)
	return r.sendErr
}

func (r *recordingPusher) SendToTopic(ctx context.Context, topic string, p Payload) error {
	r.topics = append(r.topics, topic)
	return r.sendErr
}

func newDispatcher(inbox *recordingInbox, tokens *staticTokens, policy PushPolicy, pusher Pusher) *Dispatcher {
	return NewDispatcher(inbox, tokens, policy, pusher, time.Second, zap.NewNop())
}

func payload() Payload {
	return Payload{
		Title: "New Purchase Request!",
		Body:  "Asha is interested in your book: Calculus I.",
		Data:  map[string]string{"type": "purchase_request"},
	}
}

func TestSendToUserWritesInboxAndPushes(t *testing.T) {
	inbox := &recordingInbox{}
	pusher := &recordingPusher{ready: true}
	d := newDispatcher(inbox, &staticTokens{token: "tok-1"}, &staticPolicy{allowed: true}, pusher)

	d.SendToUser(context.Background(), "u1", payload())

	assert.Equal(t, []string{"u1/purchase_request"}, inbox.direct)
	assert.Equal(t, []string{"tok-1"}, pusher.tokens)
}

func TestSendToUserPushSkippedWhenProviderNotReady(t *testing.T) {
	inbox := &recordingInbox{}
	pusher := &recordingPusher{ready: false}
	d := newDispatcher(inbox, &staticTokens{token: "tok-1"}, &staticPolicy{allowed: true}, pusher)

	d.SendToUser(context.Background(), "u1", payload())

	// In-app row still lands.
	assert.Len(t, inbox.direct, 1)
	assert.Empty(t, pusher.tokens)
}

func TestSendToUserPushSkippedWithoutToken(t *testing.T) {
	inbox := &recordingInbox{}
	pusher := &recordingPusher{ready: true}
	d := newDispatcher(inbox, &staticTokens{token: ""}, &staticPolicy{allowed: true}, pusher)

	d.SendToUser(context.Background(), "u1", payload())

	assert.Len(t, inbox.direct, 1)
	assert.Empty(t, pusher.tokens)
}

func TestSendToUserPreferenceGatesPushOnly(t *testing.T) {
	inbox := &recordingInbox{}
	pusher := &recordingPusher{ready: true}
	d := newDispatcher(inbox, &staticTokens{token: "tok-1"}, &staticPolicy{allowed: false}, pusher)

	d.SendToUser(context.Background(), "u1", payload())

	assert.Len(t, inbox.direct, 1)
	assert.Empty(t, pusher.tokens)
}

func TestSendToUserInboxFailureStillPushes(t *testing.T) {
	inbox := &recordingInbox{failDirect: true}
	pusher := &recordingPusher{ready: true}
	d := newDispatcher(inbox, &staticTokens{token: "tok-1"}, &staticPolicy{allowed: true}, pusher)

	d.SendToUser(context.Background(), "u1", payload())

	assert.Empty(t, inbox.direct)
	assert.Equal(t, []string{"tok-1"}, pusher.tokens)
}

func TestSendToUserDataOnlyPayloadSkipsInbox(t *testing.T) {
	inbox := &recordingInbox{}
	pusher := &recordingPusher{ready: true}
	d := newDispatcher(inbox, &staticTokens{token: "tok-1"}, &staticPolicy{allowed: true}, pusher)

	d.SendToUser(context.Background(), "u1", Payload{Data: map[string]string{"type": "chat_message"}})

	assert.Empty(t, inbox.direct)
	assert.Equal(t, []string{"tok-1"}, pusher.tokens)
}

func TestSendToTopicKnownTopicWritesBroadcast(t *testing.T) {
	inbox := &recordingInbox{}
	pusher := &recordingPusher{ready: true}
	d := newDispatcher(inbox, &staticTokens{}, nil, pusher)

	d.SendToTopic(context.Background(), "books", Payload{
		Title: "New book listed!",
		Body:  `"Calculus I" is now available.`,
	})

	assert.Equal(t, []string{"all/book_listed"}, inbox.broadcasts)
	assert.Equal(t, []string{"books"}, pusher.topics)
}

func TestSendToTopicUnknownTopicPushesOnly(t *testing.T) {
	inbox := &recordingInbox{}
	pusher := &recordingPusher{ready: true}
	d := newDispatcher(inbox, &staticTokens{}, nil, pusher)

	d.SendToTopic(context.Background(), "weather", Payload{Title: "Storm", Body: "Stay inside."})

	assert.Empty(t, inbox.broadcasts)
	assert.Equal(t, []string{"weather"}, pusher.topics)
}

func TestSendToTopicTitleFromData(t *testing.T) {
	inbox := &recordingInbox{}
	d := newDispatcher(inbox, &staticTokens{}, nil, &recordingPusher{})

	d.SendToTopic(context.Background(), "events", Payload{
		Data: map[string]string{"title": "Career fair", "body": "Main hall, 10am."},
	})

	assert.Equal(t, []string{"all/event_published"}, inbox.broadcasts)
}

func TestQueueToUserWithoutQueueFallsBack(t *testing.T) {
	inbox := &recordingInbox{}
	d := newDispatcher(inbox, &staticTokens{}, nil, nil)

	d.QueueToUser("u1", payload())

	assert.Eventually(t, func() bool {
		return inbox.directCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPayloadType(t *testing.T) {
	assert.Equal(t, "purchase_request", payload().Type())
	assert.Equal(t, "user_notification", Payload{Title: "hi", Body: "there"}.Type())
}

func TestToggleForType(t *testing.T) {
	assert.Equal(t, "marketplaceAlerts", ToggleForType("purchase_request"))
	assert.Equal(t, "marketplaceAlerts", ToggleForType("book_listed"))
	assert.Equal(t, "adminAlerts", ToggleForType("admin_moderation_update"))
	assert.Equal(t, "eventReminders", ToggleForType("event_published"))
	assert.Equal(t, "", ToggleForType("user_notification"))
}

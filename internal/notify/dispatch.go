package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InboxWriter persists the durable in-app channel.
type InboxWriter interface {
	CreateDirect(ctx context.Context, recipientID, ntype, title, body string, data map[string]string) error
	CreateBroadcast(ctx context.Context, audience, ntype, title, body string, data map[string]string) error
}

// TokenLookup resolves a user's registered push token ("" when none).
type TokenLookup interface {
	DeviceToken(ctx context.Context, userID string) (string, error)
}

// PushPolicy decides whether a push for this notification type may reach the
// user (preference toggles). The in-app row is written regardless.
type PushPolicy interface {
	PushAllowed(ctx context.Context, userID, ntype string) bool
}

// Dispatcher fans one payload out across the two channels. The in-app row is
// the durable source of truth and is always attempted first; push is layered
// on top, best effort. The two attempts share no failure domain: either can
// fail without affecting the other, and no failure ever reaches the caller.
type Dispatcher struct {
	inbox   InboxWriter
	tokens  TokenLookup
	policy  PushPolicy
	pusher  Pusher
	queue   *asynq.Client
	timeout time.Duration
	log     *zap.Logger
}

func NewDispatcher(inbox InboxWriter, tokens TokenLookup, policy PushPolicy, pusher Pusher, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		inbox:   inbox,
		tokens:  tokens,
		policy:  policy,
		pusher:  pusher,
		timeout: timeout,
		log:     log,
	}
}

// SetQueue attaches the task queue client used by the Queue* entry points.
func (d *Dispatcher) SetQueue(client *asynq.Client) {
	d.queue = client
}

// SendToUser delivers a direct notification: in-app row first, then a push
// attempt if the provider is ready, the user allows the category, and a
// device token is registered. Every failure is logged and swallowed.
func (d *Dispatcher) SendToUser(ctx context.Context, userID string, p Payload) {
	ntype := p.Type()

	if p.Title != "" && p.Body != "" {
		if err := d.inbox.CreateDirect(ctx, userID, ntype, p.Title, p.Body, p.Data); err != nil {
			d.log.Error("failed to create in-app notification",
				zap.String("user_id", userID), zap.String("type", ntype), zap.Error(err))
		}
	}

	if d.pusher == nil || !d.pusher.Ready() {
		d.log.Debug("push provider not ready, skipping push", zap.String("user_id", userID))
		return
	}

	if d.policy != nil && !d.policy.PushAllowed(ctx, userID, ntype) {
		d.log.Debug("push suppressed by user preference",
			zap.String("user_id", userID), zap.String("type", ntype))
		return
	}

	token, err := d.tokens.DeviceToken(ctx, userID)
	if err != nil {
		d.log.Error("failed to look up device token", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if token == "" {
		d.log.Warn("no device token registered, push skipped", zap.String("user_id", userID))
		return
	}

	if err := d.pusher.SendToToken(ctx, token, p); err != nil {
		d.log.Error("push send failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	d.log.Info("push sent", zap.String("user_id", userID), zap.String("type", ntype))
}

// SendToTopic delivers a broadcast: for recognized topics an audience in-app
// row is written, then a topic push if the provider is ready.
func (d *Dispatcher) SendToTopic(ctx context.Context, topic string, p Payload) {
	title := p.derivedTitle()
	body := p.derivedBody()

	if ntype := broadcastType(topic); ntype != "" && title != "" && body != "" {
		if err := d.inbox.CreateBroadcast(ctx, "all", ntype, title, body, p.Data); err != nil {
			d.log.Error("failed to create in-app broadcast",
				zap.String("topic", topic), zap.Error(err))
		}
	}

	if d.pusher == nil || !d.pusher.Ready() {
		d.log.Debug("push provider not ready, skipping topic push", zap.String("topic", topic))
		return
	}

	if err := d.pusher.SendToTopic(ctx, topic, p); err != nil {
		d.log.Error("topic push failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	d.log.Info("topic push sent", zap.String("topic", topic))
}

// SyncToUser is the critical-path entry point: the caller waits for the
// delivery attempt, but never longer than the configured timeout.
func (d *Dispatcher) SyncToUser(ctx context.Context, userID string, p Payload) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	d.SendToUser(ctx, userID, p)
}

// QueueToUser is the ambient entry point: the delivery runs as a detached
// task so the triggering operation pays no latency. Without a queue client
// it degrades to a bounded background goroutine.
func (d *Dispatcher) QueueToUser(userID string, p Payload) {
	if d.queue == nil {
		go d.detached(func(ctx context.Context) { d.SendToUser(ctx, userID, p) })
		return
	}

	raw, err := json.Marshal(userTask{UserID: userID, Payload: p})
	if err != nil {
		d.log.Error("failed to encode notification task", zap.Error(err))
		return
	}
	if _, err := d.queue.Enqueue(asynq.NewTask(TaskNotifyUser, raw), asynq.Queue(queueName)); err != nil {
		d.log.Error("failed to enqueue notification task", zap.Error(err))
		go d.detached(func(ctx context.Context) { d.SendToUser(ctx, userID, p) })
	}
}

// QueueToTopic is QueueToUser for broadcasts.
func (d *Dispatcher) QueueToTopic(topic string, p Payload) {
	if d.queue == nil {
		go d.detached(func(ctx context.Context) { d.SendToTopic(ctx, topic, p) })
		return
	}

	raw, err := json.Marshal(topicTask{Topic: topic, Payload: p})
	if err != nil {
		d.log.Error("failed to encode broadcast task", zap.Error(err))
		return
	}
	if _, err := d.queue.Enqueue(asynq.NewTask(TaskNotifyTopic, raw), asynq.Queue(queueName)); err != nil {
		d.log.Error("failed to enqueue broadcast task", zap.Error(err))
		go d.detached(func(ctx context.Context) { d.SendToTopic(ctx, topic, p) })
	}
}

func (d *Dispatcher) detached(fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	fn(ctx)
}

package notify

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Pusher is the volatile delivery channel. Absence of a configured provider
// is an expected runtime state, so callers must check Ready first and treat
// false as degraded, not broken.
type Pusher interface {
	Ready() bool
	SendToToken(ctx context.Context, token string, p Payload) error
	SendToTopic(ctx context.Context, topic string, p Payload) error
}

type fcmState int

const (
	fcmUninitialized fcmState = iota
	fcmReady
	fcmFailed
)

// FCM wraps the Firebase messaging client behind an explicit lifecycle:
// uninitialized (no credentials), ready, or failed (credentials present but
// unusable). Configured exactly once at startup.
type FCM struct {
	state  fcmState
	client *messaging.Client
	log    *zap.Logger
}

// NewFCM initializes the push provider. An empty credentials path leaves the
// handle uninitialized, which is valid: push sends become no-ops.
func NewFCM(ctx context.Context, credentialsFile string, log *zap.Logger) *FCM {
	f := &FCM{log: log}

	if credentialsFile == "" {
		log.Warn("no Firebase credentials configured, push delivery disabled")
		return f
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		f.state = fcmFailed
		log.Error("failed to initialize Firebase app", zap.Error(err))
		return f
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		f.state = fcmFailed
		log.Error("failed to initialize Firebase messaging", zap.Error(err))
		return f
	}

	f.client = client
	f.state = fcmReady
	log.Info("Firebase messaging initialized")
	return f
}

func (f *FCM) Ready() bool {
	return f != nil && f.state == fcmReady
}

func (f *FCM) SendToToken(ctx context.Context, token string, p Payload) error {
	msg := &messaging.Message{
		Token: token,
		Data:  withClickAction(p.Data),
	}
	if p.Title != "" && p.Body != "" {
		msg.Notification = &messaging.Notification{Title: p.Title, Body: p.Body}
	}

	_, err := f.client.Send(ctx, msg)
	return err
}

func (f *FCM) SendToTopic(ctx context.Context, topic string, p Payload) error {
	msg := &messaging.Message{
		Topic: topic,
		Data:  withClickAction(p.Data),
	}
	if p.Title != "" && p.Body != "" {
		msg.Notification = &messaging.Notification{Title: p.Title, Body: p.Body}
	} else {
		// Data-only message: carry title/body in data so clients can render
		// it themselves.
		if p.Title != "" {
			msg.Data["title"] = p.Title
		}
		if p.Body != "" {
			msg.Data["body"] = p.Body
		}
	}

	_, err := f.client.Send(ctx, msg)
	return err
}

func withClickAction(data map[string]string) map[string]string {
	out := make(map[string]string, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["click_action"] = "FLUTTER_NOTIFICATION_CLICK"
	return out
}

package notify

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task type constants
const (
	TaskNotifyUser  = "notify:user"
	TaskNotifyTopic = "notify:topic"
)

const queueName = "notifications"

type userTask struct {
	UserID  string  `json:"user_id"`
	Payload Payload `json:"payload"`
}

type topicTask struct {
	Topic   string  `json:"topic"`
	Payload Payload `json:"payload"`
}

// Queue owns the Redis-backed task queue carrying ambient notification
// deliveries. Critical-path sends bypass it entirely.
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	log    *zap.Logger
}

func NewQueue(redisAddr string, log *zap.Logger) *Queue {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &Queue{
		client: asynq.NewClient(opts),
		server: asynq.NewServer(opts, asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				queueName: 10,
			},
		}),
		log: log,
	}
}

func (q *Queue) Client() *asynq.Client { return q.client }

// Start runs the in-process worker that drains queued deliveries through the
// dispatcher.
func (q *Queue) Start(d *Dispatcher) {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskNotifyUser, func(ctx context.Context, t *asynq.Task) error {
		var task userTask
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return err
		}
		d.SendToUser(ctx, task.UserID, task.Payload)
		return nil
	})
	mux.HandleFunc(TaskNotifyTopic, func(ctx context.Context, t *asynq.Task) error {
		var task topicTask
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return err
		}
		d.SendToTopic(ctx, task.Topic, task.Payload)
		return nil
	})

	go func() {
		if err := q.server.Run(mux); err != nil {
			q.log.Error("notification queue worker stopped", zap.Error(err))
		}
	}()

	q.log.Info("notification queue worker started")
}

// Close releases the client and stops the worker.
func (q *Queue) Close() {
	if q.client != nil {
		_ = q.client.Close()
	}
	if q.server != nil {
		q.server.Shutdown()
	}
}

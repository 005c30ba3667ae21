// Package broadcast pushes relayed recruitment outcomes to live subscribers
// over Redis pub/sub.
package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/outbox"
)

// Envelope is what subscribers of the channel receive.
type Envelope struct {
	Topic      string          `json:"topic"`
	EventID    uuid.UUID       `json:"eventId"`
	Sequence   int64           `json:"sequence"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	Payload    json.RawMessage `json:"payload"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisDispatcher struct {
	client  publisher
	channel string
}

func NewRedisDispatcher(client *redis.Client, channel string) *RedisDispatcher {
	return &RedisDispatcher{client: client, channel: channel}
}

// NewRedisClient parses url as a redis:// URL and falls back to treating it as
// a bare host:port.
func NewRedisClient(url string) *redis.Client {
	if opts, err := redis.ParseURL(url); err == nil {
		return redis.NewClient(opts)
	}
	return redis.NewClient(&redis.Options{Addr: url})
}

// Dispatch publishes one envelope. A publish with no subscribers still
// succeeds; only transport errors are retried by the relay.
func (d *RedisDispatcher) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	body, err := json.Marshal(Envelope{
		Topic:      msg.Meta.Topic,
		EventID:    msg.Meta.EventID,
		Sequence:   msg.Meta.Sequence,
		EnqueuedAt: msg.Meta.EnqueuedAt,
		Payload:    msg.Payload,
	})
	if err != nil {
		return errors.Wrap(err, "broadcast: marshal envelope")
	}
	if err := d.client.Publish(ctx, d.channel, body).Err(); err != nil {
		return errors.Wrapf(err, "broadcast: publish to %s", d.channel)
	}
	return nil
}

var _ outbox.Dispatcher = (*RedisDispatcher)(nil)

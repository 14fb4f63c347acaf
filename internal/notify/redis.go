package notify

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisFeed delivers notifications over Redis pub/sub so that several
// instances can share one change stream.
type RedisFeed struct {
	log    *zap.Logger
	client *redis.Client
	prefix string
}

func NewRedisFeed(logger *zap.Logger, client *redis.Client, prefix string) *RedisFeed {
	return &RedisFeed{
		log:    logger,
		client: client,
		prefix: prefix,
	}
}

func (f *RedisFeed) channel(topic string) string {
	return f.prefix + topic
}

func (f *RedisFeed) Publish(ctx context.Context, topic string) error {
	if err := f.client.Publish(ctx, f.channel(topic), "changed").Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic string, fn func()) (*Subscription, error) {
	ps := f.client.Subscribe(ctx, f.channel(topic))

	// wait for the subscription to be confirmed so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	ch := ps.Channel()
	go func() {
		for range ch {
			fn()
		}
		f.log.Debug("redis subscription closed", zap.String("topic", topic))
	}()

	return newSubscription(ps.Close), nil
}

// Close is a no-op; the redis client is owned by the caller.
func (f *RedisFeed) Close() error {
	return nil
}

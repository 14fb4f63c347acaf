package notify

import (
	"context"
	"sync"
)

// Topics carry no payload: a notification only says that something in the
// corresponding table changed.
const (
	TopicRooms    = "rooms_changed"
	TopicAccounts = "accounts_changed"
)

type Publisher interface {
	Publish(ctx context.Context, topic string) error
}

type Feed interface {
	Publisher
	// Subscribe registers fn to be called after every notification on topic.
	// fn runs on the feed's delivery goroutine and must not block.
	Subscribe(ctx context.Context, topic string, fn func()) (*Subscription, error)
	Close() error
}

// Subscription is a handle for a registered handler. Close is idempotent and
// the zero value is a subscription with nothing to release.
type Subscription struct {
	once  sync.Once
	close func() error
	err   error
}

func newSubscription(closeFn func() error) *Subscription {
	return &Subscription{close: closeFn}
}

func (s *Subscription) Close() error {
	s.once.Do(func() {
		if s.close != nil {
			s.err = s.close()
		}
	})
	return s.err
}

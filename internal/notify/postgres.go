package notify

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
)

// listener is the subset of *pq.Listener used by PgFeed.
type listener interface {
	Listen(channel string) error
	Unlisten(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Close() error
}

// PgFeed delivers notifications over Postgres LISTEN/NOTIFY using a single
// dedicated listener connection.
type PgFeed struct {
	log      *zap.Logger
	db       *sql.DB
	listener listener

	mu       sync.Mutex
	handlers map[string]map[uint64]func()
	nextId   uint64

	done chan struct{}
}

func NewPgFeed(logger *zap.Logger, dsn string, db *sql.DB) *PgFeed {
	l := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Info("notification listener connected")
		case pq.ListenerEventDisconnected:
			logger.Warn("notification listener disconnected", zap.Error(err))
		case pq.ListenerEventReconnected:
			logger.Info("notification listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Warn("notification listener connection attempt failed", zap.Error(err))
		}
	})

	return newPgFeed(logger, db, l)
}

func newPgFeed(logger *zap.Logger, db *sql.DB, l listener) *PgFeed {
	f := &PgFeed{
		log:      logger,
		db:       db,
		listener: l,
		handlers: make(map[string]map[uint64]func()),
		done:     make(chan struct{}),
	}

	go f.run()
	return f
}

func (f *PgFeed) Publish(ctx context.Context, topic string) error {
	if _, err := f.db.ExecContext(ctx, "SELECT pg_notify($1, '')", topic); err != nil {
		return fmt.Errorf("notify %s: %w", topic, err)
	}
	return nil
}

func (f *PgFeed) Subscribe(_ context.Context, topic string, fn func()) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	hs, ok := f.handlers[topic]
	if !ok {
		if err := f.listener.Listen(topic); err != nil {
			return nil, fmt.Errorf("listen %s: %w", topic, err)
		}
		hs = make(map[uint64]func())
		f.handlers[topic] = hs
	}

	f.nextId++
	id := f.nextId
	hs[id] = fn

	return newSubscription(func() error {
		return f.unsubscribe(topic, id)
	}), nil
}

func (f *PgFeed) unsubscribe(topic string, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	hs, ok := f.handlers[topic]
	if !ok {
		return nil
	}
	delete(hs, id)

	if len(hs) == 0 {
		delete(f.handlers, topic)
		if err := f.listener.Unlisten(topic); err != nil {
			return fmt.Errorf("unlisten %s: %w", topic, err)
		}
	}
	return nil
}

func (f *PgFeed) run() {
	defer close(f.done)

	for n := range f.listener.NotificationChannel() {
		f.dispatch(n)
	}
}

// dispatch calls the handlers for n's channel. A nil notification is sent by
// the listener after a reconnect, when notifications may have been missed, so
// every handler is called.
func (f *PgFeed) dispatch(n *pq.Notification) {
	f.mu.Lock()
	var fns []func()
	if n == nil {
		f.log.Info("listener reconnected, resyncing all subscribers")
		for _, hs := range f.handlers {
			for _, fn := range hs {
				fns = append(fns, fn)
			}
		}
	} else {
		for _, fn := range f.handlers[n.Channel] {
			fns = append(fns, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (f *PgFeed) Close() error {
	err := f.listener.Close()
	<-f.done
	return err
}

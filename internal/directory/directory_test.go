package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/npezzotti/go-roomboard/internal/catalog"
	"github.com/npezzotti/go-roomboard/internal/database"
	"github.com/npezzotti/go-roomboard/internal/live"
	"github.com/npezzotti/go-roomboard/internal/notify"
	"github.com/npezzotti/go-roomboard/internal/testutil"
	"github.com/npezzotti/go-roomboard/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFeed is an in-process feed delivering synchronously to subscribers.
type memFeed struct {
	mu       sync.Mutex
	handlers map[string][]func()
	err      error
}

func (f *memFeed) Publish(_ context.Context, topic string) error {
	f.mu.Lock()
	hs := append([]func(){}, f.handlers[topic]...)
	f.mu.Unlock()
	for _, fn := range hs {
		fn()
	}
	return nil
}

func (f *memFeed) Subscribe(_ context.Context, topic string, fn func()) (*notify.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string][]func())
	}
	f.handlers[topic] = append(f.handlers[topic], fn)
	return &notify.Subscription{}, nil
}

func (f *memFeed) Close() error { return nil }

var _ live.Source = (*Service)(nil)

func TestQuery(t *testing.T) {
	repo := new(database.MockRoomBoardRepository)
	filter := types.RoomFilter{Game: "freefire", Status: types.StatusActive}

	rooms := []types.Room{{Id: "a", Game: "freefire", Tier: "50", Status: types.StatusActive}}
	repo.On("ListRooms", filter).Return(rooms, nil).Once()
	repo.On("ListRooms", filter).Return(nil, types.ErrNetworkUnavailable).Once()

	s := NewService(testutil.TestLogger(t), repo, &memFeed{})

	got, err := s.Query(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, rooms, got)

	_, err = s.Query(context.Background(), filter)
	assert.ErrorIs(t, err, types.ErrNetworkUnavailable)

	repo.AssertExpectations(t)
}

func TestSubscribe(t *testing.T) {
	feed := &memFeed{}
	s := NewService(testutil.TestLogger(t), new(database.MockRoomBoardRepository), feed)

	var calls int
	sub, err := s.Subscribe(context.Background(), types.RoomFilter{Game: "freefire"}, func() { calls++ })
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, 1, calls, "expected initial snapshot notification")

	require.NoError(t, feed.Publish(context.Background(), notify.TopicRooms))
	assert.Equal(t, 2, calls)

	require.NoError(t, feed.Publish(context.Background(), notify.TopicAccounts))
	assert.Equal(t, 2, calls, "expected account changes to be ignored")
}

func TestSubscribe_error(t *testing.T) {
	feed := &memFeed{err: errors.New("listener down")}
	s := NewService(testutil.TestLogger(t), new(database.MockRoomBoardRepository), feed)

	var calls int
	_, err := s.Subscribe(context.Background(), types.RoomFilter{}, func() { calls++ })
	assert.Error(t, err)
	assert.Zero(t, calls)
}

// A write published on the feed drives a synchronizer from Ready to a new
// Ready projection containing the inserted room.
func TestSynchronizerEndToEnd(t *testing.T) {
	repo := new(database.MockRoomBoardRepository)
	feed := &memFeed{}
	filter := types.RoomFilter{Game: "freefire", Status: types.StatusActive}

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	r1 := types.Room{Id: "r1", Game: "freefire", Tier: "50", Status: types.StatusActive, CreatedAt: &t1}
	r2 := types.Room{Id: "r2", Game: "freefire", Tier: "50", Status: types.StatusActive, CreatedAt: &t2}

	repo.On("ListRooms", filter).Return([]types.Room{r1}, nil).Once()
	repo.On("ListRooms", filter).Return([]types.Room{r1, r2}, nil)

	events := make(chan live.Event, 16)
	syncer := live.NewSynchronizer(testutil.TestLogger(t), NewService(testutil.TestLogger(t), repo, feed), func(ev live.Event) {
		events <- ev
	})
	defer syncer.Unsubscribe()

	require.NoError(t, syncer.Subscribe(context.Background(), "freefire"))

	ready := waitForState(t, events, live.StateReady)
	require.Len(t, ready.Buckets, 1)
	assert.Len(t, ready.Buckets[0].Rooms, 1)

	require.NoError(t, feed.Publish(context.Background(), notify.TopicRooms))

	ready = waitForState(t, events, live.StateReady)
	require.Len(t, ready.Buckets, 1)
	assert.Equal(t, catalog.Tiers()[0].DisplayName, ready.Buckets[0].DisplayName)
	require.Len(t, ready.Buckets[0].Rooms, 2)
	assert.Equal(t, "r2", ready.Buckets[0].Rooms[0].Id, "expected newest room first")
}

func waitForState(t *testing.T, events <-chan live.Event, state live.State) live.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.State == state {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state %s", state)
			return live.Event{}
		}
	}
}

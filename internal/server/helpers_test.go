package server

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/npezzotti/go-roomboard/internal/live"
	"github.com/npezzotti/go-roomboard/internal/stats"
	"github.com/npezzotti/go-roomboard/internal/testutil"
	"github.com/npezzotti/go-roomboard/internal/types"
	"github.com/stretchr/testify/mock"
)

type fakeSubscription struct {
	closed *atomic.Int32
}

func (s fakeSubscription) Close() error {
	s.closed.Add(1)
	return nil
}

// fakeSource serves a fixed set of rooms and lets tests fire change
// notifications.
type fakeSource struct {
	mu        sync.Mutex
	rooms     []types.Room
	err       error
	onChange  []func()
	subscribe atomic.Int32
	closed    atomic.Int32
}

func (s *fakeSource) Query(_ context.Context, filter types.RoomFilter) ([]types.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]types.Room(nil), s.rooms...), nil
}

func (s *fakeSource) Subscribe(_ context.Context, _ types.RoomFilter, onChange func()) (live.Subscription, error) {
	s.subscribe.Add(1)
	s.mu.Lock()
	s.onChange = append(s.onChange, onChange)
	s.mu.Unlock()

	onChange()
	return fakeSubscription{closed: &s.closed}, nil
}

func (s *fakeSource) setRooms(rooms []types.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = rooms
}

func (s *fakeSource) trigger() {
	s.mu.Lock()
	fns := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func activeRoom(id string, tier types.Tier) types.Room {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return types.Room{Id: id, Game: "freefire", Tier: tier, Status: types.StatusActive, CreatedAt: &created}
}

func newStatsMock() *stats.MockStatsUpdater {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", mock.Anything).Return()
	su.On("Decr", mock.Anything).Return()
	return su
}

func newTestViewServer(t *testing.T, src live.Source) *ViewServer {
	vs := NewViewServer(testutil.TestLogger(t), src, newStatsMock(), []string{"freefire", "bgmi"})
	go vs.Run()
	t.Cleanup(vs.Shutdown)
	return vs
}

// newTestClient returns a client without a connection; only its message
// queue is used.
func newTestClient(t *testing.T, vs *ViewServer) *Client {
	return &Client{
		id:    t.Name(),
		vs:    vs,
		log:   testutil.TestLogger(t),
		send:  make(chan *ServerMessage, 64),
		views: make(map[string]*liveView),
		stop:  make(chan struct{}),
	}
}

func nextMessage(t *testing.T, c *Client) *ServerMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server message")
		return nil
	}
}

func nextResponse(t *testing.T, c *Client) *Response {
	t.Helper()
	for {
		msg := nextMessage(t, c)
		if msg.Response != nil {
			return msg.Response
		}
	}
}

func waitForView(t *testing.T, c *Client, state live.State) live.Event {
	t.Helper()
	for {
		msg := nextMessage(t, c)
		if msg.View != nil && msg.View.State == state {
			return *msg.View
		}
	}
}

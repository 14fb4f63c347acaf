package live

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/npezzotti/go-roomboard/internal/catalog"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
)

var ErrNotSubscribed = errors.New("not subscribed")

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateEmpty   State = "empty"
	StateError   State = "error"
)

// Event is emitted for every state transition. Buckets is set only for
// StateReady and ErrorMessage only for StateError.
type Event struct {
	Game         string             `json:"game"`
	State        State              `json:"state"`
	Buckets      []types.TierBucket `json:"buckets,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
}

type Subscription interface {
	Close() error
}

// Source is the record store as seen by the synchronizer. Subscribe must
// invoke onChange once for the initial snapshot and again after every write
// that may affect the filtered set.
type Source interface {
	Query(ctx context.Context, filter types.RoomFilter) ([]types.Room, error)
	Subscribe(ctx context.Context, filter types.RoomFilter, onChange func()) (Subscription, error)
}

// Synchronizer keeps a projected view of one game's active rooms fresh.
// Observer callbacks run on the synchronizer's goroutine, in transition
// order, and must not call back into the synchronizer.
type Synchronizer struct {
	log     *zap.Logger
	src     Source
	observe func(Event)

	mu  sync.Mutex
	run *run

	stateMu sync.RWMutex
	current Event
}

type fetchResult struct {
	seq   uint64
	rooms []types.Room
	err   error
}

// run is the state owned by one subscription.
type run struct {
	filter  types.RoomFilter
	sub     Subscription
	notify  chan struct{}
	refresh chan struct{}
	results chan fetchResult
	exit    chan struct{}
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	// seq is the sequence number of the most recently issued fetch
	seq uint64
}

func NewSynchronizer(logger *zap.Logger, src Source, observe func(Event)) *Synchronizer {
	if observe == nil {
		observe = func(Event) {}
	}
	return &Synchronizer{
		log:     logger,
		src:     src,
		observe: observe,
		current: Event{State: StateIdle},
	}
}

// State returns the most recent event.
func (s *Synchronizer) State() Event {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.current
}

// Subscribe starts watching active rooms for game, tearing down any previous
// subscription first.
func (s *Synchronizer) Subscribe(ctx context.Context, game string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		filter:  types.RoomFilter{Game: game, Status: types.StatusActive},
		notify:  make(chan struct{}, 1),
		refresh: make(chan struct{}, 1),
		results: make(chan fetchResult),
		exit:    make(chan struct{}),
		done:    make(chan struct{}),
		ctx:     runCtx,
		cancel:  cancel,
	}

	sub, err := s.src.Subscribe(ctx, r.filter, func() {
		select {
		case r.notify <- struct{}{}:
		default:
			// a change is already pending; the next fetch reads everything
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %q: %w", game, err)
	}
	r.sub = sub
	s.run = r

	s.log.Debug("subscribed to rooms", zap.String("game", game))
	go s.loop(r)
	return nil
}

// Refresh re-issues the fetch for the current subscription.
func (s *Synchronizer) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run == nil {
		return ErrNotSubscribed
	}

	select {
	case s.run.refresh <- struct{}{}:
	default:
	}
	return nil
}

// Unsubscribe tears down the current subscription. It may be called at any
// time, any number of times.
func (s *Synchronizer) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Synchronizer) stopLocked() {
	r := s.run
	if r == nil {
		return
	}
	s.run = nil

	close(r.exit)
	<-r.done
	r.cancel()

	if err := r.sub.Close(); err != nil {
		s.log.Warn("close subscription", zap.String("game", r.filter.Game), zap.Error(err))
	}

	s.emit(Event{Game: r.filter.Game, State: StateIdle})
	s.log.Debug("unsubscribed from rooms", zap.String("game", r.filter.Game))
}

func (s *Synchronizer) loop(r *run) {
	defer close(r.done)

	for {
		select {
		case <-r.notify:
			s.issueFetch(r)
		case <-r.refresh:
			s.issueFetch(r)
		case res := <-r.results:
			s.applyResult(r, res)
		case <-r.exit:
			return
		}
	}
}

func (s *Synchronizer) issueFetch(r *run) {
	r.seq++
	seq := r.seq

	s.emit(Event{Game: r.filter.Game, State: StateLoading})

	go func() {
		rooms, err := s.src.Query(r.ctx, r.filter)
		select {
		case r.results <- fetchResult{seq: seq, rooms: rooms, err: err}:
		case <-r.exit:
		}
	}()
}

func (s *Synchronizer) applyResult(r *run, res fetchResult) {
	if res.seq != r.seq {
		s.log.Debug("discarding superseded fetch",
			zap.String("game", r.filter.Game),
			zap.Uint64("seq", res.seq),
			zap.Uint64("latest", r.seq),
		)
		return
	}

	if res.err != nil {
		s.log.Warn("fetch rooms", zap.String("game", r.filter.Game), zap.Error(res.err))
		s.emit(Event{
			Game:         r.filter.Game,
			State:        StateError,
			ErrorMessage: types.UserMessage(res.err),
		})
		return
	}

	buckets := catalog.Project(res.rooms, r.filter)
	if len(buckets) == 0 {
		s.emit(Event{Game: r.filter.Game, State: StateEmpty})
		return
	}

	s.emit(Event{Game: r.filter.Game, State: StateReady, Buckets: buckets})
}

func (s *Synchronizer) emit(e Event) {
	s.stateMu.Lock()
	s.current = e
	s.stateMu.Unlock()

	s.observe(e)
}

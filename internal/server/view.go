package server

import (
	"context"
	"errors"
	"time"

	"github.com/npezzotti/go-roomboard/internal/live"
	"github.com/npezzotti/go-roomboard/internal/stats"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
)

// liveView owns the synchronizer for one game and fans its events out to
// the watching clients.
type liveView struct {
	game   string
	vs     *ViewServer
	log    *zap.Logger
	syncer *live.Synchronizer

	events chan live.Event
	// stopping is closed before the synchronizer is torn down so that a
	// pending observer send cannot block the teardown.
	stopping chan struct{}

	watchChan   chan *ClientMessage
	unwatchChan chan *ClientMessage
	refreshChan chan *ClientMessage

	clients map[*Client]struct{}
	last    live.Event

	// killTimer unloads the view once it has been idle for vs.idleTimeout
	killTimer *time.Timer
	unloading bool

	exit chan struct{}
	done chan struct{}
}

func newLiveView(vs *ViewServer, game string) *liveView {
	v := &liveView{
		game:        game,
		vs:          vs,
		log:         vs.log.With(zap.String("game", game)),
		events:      make(chan live.Event, 64),
		stopping:    make(chan struct{}),
		watchChan:   make(chan *ClientMessage, 256),
		unwatchChan: make(chan *ClientMessage, 256),
		refreshChan: make(chan *ClientMessage, 256),
		clients:     make(map[*Client]struct{}),
		last:        live.Event{Game: game, State: live.StateIdle},
		exit:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	v.syncer = live.NewSynchronizer(v.log, vs.src, v.observe)
	return v
}

func (v *liveView) observe(ev live.Event) {
	select {
	case v.events <- ev:
	case <-v.stopping:
	}
}

func (v *liveView) start() {
	defer close(v.done)

	v.log.Info("starting live view")
	v.killTimer = time.NewTimer(v.vs.idleTimeout)
	v.killTimer.Stop()

	v.subscribe()

	for {
		select {
		case msg := <-v.watchChan:
			v.handleWatch(msg)
		case msg := <-v.unwatchChan:
			v.handleUnwatch(msg)
		case msg := <-v.refreshChan:
			v.handleRefresh(msg)
		case ev := <-v.events:
			v.handleEvent(ev)
		case <-v.killTimer.C:
			if v.handleTimeout() {
				return
			}
		case <-v.exit:
			v.handleExit()
			return
		}
	}
}

func (v *liveView) subscribe() {
	if err := v.syncer.Subscribe(context.Background(), v.game); err != nil {
		v.log.Error("failed to subscribe live view", zap.Error(err))
		v.handleEvent(live.Event{
			Game:         v.game,
			State:        live.StateError,
			ErrorMessage: types.UserMessage(err),
		})
	}
}

func (v *liveView) handleWatch(msg *ClientMessage) {
	if v.unloading {
		v.vs.requeueWatch(msg)
		return
	}

	v.killTimer.Stop()

	c := msg.client
	if c.stopped() {
		if len(v.clients) == 0 {
			v.killTimer.Reset(v.vs.idleTimeout)
		}
		return
	}

	v.clients[c] = struct{}{}
	c.addView(v)

	c.queueMessage(NoErrOK(msg.Id, nil))
	c.queueMessage(ViewUpdate(v.last))
}

func (v *liveView) handleUnwatch(msg *ClientMessage) {
	v.removeClient(msg.client)

	if msg.Id > 0 {
		msg.client.queueMessage(NoErrOK(msg.Id, nil))
	}
}

func (v *liveView) handleRefresh(msg *ClientMessage) {
	if _, ok := v.clients[msg.client]; !ok {
		msg.client.queueMessage(ErrViewNotFound(msg.Id))
		return
	}

	if err := v.syncer.Refresh(); err != nil {
		if !errors.Is(err, live.ErrNotSubscribed) {
			v.log.Error("refresh failed", zap.Error(err))
			msg.client.queueMessage(ErrServiceUnavailable(msg.Id))
			return
		}
		// the initial subscription failed; retry it
		v.subscribe()
	}

	msg.client.queueMessage(NoErrAccepted(msg.Id))
}

func (v *liveView) handleEvent(ev live.Event) {
	v.last = ev

	switch ev.State {
	case live.StateReady, live.StateEmpty:
		v.vs.stats.Incr(stats.ViewFetches)
	case live.StateError:
		v.vs.stats.Incr(stats.ViewFetchErrors)
	}

	v.broadcast(ViewUpdate(ev))
}

// handleTimeout asks the server to unload the view. It reports true if the
// view was told to exit while waiting.
func (v *liveView) handleTimeout() bool {
	if len(v.clients) > 0 || v.unloading {
		return false
	}

	v.log.Info("live view timed out")
	select {
	case v.vs.unloadViewChan <- v.game:
		v.unloading = true
		return false
	case <-v.exit:
		v.handleExit()
		return true
	}
}

func (v *liveView) handleExit() {
	v.log.Info("live view is exiting")

	close(v.stopping)
	v.syncer.Unsubscribe()

	idle := ViewUpdate(live.Event{Game: v.game, State: live.StateIdle})
	for c := range v.clients {
		c.delView(v.game)
		c.queueMessage(idle)
	}
	v.clients = nil

	// watch requests that raced with the unload go back to the server so a
	// fresh view can pick them up
	for {
		select {
		case msg := <-v.watchChan:
			v.vs.requeueWatch(msg)
		default:
			return
		}
	}
}

func (v *liveView) removeClient(c *Client) {
	if _, ok := v.clients[c]; !ok {
		return
	}

	delete(v.clients, c)
	c.delView(v.game)

	if len(v.clients) == 0 {
		v.log.Debug("no watchers left, starting kill timer")
		v.killTimer.Reset(v.vs.idleTimeout)
	}
}

func (v *liveView) broadcast(msg *ServerMessage) {
	for c := range v.clients {
		if c.stopped() {
			v.removeClient(c)
			continue
		}
		c.queueMessage(msg)
	}
}

package server

import (
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-roomboard/internal/live"
	"github.com/npezzotti/go-roomboard/internal/stats"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
)

const defaultIdleViewTimeout = 30 * time.Second

// ViewServer shares one live view per game among every websocket client
// watching that game. Views are loaded on first watch and unloaded once they
// have had no watchers for the idle timeout.
type ViewServer struct {
	log         *zap.Logger
	src         live.Source
	stats       stats.StatsProvider
	games       []string
	idleTimeout time.Duration

	clients     map[*Client]struct{}
	clientsLock sync.Mutex
	views       map[string]*liveView

	watchChan      chan *ClientMessage
	registerChan   chan *Client
	deRegisterChan chan *Client
	unloadViewChan chan string
	stop           chan struct{}
	done           chan struct{}
}

func NewViewServer(logger *zap.Logger, src live.Source, sp stats.StatsProvider, games []string) *ViewServer {
	return &ViewServer{
		log:            logger,
		src:            src,
		stats:          sp,
		games:          games,
		idleTimeout:    defaultIdleViewTimeout,
		clients:        make(map[*Client]struct{}),
		views:          make(map[string]*liveView),
		watchChan:      make(chan *ClientMessage, 256),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		unloadViewChan: make(chan string),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (vs *ViewServer) Run() {
	defer close(vs.done)

	for {
		select {
		case msg := <-vs.watchChan:
			vs.routeWatch(msg)
		case c := <-vs.registerChan:
			vs.log.Info("client connected",
				zap.String("client_id", c.id),
				zap.Int("account_id", c.principal.AccountId),
			)
			vs.addClient(c)
			vs.stats.Incr(stats.ConnectedClients)
		case c := <-vs.deRegisterChan:
			vs.log.Info("client disconnected", zap.String("client_id", c.id))
			vs.removeClient(c)
			vs.stats.Decr(stats.ConnectedClients)
		case game := <-vs.unloadViewChan:
			if v, ok := vs.views[game]; ok {
				vs.log.Info("unloading idle view", zap.String("game", game))
				delete(vs.views, game)
				close(v.exit)
				<-v.done
				vs.stats.Decr(stats.LiveViews)
			}
		case <-vs.stop:
			vs.log.Info("shutting down live views")
			for game, v := range vs.views {
				close(v.exit)
				<-v.done
				delete(vs.views, game)
				vs.stats.Decr(stats.LiveViews)
			}
			return
		}
	}
}

func (vs *ViewServer) routeWatch(msg *ClientMessage) {
	game := msg.Watch.Game

	v, ok := vs.views[game]
	if !ok {
		if !slices.Contains(vs.games, game) {
			msg.client.queueMessage(ErrViewNotFound(msg.Id))
			return
		}

		v = newLiveView(vs, game)
		vs.views[game] = v
		vs.stats.Incr(stats.LiveViews)
		go v.start()
	}

	select {
	case v.watchChan <- msg:
	default:
		vs.log.Warn("watch channel full", zap.String("game", game))
		msg.client.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

// requeueWatch hands a watch request back to the server loop. It is used by
// views that are unloading when the request reaches them.
func (vs *ViewServer) requeueWatch(msg *ClientMessage) {
	go func() {
		select {
		case vs.watchChan <- msg:
		case <-vs.done:
			msg.client.queueMessage(ErrServiceUnavailable(msg.Id))
		}
	}()
}

// Serve registers a client for conn and starts its read and write pumps.
func (vs *ViewServer) Serve(p types.Principal, conn *websocket.Conn) *Client {
	c := NewClient(p, conn, vs, vs.log)

	select {
	case vs.registerChan <- c:
	case <-vs.done:
		conn.Close()
		return c
	}

	go c.Write()
	go c.Read()
	return c
}

func (vs *ViewServer) addClient(c *Client) {
	vs.clientsLock.Lock()
	defer vs.clientsLock.Unlock()
	vs.clients[c] = struct{}{}
}

func (vs *ViewServer) removeClient(c *Client) {
	vs.clientsLock.Lock()
	defer vs.clientsLock.Unlock()
	delete(vs.clients, c)
}

func (vs *ViewServer) Shutdown() {
	vs.log.Info("received shutdown signal")

	vs.clientsLock.Lock()
	for c := range vs.clients {
		c.stopClient()
	}
	vs.clientsLock.Unlock()

	close(vs.stop)
	<-vs.done
}

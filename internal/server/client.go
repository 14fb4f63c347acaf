package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

type Client struct {
	id        string
	conn      *websocket.Conn
	vs        *ViewServer
	log       *zap.Logger
	principal types.Principal
	send      chan *ServerMessage
	views     map[string]*liveView
	viewsLock sync.RWMutex
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewClient(p types.Principal, conn *websocket.Conn, vs *ViewServer, l *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:        id,
		conn:      conn,
		vs:        vs,
		log:       l.With(zap.String("client_id", id)),
		principal: p,
		send:      make(chan *ServerMessage, 256),
		views:     make(map[string]*liveView),
		stop:      make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("write pump exiting")
	}()

	for {
		select {
		case msg := <-c.send:
			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Error("failed to serialize message", zap.Error(err))
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.sendMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Debug("read pump exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debug("error parsing message", zap.Error(err))
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.Timestamp = Now()
		c.dispatch(&msg)
	}
}

func (c *Client) dispatch(msg *ClientMessage) {
	switch {
	case msg.Watch != nil:
		c.watch(msg)
	case msg.Unwatch != nil:
		c.forward(msg, msg.Unwatch.Game, func(v *liveView) chan *ClientMessage { return v.unwatchChan })
	case msg.Refresh != nil:
		c.forward(msg, msg.Refresh.Game, func(v *liveView) chan *ClientMessage { return v.refreshChan })
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (c *Client) watch(msg *ClientMessage) {
	select {
	case c.vs.watchChan <- msg:
	default:
		c.log.Warn("watch channel full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

// forward sends msg to the view for game if this client is watching it.
func (c *Client) forward(msg *ClientMessage, game string, ch func(*liveView) chan *ClientMessage) {
	v := c.getView(game)
	if v == nil {
		c.queueMessage(ErrViewNotFound(msg.Id))
		return
	}

	select {
	case ch(v) <- msg:
	default:
		c.log.Warn("view channel full", zap.String("game", game))
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Warn("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Warn("websocket write failed", zap.Error(err))
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

func (c *Client) cleanup() {
	c.stopClient()
	c.leaveAllViews()

	select {
	case c.vs.deRegisterChan <- c:
	case <-c.vs.done:
	}
}

func (c *Client) leaveAllViews() {
	c.viewsLock.RLock()
	defer c.viewsLock.RUnlock()

	for game, v := range c.views {
		select {
		case v.unwatchChan <- &ClientMessage{Unwatch: &ViewRequest{Game: game}, client: c}:
		default:
			c.log.Warn("unwatch channel full", zap.String("game", game))
		}
	}
}

func (c *Client) addView(v *liveView) {
	c.viewsLock.Lock()
	defer c.viewsLock.Unlock()
	c.views[v.game] = v
}

func (c *Client) delView(game string) {
	c.viewsLock.Lock()
	defer c.viewsLock.Unlock()
	delete(c.views, game)
}

func (c *Client) getView(game string) *liveView {
	c.viewsLock.RLock()
	defer c.viewsLock.RUnlock()
	return c.views[game]
}

package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/npezzotti/go-roomboard/internal/live"
	"github.com/npezzotti/go-roomboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		res := c.queueMessage(&ServerMessage{})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")
		assert.Len(t, c.send, 1, "expected a message to be sent to the client")
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &ServerMessage{}
		res := c.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})
}

func Test_stopClient(t *testing.T) {
	c := &Client{stop: make(chan struct{})}

	assert.False(t, c.stopped())
	c.stopClient()
	c.stopClient()
	assert.True(t, c.stopped(), "expected stop channel to be closed")
}

func Test_dispatch(t *testing.T) {
	tcases := []struct {
		name string
		msg  *ClientMessage
		code int
	}{
		{
			name: "empty message",
			msg:  &ClientMessage{BaseMessage: BaseMessage{Id: 4}},
			code: http.StatusBadRequest,
		},
		{
			name: "unwatch without watch",
			msg:  &ClientMessage{BaseMessage: BaseMessage{Id: 5}, Unwatch: &ViewRequest{Game: "freefire"}},
			code: http.StatusNotFound,
		},
		{
			name: "refresh without watch",
			msg:  &ClientMessage{BaseMessage: BaseMessage{Id: 6}, Refresh: &ViewRequest{Game: "freefire"}},
			code: http.StatusNotFound,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, nil)
			tc.msg.client = c

			c.dispatch(tc.msg)

			msg := nextMessage(t, c)
			require.NotNil(t, msg.Response)
			assert.Equal(t, tc.code, msg.Response.ResponseCode)
			assert.Equal(t, tc.msg.Id, msg.Id)
		})
	}
}

func Test_leaveAllViews(t *testing.T) {
	views := []*liveView{
		{game: "freefire", unwatchChan: make(chan *ClientMessage, 1)},
		{game: "bgmi", unwatchChan: make(chan *ClientMessage, 1)},
	}

	c := newTestClient(t, nil)
	for _, v := range views {
		c.addView(v)
	}

	c.leaveAllViews()

	for _, v := range views {
		select {
		case msg := <-v.unwatchChan:
			require.NotNil(t, msg.Unwatch, "expected unwatch message")
			assert.Equal(t, v.game, msg.Unwatch.Game)
			assert.Equal(t, c, msg.client, "expected unwatch message to include client")
			assert.Zero(t, msg.Id, "expected no response to be requested")
		default:
			t.Errorf("expected unwatch message for view %s", v.game)
		}
	}
}

func Test_addView_delView(t *testing.T) {
	c := newTestClient(t, nil)
	v := &liveView{game: "freefire"}

	c.addView(v)
	assert.Equal(t, v, c.getView("freefire"))

	c.delView("freefire")
	assert.Nil(t, c.getView("freefire"))
}

func TestMessages(t *testing.T) {
	ok := NoErrOK(1, nil)
	assert.Equal(t, 1, ok.Id)
	assert.Equal(t, http.StatusOK, ok.Response.ResponseCode)

	assert.Equal(t, http.StatusAccepted, NoErrAccepted(2).Response.ResponseCode)
	assert.Equal(t, http.StatusServiceUnavailable, ErrServiceUnavailable(3).Response.ResponseCode)

	invalid := ErrInvalidMessage(-1)
	assert.Zero(t, invalid.Id, "expected negative ids to be dropped")
	assert.Equal(t, "invalid message format", invalid.Response.Error)

	view := ViewUpdate(live.Event{Game: "bgmi", State: live.StateEmpty})
	bytes, err := serializeMessage(view)
	require.NoError(t, err)
	expected := `{"timestamp":"` + view.Timestamp.Format(time.RFC3339Nano) +
		`","view":{"game":"bgmi","state":"empty"}}`
	assert.Equal(t, expected, string(bytes))
}

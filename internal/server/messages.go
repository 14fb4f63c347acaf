package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/npezzotti/go-roomboard/internal/live"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is a request from a websocket client. Exactly one of Watch,
// Unwatch or Refresh is set.
type ClientMessage struct {
	BaseMessage
	Watch   *ViewRequest `json:"watch,omitempty"`
	Unwatch *ViewRequest `json:"unwatch,omitempty"`
	Refresh *ViewRequest `json:"refresh,omitempty"`
	client  *Client
}

type ViewRequest struct {
	Game string `json:"game"`
}

type ServerMessage struct {
	BaseMessage
	Response *Response   `json:"response,omitempty"`
	View     *live.Event `json:"view,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func ViewUpdate(ev live.Event) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		View:        &ev,
	}
}

func NoErrOK(id int, data any) *ServerMessage {
	return response(id, http.StatusOK, "", data)
}

func NoErrAccepted(id int) *ServerMessage {
	return response(id, http.StatusAccepted, "", nil)
}

func ErrViewNotFound(id int) *ServerMessage {
	return response(id, http.StatusNotFound, "view not found", nil)
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return response(id, http.StatusServiceUnavailable, "service unavailable", nil)
}

func ErrInvalidMessage(id int) *ServerMessage {
	if id < 0 {
		id = 0
	}
	return response(id, http.StatusBadRequest, "invalid message format", nil)
}

func response(id, code int, errText string, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        errText,
			Data:         data,
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

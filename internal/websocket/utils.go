package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stemsi/exstem-proctor/internal/response"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// Conn serializes writes: the session loop, the confirmation prompt and the
// reader all write to the same socket.
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

// Wrap takes ownership of a raw connection.
func Wrap(conn *websocket.Conn) *Conn {
	return &Conn{Conn: conn}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(code response.ErrCode, detail string) error {
	msg := response.GetMessage(code)
	if detail != "" {
		msg = detail
	}
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Code:  string(code),
		Error: msg,
	})
}

// ReadEnvelope reads one message and peeks at its action. The raw bytes are
// returned for the typed decode.
func (c *Conn) ReadEnvelope() (Action, []byte, error) {
	c.SetReadDeadline(time.Now().Add(readWait))
	_, raw, err := c.ReadMessage()
	if err != nil {
		return "", nil, err
	}
	var env RequestEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", raw, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env.Action, raw, nil
}

// ErrMalformed marks a message that is not a JSON action object.
var ErrMalformed = errors.New("malformed message")

package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

// wsPrompter asks the candidate over the socket and waits for the matching
// confirm action.
type wsPrompter struct {
	conn *ws.Conn

	mu      sync.Mutex
	pending map[string]chan bool
}

func newWSPrompter(conn *ws.Conn) *wsPrompter {
	return &wsPrompter{conn: conn, pending: make(map[string]chan bool)}
}

func (p *wsPrompter) Confirm(ctx context.Context, message string) (bool, error) {
	id := uuid.NewString()
	answer := make(chan bool, 1)

	p.mu.Lock()
	p.pending[id] = answer
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	if err := p.conn.WriteTyped(ws.ConfirmResponse{Event: ws.EventConfirm, ID: id, Message: message}); err != nil {
		return false, err
	}

	select {
	case ok := <-answer:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// resolve delivers an answer. It reports false for unknown or stale ids.
func (p *wsPrompter) resolve(id string, ok bool) bool {
	p.mu.Lock()
	answer, found := p.pending[id]
	delete(p.pending, id)
	p.mu.Unlock()

	if !found {
		return false
	}
	answer <- ok
	return true
}

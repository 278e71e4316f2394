package websocket

import (
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionHello       Action = "hello"
	ActionAnswer      Action = "answer"
	ActionSubmit      Action = "submit"
	ActionConfirm     Action = "confirm"
	ActionVisibility  Action = "visibility"
	ActionBlur        Action = "blur"
	ActionClipboard   Action = "clipboard"
	ActionContextMenu Action = "contextmenu"
	ActionKeyDown     Action = "keydown"
	ActionResize      Action = "resize"
	ActionPing        Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// HelloRequest opens the session. Capabilities maps a signal category to
// whether the browser supports it; absent categories count as supported.
type HelloRequest struct {
	Action       Action          `json:"action"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	Capabilities map[string]bool `json:"capabilities"`
}

// AnswerRequest records a single answer.
type AnswerRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Answer string `json:"ans"`
}

// ConfirmRequest answers a confirm event.
type ConfirmRequest struct {
	Action Action `json:"action"`
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
}

// VisibilityRequest reports a document visibility change.
type VisibilityRequest struct {
	Action Action `json:"action"`
	Hidden bool   `json:"hidden"`
}

// ClipboardRequest reports a copy, cut or paste.
type ClipboardRequest struct {
	Action Action         `json:"action"`
	Op     string         `json:"op"`
	Target proctor.Target `json:"target"`
}

// KeyDownRequest reports a key press with its modifiers.
type KeyDownRequest struct {
	Action Action         `json:"action"`
	Key    string         `json:"key"`
	Ctrl   bool           `json:"ctrl"`
	Meta   bool           `json:"meta"`
	Shift  bool           `json:"shift"`
	Target proctor.Target `json:"target"`
}

// ResizeRequest reports the outer window size.
type ResizeRequest struct {
	Action Action `json:"action"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventPolicy  Event = "policy"
	EventState   Event = "state"
	EventConfirm Event = "confirm"
	EventPong    Event = "pong"
	EventError   Event = "error"
)

// PolicyResponse tells the client which defaults to prevent synchronously.
type PolicyResponse struct {
	Event  Event          `json:"event"`
	Policy proctor.Policy `json:"policy"`
}

// StateResponse carries every rendered view of the session.
type StateResponse struct {
	Event Event        `json:"event"`
	View  session.View `json:"view"`
}

// ConfirmResponse asks the candidate a yes/no question.
type ConfirmResponse struct {
	Event   Event  `json:"event"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

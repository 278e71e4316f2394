// Package session is the test session controller: one reducer that owns the
// session phase, the countdown and the answer ledger, fed by a single event
// queue.
package session

import (
	"errors"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// Phase is the render selector of a session.
type Phase string

const (
	PhaseLoading    Phase = "LOADING"
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseError      Phase = "ERROR"
	PhaseActive     Phase = "ACTIVE"
	PhaseEnded      Phase = "ENDED"
	PhaseSubmitted  Phase = "SUBMITTED"
)

// Terminal reports whether no further session-affecting transition is possible.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseNotStarted, PhaseError, PhaseEnded, PhaseSubmitted:
		return true
	}
	return false
}

// User-facing messages.
const (
	MsgNotActive     = "Waiting for admin to start the test... Please refresh the page after some time."
	MsgNoQuestions   = "No questions available right now."
	MsgLoadFailed    = "Could not load test. Check your backend connection."
	MsgConfirmSubmit = "Some questions are unanswered. Submit anyway?"
	MsgSaveFailed    = "Failed to save result to server."
	MsgTimeUp        = "Time's up! Submitting automatically..."
)

// State is exactly one phase plus the data that phase carries.
type State struct {
	Phase            Phase           `json:"phase"`
	Reason           string          `json:"reason,omitempty"`
	Signal           *proctor.Signal `json:"signal,omitempty"`
	Score            int             `json:"score"`
	Total            int             `json:"total"`
	ScorePercent     string          `json:"score_percent,omitempty"`
	Saved            bool            `json:"saved"`
	Warning          string          `json:"warning,omitempty"`
	SecondsRemaining int             `json:"seconds_remaining"`
	AutoSubmitted    bool            `json:"auto_submitted"`
	Confirming       bool            `json:"confirming"`
}

// View is what an Observer renders. It never carries correctness keys.
type View struct {
	State
	Clock     string                 `json:"clock"`
	Questions []model.PublicQuestion `json:"questions,omitempty"`
	Answers   map[string]string      `json:"answers,omitempty"`
}

// ErrConfigUnavailable means the config source answered but could not tell
// whether a test is active. It leads to NOT_STARTED, not ERROR.
var ErrConfigUnavailable = errors.New("session config unavailable")

// QuestionError is a structured error payload returned by the question
// source, as opposed to a transport failure.
type QuestionError struct {
	Message string
}

func (e *QuestionError) Error() string {
	return "question source: " + e.Message
}

package session

import (
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// Event is an input to the reducer.
type Event interface {
	isEvent()
}

// Loaded carries the outcome of fetching config and questions.
type Loaded struct {
	Config    model.SessionConfig
	Questions []model.Question
	Err       error
}

// Tick is one elapsed second.
type Tick struct{}

// SignalRaised is a terminating proctoring decision awaiting the mask check.
type SignalRaised struct {
	Signal proctor.Signal
}

// AnswerRecorded is the candidate selecting or typing an answer.
type AnswerRecorded struct {
	QuestionID string
	Value      string
}

// SubmitRequested is a submit click (Auto false) or timer expiry (Auto true).
type SubmitRequested struct {
	Auto bool
}

// ConfirmResolved is the candidate's answer to the unanswered-questions prompt.
type ConfirmResolved struct {
	OK bool
}

// SubmissionFinished is the result submitter's acknowledgement or failure.
type SubmissionFinished struct {
	Err error
}

func (Loaded) isEvent()             {}
func (Tick) isEvent()               {}
func (SignalRaised) isEvent()       {}
func (AnswerRecorded) isEvent()     {}
func (SubmitRequested) isEvent()    {}
func (ConfirmResolved) isEvent()    {}
func (SubmissionFinished) isEvent() {}

// Effect is a side effect the controller performs after a transition.
type Effect interface {
	isEffect()
}

type StartTimer struct {
	Seconds int
}

type StopTimer struct{}

type StartDetector struct{}

type StopDetector struct{}

// RequestConfirmation asks the candidate whether to submit with unanswered
// questions. The focus mask must be held from before the prompt is shown
// until it resolves.
type RequestConfirmation struct {
	Unanswered int
	Message    string
}

type Submit struct {
	Submission model.ResultSubmission
}

type RecordProctorEvent struct {
	Signal proctor.Signal
}

type SignalSuppressed struct {
	Signal proctor.Signal
}

type AnswerRejected struct {
	QuestionID string
	Reason     string
}

func (StartTimer) isEffect()          {}
func (StopTimer) isEffect()           {}
func (StartDetector) isEffect()       {}
func (StopDetector) isEffect()        {}
func (RequestConfirmation) isEffect() {}
func (Submit) isEffect()              {}
func (RecordProctorEvent) isEffect()  {}
func (SignalSuppressed) isEffect()    {}
func (AnswerRejected) isEffect()      {}

package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/ledger"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/timer"
)

// Machine is the session reducer. It computes the next state from the current
// state and one event. It is not safe for concurrent use: exactly one
// goroutine (the controller loop) may call Apply.
type Machine struct {
	sessionID uuid.UUID
	candidate model.Candidate
	now       func() time.Time

	state     State
	questions []model.Question
	index     map[string]struct{}
	ledger    *ledger.Ledger
	countdown *timer.Countdown

	// version increments on every observable change.
	version uint64
}

// NewMachine returns a machine in LOADING.
func NewMachine(sessionID uuid.UUID, candidate model.Candidate) *Machine {
	return &Machine{
		sessionID: sessionID,
		candidate: candidate,
		now:       time.Now,
		state:     State{Phase: PhaseLoading},
		ledger:    ledger.New(),
		countdown: timer.NewCountdown(0),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Version changes whenever State, the question list or the ledger change.
func (m *Machine) Version() uint64 {
	return m.version
}

// View projects the state for rendering.
func (m *Machine) View() View {
	v := View{
		State: m.state,
		Clock: timer.FormatSeconds(m.state.SecondsRemaining),
	}
	if m.state.Phase == PhaseActive || m.state.Phase == PhaseSubmitted {
		v.Questions = model.PublicQuestions(m.questions)
		v.Answers = m.ledger.Snapshot()
	}
	return v
}

// Apply reduces ev into the machine. mask tells which signal categories are
// currently ignorable.
func (m *Machine) Apply(ev Event, mask proctor.MaskReader) []Effect {
	if mask == nil {
		mask = proctor.NoMask{}
	}

	switch e := ev.(type) {
	case Loaded:
		return m.onLoaded(e)
	case Tick:
		return m.onTick()
	case SignalRaised:
		return m.onSignal(e.Signal, mask)
	case AnswerRecorded:
		return m.onAnswer(e)
	case SubmitRequested:
		return m.onSubmitRequested(e.Auto)
	case ConfirmResolved:
		return m.onConfirmResolved(e.OK)
	case SubmissionFinished:
		return m.onSubmissionFinished(e.Err)
	}
	return nil
}

func (m *Machine) onLoaded(e Loaded) []Effect {
	if m.state.Phase != PhaseLoading {
		return nil
	}

	var qerr *QuestionError
	switch {
	case errors.Is(e.Err, ErrConfigUnavailable):
		m.transition(State{Phase: PhaseNotStarted, Reason: MsgNotActive})
		return nil
	case errors.As(e.Err, &qerr):
		m.transition(State{Phase: PhaseNotStarted, Reason: qerr.Message})
		return nil
	case e.Err != nil:
		m.transition(State{Phase: PhaseError, Reason: MsgLoadFailed})
		return nil
	case !e.Config.IsActive:
		m.transition(State{Phase: PhaseNotStarted, Reason: MsgNotActive})
		return nil
	case len(e.Questions) == 0:
		m.transition(State{Phase: PhaseNotStarted, Reason: MsgNoQuestions})
		return nil
	}

	limited := e.Config.Limit(e.Questions)
	m.questions = make([]model.Question, len(limited))
	copy(m.questions, limited)
	m.index = make(map[string]struct{}, len(m.questions))
	for _, q := range m.questions {
		m.index[q.ID] = struct{}{}
	}
	m.ledger.Reset()

	seconds := e.Config.TimeBudgetSeconds()
	m.countdown = timer.NewCountdown(seconds)
	m.transition(State{
		Phase:            PhaseActive,
		Total:            len(m.questions),
		SecondsRemaining: seconds,
	})
	return []Effect{StartTimer{Seconds: seconds}, StartDetector{}}
}

func (m *Machine) onTick() []Effect {
	if m.state.Phase != PhaseActive {
		return nil
	}
	remaining, expired := m.countdown.Tick()
	m.state.SecondsRemaining = remaining
	m.version++
	if expired {
		return m.submit(true)
	}
	return nil
}

func (m *Machine) onSignal(sig proctor.Signal, mask proctor.MaskReader) []Effect {
	if m.state.Phase != PhaseActive {
		return nil
	}
	if mask.Ignores(sig.Category) {
		return []Effect{SignalSuppressed{Signal: sig}}
	}

	m.ledger.Freeze()
	s := sig
	m.transition(State{
		Phase:            PhaseEnded,
		Reason:           sig.Reason,
		Signal:           &s,
		Total:            len(m.questions),
		SecondsRemaining: m.state.SecondsRemaining,
	})
	return []Effect{StopTimer{}, StopDetector{}, RecordProctorEvent{Signal: sig}}
}

func (m *Machine) onAnswer(e AnswerRecorded) []Effect {
	if m.state.Phase != PhaseActive {
		return nil
	}
	if _, ok := m.index[e.QuestionID]; !ok {
		return []Effect{AnswerRejected{QuestionID: e.QuestionID, Reason: "unknown question"}}
	}
	if err := m.ledger.Record(e.QuestionID, e.Value); err != nil {
		return []Effect{AnswerRejected{QuestionID: e.QuestionID, Reason: err.Error()}}
	}
	m.version++
	return nil
}

func (m *Machine) onSubmitRequested(auto bool) []Effect {
	if m.state.Phase != PhaseActive {
		return nil
	}
	if auto {
		return m.submit(true)
	}
	if m.state.Confirming {
		return nil
	}

	if unanswered := len(m.questions) - m.ledger.Len(); unanswered > 0 {
		m.state.Confirming = true
		m.version++
		return []Effect{RequestConfirmation{Unanswered: unanswered, Message: MsgConfirmSubmit}}
	}
	return m.submit(false)
}

func (m *Machine) onConfirmResolved(ok bool) []Effect {
	if m.state.Phase != PhaseActive || !m.state.Confirming {
		return nil
	}
	m.state.Confirming = false
	m.version++
	if !ok {
		return nil
	}
	return m.submit(false)
}

func (m *Machine) onSubmissionFinished(err error) []Effect {
	if m.state.Phase != PhaseSubmitted || m.state.Saved || m.state.Warning != "" {
		return nil
	}
	if err != nil {
		m.state.Warning = MsgSaveFailed
	} else {
		m.state.Saved = true
	}
	m.version++
	return nil
}

// submit scores the ledger and enters SUBMITTED before the network round
// trip. The automatic path never asks for confirmation.
func (m *Machine) submit(auto bool) []Effect {
	sub := ledger.BuildSubmission(m.candidate, m.questions, m.ledger)
	sub.SessionID = m.sessionID
	sub.AutoSubmitted = auto
	sub.SubmittedAt = m.now().UTC()

	m.ledger.Freeze()

	next := State{
		Phase:            PhaseSubmitted,
		Score:            sub.CorrectAnswers,
		Total:            sub.TotalQuestions,
		ScorePercent:     sub.ScorePercent,
		SecondsRemaining: m.state.SecondsRemaining,
		AutoSubmitted:    auto,
	}
	if auto {
		next.Reason = MsgTimeUp
	}
	m.transition(next)
	return []Effect{StopTimer{}, StopDetector{}, Submit{Submission: sub}}
}

func (m *Machine) transition(next State) {
	m.state = next
	m.version++
}

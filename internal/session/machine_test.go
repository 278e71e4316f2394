package session_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/session"
)

var testCandidate = model.Candidate{
	ID:       uuid.MustParse("7b0cbb5e-2b4c-4a0e-9f55-3f4f0e8a1a11"),
	FullName: "Ada Lovelace",
	Email:    "ada@example.com",
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", Text: "2+2?", Kind: model.QuestionKindMultipleChoice, Options: []string{"3", "4"}, CorrectOption: "4"},
		{ID: "q2", Text: "Capital of France?", Kind: model.QuestionKindMultipleChoice, Options: []string{"Paris", "Rome"}, CorrectOption: "Paris"},
		{ID: "q3", Text: "Explain recursion.", Kind: model.QuestionKindFreeText},
	}
}

func activeConfig(minutes int) model.SessionConfig {
	return model.SessionConfig{IsActive: true, TimeLimitMinutes: minutes}
}

func activeMachine(t *testing.T, minutes int) *session.Machine {
	t.Helper()
	m := session.NewMachine(uuid.New(), testCandidate)
	effects := m.Apply(session.Loaded{Config: activeConfig(minutes), Questions: sampleQuestions()}, nil)
	require.Equal(t, session.PhaseActive, m.State().Phase)
	require.Equal(t, []session.Effect{session.StartTimer{Seconds: minutes * 60}, session.StartDetector{}}, effects)
	return m
}

func submissionOf(t *testing.T, effects []session.Effect) model.ResultSubmission {
	t.Helper()
	for _, e := range effects {
		if s, ok := e.(session.Submit); ok {
			return s.Submission
		}
	}
	t.Fatalf("no Submit effect in %#v", effects)
	return model.ResultSubmission{}
}

func countSubmits(effects []session.Effect) int {
	n := 0
	for _, e := range effects {
		if _, ok := e.(session.Submit); ok {
			n++
		}
	}
	return n
}

func TestLoadOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		loaded session.Loaded
		phase  session.Phase
		reason string
	}{
		{
			name:   "inactive config",
			loaded: session.Loaded{Config: model.SessionConfig{IsActive: false}},
			phase:  session.PhaseNotStarted,
			reason: session.MsgNotActive,
		},
		{
			name:   "config unavailable",
			loaded: session.Loaded{Err: session.ErrConfigUnavailable},
			phase:  session.PhaseNotStarted,
			reason: session.MsgNotActive,
		},
		{
			name:   "structured question error",
			loaded: session.Loaded{Config: activeConfig(10), Err: &session.QuestionError{Message: "Test is closed"}},
			phase:  session.PhaseNotStarted,
			reason: "Test is closed",
		},
		{
			name:   "transport failure",
			loaded: session.Loaded{Err: errors.New("dial tcp: connection refused")},
			phase:  session.PhaseError,
			reason: session.MsgLoadFailed,
		},
		{
			name:   "no questions",
			loaded: session.Loaded{Config: activeConfig(10)},
			phase:  session.PhaseNotStarted,
			reason: session.MsgNoQuestions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := session.NewMachine(uuid.New(), testCandidate)
			effects := m.Apply(tt.loaded, nil)

			assert.Empty(t, effects)
			assert.Equal(t, tt.phase, m.State().Phase)
			assert.Equal(t, tt.reason, m.State().Reason)
			assert.True(t, m.State().Phase.Terminal())
		})
	}
}

func TestLoadAppliesLimitAndDefaultTime(t *testing.T) {
	m := session.NewMachine(uuid.New(), testCandidate)
	effects := m.Apply(session.Loaded{
		Config:    model.SessionConfig{IsActive: true, QuestionLimit: 2},
		Questions: sampleQuestions(),
	}, nil)

	require.Equal(t, session.PhaseActive, m.State().Phase)
	assert.Equal(t, 2, m.State().Total)
	assert.Equal(t, 30*60, m.State().SecondsRemaining)
	assert.Contains(t, effects, session.StartTimer{Seconds: 1800})

	v := m.View()
	require.Len(t, v.Questions, 2)
	assert.Equal(t, "q1", v.Questions[0].ID)
	assert.Equal(t, "30:00", v.Clock)
}

func TestViewNeverCarriesCorrectOption(t *testing.T) {
	m := activeMachine(t, 5)
	assert.NotContains(t, mustJSON(t, m.View()), "correct_option")
}

func TestSecondLoadIsIgnored(t *testing.T) {
	m := activeMachine(t, 5)
	before := m.Version()

	effects := m.Apply(session.Loaded{Config: activeConfig(1), Questions: sampleQuestions()[:1]}, nil)

	assert.Empty(t, effects)
	assert.Equal(t, before, m.Version())
	assert.Equal(t, 3, m.State().Total)
}

func TestAnswersAreRecordedAndOverwritten(t *testing.T) {
	m := activeMachine(t, 5)
	m.Apply(session.AnswerRecorded{QuestionID: "q1", Value: "3"}, nil)
	m.Apply(session.AnswerRecorded{QuestionID: "q1", Value: "4"}, nil)

	assert.Equal(t, map[string]string{"q1": "4"}, m.View().Answers)
}

func TestUnknownQuestionAnswerIsRejected(t *testing.T) {
	m := activeMachine(t, 5)
	before := m.Version()

	effects := m.Apply(session.AnswerRecorded{QuestionID: "nope", Value: "x"}, nil)

	require.Len(t, effects, 1)
	rejected, ok := effects[0].(session.AnswerRejected)
	require.True(t, ok)
	assert.Equal(t, "nope", rejected.QuestionID)
	assert.Equal(t, before, m.Version())
}

func TestSubmitWithAllAnsweredSkipsConfirmation(t *testing.T) {
	m := activeMachine(t, 5)
	m.Apply(session.AnswerRecorded{QuestionID: "q1", Value: "4"}, nil)
	m.Apply(session.AnswerRecorded{QuestionID: "q2", Value: "Rome"}, nil)
	m.Apply(session.AnswerRecorded{QuestionID: "q3", Value: "A function calling itself."}, nil)

	effects := m.Apply(session.SubmitRequested{}, nil)

	sub := submissionOf(t, effects)
	assert.Contains(t, effects, session.StopTimer{})
	assert.Contains(t, effects, session.StopDetector{})
	assert.False(t, sub.AutoSubmitted)
	assert.Equal(t, 1, sub.CorrectAnswers)
	assert.Equal(t, 3, sub.TotalQuestions)
	assert.Equal(t, "33.33", sub.ScorePercent)
	assert.Equal(t, testCandidate.Email, sub.Email)

	st := m.State()
	assert.Equal(t, session.PhaseSubmitted, st.Phase)
	assert.Equal(t, 1, st.Score)
	assert.Empty(t, st.Reason)
}

func TestSubmitWithUnansweredAsksForConfirmation(t *testing.T) {
	m := activeMachine(t, 5)
	m.Apply(session.AnswerRecorded{QuestionID: "q1", Value: "4"}, nil)

	effects := m.Apply(session.SubmitRequested{}, nil)
	require.Equal(t, []session.Effect{
		session.RequestConfirmation{Unanswered: 2, Message: session.MsgConfirmSubmit},
	}, effects)
	assert.True(t, m.State().Confirming)

	// a second click while the prompt is open does nothing
	assert.Empty(t, m.Apply(session.SubmitRequested{}, nil))

	t.Run("declined", func(t *testing.T) {
		effects := m.Apply(session.ConfirmResolved{OK: false}, nil)
		assert.Empty(t, effects)
		assert.Equal(t, session.PhaseActive, m.State().Phase)
		assert.False(t, m.State().Confirming)
	})

	t.Run("accepted", func(t *testing.T) {
		m.Apply(session.SubmitRequested{}, nil)
		effects := m.Apply(session.ConfirmResolved{OK: true}, nil)

		sub := submissionOf(t, effects)
		require.Len(t, sub.Answers, 3)
		assert.Equal(t, model.UnansweredMarker, sub.Answers[1].UserAnswer)
		assert.Equal(t, model.UnansweredMarker, sub.Answers[2].UserAnswer)
		assert.Nil(t, sub.Answers[2].IsCorrect)
		assert.Equal(t, session.PhaseSubmitted, m.State().Phase)
	})
}

func TestStaleConfirmationIsIgnored(t *testing.T) {
	m := activeMachine(t, 5)
	assert.Empty(t, m.Apply(session.ConfirmResolved{OK: true}, nil))
	assert.Equal(t, session.PhaseActive, m.State().Phase)
}

func TestTimerExpiryAutoSubmitsOnce(t *testing.T) {
	m := activeMachine(t, 1)
	m.Apply(session.AnswerRecorded{QuestionID: "q1", Value: "4"}, nil)

	var submits int
	for i := 0; i < 59; i++ {
		submits += countSubmits(m.Apply(session.Tick{}, nil))
	}
	require.Equal(t, 0, submits)
	assert.Equal(t, 1, m.State().SecondsRemaining)
	assert.Equal(t, "0:01", m.View().Clock)

	effects := m.Apply(session.Tick{}, nil)
	sub := submissionOf(t, effects)
	for _, e := range effects {
		_, isPrompt := e.(session.RequestConfirmation)
		assert.False(t, isPrompt, "automatic submission must not prompt")
	}
	assert.True(t, sub.AutoSubmitted)

	st := m.State()
	assert.Equal(t, session.PhaseSubmitted, st.Phase)
	assert.Equal(t, session.MsgTimeUp, st.Reason)
	assert.Equal(t, 0, st.SecondsRemaining)

	for i := 0; i < 5; i++ {
		assert.Empty(t, m.Apply(session.Tick{}, nil))
	}
	assert.Empty(t, m.Apply(session.SubmitRequested{Auto: true}, nil))
}

func TestExpiryWhileConfirmingSubmitsAutomatically(t *testing.T) {
	m := activeMachine(t, 1)
	m.Apply(session.SubmitRequested{}, nil)
	require.True(t, m.State().Confirming)

	var effects []session.Effect
	for i := 0; i < 60; i++ {
		effects = m.Apply(session.Tick{}, nil)
	}
	assert.True(t, submissionOf(t, effects).AutoSubmitted)

	// the prompt answering late changes nothing
	assert.Empty(t, m.Apply(session.ConfirmResolved{OK: true}, nil))
	assert.Equal(t, session.PhaseSubmitted, m.State().Phase)
}

func TestSignalEndsSession(t *testing.T) {
	m := activeMachine(t, 5)
	m.Apply(session.AnswerRecorded{QuestionID: "q1", Value: "4"}, nil)

	sig := proctor.Signal{Category: proctor.CategoryVisibility, Reason: "Tab switch detected"}
	effects := m.Apply(session.SignalRaised{Signal: sig}, nil)

	assert.Equal(t, []session.Effect{
		session.StopTimer{}, session.StopDetector{}, session.RecordProctorEvent{Signal: sig},
	}, effects)
	st := m.State()
	assert.Equal(t, session.PhaseEnded, st.Phase)
	assert.Equal(t, "Tab switch detected", st.Reason)
	require.NotNil(t, st.Signal)
	assert.Equal(t, proctor.CategoryVisibility, st.Signal.Category)

	// no submission ever follows an ENDED session
	assert.Empty(t, m.Apply(session.SubmitRequested{}, nil))
	assert.Empty(t, m.Apply(session.SubmitRequested{Auto: true}, nil))
	assert.Empty(t, m.Apply(session.AnswerRecorded{QuestionID: "q2", Value: "Paris"}, nil))
	assert.Nil(t, m.View().Answers)
}

func TestFirstSignalWins(t *testing.T) {
	m := activeMachine(t, 5)
	first := proctor.Signal{Category: proctor.CategoryKeyboard, Reason: "Restricted key used: Ctrl+C"}
	second := proctor.Signal{Category: proctor.CategoryGeometry, Reason: "Window resize detected"}

	m.Apply(session.SignalRaised{Signal: first}, nil)
	assert.Empty(t, m.Apply(session.SignalRaised{Signal: second}, nil))
	assert.Equal(t, first.Reason, m.State().Reason)
}

func TestSignalsBeforeActiveAreIgnored(t *testing.T) {
	m := session.NewMachine(uuid.New(), testCandidate)
	sig := proctor.Signal{Category: proctor.CategoryFocus, Reason: "Focus lost"}

	assert.Empty(t, m.Apply(session.SignalRaised{Signal: sig}, nil))
	assert.Equal(t, session.PhaseLoading, m.State().Phase)
}

func TestMaskedSignalIsSuppressed(t *testing.T) {
	m := activeMachine(t, 5)
	mask := proctor.NewMask()
	release := mask.Acquire(proctor.CategoryFocus)

	blur := proctor.Signal{Category: proctor.CategoryFocus, Reason: "Focus lost"}
	effects := m.Apply(session.SignalRaised{Signal: blur}, mask)
	assert.Equal(t, []session.Effect{session.SignalSuppressed{Signal: blur}}, effects)
	assert.Equal(t, session.PhaseActive, m.State().Phase)

	release()
	m.Apply(session.SignalRaised{Signal: blur}, mask)
	assert.Equal(t, session.PhaseEnded, m.State().Phase)
}

func TestSubmissionOutcome(t *testing.T) {
	t.Run("saved", func(t *testing.T) {
		m := activeMachine(t, 5)
		m.Apply(session.SubmitRequested{Auto: true}, nil)
		m.Apply(session.SubmissionFinished{}, nil)
		assert.True(t, m.State().Saved)
		assert.Empty(t, m.State().Warning)
	})

	t.Run("failed keeps the score", func(t *testing.T) {
		m := activeMachine(t, 5)
		m.Apply(session.AnswerRecorded{QuestionID: "q1", Value: "4"}, nil)
		m.Apply(session.SubmitRequested{Auto: true}, nil)
		m.Apply(session.SubmissionFinished{Err: errors.New("503")}, nil)

		st := m.State()
		assert.Equal(t, session.PhaseSubmitted, st.Phase)
		assert.Equal(t, session.MsgSaveFailed, st.Warning)
		assert.False(t, st.Saved)
		assert.Equal(t, 1, st.Score)
	})

	t.Run("late completion outside SUBMITTED", func(t *testing.T) {
		m := activeMachine(t, 5)
		before := m.Version()
		assert.Empty(t, m.Apply(session.SubmissionFinished{}, nil))
		assert.Equal(t, before, m.Version())
	})
}

func TestVersionTracksObservableChanges(t *testing.T) {
	m := activeMachine(t, 5)
	v0 := m.Version()
	m.Apply(session.Tick{}, nil)
	v1 := m.Version()
	assert.Greater(t, v1, v0)

	m.Apply(session.AnswerRecorded{QuestionID: "missing", Value: "x"}, nil)
	assert.Equal(t, v1, m.Version())
}

var allEvents = []func(*rapid.T) session.Event{
	func(*rapid.T) session.Event { return session.Tick{} },
	func(t *rapid.T) session.Event {
		c := rapid.SampledFrom(proctor.Categories).Draw(t, "category")
		return session.SignalRaised{Signal: proctor.Signal{Category: c, Reason: string(c)}}
	},
	func(t *rapid.T) session.Event {
		id := rapid.SampledFrom([]string{"q1", "q2", "q3", "zz"}).Draw(t, "qid")
		return session.AnswerRecorded{QuestionID: id, Value: rapid.StringMatching(`[a-z0-9]{0,4}`).Draw(t, "value")}
	},
	func(t *rapid.T) session.Event {
		return session.SubmitRequested{Auto: rapid.Bool().Draw(t, "auto")}
	},
	func(t *rapid.T) session.Event {
		return session.ConfirmResolved{OK: rapid.Bool().Draw(t, "ok")}
	},
	func(t *rapid.T) session.Event {
		if rapid.Bool().Draw(t, "failed") {
			return session.SubmissionFinished{Err: errors.New("boom")}
		}
		return session.SubmissionFinished{}
	},
	func(*rapid.T) session.Event {
		return session.Loaded{Config: activeConfig(1), Questions: sampleQuestions()}
	},
}

func drawEvent(t *rapid.T, label string) session.Event {
	i := rapid.IntRange(0, len(allEvents)-1).Draw(t, label)
	return allEvents[i](t)
}

// Property 1: a session submits at most once, and never after ENDED.
func TestPropertySubmitAtMostOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := session.NewMachine(uuid.New(), testCandidate)
		m.Apply(session.Loaded{Config: activeConfig(1), Questions: sampleQuestions()}, nil)

		submits := 0
		endedBeforeSubmit := false
		n := rapid.IntRange(0, 200).Draw(t, "steps")
		for i := 0; i < n; i++ {
			if m.State().Phase == session.PhaseEnded && submits == 0 {
				endedBeforeSubmit = true
			}
			submits += countSubmits(m.Apply(drawEvent(t, "event"), nil))
		}

		if submits > 1 {
			t.Fatalf("submitted %d times", submits)
		}
		if endedBeforeSubmit && submits > 0 {
			t.Fatalf("submitted after ENDED")
		}
	})
}

// Property 2: terminal phases absorb every event.
func TestPropertyTerminalPhasesAbsorb(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := session.NewMachine(uuid.New(), testCandidate)
		m.Apply(session.Loaded{Config: activeConfig(1), Questions: sampleQuestions()}, nil)

		for i := 0; i < 300 && !m.State().Phase.Terminal(); i++ {
			m.Apply(drawEvent(t, "before"), nil)
		}
		if !m.State().Phase.Terminal() {
			m.Apply(session.SubmitRequested{Auto: true}, nil)
		}

		phase := m.State().Phase
		reason := m.State().Reason
		score := m.State().Score
		n := rapid.IntRange(1, 50).Draw(t, "after")
		for i := 0; i < n; i++ {
			m.Apply(drawEvent(t, "after_event"), nil)
			if m.State().Phase != phase || m.State().Reason != reason || m.State().Score != score {
				t.Fatalf("terminal phase %s changed to %s", phase, m.State().Phase)
			}
		}
	})
}

// Property 3: the first accepted signal is the one reported.
func TestPropertyFirstSignalWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := activeMachineRapid()
		sigs := rapid.SliceOfN(rapid.SampledFrom(proctor.Categories), 1, 10).Draw(t, "signals")
		for _, c := range sigs {
			m.Apply(session.SignalRaised{Signal: proctor.Signal{Category: c, Reason: "r-" + string(c)}}, nil)
		}
		if got := m.State().Reason; got != "r-"+string(sigs[0]) {
			t.Fatalf("reason %q, want first signal %q", got, sigs[0])
		}
	})
}

// Property 4: the countdown never increases and never goes negative.
func TestPropertyCountdownMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := activeMachineRapid()
		prev := m.State().SecondsRemaining
		n := rapid.IntRange(0, 120).Draw(t, "ticks")
		for i := 0; i < n; i++ {
			m.Apply(session.Tick{}, nil)
			cur := m.State().SecondsRemaining
			if cur > prev || cur < 0 {
				t.Fatalf("remaining went from %d to %d", prev, cur)
			}
			prev = cur
		}
	})
}

func activeMachineRapid() *session.Machine {
	m := session.NewMachine(uuid.New(), testCandidate)
	m.Apply(session.Loaded{Config: activeConfig(1), Questions: sampleQuestions()}, nil)
	return m
}

package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/timer"
)

// ConfigFetcher returns the test control record.
type ConfigFetcher interface {
	GetSessionConfig(ctx context.Context) (model.SessionConfig, error)
}

// QuestionSource returns the ordered question set. A *QuestionError marks a
// structured failure; any other error is a transport failure.
type QuestionSource interface {
	GetQuestions(ctx context.Context) ([]model.Question, error)
}

// ResultSubmitter accepts a finalized submission.
type ResultSubmitter interface {
	SubmitResult(ctx context.Context, sub model.ResultSubmission) error
}

// Prompter presents a yes/no confirmation to the candidate.
type Prompter interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Observer renders views. Render is called from the controller loop.
type Observer interface {
	Render(v View)
}

// ProctorEventRecorder stores the signal that ended a session.
type ProctorEventRecorder interface {
	RecordProctorEvent(ctx context.Context, ev model.ProctorEvent) error
}

// AutoConfirm answers yes to every prompt.
type AutoConfirm struct{}

func (AutoConfirm) Confirm(context.Context, string) (bool, error) { return true, nil }

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(View)

func (f ObserverFunc) Render(v View) { f(v) }

// Deps are the controller's collaborators. Config, Questions and Submitter
// are required.
type Deps struct {
	Config    ConfigFetcher
	Questions QuestionSource
	Submitter ResultSubmitter
	Prompter  Prompter
	Observer  Observer
	Engine    *proctor.Engine
	Detector  proctor.InstanceDetector
	Recorder  ProctorEventRecorder
	Ticker    *timer.Ticker

	// CallTimeout bounds each collaborator call.
	CallTimeout time.Duration
	Log         zerolog.Logger
}

const (
	eventQueueSize     = 64
	defaultCallTimeout = 15 * time.Second
)

// Controller runs one session: a single goroutine drains the event queue
// into the Machine and performs the resulting effects. Producers (client
// observations, ticker, detector, collaborator completions) only Post.
type Controller struct {
	id      uuid.UUID
	machine *Machine
	mask    *proctor.Mask
	deps    Deps
	log     zerolog.Logger

	events   chan Event
	done     chan struct{}
	finished atomic.Bool

	// owned by the loop goroutine
	stopTimer      context.CancelFunc
	releaseConfirm func()
	lastVersion    uint64
	lastPhase      Phase

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewController prepares a session for candidate. Call Run to start it.
func NewController(candidate model.Candidate, deps Deps) *Controller {
	if deps.Prompter == nil {
		deps.Prompter = AutoConfirm{}
	}
	if deps.Observer == nil {
		deps.Observer = ObserverFunc(func(View) {})
	}
	if deps.Engine == nil {
		deps.Engine = proctor.NewEngine(proctor.Geometry{})
	}
	if deps.Detector == nil {
		deps.Detector = proctor.NoopDetector{}
	}
	if deps.Ticker == nil {
		deps.Ticker = timer.NewTicker(time.Second)
	}
	if deps.CallTimeout <= 0 {
		deps.CallTimeout = defaultCallTimeout
	}

	id := uuid.New()
	return &Controller{
		id:      id,
		machine: NewMachine(id, candidate),
		mask:    proctor.NewMask(),
		deps:    deps,
		log: deps.Log.With().
			Str("component", "session").
			Str("session_id", id.String()).
			Logger(),
		events: make(chan Event, eventQueueSize),
		done:   make(chan struct{}),
	}
}

// ID identifies this session instance.
func (c *Controller) ID() uuid.UUID {
	return c.id
}

// Mask exposes the signal mask, mainly for tests.
func (c *Controller) Mask() *proctor.Mask {
	return c.mask
}

// Post enqueues ev. It returns false once the controller has stopped.
func (c *Controller) Post(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Finished reports whether the session reached a terminal phase.
func (c *Controller) Finished() bool {
	return c.finished.Load()
}

// Observe runs a raw browser observation through the proctoring engine and
// posts the resulting signal, if any. The verdict tells the caller whether
// the default browser action should have been prevented.
func (c *Controller) Observe(obs proctor.Observation) proctor.Verdict {
	v := c.deps.Engine.Evaluate(obs)
	if v.Signal != nil {
		c.Post(SignalRaised{Signal: *v.Signal})
	}
	return v
}

// Policy is the engine's prevention policy for the client.
func (c *Controller) Policy() proctor.Policy {
	return c.deps.Engine.Policy()
}

// Run loads the session and processes events until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		close(c.done)
		c.releaseConfirmMask()
		c.stopDetector()
		c.wg.Wait()
	}()

	c.lastPhase = c.machine.State().Phase
	c.render()
	c.goLoad(ctx)

	for {
		select {
		case <-ctx.Done():
			c.log.Debug().Msg("Session loop stopped")
			return
		case ev := <-c.events:
			c.apply(ctx, ev)
		}
	}
}

func (c *Controller) apply(ctx context.Context, ev Event) {
	effects := c.machine.Apply(ev, c.mask)
	if _, ok := ev.(ConfirmResolved); ok {
		// Every observation queued before the answer has now been
		// evaluated under the mask.
		c.releaseConfirmMask()
	}
	for _, eff := range effects {
		c.perform(ctx, eff)
	}

	state := c.machine.State()
	if state.Phase != c.lastPhase {
		c.log.Info().
			Str("from", string(c.lastPhase)).
			Str("to", string(state.Phase)).
			Str("reason", state.Reason).
			Msg("Session transition")
		c.lastPhase = state.Phase
		if state.Phase.Terminal() {
			c.finished.Store(true)
		}
	}
	if c.machine.Version() != c.lastVersion {
		c.render()
	}
}

func (c *Controller) render() {
	c.lastVersion = c.machine.Version()
	c.deps.Observer.Render(c.machine.View())
}

func (c *Controller) perform(ctx context.Context, eff Effect) {
	switch e := eff.(type) {
	case StartTimer:
		tctx, cancel := context.WithCancel(ctx)
		c.stopTimer = cancel
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.deps.Ticker.Run(tctx, func() { c.Post(Tick{}) })
		}()
		c.log.Info().Int("seconds", e.Seconds).Msg("Countdown started")

	case StopTimer:
		if c.stopTimer != nil {
			c.stopTimer()
			c.stopTimer = nil
		}

	case StartDetector:
		if err := c.deps.Detector.Start(ctx, func(d proctor.InstanceDuplicated) { c.Observe(d) }); err != nil {
			// Fail open: the other signal sources keep working.
			c.log.Warn().Err(err).Str("detector", c.deps.Detector.Name()).Msg("Instance detector unavailable")
			return
		}
		c.log.Debug().Str("detector", c.deps.Detector.Name()).Msg("Instance detector started")

	case StopDetector:
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.stopDetector()
		}()

	case RequestConfirmation:
		// Masked before the prompt leaves this goroutine and released by the
		// loop when the answer is applied, so a blur caused by the
		// confirmation surface is never evaluated unmasked.
		c.releaseConfirmMask()
		c.releaseConfirm = c.mask.Acquire(proctor.CategoryFocus)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.Post(ConfirmResolved{OK: c.confirm(ctx, e.Message)})
		}()

	case Submit:
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.deps.CallTimeout)
			defer cancel()
			err := c.deps.Submitter.SubmitResult(callCtx, e.Submission)
			if err != nil {
				c.log.Error().Err(err).Msg("Result submission failed")
			} else {
				c.log.Info().
					Int("score", e.Submission.CorrectAnswers).
					Int("total", e.Submission.TotalQuestions).
					Bool("auto", e.Submission.AutoSubmitted).
					Msg("Result saved")
			}
			c.Post(SubmissionFinished{Err: err})
		}()

	case RecordProctorEvent:
		c.log.Warn().Str("category", string(e.Signal.Category)).Str("reason", e.Signal.Reason).Msg("Session ended by proctoring signal")
		if c.deps.Recorder == nil {
			return
		}
		pe := model.ProctorEvent{
			SessionID:   c.id,
			CandidateID: c.machine.candidate.ID,
			Category:    string(e.Signal.Category),
			Reason:      e.Signal.Reason,
			RecordedAt:  time.Now().UTC(),
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.deps.CallTimeout)
			defer cancel()
			if err := c.deps.Recorder.RecordProctorEvent(callCtx, pe); err != nil {
				c.log.Error().Err(err).Msg("Record proctor event failed")
			}
		}()

	case SignalSuppressed:
		c.log.Debug().Str("category", string(e.Signal.Category)).Msg("Signal suppressed by mask")

	case AnswerRejected:
		c.log.Warn().Str("q_id", e.QuestionID).Str("reason", e.Reason).Msg("Answer rejected")
	}
}

// confirm asks the prompter while the focus mask is held. Errors and panics
// count as "no"; the caller always posts the result so the loop releases
// the mask.
func (c *Controller) confirm(ctx context.Context, message string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Str("panic", fmt.Sprint(r)).Msg("Confirmation prompt panicked")
			ok = false
		}
	}()

	ok, err := c.deps.Prompter.Confirm(ctx, message)
	if err != nil {
		c.log.Warn().Err(err).Msg("Confirmation prompt failed")
		return false
	}
	return ok
}

func (c *Controller) goLoad(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, c.deps.CallTimeout)
		defer cancel()
		c.Post(c.load(callCtx))
	}()
}

func (c *Controller) load(ctx context.Context) Loaded {
	cfg, err := c.deps.Config.GetSessionConfig(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("Fetch session config failed")
		return Loaded{Err: err}
	}
	if !cfg.IsActive {
		return Loaded{Config: cfg}
	}

	questions, err := c.deps.Questions.GetQuestions(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("Fetch questions failed")
	}
	return Loaded{Config: cfg, Questions: questions, Err: err}
}

// stopDetector may run from the loop's deferred cleanup and from a
// StopDetector effect; only the first call acts.
func (c *Controller) stopDetector() {
	c.stopOnce.Do(func() {
		c.deps.Detector.Stop()
	})
}

// releaseConfirmMask drops the focus mask held for a pending confirmation.
// Loop goroutine only.
func (c *Controller) releaseConfirmMask() {
	if c.releaseConfirm != nil {
		c.releaseConfirm()
		c.releaseConfirm = nil
	}
}

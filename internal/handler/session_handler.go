package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/session"
	"github.com/stemsi/exstem-proctor/internal/timer"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

const helloTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Catalog is what a session loads from.
type Catalog interface {
	session.ConfigFetcher
	session.QuestionSource
}

// Submissions is where a session delivers its outcome.
type Submissions interface {
	session.ResultSubmitter
	session.ProctorEventRecorder
}

// SessionHandler hosts one session controller per WebSocket connection.
type SessionHandler struct {
	cfg         *config.Config
	rdb         redis.UniversalClient
	catalog     Catalog
	submissions Submissions
	log         zerolog.Logger
	upgrader    websocket.Upgrader
	active      atomic.Int64
}

// NewSessionHandler creates a new SessionHandler. A nil rdb disables
// duplicate-instance detection.
func NewSessionHandler(cfg *config.Config, rdb redis.UniversalClient, catalog Catalog, submissions Submissions, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		cfg:         cfg,
		rdb:         rdb,
		catalog:     catalog,
		submissions: submissions,
		log:         log.With().Str("component", "session_handler").Logger(),
		upgrader:    buildUpgrader(cfg.AllowedOrigins),
	}
}

// ActiveSessions reports the number of open session streams.
func (h *SessionHandler) ActiveSessions() int64 {
	return h.active.Load()
}

// SessionStream godoc
// WS /ws/v1/session?token=...
// The first client message must be hello. The server answers with the
// prevention policy, then streams state events until the client leaves.
func (h *SessionHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	h.active.Add(1)
	defer h.active.Add(-1)

	candidate := claims.Candidate()
	wsLog := h.log.With().Str("candidate_id", candidate.ID.String()).Logger()

	hello, err := readHello(conn)
	if err != nil {
		wsLog.Warn().Err(err).Msg("Session opened without hello")
		conn.WriteError(response.ErrInvalidPayload, "the first message must be hello")
		return
	}

	engine := proctor.NewEngine(
		proctor.Geometry{Width: hello.Width, Height: hello.Height},
		proctor.WithDisabled(disabledCategories(hello)...),
	)
	if err := conn.WriteTyped(ws.PolicyResponse{Event: ws.EventPolicy, Policy: engine.Policy()}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	detector := proctor.SelectDetector(ctx, h.rdb, proctor.DetectorConfig{
		Mode:              proctor.ParseDetectorMode(h.cfg.DetectorMode),
		Scope:             proctor.Scope(candidate.Email),
		InstanceID:        uuid.NewString(),
		HeartbeatInterval: h.cfg.HeartbeatInterval,
	}, wsLog)

	prompter := newWSPrompter(conn)
	ctrl := session.NewController(candidate, session.Deps{
		Config:    h.catalog,
		Questions: h.catalog,
		Submitter: h.submissions,
		Recorder:  h.submissions,
		Prompter:  prompter,
		Observer: session.ObserverFunc(func(v session.View) {
			if err := conn.WriteTyped(ws.StateResponse{Event: ws.EventState, View: v}); err != nil {
				wsLog.Debug().Err(err).Msg("State write failed")
			}
		}),
		Engine:   engine,
		Detector: detector,
		Ticker:   timer.NewTicker(h.cfg.TickInterval),
		Log:      wsLog,
	})

	wsLog = wsLog.With().Str("session_id", ctrl.ID().String()).Logger()
	wsLog.Info().Str("detector", detector.Name()).Msg("Candidate connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()

	h.readLoop(conn, ctrl, prompter, wsLog)

	cancel()
	<-done
	wsLog.Info().Str("phase", "closed").Msg("Candidate disconnected")
}

func readHello(conn *ws.Conn) (ws.HelloRequest, error) {
	var hello ws.HelloRequest
	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return hello, err
	}
	if err := json.Unmarshal(raw, &hello); err != nil {
		return hello, err
	}
	if hello.Action != ws.ActionHello {
		return hello, errors.New("unexpected action " + string(hello.Action))
	}
	return hello, nil
}

// readLoop turns client messages into controller input until the socket
// closes.
func (h *SessionHandler) readLoop(conn *ws.Conn, ctrl *session.Controller, prompter *wsPrompter, wsLog zerolog.Logger) {
	for {
		action, raw, err := conn.ReadEnvelope()
		if err != nil {
			if errors.Is(err, ws.ErrMalformed) {
				conn.WriteError(response.ErrInvalidPayload, "")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if obs, ok, err := decodeObservation(action, raw); ok {
			if err != nil {
				conn.WriteError(response.ErrInvalidPayload, err.Error())
				continue
			}
			ctrl.Observe(obs)
			continue
		}

		switch action {
		case ws.ActionAnswer:
			var req ws.AnswerRequest
			if err := json.Unmarshal(raw, &req); err != nil || req.QID == "" {
				conn.WriteError(response.ErrInvalidPayload, "q_id is required")
				continue
			}
			if ctrl.Finished() {
				conn.WriteError(response.ErrSessionClosed, "")
				continue
			}
			ctrl.Post(session.AnswerRecorded{QuestionID: req.QID, Value: req.Answer})

		case ws.ActionSubmit:
			if ctrl.Finished() {
				conn.WriteError(response.ErrSessionClosed, "")
				continue
			}
			ctrl.Post(session.SubmitRequested{})

		case ws.ActionConfirm:
			var req ws.ConfirmRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				conn.WriteError(response.ErrInvalidPayload, "")
				continue
			}
			if !prompter.resolve(req.ID, req.OK) {
				wsLog.Debug().Str("confirm_id", req.ID).Msg("Stale confirmation ignored")
			}

		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})

		case ws.ActionHello:
			conn.WriteError(response.ErrInvalidPayload, "session already started")

		default:
			wsLog.Warn().Str("action", string(action)).Msg("Unknown action")
			conn.WriteError(response.ErrUnknownAction, "unknown action: "+string(action))
		}
	}
}

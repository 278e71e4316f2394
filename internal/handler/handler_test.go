package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/session"
	"github.com/stemsi/exstem-proctor/internal/validator"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

func init() {
	validator.Setup()
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

// ─── Candidate ──────────────────────────────────────────────────────

type memoryCandidates struct {
	stored []model.Candidate
}

func (m *memoryCandidates) UpsertByEmail(_ context.Context, c *model.Candidate) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.stored = append(m.stored, *c)
	return nil
}

func TestCandidateRegister(t *testing.T) {
	_, rdb := newTestRedis(t)
	auth := service.NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Hour}, rdb)
	store := &memoryCandidates{}
	h := NewCandidateHandler(service.NewCandidateService(store, auth, zerolog.Nop()), zerolog.Nop())

	r := gin.New()
	r.POST("/api/v1/candidates", h.Register)

	t.Run("created", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodPost, "/api/v1/candidates", map[string]string{
			"full_name": "  Ada Lovelace ",
			"email":     "Ada@Example.com",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp model.RegisterCandidateResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.NotEmpty(t, resp.Token)
		require.Len(t, store.stored, 1)
		assert.Equal(t, resp.CandidateID, store.stored[0].ID)
		assert.Equal(t, "ada@example.com", store.stored[0].Email)
		assert.Equal(t, "Ada Lovelace", store.stored[0].FullName)
	})

	t.Run("validation", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodPost, "/api/v1/candidates", map[string]string{
			"full_name": "A",
			"email":     "not-an-email",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Fields, "full_name")
		assert.Contains(t, env.Error.Fields, "email")
	})
}

// ─── Session config ─────────────────────────────────────────────────

func TestGetSessionConfig(t *testing.T) {
	tests := []struct {
		name       string
		catalog    *fakeCatalog
		wantStatus int
		wantActive bool
		wantLimit  int
	}{
		{
			name:       "active",
			catalog:    &fakeCatalog{cfg: model.SessionConfig{IsActive: true, QuestionLimit: 5, TimeLimitMinutes: 20}},
			wantStatus: http.StatusOK,
			wantActive: true,
			wantLimit:  20,
		},
		{
			name:       "missing record reads inactive",
			catalog:    &fakeCatalog{cfgErr: session.ErrConfigUnavailable},
			wantStatus: http.StatusOK,
			wantLimit:  model.DefaultTimeLimitMinutes,
		},
		{
			name:       "store down",
			catalog:    &fakeCatalog{cfgErr: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/api/v1/session-config", NewSessionConfigHandler(tt.catalog, zerolog.Nop()).GetSessionConfig)

			w, env := doJSON(t, r, http.MethodGet, "/api/v1/session-config", nil)
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				require.NotNil(t, env.Error)
				assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)
				return
			}

			var cfg model.SessionConfig
			require.NoError(t, json.Unmarshal(env.Data, &cfg))
			assert.Equal(t, tt.wantActive, cfg.IsActive)
			assert.Equal(t, tt.wantLimit, cfg.TimeLimitMinutes)
		})
	}
}

// ─── Health ─────────────────────────────────────────────────────────

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fixedCounter int64

func (c fixedCounter) ActiveSessions() int64 { return int64(c) }

func TestHealth(t *testing.T) {
	_, rdb := newTestRedis(t)
	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.PersistResultsQueue, "a", "b").Err())

	r := gin.New()
	r.GET("/health", NewHealthHandler(fakePinger{}, rdb, fixedCounter(3)).Health)

	w, env := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report healthReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, int64(2), report.QueueResults)
	assert.Equal(t, int64(0), report.QueueProctorEvents)
	assert.Equal(t, int64(3), report.ActiveSessions)
}

func TestHealth_Degraded(t *testing.T) {
	mr, rdb := newTestRedis(t)

	r := gin.New()
	r.GET("/health", NewHealthHandler(fakePinger{err: errors.New("db down")}, rdb, nil).Health)

	w, env := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var report healthReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "db down", report.Postgres)
	assert.Equal(t, "ok", report.Redis)

	mr.Close()
	w, env = doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.NotEqual(t, "ok", report.Redis)
}

// ─── Observations ───────────────────────────────────────────────────

func TestDecodeObservation(t *testing.T) {
	input := proctor.Target{Tag: "TEXTAREA"}
	tests := []struct {
		action ws.Action
		raw    string
		want   proctor.Observation
	}{
		{ws.ActionVisibility, `{"hidden":true}`, proctor.VisibilityChanged{Hidden: true}},
		{ws.ActionBlur, `{}`, proctor.FocusLost{}},
		{ws.ActionClipboard, `{"op":"paste","target":{"tag":"TEXTAREA"}}`, proctor.ClipboardUsed{Op: proctor.ClipboardPaste, Target: input}},
		{ws.ActionContextMenu, `{}`, proctor.ContextMenuOpened{}},
		{ws.ActionKeyDown, `{"key":"c","ctrl":true}`, proctor.KeyPressed{Key: "c", Ctrl: true}},
		{ws.ActionResize, `{"width":800,"height":600}`, proctor.WindowResized{Geometry: proctor.Geometry{Width: 800, Height: 600}}},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			obs, ok, err := decodeObservation(tt.action, []byte(tt.raw))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, obs)
		})
	}
}

func TestDecodeObservation_NotObservation(t *testing.T) {
	for _, a := range []ws.Action{ws.ActionAnswer, ws.ActionSubmit, ws.ActionPing, "nope"} {
		_, ok, err := decodeObservation(a, []byte(`{}`))
		assert.False(t, ok, a)
		assert.NoError(t, err, a)
	}
}

func TestDecodeObservation_Invalid(t *testing.T) {
	_, ok, err := decodeObservation(ws.ActionClipboard, []byte(`{"op":"print"}`))
	assert.True(t, ok)
	assert.Error(t, err)

	_, ok, err = decodeObservation(ws.ActionResize, []byte(`{"width":"wide"}`))
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestDisabledCategories(t *testing.T) {
	got := disabledCategories(ws.HelloRequest{Capabilities: map[string]bool{
		"geometry":       false,
		"focus":          true,
		"unknown":        false,
		"multi_instance": false,
	}})
	assert.Equal(t, []proctor.Category{proctor.CategoryGeometry}, got)
}

// ─── Prompter ───────────────────────────────────────────────────────

func TestPrompterResolveUnknownID(t *testing.T) {
	p := newWSPrompter(nil)
	assert.False(t, p.resolve("missing", true))
}

func TestSessionStream_DeclineThenStaleConfirm(t *testing.T) {
	w := startSession(t, activeCatalog(), &fakeSubmissions{})
	w.hello(nil)
	w.untilPhase(session.PhaseActive)

	// Declining keeps the session active; replaying the same id is ignored.
	w.send(map[string]any{"action": "submit"})
	prompt := w.until(func(m serverMessage) bool { return m.Event == "confirm" })
	w.send(map[string]any{"action": "confirm", "id": prompt.ID, "ok": false})
	view := w.until(func(m serverMessage) bool { return m.Event == "state" && !m.View.Confirming })
	assert.Equal(t, session.PhaseActive, view.View.Phase)

	w.send(map[string]any{"action": "confirm", "id": prompt.ID, "ok": true})
	w.send(map[string]any{"action": "ping"})
	w.until(func(m serverMessage) bool { return m.Event == "pong" })
}

package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/response"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports live session streams.
type SessionCounter interface {
	ActiveSessions() int64
}

// HealthHandler reports dependency reachability and worker backlog.
type HealthHandler struct {
	db        Pinger
	rdb       redis.UniversalClient
	sessions  SessionCounter
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, rdb redis.UniversalClient, sessions SessionCounter) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, sessions: sessions, startTime: time.Now()}
}

type healthReport struct {
	Status         string `json:"status"`
	Postgres       string `json:"postgres"`
	Redis          string `json:"redis"`
	Uptime         string `json:"uptime"`
	Goroutines     int    `json:"goroutines"`
	ActiveSessions int64  `json:"active_sessions"`

	// Worker Queues
	QueueResults       int64 `json:"queue_results"`
	QueueProctorEvents int64 `json:"queue_proctor_events"`
}

// Health godoc
// GET /health
// 200 when Postgres and Redis answer, 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	report := healthReport{
		Status:     "ok",
		Postgres:   "ok",
		Redis:      "ok",
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}
	if h.sessions != nil {
		report.ActiveSessions = h.sessions.ActiveSessions()
	}

	if err := h.db.Ping(ctx); err != nil {
		report.Status, report.Postgres = "degraded", err.Error()
	}

	// ── Worker Queues (pipelined LLEN) ──
	pipe := h.rdb.Pipeline()
	resultsCmd := pipe.LLen(ctx, config.WorkerKey.PersistResultsQueue)
	eventsCmd := pipe.LLen(ctx, config.WorkerKey.PersistProctorEventsQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		report.Status, report.Redis = "degraded", err.Error()
	} else {
		report.QueueResults, _ = resultsCmd.Result()
		report.QueueProctorEvents, _ = eventsCmd.Result()
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, report)
}

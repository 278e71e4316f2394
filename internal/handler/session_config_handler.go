package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/session"
)

// ConfigReader is the part of the catalog the landing page needs.
type ConfigReader interface {
	GetSessionConfig(ctx context.Context) (model.SessionConfig, error)
}

// SessionConfigHandler exposes the test control record.
type SessionConfigHandler struct {
	catalog ConfigReader
	log     zerolog.Logger
}

// NewSessionConfigHandler creates a new SessionConfigHandler.
func NewSessionConfigHandler(catalog ConfigReader, log zerolog.Logger) *SessionConfigHandler {
	return &SessionConfigHandler{
		catalog: catalog,
		log:     log.With().Str("component", "session_config_handler").Logger(),
	}
}

// GetSessionConfig godoc
// GET /api/v1/session-config
// A missing control record reads as an inactive test.
func (h *SessionConfigHandler) GetSessionConfig(c *gin.Context) {
	cfg, err := h.catalog.GetSessionConfig(c.Request.Context())
	switch {
	case errors.Is(err, session.ErrConfigUnavailable):
		cfg = model.SessionConfig{}
	case err != nil:
		h.log.Error().Err(err).Msg("Get session config failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrUnavailable)
		return
	}

	if cfg.TimeLimitMinutes <= 0 {
		cfg.TimeLimitMinutes = model.DefaultTimeLimitMinutes
	}
	response.Success(c, http.StatusOK, cfg)
}

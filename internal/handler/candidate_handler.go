package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// CandidateHandler handles the landing form.
type CandidateHandler struct {
	candidateService *service.CandidateService
	log              zerolog.Logger
}

// NewCandidateHandler creates a new CandidateHandler.
func NewCandidateHandler(candidateService *service.CandidateService, log zerolog.Logger) *CandidateHandler {
	return &CandidateHandler{
		candidateService: candidateService,
		log:              log.With().Str("component", "candidate_handler").Logger(),
	}
}

// Register godoc
// POST /api/v1/candidates
// Stores the candidate and returns the ticket for the session stream.
func (h *CandidateHandler) Register(c *gin.Context) {
	var req model.RegisterCandidateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.candidateService.Register(c.Request.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("Register candidate failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, resp)
}

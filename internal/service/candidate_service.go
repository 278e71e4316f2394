package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// CandidateStore persists candidates.
type CandidateStore interface {
	UpsertByEmail(ctx context.Context, c *model.Candidate) error
}

// CandidateService registers candidates from the landing form.
type CandidateService struct {
	store CandidateStore
	auth  *AuthService
	log   zerolog.Logger
}

// NewCandidateService creates a new CandidateService.
func NewCandidateService(store CandidateStore, auth *AuthService, log zerolog.Logger) *CandidateService {
	return &CandidateService{
		store: store,
		auth:  auth,
		log:   log.With().Str("component", "candidate_service").Logger(),
	}
}

// Register stores the candidate and returns a fresh session ticket.
func (s *CandidateService) Register(ctx context.Context, req model.RegisterCandidateRequest) (*model.RegisterCandidateResponse, error) {
	c := &model.Candidate{
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if err := s.store.UpsertByEmail(ctx, c); err != nil {
		return nil, fmt.Errorf("store candidate: %w", err)
	}

	token, err := s.auth.IssueCandidateToken(ctx, *c)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("candidate_id", c.ID.String()).Msg("Candidate registered")
	return &model.RegisterCandidateResponse{CandidateID: c.ID, Token: token}, nil
}

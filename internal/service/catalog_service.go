package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/session"
)

// ControlStore persists the test control record.
type ControlStore interface {
	Get(ctx context.Context) (*model.SessionConfig, error)
	Upsert(ctx context.Context, c *model.SessionConfig) error
}

// QuestionStore persists the question set.
type QuestionStore interface {
	List(ctx context.Context) ([]model.Question, error)
	ReplaceAll(ctx context.Context, questions []model.Question) error
}

// CatalogService serves the control record and the question set with a
// short-lived Redis cache in front of Postgres.
type CatalogService struct {
	control   ControlStore
	questions QuestionStore
	rdb       redis.UniversalClient
	ttl       time.Duration
	log       zerolog.Logger
}

// NewCatalogService creates a new CatalogService. A nil rdb disables caching.
func NewCatalogService(control ControlStore, questions QuestionStore, rdb redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		control:   control,
		questions: questions,
		rdb:       rdb,
		ttl:       ttl,
		log:       log.With().Str("component", "catalog_service").Logger(),
	}
}

// GetSessionConfig returns the current control record. A missing row is
// ErrConfigUnavailable, which sessions render as "not started".
func (s *CatalogService) GetSessionConfig(ctx context.Context) (model.SessionConfig, error) {
	var cfg model.SessionConfig
	if s.cacheGet(ctx, config.CacheKey.SessionConfigKey(), &cfg) {
		return cfg, nil
	}

	stored, err := s.control.Get(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SessionConfig{}, session.ErrConfigUnavailable
		}
		return model.SessionConfig{}, fmt.Errorf("get session config: %w", err)
	}

	s.cacheSet(ctx, config.CacheKey.SessionConfigKey(), stored)
	return *stored, nil
}

// GetQuestions returns the ordered question set, scoring keys included.
// A stored question that fails validation is reported as a QuestionError.
func (s *CatalogService) GetQuestions(ctx context.Context) ([]model.Question, error) {
	var questions []model.Question
	if s.cacheGet(ctx, config.CacheKey.QuestionListKey(), &questions) {
		return questions, nil
	}

	questions, err := s.questions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			s.log.Error().Err(err).Msg("Stored question is invalid")
			return nil, &session.QuestionError{Message: "The question set is misconfigured. Please contact the administrator."}
		}
	}

	s.cacheSet(ctx, config.CacheKey.QuestionListKey(), questions)
	return questions, nil
}

// UpdateSessionConfig replaces the control record and drops the cached copy.
func (s *CatalogService) UpdateSessionConfig(ctx context.Context, req model.UpdateSessionConfigRequest) (*model.SessionConfig, error) {
	cfg := &model.SessionConfig{
		IsActive:         req.IsActive,
		QuestionLimit:    req.QuestionLimit,
		TimeLimitMinutes: req.TimeLimitMinutes,
	}
	if err := s.control.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("update session config: %w", err)
	}
	s.invalidate(ctx, config.CacheKey.SessionConfigKey())

	s.log.Info().
		Bool("active", cfg.IsActive).
		Int("question_limit", cfg.QuestionLimit).
		Int("time_limit", cfg.TimeLimitMinutes).
		Msg("Session config updated")
	return cfg, nil
}

// ImportQuestions validates and replaces the whole question set.
func (s *CatalogService) ImportQuestions(ctx context.Context, questions []model.Question) error {
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("question %s: duplicate id", q.ID)
		}
		seen[q.ID] = struct{}{}
	}

	if err := s.questions.ReplaceAll(ctx, questions); err != nil {
		return fmt.Errorf("replace questions: %w", err)
	}
	s.invalidate(ctx, config.CacheKey.QuestionListKey())

	s.log.Info().Int("count", len(questions)).Msg("Question set imported")
	return nil
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.rdb == nil {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, falling back to database")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Discarding corrupt cache entry")
		return false
	}
	return true
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, v any) {
	if s.rdb == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (s *CatalogService) invalidate(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Cache invalidation failed")
	}
}

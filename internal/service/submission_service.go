package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// SubmissionService hands finalized results and proctor events to the
// persistence workers through Redis lists.
type SubmissionService struct {
	rdb redis.UniversalClient
	log zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(rdb redis.UniversalClient, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		rdb: rdb,
		log: log.With().Str("component", "submission_service").Logger(),
	}
}

// SubmitResult queues a submission. A nil error means the result is durable
// in Redis; the result worker moves it to Postgres.
func (s *SubmissionService) SubmitResult(ctx context.Context, sub model.ResultSubmission) error {
	return s.enqueue(ctx, config.WorkerKey.PersistResultsQueue, sub)
}

// RecordProctorEvent queues the signal that ended a session.
func (s *SubmissionService) RecordProctorEvent(ctx context.Context, ev model.ProctorEvent) error {
	return s.enqueue(ctx, config.WorkerKey.PersistProctorEventsQueue, ev)
}

func (s *SubmissionService) enqueue(ctx context.Context, queue string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := s.rdb.RPush(ctx, queue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", queue, err)
	}
	s.log.Debug().Str("queue", queue).Msg("Payload queued")
	return nil
}

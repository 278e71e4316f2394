package worker

import (
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// NewResultWorker persists submissions queued by the result service.
func NewResultWorker(store Store[model.ResultSubmission], rdb redis.UniversalClient, log zerolog.Logger) *BatchWorker[model.ResultSubmission] {
	w := newBatchWorker("result_worker", config.WorkerKey.PersistResultsQueue, store, rdb, log)
	w.validate = func(r *model.ResultSubmission) error {
		if r.SessionID == uuid.Nil || r.CandidateID == uuid.Nil {
			return errors.New("submission without session or candidate id")
		}
		return nil
	}
	return w
}

// NewProctorEventWorker persists the signals that ended sessions.
func NewProctorEventWorker(store Store[model.ProctorEvent], rdb redis.UniversalClient, log zerolog.Logger) *BatchWorker[model.ProctorEvent] {
	w := newBatchWorker("proctor_event_worker", config.WorkerKey.PersistProctorEventsQueue, store, rdb, log)
	w.validate = func(e *model.ProctorEvent) error {
		if e.SessionID == uuid.Nil || e.Category == "" {
			return errors.New("proctor event without session or category")
		}
		return nil
	}
	return w
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ProctorEventRepository stores the signals that ended sessions.
type ProctorEventRepository struct {
	pool *pgxpool.Pool
}

// NewProctorEventRepository creates a new ProctorEventRepository.
func NewProctorEventRepository(pool *pgxpool.Pool) *ProctorEventRepository {
	return &ProctorEventRepository{pool: pool}
}

// CopyMany bulk-inserts a batch with COPY.
func (r *ProctorEventRepository) CopyMany(ctx context.Context, batch []*model.ProctorEvent) error {
	rows := make([][]any, 0, len(batch))
	for _, e := range batch {
		rows = append(rows, []any{e.SessionID, e.CandidateID, e.Category, e.Reason, e.RecordedAt})
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"proctor_events"},
		[]string{"session_id", "candidate_id", "category", "reason", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert stores one event.
func (r *ProctorEventRepository) Insert(ctx context.Context, e *model.ProctorEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO proctor_events (session_id, candidate_id, category, reason, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.SessionID, e.CandidateID, e.Category, e.Reason, e.RecordedAt,
	)
	return err
}

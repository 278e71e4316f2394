package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ControlRepository reads and writes the single test_control row.
type ControlRepository struct {
	pool *pgxpool.Pool
}

// NewControlRepository creates a new ControlRepository.
func NewControlRepository(pool *pgxpool.Pool) *ControlRepository {
	return &ControlRepository{pool: pool}
}

// Get returns the control record. pgx.ErrNoRows means it was never seeded.
func (r *ControlRepository) Get(ctx context.Context) (*model.SessionConfig, error) {
	c := &model.SessionConfig{}
	err := r.pool.QueryRow(ctx,
		`SELECT is_active, question_limit, time_limit_minutes, updated_at
		 FROM test_control WHERE id = 1`,
	).Scan(&c.IsActive, &c.QuestionLimit, &c.TimeLimitMinutes, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Upsert replaces the control record.
func (r *ControlRepository) Upsert(ctx context.Context, c *model.SessionConfig) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO test_control (id, is_active, question_limit, time_limit_minutes, updated_at)
		 VALUES (1, $1, $2, $3, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		     is_active = EXCLUDED.is_active,
		     question_limit = EXCLUDED.question_limit,
		     time_limit_minutes = EXCLUDED.time_limit_minutes,
		     updated_at = NOW()
		 RETURNING updated_at`,
		c.IsActive, c.QuestionLimit, c.TimeLimitMinutes,
	).Scan(&c.UpdatedAt)
}

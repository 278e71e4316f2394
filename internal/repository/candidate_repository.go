package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// CandidateRepository handles candidate data access.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// UpsertByEmail registers a candidate, keeping the existing id when the email
// was seen before. The stored name is refreshed.
func (r *CandidateRepository) UpsertByEmail(ctx context.Context, c *model.Candidate) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO candidates (full_name, email)
		 VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name
		 RETURNING id, created_at`,
		c.FullName, c.Email,
	).Scan(&c.ID, &c.CreatedAt)
}

// GetByID retrieves a candidate.
func (r *CandidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, email, created_at FROM candidates WHERE id = $1`, id,
	).Scan(&c.ID, &c.FullName, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

var resultColumns = []string{
	"session_id", "candidate_id", "name", "email", "answers",
	"total_questions", "correct_answers", "score_percent", "auto_submitted", "submitted_at",
}

// ResultRepository persists finalized submissions.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

func resultRow(r *model.ResultSubmission) ([]any, error) {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	percent, err := strconv.ParseFloat(r.ScorePercent, 64)
	if err != nil {
		return nil, fmt.Errorf("score percent %q: %w", r.ScorePercent, err)
	}
	return []any{
		r.SessionID, r.CandidateID, r.Name, r.Email, answers,
		r.TotalQuestions, r.CorrectAnswers, percent, r.AutoSubmitted, r.SubmittedAt,
	}, nil
}

// CopyMany bulk-inserts a batch with COPY. Any duplicate session fails the
// whole batch.
func (r *ResultRepository) CopyMany(ctx context.Context, batch []*model.ResultSubmission) error {
	rows := make([][]any, 0, len(batch))
	for _, res := range batch {
		row, err := resultRow(res)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"test_results"}, resultColumns, pgx.CopyFromRows(rows))
	return err
}

// Insert stores one submission. A session already stored is left untouched.
func (r *ResultRepository) Insert(ctx context.Context, res *model.ResultSubmission) error {
	row, err := resultRow(res)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO test_results (session_id, candidate_id, name, email, answers,
		     total_questions, correct_answers, score_percent, auto_submitted, submitted_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id) DO NOTHING`,
		row...,
	)
	return err
}

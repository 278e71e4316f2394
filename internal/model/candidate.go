package model

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is the person taking the assessment.
type Candidate struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterCandidateRequest mirrors the landing form.
type RegisterCandidateRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=200"`
	Email    string `json:"email" binding:"required,email,max=320"`
}

// RegisterCandidateResponse carries the session ticket for the WebSocket stream.
type RegisterCandidateResponse struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Token       string    `json:"token"`
}

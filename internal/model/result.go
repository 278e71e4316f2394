package model

import (
	"time"

	"github.com/google/uuid"
)

// UnansweredMarker replaces the answer of a question the candidate skipped.
const UnansweredMarker = "Not answered"

// AnswerRecord is one line of a finalized submission.
// IsCorrect is nil for free-text questions.
type AnswerRecord struct {
	Question      string       `json:"question"`
	UserAnswer    string       `json:"userAnswer"`
	CorrectAnswer string       `json:"correctAnswer"`
	IsCorrect     *bool        `json:"isCorrect"`
	Type          QuestionKind `json:"type"`
}

// ResultSubmission is handed to the result submitter once scoring is done.
type ResultSubmission struct {
	SessionID      uuid.UUID      `json:"sessionId"`
	CandidateID    uuid.UUID      `json:"candidateId"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Answers        []AnswerRecord `json:"answers"`
	TotalQuestions int            `json:"totalQuestions"`
	CorrectAnswers int            `json:"correctAnswers"`
	ScorePercent   string         `json:"scorePercent"`
	AutoSubmitted  bool           `json:"autoSubmitted"`
	SubmittedAt    time.Time      `json:"submittedAt"`
}

// ProctorEvent is the audit record of the signal that ended a session.
type ProctorEvent struct {
	SessionID   uuid.UUID `json:"session_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	Category    string    `json:"category"`
	Reason      string    `json:"reason"`
	RecordedAt  time.Time `json:"recorded_at"`
}

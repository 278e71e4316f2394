package model

import (
	"errors"
	"fmt"
)

// QuestionKind distinguishes auto-scored multiple-choice items from free-text ones.
type QuestionKind string

const (
	QuestionKindMultipleChoice QuestionKind = "MCQ"
	QuestionKindFreeText       QuestionKind = "THEORY"
)

// Question is a single assessment item as loaded from the question source.
// CorrectOption is the scoring key and must never reach a rendering path.
type Question struct {
	ID            string       `json:"id" yaml:"id" binding:"required,max=64"`
	Text          string       `json:"question_text" yaml:"text" binding:"required"`
	Kind          QuestionKind `json:"question_type" yaml:"kind" binding:"question_kind"`
	Options       []string     `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectOption string       `json:"correct_option,omitempty" yaml:"correct_option,omitempty"`
	OrderNum      int          `json:"order_num" yaml:"order_num"`
}

// PublicQuestion is the candidate-facing projection of a Question.
type PublicQuestion struct {
	ID      string       `json:"id"`
	Text    string       `json:"question_text"`
	Kind    QuestionKind `json:"question_type"`
	Options []string     `json:"options,omitempty"`
}

// IsMultipleChoice reports whether the question is auto-scored.
func (q Question) IsMultipleChoice() bool {
	return q.Kind == QuestionKindMultipleChoice
}

// Public strips the scoring key.
func (q Question) Public() PublicQuestion {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	if len(opts) == 0 {
		opts = nil
	}
	return PublicQuestion{
		ID:      q.ID,
		Text:    q.Text,
		Kind:    q.Kind,
		Options: opts,
	}
}

// Validate checks the shape rules of a question record.
func (q Question) Validate() error {
	if q.ID == "" {
		return errors.New("question id is required")
	}
	if q.Text == "" {
		return fmt.Errorf("question %s: text is required", q.ID)
	}
	switch q.Kind {
	case QuestionKindMultipleChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("question %s: multiple choice requires options", q.ID)
		}
		if q.CorrectOption == "" {
			return fmt.Errorf("question %s: multiple choice requires a correct option", q.ID)
		}
	case QuestionKindFreeText:
		if len(q.Options) > 0 || q.CorrectOption != "" {
			return fmt.Errorf("question %s: free text must not carry options", q.ID)
		}
	default:
		return fmt.Errorf("question %s: unknown kind %q", q.ID, q.Kind)
	}
	return nil
}

// PublicQuestions projects a question list for rendering.
func PublicQuestions(qs []Question) []PublicQuestion {
	out := make([]PublicQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.Public())
	}
	return out
}

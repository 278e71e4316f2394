package model

import "time"

// SessionConfig is the test control record. It is read once per session.
type SessionConfig struct {
	IsActive         bool      `json:"isActive"`
	QuestionLimit    int       `json:"questionLimit"`
	TimeLimitMinutes int       `json:"timeLimit"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultTimeLimitMinutes applies when the control record carries no limit.
const DefaultTimeLimitMinutes = 30

// TimeBudgetSeconds returns the countdown start value.
func (c SessionConfig) TimeBudgetSeconds() int {
	minutes := c.TimeLimitMinutes
	if minutes <= 0 {
		minutes = DefaultTimeLimitMinutes
	}
	return minutes * 60
}

// Limit truncates qs to the configured question limit, keeping order.
// A non-positive limit keeps the whole list.
func (c SessionConfig) Limit(qs []Question) []Question {
	if c.QuestionLimit <= 0 || c.QuestionLimit >= len(qs) {
		return qs
	}
	return qs[:c.QuestionLimit]
}

// UpdateSessionConfigRequest is the payload for changing the test control record.
type UpdateSessionConfigRequest struct {
	IsActive         bool `json:"isActive"`
	QuestionLimit    int  `json:"questionLimit" binding:"min=0"`
	TimeLimitMinutes int  `json:"timeLimit" binding:"min=1"`
}

package ledger

import (
	"fmt"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// Score counts multiple-choice questions whose recorded answer equals the key.
// Free-text questions never contribute.
func Score(questions []model.Question, l *Ledger) int {
	score := 0
	for _, q := range questions {
		if !q.IsMultipleChoice() {
			continue
		}
		if v, ok := l.Get(q.ID); ok && v == q.CorrectOption {
			score++
		}
	}
	return score
}

// ScorePercent formats score/total*100 with two decimals ("33.33" for 1/3).
// Exact halves round up ("3.13" for 1/32).
func ScorePercent(score, total int) string {
	if total <= 0 || score < 0 {
		return "0.00"
	}
	hundredths := (int64(score)*20000 + int64(total)) / (2 * int64(total))
	return fmt.Sprintf("%d.%02d", hundredths/100, hundredths%100)
}

// Records builds the per-question lines of a submission in question order.
func Records(questions []model.Question, l *Ledger) []model.AnswerRecord {
	records := make([]model.AnswerRecord, 0, len(questions))
	for _, q := range questions {
		answer, answered := l.Get(q.ID)
		userAnswer := answer
		if !answered || answer == "" {
			userAnswer = model.UnansweredMarker
		}

		rec := model.AnswerRecord{
			Question:      q.Text,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectOption,
			Type:          q.Kind,
		}
		if q.IsMultipleChoice() {
			correct := answered && answer == q.CorrectOption
			rec.IsCorrect = &correct
		} else {
			rec.CorrectAnswer = ""
		}
		records = append(records, rec)
	}
	return records
}

// BuildSubmission scores the ledger and assembles the result payload.
func BuildSubmission(candidate model.Candidate, questions []model.Question, l *Ledger) model.ResultSubmission {
	score := Score(questions, l)
	return model.ResultSubmission{
		CandidateID:    candidate.ID,
		Name:           candidate.FullName,
		Email:          candidate.Email,
		Answers:        Records(questions, l),
		TotalQuestions: len(questions),
		CorrectAnswers: score,
		ScorePercent:   ScorePercent(score, len(questions)),
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleQuestions = `
questions:
  - id: q1
    text: Which planet is largest?
    kind: MCQ
    options: [Mars, Jupiter, Venus]
    correct_option: Jupiter
  - id: q2
    text: Explain photosynthesis.
    kind: THEORY
    order_num: 10
`

func TestParseQuestionFile(t *testing.T) {
	qs, err := parseQuestionFile(strings.NewReader(sampleQuestions))
	require.NoError(t, err)
	require.Len(t, qs, 2)

	assert.Equal(t, "q1", qs[0].ID)
	assert.Equal(t, model.QuestionKindMultipleChoice, qs[0].Kind)
	assert.Equal(t, "Jupiter", qs[0].CorrectOption)
	assert.Equal(t, 1, qs[0].OrderNum)
	assert.Equal(t, 10, qs[1].OrderNum)
}

func TestParseQuestionFile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty file", "", "file is empty"},
		{"no questions", "questions: []\n", "no questions found"},
		{"unknown field", "questions:\n  - id: q1\n    text: x\n    kind: THEORY\n    points: 3\n", "decoding yaml"},
		{"bad kind", "questions:\n  - id: q1\n    text: x\n    kind: ESSAY\n", "must be MCQ or THEORY"},
		{"missing text", "questions:\n  - id: q1\n    kind: THEORY\n", "question #1"},
		{"mcq without key", "questions:\n  - id: q1\n    text: x\n    kind: MCQ\n    options: [a, b]\n", "correct option"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseQuestionFile(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

type fakeImporter struct {
	got []model.Question
	err error
}

func (f *fakeImporter) ImportQuestions(_ context.Context, qs []model.Question) error {
	f.got = qs
	return f.err
}

func TestRunImport(t *testing.T) {
	qs, err := parseQuestionFile(strings.NewReader(sampleQuestions))
	require.NoError(t, err)

	store := &fakeImporter{}
	var out bytes.Buffer
	require.NoError(t, runImport(context.Background(), store, qs, &out))
	assert.Len(t, store.got, 2)
	assert.Equal(t, "Imported 2 questions.\n", out.String())

	store.err = errors.New("duplicate id")
	assert.EqualError(t, runImport(context.Background(), store, qs, &out), "duplicate id")
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("y\n"), &out, "Go?"))
	assert.True(t, confirm(strings.NewReader("YES\n"), &out, "Go?"))
	assert.False(t, confirm(strings.NewReader("\n"), &out, "Go?"))
	assert.False(t, confirm(strings.NewReader(""), &out, "Go?"))
	assert.Contains(t, out.String(), "Go? [y/N]: ")
}

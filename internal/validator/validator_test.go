package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-proctor/internal/model"
)

func TestStructTranslatesRegistrationErrors(t *testing.T) {
	fields := Struct(model.RegisterCandidateRequest{FullName: "A", Email: "not-an-email"})

	require.NotNil(t, fields)
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields["email"], "valid email")
}

func TestStructAcceptsValidRegistration(t *testing.T) {
	assert.Nil(t, Struct(model.RegisterCandidateRequest{FullName: "Ada", Email: "ada@example.com"}))
}

func TestQuestionKindTag(t *testing.T) {
	fields := Struct(model.Question{ID: "q1", Text: "2+2?", Kind: "ESSAY"})
	require.NotNil(t, fields)
	assert.Equal(t, "question_type must be MCQ or THEORY", fields["question_type"])

	assert.Nil(t, Struct(model.Question{ID: "q1", Text: "2+2?", Kind: model.QuestionKindFreeText}))
}

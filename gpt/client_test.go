package gpt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/formgpt/survey-service/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateForm(t *testing.T) {
	var gotPath string
	var gotBody FormGenerationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(FormSchema{
			Title: "Onboarding feedback",
			Questions: []QuestionSchema{
				{Text: "How was setup?", AnswerType: "single_choice", AnswerOptions: []string{"Easy", "Hard"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	form, err := c.CreateForm(context.Background(), FormGenerationRequest{
		Topic:          "onboarding",
		QuestionsCount: 1,
		TargetAudience: "new users",
	})
	require.NoError(t, err)

	assert.Equal(t, "/forms/create", gotPath)
	assert.Equal(t, "onboarding", gotBody.Topic)
	assert.Equal(t, 1, gotBody.QuestionsCount)
	assert.Equal(t, "Onboarding feedback", form.Title)
	require.Len(t, form.Questions, 1)
	assert.Equal(t, []string{"Easy", "Hard"}, form.Questions[0].AnswerOptions)
}

func TestRequestWireFormat(t *testing.T) {
	var raw map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		json.NewEncoder(w).Encode(QuestionSchema{Text: "Q", AnswerType: "text"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GenerateQuestion(context.Background(), QuestionGenerationRequest{
		Topic:          "pricing",
		TargetAudience: "admins",
	})
	require.NoError(t, err)

	// The generation service expects snake_case keys.
	assert.Contains(t, raw, "topic")
	assert.Contains(t, raw, "target_audience")
}

func TestNon2xxIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.ImproveQuestion(context.Background(), QuestionImprovementRequest{Text: "Q?", AnswerType: "text"})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, upstream.Error(), "500")
}

func TestMalformedBodyIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GenerateQuestion(context.Background(), QuestionGenerationRequest{Topic: "t"})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
}

func TestUnreachableServiceIsUpstreamError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.GenerateQuestion(context.Background(), QuestionGenerationRequest{Topic: "t"})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
}

func TestGenerateQuestionsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GenerateQuestions(context.Background(), MultipleQuestionGenerationRequest{Topic: "t", QuestionsCount: 3})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
}

func TestGenerateQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/questions/generate_multiple", r.URL.Path)
		json.NewEncoder(w).Encode([]QuestionSchema{
			{Text: "A?", AnswerType: "text"},
			{Text: "B?", AnswerType: "numeric"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	questions, err := c.GenerateQuestions(context.Background(), MultipleQuestionGenerationRequest{Topic: "t", QuestionsCount: 2})
	require.NoError(t, err)
	require.Len(t, questions, 2)
}

func TestQuestionTypeFromAnswerType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"single_choice", models.QuestionTypeSingleChoice},
		{"multiple_choice", models.QuestionTypeMultipleChoice},
		{"text", models.QuestionTypeText},
		{"numeric", models.QuestionTypeScale},
		{"date", models.QuestionTypeText},
		{"", models.QuestionTypeText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuestionTypeFromAnswerType(tt.in), "answer_type %q", tt.in)
	}
}

func TestAnswerTypeFromQuestionType(t *testing.T) {
	assert.Equal(t, "numeric", AnswerTypeFromQuestionType(models.QuestionTypeScale))
	assert.Equal(t, "single_choice", AnswerTypeFromQuestionType(models.QuestionTypeSingleChoice))
	assert.Equal(t, "multiple_choice", AnswerTypeFromQuestionType(models.QuestionTypeMultipleChoice))
	assert.Equal(t, "text", AnswerTypeFromQuestionType(models.QuestionTypeText))
}

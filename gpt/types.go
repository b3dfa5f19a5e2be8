package gpt

import (
	"log"

	"github.com/formgpt/survey-service/models"
)

// Wire types of the question-generation service. Only the fields the
// backend consumes are modeled.

type QuestionSchema struct {
	Text          string   `json:"text"`
	AnswerType    string   `json:"answer_type"`
	AnswerOptions []string `json:"answer_options"`
}

type FormSchema struct {
	Title     string           `json:"title"`
	Questions []QuestionSchema `json:"questions"`
}

type FormGenerationRequest struct {
	Topic          string `json:"topic"`
	QuestionsCount int    `json:"questions_count"`
	TargetAudience string `json:"target_audience"`
}

type QuestionGenerationRequest struct {
	Topic          string `json:"topic"`
	TargetAudience string `json:"target_audience"`
}

type QuestionImprovementRequest struct {
	Text          string   `json:"text"`
	AnswerType    string   `json:"answer_type"`
	AnswerOptions []string `json:"answer_options"`
	Prompt        string   `json:"prompt"`
}

type MultipleQuestionGenerationRequest struct {
	Topic             string           `json:"topic"`
	TargetAudience    string           `json:"target_audience"`
	QuestionsCount    int              `json:"questions_count"`
	PreviousQuestions []QuestionSchema `json:"previous_questions,omitempty"`
}

// QuestionTypeFromAnswerType maps the generation service's answer types
// onto question types. An unrecognized value falls back to a text
// question with a logged warning instead of failing the whole call.
func QuestionTypeFromAnswerType(answerType string) string {
	switch answerType {
	case "single_choice":
		return models.QuestionTypeSingleChoice
	case "multiple_choice":
		return models.QuestionTypeMultipleChoice
	case "text":
		return models.QuestionTypeText
	case "numeric":
		return models.QuestionTypeScale
	default:
		log.Printf("Unknown generation answer type %q, defaulting to text", answerType)
		return models.QuestionTypeText
	}
}

// AnswerTypeFromQuestionType is the reverse mapping, used when sending
// existing questions as generation context.
func AnswerTypeFromQuestionType(questionType string) string {
	switch questionType {
	case models.QuestionTypeSingleChoice:
		return "single_choice"
	case models.QuestionTypeMultipleChoice:
		return "multiple_choice"
	case models.QuestionTypeScale:
		return "numeric"
	default:
		return "text"
	}
}

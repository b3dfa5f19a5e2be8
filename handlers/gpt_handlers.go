package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/formgpt/survey-service/db"
	"github.com/formgpt/survey-service/gpt"
	"github.com/formgpt/survey-service/models"
	"github.com/formgpt/survey-service/survey"
)

// Generator is the question-generation client, set at startup.
var Generator *gpt.Client

// CreateSurveyWithGPT generates a whole survey on a topic and persists
// it through the normal create path.
func CreateSurveyWithGPT(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description    string `json:"description"`
		QuestionCount  int    `json:"questionCount"`
		TargetAudience string `json:"targetAudience"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	form, err := Generator.CreateForm(r.Context(), gpt.FormGenerationRequest{
		Topic:          req.Description,
		QuestionsCount: req.QuestionCount,
		TargetAudience: req.TargetAudience,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	createReq := survey.CreateSurveyRequest{
		Title:       form.Title,
		Description: "Generated from topic: " + req.Description,
	}
	for _, q := range form.Questions {
		createReq.Questions = append(createReq.Questions, questionInputFromSchema(q))
	}

	userID, _ := currentUserID(r)
	s, err := survey.CreateSurvey(db.DB, userID, createReq)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	log.Printf("Generated survey %d with %d questions", s.ID, len(s.Questions))
	writeJSON(w, http.StatusCreated, s)
}

// AddQuestionWithGPT generates one question and appends it to the
// survey.
func AddQuestionWithGPT(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Topic          string `json:"topic"`
		TargetAudience string `json:"targetAudience"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := currentUserID(r)

	topic := req.Topic
	if topic == "" {
		s, err := survey.GetSurvey(db.DB, surveyID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		topic = s.Title
	}

	generated, err := Generator.GenerateQuestion(r.Context(), gpt.QuestionGenerationRequest{
		Topic:          topic,
		TargetAudience: req.TargetAudience,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	q, err := survey.AppendQuestion(db.DB, surveyID, userID, questionInputFromSchema(*generated))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// ImproveQuestionWithGPT rewrites a question with the generation
// service, replacing its text, type and options.
func ImproveQuestionWithGPT(w http.ResponseWriter, r *http.Request) {
	questionID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid question ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	// The prompt is optional; an empty body means "just improve it".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	current, err := survey.GetQuestion(db.DB, questionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	improveReq := gpt.QuestionImprovementRequest{
		Text:       current.Text,
		AnswerType: gpt.AnswerTypeFromQuestionType(current.Type),
		Prompt:     req.Prompt,
	}
	for _, opt := range current.Options {
		improveReq.AnswerOptions = append(improveReq.AnswerOptions, opt.Text)
	}

	improved, err := Generator.ImproveQuestion(r.Context(), improveReq)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	userID, _ := currentUserID(r)
	q, err := survey.ReplaceQuestion(db.DB, questionID, userID, questionInputFromSchema(*improved))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// GenerateQuestionsForSurvey asks for several questions at once,
// sending the survey's existing questions as context, and appends them
// all.
func GenerateQuestionsForSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Count  int    `json:"count"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := currentUserID(r)
	s, err := survey.GetSurvey(db.DB, surveyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	genReq := gpt.MultipleQuestionGenerationRequest{
		Topic:          s.Title,
		QuestionsCount: req.Count,
	}
	if req.Prompt != "" {
		genReq.Topic = s.Title + " - " + req.Prompt
	}
	for _, q := range s.Questions {
		schema := gpt.QuestionSchema{
			Text:       q.Text,
			AnswerType: gpt.AnswerTypeFromQuestionType(q.Type),
		}
		for _, opt := range q.Options {
			schema.AnswerOptions = append(schema.AnswerOptions, opt.Text)
		}
		genReq.PreviousQuestions = append(genReq.PreviousQuestions, schema)
	}

	generated, err := Generator.GenerateQuestions(r.Context(), genReq)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	inputs := make([]survey.QuestionInput, 0, len(generated))
	for _, schema := range generated {
		inputs = append(inputs, questionInputFromSchema(schema))
	}

	// All-or-nothing: a bad question in the batch must not leave the
	// earlier ones behind.
	created, err := survey.AppendQuestions(db.DB, surveyID, userID, inputs)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	log.Printf("Appended %d generated questions to survey %d", len(created), surveyID)
	writeJSON(w, http.StatusCreated, created)
}

func questionInputFromSchema(schema gpt.QuestionSchema) survey.QuestionInput {
	in := survey.QuestionInput{
		Title: schema.Text,
		Type:  gpt.QuestionTypeFromAnswerType(schema.AnswerType),
	}
	// The service sometimes attaches options to answer types that
	// don't carry any (notably after the unknown-type fallback).
	if models.ChoiceType(in.Type) {
		in.Options = schema.AnswerOptions
	}
	return in
}

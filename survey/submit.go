package survey

import (
	"errors"
	"fmt"
	"time"

	"github.com/formgpt/survey-service/models"
	"gorm.io/gorm"
)

// SubmittedAnswer is one respondent value for one question.
type SubmittedAnswer struct {
	QuestionID uint   `json:"questionId"`
	Value      string `json:"value"`
}

// SubmitAnswers validates and persists a respondent's submission as one
// atomic unit. Every question of the survey is checked (required rule
// plus the per-type rule for supplied values) and all violations are
// collected into a single ValidationError; nothing is persisted unless
// the whole submission is valid.
//
// A repeat submission by the same authenticated respondent replaces the
// prior one: the existing Response row is kept and its answers are
// rewritten. Anonymous submissions (nil userID) always create a new
// Response because there is no identity to key the replacement on.
func SubmitAnswers(g *gorm.DB, surveyID uint, userID *uint, answers []SubmittedAnswer) error {
	s, err := GetSurvey(g, surveyID)
	if err != nil {
		return err
	}

	// Duplicate entries for one question collapse to the last one, for
	// validation and persistence alike; a response carries at most one
	// answer per question.
	byQuestion := make(map[uint]SubmittedAnswer, len(answers))
	var questionOrder []uint
	for _, a := range answers {
		if _, seen := byQuestion[a.QuestionID]; !seen {
			questionOrder = append(questionOrder, a.QuestionID)
		}
		byQuestion[a.QuestionID] = a
	}

	var reasons []string
	for i := range s.Questions {
		q := &s.Questions[i]
		a, supplied := byQuestion[q.ID]

		if reason := RequiredViolation(q, a.Value, supplied); reason != "" {
			reasons = append(reasons, reason)
		}
		if supplied {
			if reason := ValidateAnswer(q, a.Value); reason != "" {
				reasons = append(reasons, reason)
			}
		}
	}
	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}

	questions := make(map[uint]*models.Question, len(s.Questions))
	for i := range s.Questions {
		questions[s.Questions[i].ID] = &s.Questions[i]
	}

	return g.Transaction(func(tx *gorm.DB) error {
		response, err := findOrCreateResponse(tx, surveyID, userID)
		if err != nil {
			return err
		}

		for _, id := range questionOrder {
			a := byQuestion[id]
			q, ok := questions[a.QuestionID]
			if !ok {
				// The question either doesn't exist or belongs to
				// another survey; tell the two cases apart.
				var stray models.Question
				if err := tx.First(&stray, a.QuestionID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return ErrNotFound
					}
					return err
				}
				return ErrMismatchedSurvey
			}

			answer := models.Answer{
				ResponseID: response.ID,
				QuestionID: q.ID,
				Value:      a.Value,
			}

			if q.Type == models.QuestionTypeSingleChoice {
				opt := findOption(q, a.Value)
				if opt == nil {
					return &ValidationError{Reasons: []string{
						fmt.Sprintf("question %q has no option %q", q.Text, a.Value),
					}}
				}
				answer.OptionID = &opt.ID
			}

			if err := tx.Create(&answer).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// findOrCreateResponse locates the respondent's existing Response row and
// clears its answers, or creates a fresh row. Runs inside the submit
// transaction; the unique index on (survey_id, user_id) makes the lost
// race between two concurrent first submissions fail instead of
// duplicating the response.
func findOrCreateResponse(tx *gorm.DB, surveyID uint, userID *uint) (*models.Response, error) {
	if userID != nil {
		var existing models.Response
		err := tx.Where("survey_id = ? AND user_id = ?", surveyID, *userID).First(&existing).Error
		if err == nil {
			if err := tx.Unscoped().Where("response_id = ?", existing.ID).Delete(&models.Answer{}).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	response := &models.Response{SurveyID: surveyID, UserID: userID}
	if err := tx.Create(response).Error; err != nil {
		return nil, err
	}
	return response, nil
}

// QuestionWithAnswer is a question projected together with the caller's
// own answer, if any.
type QuestionWithAnswer struct {
	ID         uint     `json:"id"`
	SurveyID   uint     `json:"surveyId"`
	Title      string   `json:"title"`
	Type       string   `json:"type"`
	Required   bool     `json:"required"`
	Options    []string `json:"options,omitempty"`
	UserAnswer *string  `json:"userAnswer"`
}

// SurveyWithAnswers is the owner-or-respondent view of a survey,
// carrying the caller's previous submission when one exists.
type SurveyWithAnswers struct {
	ID           uint                 `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	OwnerID      uint                 `json:"ownerId"`
	CreatedAt    time.Time            `json:"createdAt"`
	HasResponded bool                 `json:"hasResponded"`
	RespondedAt  *time.Time           `json:"respondedAt"`
	Questions    []QuestionWithAnswer `json:"questions"`
}

// GetSurveyWithAnswers returns the survey together with the calling
// user's own answers. The answer shown for a single-choice question is
// the text of the selected option.
func GetSurveyWithAnswers(g *gorm.DB, surveyID, userID uint) (*SurveyWithAnswers, error) {
	s, err := GetSurvey(g, surveyID)
	if err != nil {
		return nil, err
	}

	view := &SurveyWithAnswers{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		OwnerID:     s.UserID,
		CreatedAt:   s.CreatedAt,
	}

	var response models.Response
	err = g.Where("survey_id = ? AND user_id = ?", surveyID, userID).
		Preload("Answers").First(&response).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	userAnswers := make(map[uint]string)
	if err == nil {
		view.HasResponded = true
		t := response.CreatedAt
		view.RespondedAt = &t

		optionTexts := make(map[uint]string)
		for i := range s.Questions {
			for _, opt := range s.Questions[i].Options {
				optionTexts[opt.ID] = opt.Text
			}
		}
		for _, a := range response.Answers {
			if a.OptionID != nil {
				userAnswers[a.QuestionID] = optionTexts[*a.OptionID]
			} else {
				userAnswers[a.QuestionID] = a.Value
			}
		}
	}

	for i := range s.Questions {
		q := &s.Questions[i]
		qa := QuestionWithAnswer{
			ID:       q.ID,
			SurveyID: s.ID,
			Title:    q.Text,
			Type:     q.Type,
			Required: q.IsRequired,
		}
		for _, opt := range q.Options {
			qa.Options = append(qa.Options, opt.Text)
		}
		if v, ok := userAnswers[q.ID]; ok {
			qa.UserAnswer = &v
		}
		view.Questions = append(view.Questions, qa)
	}

	return view, nil
}

package survey

import (
	"errors"
	"fmt"

	"github.com/formgpt/survey-service/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestionInput describes one question in a create or update request.
// ID is only meaningful on update: questions carrying the ID of an
// existing question are edited in place, the rest are created.
type QuestionInput struct {
	ID       *uint    `json:"id"`
	Title    string   `json:"title"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options"`
}

type CreateSurveyRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   []QuestionInput `json:"questions"`
}

type UpdateSurveyRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Questions   []QuestionInput `json:"questions"`
}

// CreateSurvey persists a survey with its ordered questions and options
// and issues an active share link for it.
func CreateSurvey(g *gorm.DB, userID uint, req CreateSurveyRequest) (*models.Survey, error) {
	if err := validateDefinition(req.Questions); err != nil {
		return nil, err
	}

	s := &models.Survey{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
	}
	for i, q := range req.Questions {
		s.Questions = append(s.Questions, buildQuestion(q, i))
	}

	link := &models.SurveyLink{
		Link:     uuid.NewString(),
		IsActive: true,
	}

	err := g.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		link.SurveyID = s.ID
		return tx.Create(link).Error
	})
	if err != nil {
		return nil, err
	}

	s.Link = link.Link
	return s, nil
}

// ListSurveys returns the caller's surveys, newest first.
func ListSurveys(g *gorm.DB, userID uint) ([]models.Survey, error) {
	var surveys []models.Survey
	err := g.Where("user_id = ?", userID).
		Order("created_at DESC").
		Preload("Questions", orderQuestions).
		Preload("Questions.Options", orderOptions).
		Find(&surveys).Error
	return surveys, err
}

// GetSurvey loads a survey with its questions and options in order.
// Any authenticated user may read a survey; ownership is checked by the
// mutating and read-side aggregate operations, not here.
func GetSurvey(g *gorm.DB, surveyID uint) (*models.Survey, error) {
	var s models.Survey
	err := g.Preload("Questions", orderQuestions).
		Preload("Questions.Options", orderOptions).
		First(&s, surveyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSurveyByLink resolves an active share link to its survey.
func GetSurveyByLink(g *gorm.DB, token string) (*models.Survey, error) {
	var link models.SurveyLink
	err := g.Where("link = ? AND is_active = ?", token, true).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return GetSurvey(g, link.SurveyID)
}

// UpdateSurvey patches the title and description and, when a question
// list is supplied, reconciles it wholesale: questions missing from the
// request are deleted, questions carrying a known ID are updated in
// place, the rest are created. Order indexes are rewritten densely from
// the request order, and each question's option list is replaced with
// the same orphan-deleting semantics.
func UpdateSurvey(g *gorm.DB, surveyID, userID uint, req UpdateSurveyRequest) (*models.Survey, error) {
	s, err := ownedSurvey(g, surveyID, userID)
	if err != nil {
		return nil, err
	}

	if req.Questions != nil {
		if err := validateDefinition(req.Questions); err != nil {
			return nil, err
		}
	}

	err = g.Transaction(func(tx *gorm.DB) error {
		if req.Title != nil && *req.Title != "" {
			s.Title = *req.Title
		}
		if req.Description != nil {
			s.Description = *req.Description
		}
		if err := tx.Model(&models.Survey{}).Where("id = ?", s.ID).
			Updates(map[string]interface{}{"title": s.Title, "description": s.Description}).Error; err != nil {
			return err
		}

		if req.Questions == nil {
			return nil
		}
		return reconcileQuestions(tx, s, req.Questions)
	})
	if err != nil {
		return nil, err
	}

	return GetSurvey(g, surveyID)
}

// DeleteSurvey removes a survey and everything it owns: questions,
// options, responses, answers and share links.
func DeleteSurvey(g *gorm.DB, surveyID, userID uint) error {
	s, err := ownedSurvey(g, surveyID, userID)
	if err != nil {
		return err
	}

	return g.Transaction(func(tx *gorm.DB) error {
		questionIDs := tx.Model(&models.Question{}).Select("id").Where("survey_id = ?", s.ID)
		responseIDs := tx.Model(&models.Response{}).Select("id").Where("survey_id = ?", s.ID)

		if err := tx.Unscoped().Where("question_id IN (?)", questionIDs).Delete(&models.Option{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("response_id IN (?)", responseIDs).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("survey_id = ?", s.ID).Delete(&models.Response{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("survey_id = ?", s.ID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("survey_id = ?", s.ID).Delete(&models.SurveyLink{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Survey{}, s.ID).Error
	})
}

func reconcileQuestions(tx *gorm.DB, s *models.Survey, inputs []QuestionInput) error {
	keep := make(map[uint]bool)
	for _, in := range inputs {
		if in.ID != nil {
			keep[*in.ID] = true
		}
	}

	for i := range s.Questions {
		q := &s.Questions[i]
		if keep[q.ID] {
			continue
		}
		if err := tx.Unscoped().Where("question_id = ?", q.ID).Delete(&models.Option{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("question_id = ?", q.ID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&models.Question{}, q.ID).Error; err != nil {
			return err
		}
	}

	for i, in := range inputs {
		if in.ID == nil {
			q := buildQuestion(in, i)
			q.SurveyID = s.ID
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
			continue
		}

		var q models.Question
		if err := tx.First(&q, *in.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if q.SurveyID != s.ID {
			return ErrMismatchedSurvey
		}

		q.Text = in.Title
		q.Type = in.Type
		q.IsRequired = in.Required
		q.OrderIndex = i
		if err := tx.Save(&q).Error; err != nil {
			return err
		}

		// Option lists are replaced wholesale so no orphans survive an edit.
		if err := tx.Unscoped().Where("question_id = ?", q.ID).Delete(&models.Option{}).Error; err != nil {
			return err
		}
		for j, text := range in.Options {
			opt := models.Option{QuestionID: q.ID, Text: text, OrderIndex: j}
			if err := tx.Create(&opt).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func buildQuestion(in QuestionInput, index int) models.Question {
	q := models.Question{
		Text:       in.Title,
		Type:       in.Type,
		IsRequired: in.Required,
		OrderIndex: index,
	}
	for j, text := range in.Options {
		q.Options = append(q.Options, models.Option{Text: text, OrderIndex: j})
	}
	return q
}

func validateDefinition(questions []QuestionInput) error {
	var reasons []string
	for _, q := range questions {
		if !models.ValidQuestionType(q.Type) {
			reasons = append(reasons, fmt.Sprintf("question %q has unknown type %q", q.Title, q.Type))
			continue
		}
		if !models.ChoiceType(q.Type) && len(q.Options) > 0 {
			reasons = append(reasons, fmt.Sprintf("question %q of type %s cannot have options", q.Title, q.Type))
		}
		seen := make(map[string]bool)
		for _, opt := range q.Options {
			if seen[opt] {
				reasons = append(reasons, fmt.Sprintf("question %q has duplicate option %q", q.Title, opt))
			}
			seen[opt] = true
		}
	}
	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// GetQuestion loads a single question with its options in order.
func GetQuestion(g *gorm.DB, questionID uint) (*models.Question, error) {
	var q models.Question
	err := g.Preload("Options", orderOptions).First(&q, questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// AppendQuestion adds one question at the end of the survey's order.
// Owner only.
func AppendQuestion(g *gorm.DB, surveyID, userID uint, in QuestionInput) (*models.Question, error) {
	s, err := ownedSurvey(g, surveyID, userID)
	if err != nil {
		return nil, err
	}
	if err := validateDefinition([]QuestionInput{in}); err != nil {
		return nil, err
	}

	nextIndex := 0
	for i := range s.Questions {
		if s.Questions[i].OrderIndex >= nextIndex {
			nextIndex = s.Questions[i].OrderIndex + 1
		}
	}

	q := buildQuestion(in, nextIndex)
	q.SurveyID = s.ID
	if err := g.Create(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// AppendQuestions adds several questions after the survey's current
// order in one transaction; either every question is created or none.
// Owner only.
func AppendQuestions(g *gorm.DB, surveyID, userID uint, inputs []QuestionInput) ([]models.Question, error) {
	s, err := ownedSurvey(g, surveyID, userID)
	if err != nil {
		return nil, err
	}
	if err := validateDefinition(inputs); err != nil {
		return nil, err
	}

	nextIndex := 0
	for i := range s.Questions {
		if s.Questions[i].OrderIndex >= nextIndex {
			nextIndex = s.Questions[i].OrderIndex + 1
		}
	}

	created := make([]models.Question, 0, len(inputs))
	err = g.Transaction(func(tx *gorm.DB) error {
		for i, in := range inputs {
			q := buildQuestion(in, nextIndex+i)
			q.SurveyID = s.ID
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
			created = append(created, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ReplaceQuestion rewrites a question's text, type and option list in
// place, keeping its position. Owner only.
func ReplaceQuestion(g *gorm.DB, questionID, userID uint, in QuestionInput) (*models.Question, error) {
	var q models.Question
	if err := g.First(&q, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := ownedSurvey(g, q.SurveyID, userID); err != nil {
		return nil, err
	}
	if err := validateDefinition([]QuestionInput{in}); err != nil {
		return nil, err
	}

	err := g.Transaction(func(tx *gorm.DB) error {
		q.Text = in.Title
		q.Type = in.Type
		if err := tx.Save(&q).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("question_id = ?", q.ID).Delete(&models.Option{}).Error; err != nil {
			return err
		}
		for j, text := range in.Options {
			opt := models.Option{QuestionID: q.ID, Text: text, OrderIndex: j}
			if err := tx.Create(&opt).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := g.Preload("Options", orderOptions).First(&q, q.ID).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// ownedSurvey loads a survey and verifies the caller owns it.
func ownedSurvey(g *gorm.DB, surveyID, userID uint) (*models.Survey, error) {
	s, err := GetSurvey(g, surveyID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return s, nil
}

func orderQuestions(g *gorm.DB) *gorm.DB { return g.Order("order_index ASC") }
func orderOptions(g *gorm.DB) *gorm.DB   { return g.Order("order_index ASC") }

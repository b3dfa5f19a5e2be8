package models

import (
	"gorm.io/gorm"
)

// Question type values as they appear on the wire and in the database.
const (
	QuestionTypeSingleChoice   = "single-choice"
	QuestionTypeMultipleChoice = "multiple-choice"
	QuestionTypeText           = "text"
	QuestionTypeScale          = "scale-1-10"
)

// MultipleChoiceSeparator delimits the selected options inside a
// multiple-choice answer value.
const MultipleChoiceSeparator = ";"

// ValidQuestionType reports whether t is one of the four supported types.
func ValidQuestionType(t string) bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice, QuestionTypeText, QuestionTypeScale:
		return true
	}
	return false
}

// ChoiceType reports whether questions of type t carry an option list.
func ChoiceType(t string) bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultipleChoice
}

type User struct {
	gorm.Model
	Email        string   `gorm:"uniqueIndex" json:"email"`
	Name         string   `json:"name"`
	PasswordHash string   `json:"-"`
	Surveys      []Survey `json:"-"`
}

type Survey struct {
	gorm.Model
	UserID      uint       `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `gorm:"constraint:OnDelete:CASCADE" json:"questions"`
	Link        string     `gorm:"-" json:"link,omitempty"`
}

type Question struct {
	gorm.Model
	SurveyID   uint     `json:"surveyId"`
	Text       string   `json:"title"`
	Type       string   `gorm:"size:50" json:"type"`
	IsRequired bool     `json:"required"`
	OrderIndex int      `json:"orderIndex"`
	Options    []Option `gorm:"constraint:OnDelete:CASCADE" json:"options"`
}

type Option struct {
	gorm.Model
	QuestionID uint   `json:"questionId"`
	Text       string `json:"text"`
	OrderIndex int    `json:"orderIndex"`
}

// Response is one respondent's submission to a survey. UserID is nil for
// anonymous submissions through a share link. The composite unique index keeps
// two racing submissions by the same user from creating duplicate rows;
// anonymous rows (NULL user_id) are exempt.
type Response struct {
	gorm.Model
	SurveyID uint     `gorm:"uniqueIndex:idx_responses_survey_user" json:"surveyId"`
	UserID   *uint    `gorm:"uniqueIndex:idx_responses_survey_user" json:"userId"`
	Answers  []Answer `gorm:"constraint:OnDelete:CASCADE" json:"answers"`
}

// Answer references its question by ID only; OptionID is set for
// single-choice answers, Value holds everything else (free text, the
// ;-delimited multiple-choice list, the scale value as a string).
type Answer struct {
	gorm.Model
	ResponseID uint   `json:"responseId"`
	QuestionID uint   `json:"questionId"`
	OptionID   *uint  `json:"optionId"`
	Value      string `gorm:"type:text" json:"value"`
}

type SurveyLink struct {
	gorm.Model
	SurveyID uint
	Link     string `gorm:"uniqueIndex"`
	IsActive bool
}

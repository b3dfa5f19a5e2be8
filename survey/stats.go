package survey

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/formgpt/survey-service/models"
	"gorm.io/gorm"
)

// SurveyStats is the owner's statistics view of a survey. Distributions
// are recomputed from stored answers on every call.
type SurveyStats struct {
	Respondents         int                     `json:"respondents"`
	AnswersDistribution map[uint]*QuestionStats `json:"answersDistribution"`
}

type QuestionStats struct {
	QuestionText string         `json:"questionText"`
	QuestionType string         `json:"questionType"`
	OptionsCount map[string]int `json:"optionsCount,omitempty"`
	TextAnswers  []TextAnswer   `json:"textAnswers,omitempty"`
	ScaleStats   *ScaleStats    `json:"scaleStats,omitempty"`
}

type TextAnswer struct {
	Answer         string `json:"answer"`
	RespondentName string `json:"respondentName"`
	CreatedAt      string `json:"createdAt"`
}

// ScaleStats summarizes a scale question for the stats view. Average is
// rounded to two decimal places here; the analytics view rounds to one.
type ScaleStats struct {
	Average      float64     `json:"average"`
	Min          int         `json:"min"`
	Max          int         `json:"max"`
	Distribution map[int]int `json:"distribution"`
}

// GetSurveyStats computes the per-question distributions for the
// survey's owner.
func GetSurveyStats(g *gorm.DB, surveyID, userID uint) (*SurveyStats, error) {
	s, err := ownedSurvey(g, surveyID, userID)
	if err != nil {
		return nil, err
	}

	stats := &SurveyStats{
		AnswersDistribution: make(map[uint]*QuestionStats, len(s.Questions)),
	}

	respondents, err := CountRespondents(g, surveyID)
	if err != nil {
		return nil, err
	}
	stats.Respondents = respondents

	for i := range s.Questions {
		q := &s.Questions[i]
		qs := &QuestionStats{
			QuestionText: q.Text,
			QuestionType: q.Type,
		}

		switch q.Type {
		case models.QuestionTypeSingleChoice, models.QuestionTypeMultipleChoice:
			counts, err := optionCounts(g, q)
			if err != nil {
				return nil, err
			}
			qs.OptionsCount = counts
		case models.QuestionTypeText:
			answers, err := textAnswersWithRespondent(g, q.ID)
			if err != nil {
				return nil, err
			}
			qs.TextAnswers = answers
		case models.QuestionTypeScale:
			values, err := answerValues(g, q.ID)
			if err != nil {
				return nil, err
			}
			qs.ScaleStats = computeScaleStats(values)
		}

		stats.AnswersDistribution[q.ID] = qs
	}

	return stats, nil
}

// CountRespondents counts distinct identified respondents of a survey.
func CountRespondents(g *gorm.DB, surveyID uint) (int, error) {
	var n int64
	err := g.Model(&models.Response{}).
		Where("survey_id = ? AND user_id IS NOT NULL", surveyID).
		Distinct("user_id").
		Count(&n).Error
	return int(n), err
}

// optionCounts tallies answers per option text. Single-choice answers
// are counted through their attached option; multiple-choice answers
// count toward every option whose text their delimited value contains.
func optionCounts(g *gorm.DB, q *models.Question) (map[string]int, error) {
	counts := make(map[string]int, len(q.Options))

	if q.Type == models.QuestionTypeSingleChoice {
		var rows []struct {
			Text  string
			Total int
		}
		err := g.Model(&models.Answer{}).
			Select("options.text AS text, COUNT(answers.id) AS total").
			Joins("JOIN options ON options.id = answers.option_id").
			Where("answers.question_id = ? AND answers.option_id IS NOT NULL", q.ID).
			Group("options.text").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			counts[row.Text] = row.Total
		}
		return counts, nil
	}

	values, err := answerValues(g, q.ID)
	if err != nil {
		return nil, err
	}
	for _, opt := range q.Options {
		for _, v := range values {
			if strings.Contains(v, opt.Text) {
				counts[opt.Text]++
			}
		}
	}
	return counts, nil
}

func textAnswersWithRespondent(g *gorm.DB, questionID uint) ([]TextAnswer, error) {
	var rows []struct {
		Value     string
		Name      string
		CreatedAt time.Time
	}
	err := g.Model(&models.Answer{}).
		Select("answers.value AS value, COALESCE(users.name, '') AS name, responses.created_at AS created_at").
		Joins("JOIN responses ON responses.id = answers.response_id").
		Joins("LEFT JOIN users ON users.id = responses.user_id").
		Where("answers.question_id = ?", questionID).
		Order("responses.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	answers := make([]TextAnswer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, TextAnswer{
			Answer:         row.Value,
			RespondentName: row.Name,
			CreatedAt:      row.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return answers, nil
}

// answerValues fetches the raw stored values for one question.
func answerValues(g *gorm.DB, questionID uint) ([]string, error) {
	var values []string
	err := g.Model(&models.Answer{}).
		Where("question_id = ?", questionID).
		Pluck("value", &values).Error
	return values, err
}

// computeScaleStats returns nil when no parseable in-range value exists;
// the stats view deliberately reports "no data" instead of zeroes.
func computeScaleStats(raw []string) *ScaleStats {
	values := parseScaleValues(raw)
	if len(values) == 0 {
		return nil
	}

	stats := &ScaleStats{
		Min:          values[0],
		Max:          values[0],
		Distribution: make(map[int]int, scaleMax),
	}
	for i := scaleMin; i <= scaleMax; i++ {
		stats.Distribution[i] = 0
	}

	sum := 0
	for _, v := range values {
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		stats.Distribution[v]++
	}
	stats.Average = round(float64(sum)/float64(len(values)), 2)

	return stats
}

// parseScaleValues keeps only digit-only strings that parse into the
// 1..10 range.
func parseScaleValues(raw []string) []int {
	var values []int
	for _, v := range raw {
		if !digitsOnly(v) {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < scaleMin || n > scaleMax {
			continue
		}
		values = append(values, n)
	}
	return values
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

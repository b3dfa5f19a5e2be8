package survey

import (
	"sort"
	"strings"
	"unicode"

	"github.com/formgpt/survey-service/models"
	"gorm.io/gorm"
)

const (
	wordCloudSize    = 10
	minWordLength    = 4
	sampleAnswersMax = 5
)

// SurveyAnalytics is the richer owner dashboard view. Unlike the stats
// view it reports completion coverage and per-question distributions in
// a chart-ready shape.
type SurveyAnalytics struct {
	SurveyID         uint                `json:"surveyId"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	TotalRespondents int                 `json:"totalRespondents"`
	CompletedCount   int                 `json:"completedCount"`
	IncompletedCount int                 `json:"incompletedCount"`
	Questions        []QuestionAnalytics `json:"questionsAnalytics"`
}

type QuestionAnalytics struct {
	QuestionID   uint        `json:"questionId"`
	Title        string      `json:"questionTitle"`
	Type         string      `json:"questionType"`
	TotalAnswers int         `json:"totalAnswers"`
	Distribution interface{} `json:"answerDistribution"`
}

type ChoiceDistribution struct {
	Options     []string  `json:"options"`
	Counts      []int     `json:"counts"`
	Percentages []float64 `json:"percentages"`
}

// ScaleDistribution always carries ten buckets. When no valid answer
// exists it is returned zeroed rather than nil; the stats view makes the
// opposite choice and both are intentional.
type ScaleDistribution struct {
	Min          int     `json:"min"`
	Max          int     `json:"max"`
	Average      float64 `json:"average"`
	Distribution []int   `json:"distribution"`
	Median       float64 `json:"median"`
}

type TextAnalytics struct {
	TotalAnswers  int      `json:"totalAnswers"`
	WordCloud     []string `json:"wordCloud"`
	SampleAnswers []string `json:"sampleAnswers"`
}

// GetSurveyAnalytics computes the analytics view for the survey's owner.
func GetSurveyAnalytics(g *gorm.DB, surveyID, userID uint) (*SurveyAnalytics, error) {
	s, err := ownedSurvey(g, surveyID, userID)
	if err != nil {
		return nil, err
	}

	analytics := &SurveyAnalytics{
		SurveyID:    s.ID,
		Title:       s.Title,
		Description: s.Description,
	}

	respondents, err := CountRespondents(g, surveyID)
	if err != nil {
		return nil, err
	}
	analytics.TotalRespondents = respondents

	completed, incomplete, err := completionCounts(g, s)
	if err != nil {
		return nil, err
	}
	analytics.CompletedCount = completed
	analytics.IncompletedCount = incomplete

	for i := range s.Questions {
		q := &s.Questions[i]

		values, err := answerValues(g, q.ID)
		if err != nil {
			return nil, err
		}

		qa := QuestionAnalytics{
			QuestionID:   q.ID,
			Title:        q.Text,
			Type:         q.Type,
			TotalAnswers: len(values),
		}

		switch q.Type {
		case models.QuestionTypeSingleChoice, models.QuestionTypeMultipleChoice:
			dist, err := choiceDistribution(g, q, len(values))
			if err != nil {
				return nil, err
			}
			qa.Distribution = dist
		case models.QuestionTypeScale:
			qa.Distribution = scaleDistribution(values)
		case models.QuestionTypeText:
			qa.Distribution = textAnalytics(values)
		}

		analytics.Questions = append(analytics.Questions, qa)
	}

	return analytics, nil
}

// completionCounts splits the survey's responses into those covering
// every required question and the rest.
func completionCounts(g *gorm.DB, s *models.Survey) (completed, incomplete int, err error) {
	var required []uint
	for i := range s.Questions {
		if s.Questions[i].IsRequired {
			required = append(required, s.Questions[i].ID)
		}
	}

	var responses []models.Response
	if err = g.Where("survey_id = ?", s.ID).Preload("Answers").Find(&responses).Error; err != nil {
		return 0, 0, err
	}

	for _, r := range responses {
		if responseComplete(&r, required) {
			completed++
		} else {
			incomplete++
		}
	}
	return completed, incomplete, nil
}

func responseComplete(r *models.Response, requiredQuestionIDs []uint) bool {
	answered := make(map[uint]bool, len(r.Answers))
	for _, a := range r.Answers {
		answered[a.QuestionID] = true
	}
	for _, id := range requiredQuestionIDs {
		if !answered[id] {
			return false
		}
	}
	return true
}

// choiceDistribution keeps the survey's option order and reports each
// option's share of the question's total answers, rounded to one
// decimal place.
func choiceDistribution(g *gorm.DB, q *models.Question, totalAnswers int) (*ChoiceDistribution, error) {
	counts, err := optionCounts(g, q)
	if err != nil {
		return nil, err
	}

	dist := &ChoiceDistribution{}
	for _, opt := range q.Options {
		count := counts[opt.Text]
		dist.Options = append(dist.Options, opt.Text)
		dist.Counts = append(dist.Counts, count)
		if totalAnswers > 0 {
			dist.Percentages = append(dist.Percentages, round(float64(count)*100/float64(totalAnswers), 1))
		} else {
			dist.Percentages = append(dist.Percentages, 0)
		}
	}
	return dist, nil
}

// scaleDistribution returns a zeroed struct with a ten-zero histogram
// when no valid value exists.
func scaleDistribution(raw []string) *ScaleDistribution {
	dist := &ScaleDistribution{
		Distribution: make([]int, scaleMax),
	}

	values := parseScaleValues(raw)
	if len(values) == 0 {
		return dist
	}

	sort.Ints(values)
	dist.Min = values[0]
	dist.Max = values[len(values)-1]

	sum := 0
	for _, v := range values {
		sum += v
		dist.Distribution[v-1]++
	}
	dist.Average = round(float64(sum)/float64(len(values)), 1)
	dist.Median = round(median(values), 1)

	return dist
}

// median expects values to be sorted.
func median(values []int) float64 {
	n := len(values)
	if n%2 == 1 {
		return float64(values[n/2])
	}
	return float64(values[n/2-1]+values[n/2]) / 2
}

func textAnalytics(raw []string) *TextAnalytics {
	analytics := &TextAnalytics{
		WordCloud:     []string{},
		SampleAnswers: []string{},
	}

	var nonEmpty []string
	for _, v := range raw {
		if strings.TrimSpace(v) != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	analytics.TotalAnswers = len(nonEmpty)

	for _, v := range nonEmpty {
		if len(analytics.SampleAnswers) >= sampleAnswersMax {
			break
		}
		analytics.SampleAnswers = append(analytics.SampleAnswers, v)
	}

	analytics.WordCloud = wordCloud(nonEmpty)
	return analytics
}

// wordCloud returns the most frequent words across all answers.
// Short words and anything containing a digit are skipped; ties keep
// first-seen order so repeated calls are deterministic.
func wordCloud(answers []string) []string {
	freq := make(map[string]int)
	var order []string

	for _, answer := range answers {
		for _, word := range strings.Fields(strings.ToLower(answer)) {
			if len([]rune(word)) < minWordLength || containsDigit(word) {
				continue
			}
			if _, seen := freq[word]; !seen {
				order = append(order, word)
			}
			freq[word]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	if len(order) > wordCloudSize {
		order = order[:wordCloudSize]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

package survey

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/formgpt/survey-service/models"
)

const (
	scaleMin      = 1
	scaleMax      = 10
	maxTextLength = 1000
)

// ValidateAnswer checks one submitted value against one question's rules
// and returns a human-readable reason when the value is invalid. A blank
// value is never invalid here; the required-field rule is checked
// separately so that the aggregator can report both kinds of violation.
func ValidateAnswer(q *models.Question, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}

	switch q.Type {
	case models.QuestionTypeSingleChoice:
		if !hasOption(q, value) {
			return fmt.Sprintf("question %q has no option %q", q.Text, value)
		}

	case models.QuestionTypeMultipleChoice:
		for _, choice := range strings.Split(value, models.MultipleChoiceSeparator) {
			choice = strings.TrimSpace(choice)
			if choice == "" {
				continue
			}
			if !hasOption(q, choice) {
				return fmt.Sprintf("question %q has no option %q", q.Text, choice)
			}
		}

	case models.QuestionTypeScale:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Sprintf("question %q expects a number from %d to %d", q.Text, scaleMin, scaleMax)
		}
		if n < scaleMin || n > scaleMax {
			return fmt.Sprintf("question %q expects a scale value from %d to %d", q.Text, scaleMin, scaleMax)
		}

	case models.QuestionTypeText:
		if utf8.RuneCountInString(value) > maxTextLength {
			return fmt.Sprintf("text answer for question %q must not exceed %d characters", q.Text, maxTextLength)
		}
	}

	return ""
}

// RequiredViolation reports the reason when a required question was left
// without a non-blank answer, and "" otherwise.
func RequiredViolation(q *models.Question, value string, supplied bool) string {
	if q.IsRequired && (!supplied || strings.TrimSpace(value) == "") {
		return fmt.Sprintf("question %q is required", q.Text)
	}
	return ""
}

func hasOption(q *models.Question, text string) bool {
	for i := range q.Options {
		if q.Options[i].Text == text {
			return true
		}
	}
	return false
}

func findOption(q *models.Question, text string) *models.Option {
	for i := range q.Options {
		if q.Options[i].Text == text {
			return &q.Options[i]
		}
	}
	return nil
}

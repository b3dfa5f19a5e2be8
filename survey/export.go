package survey

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/formgpt/survey-service/models"
	"gorm.io/gorm"
)

// CSV export formats.
const (
	ExportByRespondent = "by-respondent"
	ExportByQuestion   = "by-question"
)

const (
	csvSeparator = ","
	csvTimestamp = "2006-01-02 15:04:05"
)

// ExportRequest selects the export mode and whether respondent metadata
// columns are emitted in by-respondent mode.
type ExportRequest struct {
	Format          string
	IncludeMetadata bool
}

// ExportSurveyCSV renders the survey's responses as UTF-8 CSV with a
// leading byte-order-mark. Owner only.
func ExportSurveyCSV(g *gorm.DB, surveyID, userID uint, req ExportRequest) ([]byte, error) {
	s, err := ownedSurvey(g, surveyID, userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("\ufeff")

	if req.Format == ExportByQuestion {
		err = exportByQuestion(g, &buf, s)
	} else {
		err = exportByRespondent(g, &buf, s, req.IncludeMetadata)
	}
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// exportByRespondent writes one row per response: optional metadata
// columns, then one column per question in survey order.
func exportByRespondent(g *gorm.DB, buf *bytes.Buffer, s *models.Survey, includeMetadata bool) error {
	var responses []models.Response
	if err := g.Where("survey_id = ?", s.ID).Preload("Answers").Find(&responses).Error; err != nil {
		return err
	}

	var requiredIDs []uint
	optionTexts := make(map[uint]string)
	for i := range s.Questions {
		if s.Questions[i].IsRequired {
			requiredIDs = append(requiredIDs, s.Questions[i].ID)
		}
		for _, opt := range s.Questions[i].Options {
			optionTexts[opt.ID] = opt.Text
		}
	}

	var header []string
	if includeMetadata {
		header = append(header, "respondent_id", "respondent_email", "completion_status", "response_date")
	}
	for i := range s.Questions {
		header = append(header, escapeCSV(s.Questions[i].Text))
	}
	writeCSVLine(buf, header)

	emails, err := respondentEmails(g, responses)
	if err != nil {
		return err
	}

	for _, r := range responses {
		var row []string

		if includeMetadata {
			if r.UserID != nil {
				row = append(row, strconv.FormatUint(uint64(*r.UserID), 10))
				row = append(row, escapeCSV(emails[*r.UserID]))
			} else {
				row = append(row, "anonymous", "")
			}
			if responseComplete(&r, requiredIDs) {
				row = append(row, "COMPLETED")
			} else {
				row = append(row, "INCOMPLETE")
			}
			row = append(row, r.CreatedAt.Format(csvTimestamp))
		}

		answerByQuestion := make(map[uint]string, len(r.Answers))
		for _, a := range r.Answers {
			answerByQuestion[a.QuestionID] = formatAnswerValue(&a, optionTexts)
		}
		for i := range s.Questions {
			if v, ok := answerByQuestion[s.Questions[i].ID]; ok {
				row = append(row, escapeCSV(v))
			} else {
				row = append(row, "")
			}
		}

		writeCSVLine(buf, row)
	}

	return nil
}

// exportByQuestion writes one row per (question, option-or-bucket):
// choice questions get one row per option, scale questions one row per
// bucket 1..10, and text questions a single synthetic TEXT_RESPONSE row.
func exportByQuestion(g *gorm.DB, buf *bytes.Buffer, s *models.Survey) error {
	writeCSVLine(buf, []string{
		"question_id",
		"question_text",
		"question_type",
		"response_option",
		"count",
		"percentage",
	})

	for i := range s.Questions {
		q := &s.Questions[i]

		distribution, err := questionDistribution(g, q)
		if err != nil {
			return err
		}
		total := 0
		for _, c := range distribution {
			total += c
		}

		switch q.Type {
		case models.QuestionTypeSingleChoice, models.QuestionTypeMultipleChoice:
			for _, opt := range q.Options {
				writeCSVLine(buf, []string{
					strconv.FormatUint(uint64(q.ID), 10),
					escapeCSV(q.Text),
					q.Type,
					escapeCSV(opt.Text),
					strconv.Itoa(distribution[opt.Text]),
					percentage(distribution[opt.Text], total),
				})
			}
		case models.QuestionTypeScale:
			for bucket := scaleMin; bucket <= scaleMax; bucket++ {
				label := strconv.Itoa(bucket)
				writeCSVLine(buf, []string{
					strconv.FormatUint(uint64(q.ID), 10),
					escapeCSV(q.Text),
					q.Type,
					label,
					strconv.Itoa(distribution[label]),
					percentage(distribution[label], total),
				})
			}
		case models.QuestionTypeText:
			writeCSVLine(buf, []string{
				strconv.FormatUint(uint64(q.ID), 10),
				escapeCSV(q.Text),
				q.Type,
				"TEXT_RESPONSE",
				strconv.Itoa(total),
				"100.0%",
			})
		}
	}

	return nil
}

// questionDistribution maps option/bucket labels to raw counts for the
// by-question export.
func questionDistribution(g *gorm.DB, q *models.Question) (map[string]int, error) {
	distribution := make(map[string]int)

	switch q.Type {
	case models.QuestionTypeSingleChoice:
		counts, err := optionCounts(g, q)
		if err != nil {
			return nil, err
		}
		for text, count := range counts {
			distribution[text] = count
		}

	case models.QuestionTypeMultipleChoice:
		values, err := answerValues(g, q.ID)
		if err != nil {
			return nil, err
		}
		for _, opt := range q.Options {
			count := 0
			for _, v := range values {
				if strings.Contains(v, opt.Text) {
					count++
				}
			}
			distribution[opt.Text] = count
		}

	case models.QuestionTypeScale:
		values, err := answerValues(g, q.ID)
		if err != nil {
			return nil, err
		}
		for bucket := scaleMin; bucket <= scaleMax; bucket++ {
			label := strconv.Itoa(bucket)
			count := 0
			for _, v := range values {
				if v == label {
					count++
				}
			}
			distribution[label] = count
		}

	case models.QuestionTypeText:
		values, err := answerValues(g, q.ID)
		if err != nil {
			return nil, err
		}
		count := 0
		for _, v := range values {
			if v != "" {
				count++
			}
		}
		distribution["TEXT_RESPONSE"] = count
	}

	return distribution, nil
}

func respondentEmails(g *gorm.DB, responses []models.Response) (map[uint]string, error) {
	var ids []uint
	for _, r := range responses {
		if r.UserID != nil {
			ids = append(ids, *r.UserID)
		}
	}
	emails := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return emails, nil
	}

	var users []models.User
	if err := g.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	return emails, nil
}

func formatAnswerValue(a *models.Answer, optionTexts map[uint]string) string {
	if a.OptionID != nil {
		return optionTexts[*a.OptionID]
	}
	return a.Value
}

func percentage(count, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(count)*100/float64(total))
}

// escapeCSV quotes a field containing the separator, a quote or any
// newline, doubling embedded quotes.
func escapeCSV(value string) string {
	if strings.Contains(value, csvSeparator) || strings.Contains(value, "\"") ||
		strings.Contains(value, "\n") || strings.Contains(value, "\r") {
		return "\"" + strings.ReplaceAll(value, "\"", "\"\"") + "\""
	}
	return value
}

func writeCSVLine(buf *bytes.Buffer, fields []string) {
	buf.WriteString(strings.Join(fields, csvSeparator))
	buf.WriteString("\n")
}

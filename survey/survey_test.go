package survey

import (
	"fmt"
	"testing"

	"github.com/formgpt/survey-service/db"
	"github.com/formgpt/survey-service/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database, migrated with the
// production schema. cache=shared keeps the database alive across the
// connections gorm pools; the per-test name keeps tests isolated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	g, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Migrate(g))
	return g
}

func createTestUser(t *testing.T, g *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: "Test User"}
	require.NoError(t, g.Create(user).Error)
	return user
}

// createTestSurvey builds a survey with one question of each type:
// single-choice (Red/Blue/Green), multiple-choice (A/B/C), scale, text.
func createTestSurvey(t *testing.T, g *gorm.DB, ownerID uint) *models.Survey {
	t.Helper()
	s, err := CreateSurvey(g, ownerID, CreateSurveyRequest{
		Title:       "Customer satisfaction",
		Description: "Quarterly survey",
		Questions: []QuestionInput{
			{Title: "Favorite color?", Type: models.QuestionTypeSingleChoice, Required: true, Options: []string{"Red", "Blue", "Green"}},
			{Title: "Which apply?", Type: models.QuestionTypeMultipleChoice, Options: []string{"A", "B", "C"}},
			{Title: "Rate us", Type: models.QuestionTypeScale},
			{Title: "Any comments?", Type: models.QuestionTypeText},
		},
	})
	require.NoError(t, err)
	return s
}

func questionByType(t *testing.T, s *models.Survey, questionType string) *models.Question {
	t.Helper()
	for i := range s.Questions {
		if s.Questions[i].Type == questionType {
			return &s.Questions[i]
		}
	}
	t.Fatalf("survey has no %s question", questionType)
	return nil
}

func countRows(t *testing.T, g *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, g.Model(model).Count(&n).Error)
	return n
}

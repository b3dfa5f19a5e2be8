package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/formgpt/survey-service/auth"
	"github.com/formgpt/survey-service/db"
	"github.com/formgpt/survey-service/models"
	"github.com/formgpt/survey-service/survey"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHandlerTest(t *testing.T) *mux.Router {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	g, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(g))
	db.DB = g

	r := mux.NewRouter()
	r.HandleFunc("/auth/register", RegisterHandler).Methods("POST")
	r.HandleFunc("/auth/login", LoginHandler).Methods("POST")
	r.HandleFunc("/users/me", auth.AuthMiddleware(GetCurrentUser)).Methods("GET")
	r.HandleFunc("/api/surveys", auth.AuthMiddleware(CreateSurvey)).Methods("POST")
	r.HandleFunc("/api/surveys", auth.AuthMiddleware(ListSurveys)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}", auth.AuthMiddleware(GetSurvey)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}", auth.AuthMiddleware(UpdateSurvey)).Methods("PUT")
	r.HandleFunc("/api/surveys/{id}", auth.AuthMiddleware(DeleteSurvey)).Methods("DELETE")
	r.HandleFunc("/api/surveys/{id}/answers", auth.AuthMiddleware(SubmitAnswers)).Methods("POST")
	r.HandleFunc("/api/surveys/{id}/stats", auth.AuthMiddleware(GetSurveyStats)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}/analytics", auth.AuthMiddleware(GetSurveyAnalytics)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}/export/csv", auth.AuthMiddleware(ExportSurveyCSV)).Methods("GET")
	r.HandleFunc("/s/{linkID}", AccessSurveyByLink).Methods("GET")
	r.HandleFunc("/s/{linkID}/answers", RateLimit(SubmitAnswersByLink)).Methods("POST")
	r.HandleFunc("/gpt/surveys/create", auth.AuthMiddleware(CreateSurveyWithGPT)).Methods("POST")
	r.HandleFunc("/gpt/surveys/{id}/questions", auth.AuthMiddleware(AddQuestionWithGPT)).Methods("POST")
	r.HandleFunc("/gpt/surveys/{id}/questions/batch", auth.AuthMiddleware(GenerateQuestionsForSurvey)).Methods("POST")
	r.HandleFunc("/gpt/questions/{id}/edit", auth.AuthMiddleware(ImproveQuestionWithGPT)).Methods("PUT")
	return r
}

// newTestUser creates a user row directly and returns a bearer token for
// it; the register endpoint is exercised separately.
func newTestUser(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user := &models.User{Email: email, Name: "Test User"}
	require.NoError(t, db.DB.Create(user).Error)
	token, err := auth.GenerateToken(user.ID)
	require.NoError(t, err)
	return user, "Bearer " + token
}

func doJSON(t *testing.T, r *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createSurveyOverHTTP(t *testing.T, r *mux.Router, token string) *models.Survey {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/surveys", token, survey.CreateSurveyRequest{
		Title: "Team retro",
		Questions: []survey.QuestionInput{
			{Title: "Mood?", Type: models.QuestionTypeSingleChoice, Required: true, Options: []string{"Good", "Bad"}},
			{Title: "Energy level?", Type: models.QuestionTypeScale},
			{Title: "Comments?", Type: models.QuestionTypeText},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var s models.Survey
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return &s
}

func TestRegisterAndLogin(t *testing.T) {
	r := setupHandlerTest(t)

	creds := map[string]string{"email": "new@example.com", "name": "New User", "password": "hunter22"}
	rec := doJSON(t, r, http.MethodPost, "/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	assert.NotEmpty(t, registered["token"])

	// Same email again conflicts.
	rec = doJSON(t, r, http.MethodPost, "/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "new@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "new@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetCurrentUser(t *testing.T) {
	r := setupHandlerTest(t)
	user, token := newTestUser(t, "me@example.com")

	rec := doJSON(t, r, http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "me@example.com", got.Email)
}

func TestSurveyLifecycleOverHTTP(t *testing.T) {
	r := setupHandlerTest(t)
	_, token := newTestUser(t, "owner@example.com")

	s := createSurveyOverHTTP(t, r, token)
	require.NotZero(t, s.ID)
	assert.NotEmpty(t, s.Link)

	rec := doJSON(t, r, http.MethodGet, "/api/surveys", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Survey
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	path := fmt.Sprintf("/api/surveys/%d", s.ID)
	rec = doJSON(t, r, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view survey.SurveyWithAnswers
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.False(t, view.HasResponded)
	assert.Len(t, view.Questions, 3)

	rec = doJSON(t, r, http.MethodPut, path, token, map[string]string{"title": "Sprint retro"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Survey
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Sprint retro", updated.Title)

	rec = doJSON(t, r, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitAnswersOverHTTP(t *testing.T) {
	r := setupHandlerTest(t)
	_, ownerToken := newTestUser(t, "owner@example.com")
	_, respondentToken := newTestUser(t, "respondent@example.com")

	s := createSurveyOverHTTP(t, r, ownerToken)
	path := fmt.Sprintf("/api/surveys/%d/answers", s.ID)

	rec := doJSON(t, r, http.MethodPost, path, respondentToken, map[string]interface{}{
		"answers": []survey.SubmittedAnswer{
			{QuestionID: s.Questions[0].ID, Value: "Good"},
			{QuestionID: s.Questions[1].ID, Value: "8"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	// An invalid submission reports every reason at once.
	rec = doJSON(t, r, http.MethodPost, path, respondentToken, map[string]interface{}{
		"answers": []survey.SubmittedAnswer{
			{QuestionID: s.Questions[1].ID, Value: "99"},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error   string   `json:"error"`
		Reasons []string `json:"reasons"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Validation Error", body.Error)
	assert.Len(t, body.Reasons, 2)
}

func TestAnonymousLinkFlow(t *testing.T) {
	r := setupHandlerTest(t)
	_, ownerToken := newTestUser(t, "owner@example.com")
	s := createSurveyOverHTTP(t, r, ownerToken)

	rec := doJSON(t, r, http.MethodGet, "/s/"+s.Link, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/s/not-a-link", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	submit := map[string]interface{}{
		"answers": []survey.SubmittedAnswer{{QuestionID: s.Questions[0].ID, Value: "Bad"}},
	}
	rec = doJSON(t, r, http.MethodPost, "/s/"+s.Link+"/answers", "", submit)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, r, http.MethodPost, "/s/"+s.Link+"/answers", "", submit)
	require.Equal(t, http.StatusOK, rec.Code)

	// Anonymous submissions never merge into one response.
	var count int64
	require.NoError(t, db.DB.Model(&models.Response{}).Where("survey_id = ?", s.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSubmissionRateLimit(t *testing.T) {
	r := setupHandlerTest(t)
	_, ownerToken := newTestUser(t, "owner@example.com")
	s := createSurveyOverHTTP(t, r, ownerToken)

	payload, err := json.Marshal(map[string]interface{}{
		"answers": []survey.SubmittedAnswer{{QuestionID: s.Questions[0].ID, Value: "Good"}},
	})
	require.NoError(t, err)

	var limited bool
	for i := 0; i < 8; i++ {
		req := httptest.NewRequest(http.MethodPost, "/s/"+s.Link+"/answers", bytes.NewReader(payload))
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.True(t, limited, "burst was never limited")
}

func TestStatsEndpointPermissions(t *testing.T) {
	r := setupHandlerTest(t)
	_, ownerToken := newTestUser(t, "owner@example.com")
	_, strangerToken := newTestUser(t, "stranger@example.com")
	s := createSurveyOverHTTP(t, r, ownerToken)

	statsPath := fmt.Sprintf("/api/surveys/%d/stats", s.ID)
	rec := doJSON(t, r, http.MethodGet, statsPath, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodGet, statsPath, ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/surveys/%d/analytics", s.ID), ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	r := setupHandlerTest(t)
	_, ownerToken := newTestUser(t, "owner@example.com")
	s := createSurveyOverHTTP(t, r, ownerToken)

	rec := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/surveys/%d/export/csv", s.ID), ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/csv; charset=UTF-8", rec.Header().Get("Content-Type"))
	wantName := fmt.Sprintf("survey-%d-results-%s.csv", s.ID, time.Now().Format("2006-01-02"))
	assert.Equal(t, "attachment; filename="+wantName, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\ufeff"))

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/surveys/%d/export/csv?format=by-question", s.ID), ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "TEXT_RESPONSE")
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/formgpt/survey-service/db"
	"github.com/formgpt/survey-service/survey"
	"github.com/gorilla/mux"
)

func CreateSurvey(w http.ResponseWriter, r *http.Request) {
	var req survey.CreateSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := currentUserID(r)
	s, err := survey.CreateSurvey(db.DB, userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, s)
}

func ListSurveys(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUserID(r)
	surveys, err := survey.ListSurveys(db.DB, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, surveys)
}

func GetSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	userID, _ := currentUserID(r)
	view, err := survey.GetSurveyWithAnswers(db.DB, surveyID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func UpdateSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var req survey.UpdateSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := currentUserID(r)
	s, err := survey.UpdateSurvey(db.DB, surveyID, userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func DeleteSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	userID, _ := currentUserID(r)
	if err := survey.DeleteSurvey(db.DB, surveyID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitAnswers handles an authenticated submission; a repeat
// submission by the same user replaces the previous one.
func SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Answers []survey.SubmittedAnswer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := currentUserID(r)
	if err := survey.SubmitAnswers(db.DB, surveyID, &userID, req.Answers); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// AccessSurveyByLink serves a survey to anonymous respondents through
// its share link.
func AccessSurveyByLink(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["linkID"]
	s, err := survey.GetSurveyByLink(db.DB, token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SubmitAnswersByLink handles an anonymous submission through a share
// link. Each submission creates a new response.
func SubmitAnswersByLink(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["linkID"]
	s, err := survey.GetSurveyByLink(db.DB, token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req struct {
		Answers []survey.SubmittedAnswer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := survey.SubmitAnswers(db.DB, s.ID, nil, req.Answers); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/formgpt/survey-service/db"
	"github.com/formgpt/survey-service/survey"
)

func GetSurveyStats(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	userID, _ := currentUserID(r)
	stats, err := survey.GetSurveyStats(db.DB, surveyID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func GetSurveyAnalytics(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	userID, _ := currentUserID(r)
	analytics, err := survey.GetSurveyAnalytics(db.DB, surveyID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func ExportSurveyCSV(w http.ResponseWriter, r *http.Request) {
	surveyID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid survey ID", http.StatusBadRequest)
		return
	}

	req := survey.ExportRequest{
		Format:          survey.ExportByRespondent,
		IncludeMetadata: true,
	}
	if r.URL.Query().Get("format") == survey.ExportByQuestion {
		req.Format = survey.ExportByQuestion
	}
	if v := r.URL.Query().Get("includeMetadata"); v != "" {
		req.IncludeMetadata, _ = strconv.ParseBool(v)
	}

	userID, _ := currentUserID(r)
	data, err := survey.ExportSurveyCSV(db.DB, surveyID, userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	fileName := fmt.Sprintf("survey-%d-results-%s.csv", surveyID, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=UTF-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

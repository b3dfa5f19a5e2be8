package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/formgpt/survey-service/auth"
	"github.com/formgpt/survey-service/gpt"
	"github.com/formgpt/survey-service/survey"
	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps core errors onto HTTP statuses. Validation
// failures carry every collected reason so the client sees all problems
// at once.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *survey.ValidationError
	var upstreamErr *gpt.UpstreamError

	switch {
	case errors.Is(err, survey.ErrNotFound):
		http.Error(w, "Survey not found", http.StatusNotFound)
	case errors.Is(err, survey.ErrPermissionDenied):
		http.Error(w, "Access denied", http.StatusForbidden)
	case errors.Is(err, survey.ErrMismatchedSurvey):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrEmailTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "Validation Error",
			"reasons": validationErr.Reasons,
		})
	case errors.As(err, &upstreamErr):
		log.Printf("Generation service error: %v", err)
		http.Error(w, "Question generation service unavailable", http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// pathID parses a numeric path variable from the request.
func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// currentUserID reads the authenticated user set by auth.AuthMiddleware.
func currentUserID(r *http.Request) (uint, bool) {
	return auth.UserIDFromContext(r.Context())
}

package main

import (
	"log"
	"net/http"

	"github.com/formgpt/survey-service/auth"
	"github.com/formgpt/survey-service/config"
	"github.com/formgpt/survey-service/db"
	"github.com/formgpt/survey-service/gpt"
	"github.com/formgpt/survey-service/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	db.InitDB()
	handlers.Generator = gpt.NewClient(config.GPTServiceURL)

	r := mux.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{config.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	// Auth routes
	r.HandleFunc("/auth/register", handlers.RegisterHandler).Methods("POST")
	r.HandleFunc("/auth/login", handlers.LoginHandler).Methods("POST")
	r.HandleFunc("/users/me", auth.AuthMiddleware(handlers.GetCurrentUser)).Methods("GET")

	// Survey routes
	r.HandleFunc("/api/surveys", auth.AuthMiddleware(handlers.CreateSurvey)).Methods("POST")
	r.HandleFunc("/api/surveys", auth.AuthMiddleware(handlers.ListSurveys)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}", auth.AuthMiddleware(handlers.GetSurvey)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}", auth.AuthMiddleware(handlers.UpdateSurvey)).Methods("PUT")
	r.HandleFunc("/api/surveys/{id}", auth.AuthMiddleware(handlers.DeleteSurvey)).Methods("DELETE")
	r.HandleFunc("/api/surveys/{id}/answers", auth.AuthMiddleware(handlers.RateLimit(handlers.SubmitAnswers))).Methods("POST")

	// Read side
	r.HandleFunc("/api/surveys/{id}/stats", auth.AuthMiddleware(handlers.GetSurveyStats)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}/analytics", auth.AuthMiddleware(handlers.GetSurveyAnalytics)).Methods("GET")
	r.HandleFunc("/api/surveys/{id}/export/csv", auth.AuthMiddleware(handlers.ExportSurveyCSV)).Methods("GET")

	// Public share links
	r.HandleFunc("/s/{linkID}", handlers.AccessSurveyByLink).Methods("GET")
	r.HandleFunc("/s/{linkID}/answers", handlers.RateLimit(handlers.SubmitAnswersByLink)).Methods("POST")

	// Question generation
	r.HandleFunc("/gpt/surveys/create", auth.AuthMiddleware(handlers.CreateSurveyWithGPT)).Methods("POST")
	r.HandleFunc("/gpt/surveys/{id}/questions", auth.AuthMiddleware(handlers.AddQuestionWithGPT)).Methods("POST")
	r.HandleFunc("/gpt/surveys/{id}/questions/batch", auth.AuthMiddleware(handlers.GenerateQuestionsForSurvey)).Methods("POST")
	r.HandleFunc("/gpt/questions/{id}/edit", auth.AuthMiddleware(handlers.ImproveQuestionWithGPT)).Methods("PUT")

	log.Println("Server starting on :" + config.Port)
	log.Fatal(http.ListenAndServe(":"+config.Port, handler))
}

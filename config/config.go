package config

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	JWTSecret     string
	GPTServiceURL string
	Port          string
	CORSOrigin    string
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Error loading .env file: %v", err)
	}

	JWTSecret = getenv("JWT_SECRET", "")
	GPTServiceURL = getenv("GPT_SERVICE_URL", "http://gpt-service:8000")
	Port = getenv("PORT", "8080")
	CORSOrigin = getenv("CORS_ORIGIN", "http://localhost:3000")

	if JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate fallback JWT secret: %v", err)
		}
		JWTSecret = base64.URLEncoding.EncodeToString(b)
		log.Println("Warning: JWT_SECRET is not set, issued tokens will not survive restarts")
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendDB  = "db"
	BackendAPI = "api"
)

var (
	PORT        string
	DB_URL      string
	JWT_SECRET  string
	CORS_ORIGIN string

	// proxies allowed to set X-Forwarded-For; none by default
	TRUSTED_PROXIES []string

	LOG_LEVEL string
	LOG_DEV   bool

	// where carnets are stored: "db" (Postgres) or "api" (remote REST service)
	CARNET_BACKEND string
	API_BASE_URL   string
	API_TOKEN      string
	API_TIMEOUT    time.Duration

	AMQP_URL      string
	AMQP_EXCHANGE string
	AMQP_QUEUE    string

	LOGIN_RATE_PER_MINUTE int

	GOOGLE_CLIENT_ID         string
	GOOGLE_CLIENT_SECRET     string
	GOOGLE_REDIRECT_URL      string
	GOOGLE_FRONTEND_REDIRECT string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:3000")
	TRUSTED_PROXIES = getList("TRUSTED_PROXIES")

	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	LOG_DEV = getEnv("LOG_DEV", "") == "1"

	CARNET_BACKEND = strings.ToLower(getEnv("CARNET_BACKEND", BackendDB))
	switch CARNET_BACKEND {
	case BackendDB:
	case BackendAPI:
		API_BASE_URL = mustEnv("API_BASE_URL")
		API_TOKEN = mustEnv("API_TOKEN")
	default:
		log.Fatalf("CARNET_BACKEND must be %q or %q, got %q", BackendDB, BackendAPI, CARNET_BACKEND)
	}
	API_TIMEOUT = getDuration("API_TIMEOUT", 10*time.Second)

	AMQP_URL = getEnv("AMQP_URL", "")
	AMQP_EXCHANGE = getEnv("AMQP_EXCHANGE", "tontine.carnets")
	AMQP_QUEUE = getEnv("AMQP_QUEUE", "carnet-events")

	LOGIN_RATE_PER_MINUTE = getInt("LOGIN_RATE_PER_MINUTE", 10)

	// Google sign-in stays off unless all three are set
	GOOGLE_CLIENT_ID = getEnv("GOOGLE_CLIENT_ID", "")
	GOOGLE_CLIENT_SECRET = getEnv("GOOGLE_CLIENT_SECRET", "")
	GOOGLE_REDIRECT_URL = getEnv("GOOGLE_REDIRECT_URL", "")
	GOOGLE_FRONTEND_REDIRECT = getEnv("GOOGLE_FRONTEND_REDIRECT", "")
}

func GoogleEnabled() bool {
	return GOOGLE_CLIENT_ID != "" && GOOGLE_CLIENT_SECRET != "" && GOOGLE_REDIRECT_URL != ""
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getList splits a comma separated value, nil when unset.
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("Invalid %s: %q", key, v)
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("Invalid %s: %q", key, v)
	}
	return d
}

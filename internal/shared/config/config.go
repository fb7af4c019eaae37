package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	LogLevel        string

	DatabaseURL string
	UserStore   string
	RedisURL    string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	GeminiTimeout    time.Duration
	GeminiMaxRetries int

	GenerationTimeout  time.Duration
	MaxUploadBytes     int64
	GenerateRatePerMin int

	JWTSecret string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	if env == "production" && os.Getenv("JWT_SECRET") == "" {
		log.Printf("JWT_SECRET is required in production")
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		Env:                env,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        dbURL,
		UserStore:          normalizeUserStore(getEnv("USER_STORE", ""), dbURL),
		RedisURL:           getEnv("REDIS_URL", ""),
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", "none")),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-flash-latest"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", ""),
		GeminiTimeout:      time.Duration(getEnvInt("GEMINI_TIMEOUT_SECONDS", 120)) * time.Second,
		GeminiMaxRetries:   getEnvInt("GEMINI_MAX_RETRIES", 0),
		GenerationTimeout:  getEnvDuration("GENERATION_TIMEOUT", 150*time.Second),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		GenerateRatePerMin: getEnvInt("GENERATE_RATE_PER_MIN", 10),
		JWTSecret:          getEnv("JWT_SECRET", ""),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("invalid %s=%q, using %s", key, raw, def)
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "local":
		return "local"
	default:
		return "none"
	}
}

// normalizeUserStore picks postgres when a database is configured and nothing explicit was asked for.
func normalizeUserStore(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "redis":
		return "redis"
	case "memory":
		return "memory"
	case "postgres", "pg":
		return "postgres"
	}
	if dbURL != "" {
		return "postgres"
	}
	return "memory"
}

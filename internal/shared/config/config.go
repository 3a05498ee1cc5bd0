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
	DatabaseURL     string
	Env             string

	ObjectStoreType string
	LocalStoreDir   string
	LocalStoreURL   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SupabaseURL     string
	SupabaseKey     string
	SupabaseBucket  string

	TranscribeURL     string
	PollInterval      time.Duration
	PollMaxAttempts   int
	DispatchTimeout   time.Duration
	GenerationTimeout time.Duration

	PrimaryBackendURL   string
	PrimaryAPIKey       string
	PrimaryModel        string
	SecondaryBackendURL string
	SecondaryAPIKey     string
	ModelEconomical     string
	ModelHighCapacity   string
	PrimaryMaxChars     int
	EconomicalMaxChars  int
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

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,
		Env:             env,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		LocalStoreURL:   getEnv("LOCAL_STORE_URL", "http://localhost:8080/files"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseBucket:  getEnv("SUPABASE_BUCKET", "livebooks"),

		TranscribeURL:     getEnv("TRANSCRIBE_URL", ""),
		PollInterval:      getEnvDuration("TRANSCRIBE_POLL_INTERVAL", 4*time.Second),
		PollMaxAttempts:   getEnvInt("TRANSCRIBE_POLL_MAX_ATTEMPTS", 120),
		DispatchTimeout:   getEnvDuration("TRANSCRIBE_DISPATCH_TIMEOUT", 60*time.Second),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 300*time.Second),

		PrimaryBackendURL:   getEnv("PRIMARY_BACKEND_URL", "https://api.openai.com"),
		PrimaryAPIKey:       getEnv("PRIMARY_API_KEY", ""),
		PrimaryModel:        getEnv("PRIMARY_MODEL", "gpt-4o"),
		SecondaryBackendURL: getEnv("SECONDARY_BACKEND_URL", "https://generativelanguage.googleapis.com"),
		SecondaryAPIKey:     getEnv("SECONDARY_API_KEY", ""),
		ModelEconomical:     getEnv("SECONDARY_MODEL_ECONOMICAL", "gemini-1.5-flash"),
		ModelHighCapacity:   getEnv("SECONDARY_MODEL_HIGH_CAPACITY", "gemini-1.5-pro"),
		PrimaryMaxChars:     getEnvInt("ROUTER_PRIMARY_MAX_CHARS", 100_000),
		EconomicalMaxChars:  getEnvInt("ROUTER_ECONOMICAL_MAX_CHARS", 500_000),
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
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
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
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "supabase":
		return "supabase"
	default:
		return "local"
	}
}

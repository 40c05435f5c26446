package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration read from the environment.
// Call Load once at startup after godotenv has run.
type Config struct {
	Environment string
	Port        string

	JWTSecret string

	// Provider credentials
	GoogleAPIKey          string
	KieAPIKey             string
	WaveSpeedAPIKey       string
	HiggsfieldKeyID       string
	HiggsfieldKeySecret   string

	// Uploads
	UploadDir     string
	MaxUploadSize int64

	// Input limits match the web form constraints
	MaxTextInput     int
	MaxTextAreaInput int

	// Background work
	RecipeTimeout time.Duration

	// Storage
	AWSRegion  string
	AWSBucket  string
	CDNBaseURL string

	// Observability
	RedisHost     string
	RedisPort     string
	RedisPassword string
	OTLPEndpoint  string

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Environment: GetEnvOrDefault("ENVIRONMENT", "development"),
		Port:        GetEnvOrDefault("PORT", "8787"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoogleAPIKey:        os.Getenv("GOOGLE_API_KEY"),
		KieAPIKey:           os.Getenv("KIE_API_KEY"),
		WaveSpeedAPIKey:     os.Getenv("WAVESPEED_API_KEY"),
		HiggsfieldKeyID:     os.Getenv("HIGGSFIELD_API_KEY_ID"),
		HiggsfieldKeySecret: os.Getenv("HIGGSFIELD_API_KEY_SECRET"),

		UploadDir:     GetEnvOrDefault("UPLOAD_DIR", "static/uploads"),
		MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 16*1024*1024),

		MaxTextInput:     getEnvInt("MAX_TEXT_INPUT_LENGTH", 500),
		MaxTextAreaInput: getEnvInt("MAX_TEXTAREA_INPUT_LENGTH", 5000),

		RecipeTimeout: time.Duration(getEnvInt("RECIPE_TIMEOUT_MINUTES", 30)) * time.Minute,

		AWSRegion:  GetEnvOrDefault("AWS_REGION", "us-east-1"),
		AWSBucket:  os.Getenv("AWS_BUCKET"),
		CDNBaseURL: os.Getenv("CDN_BASE_URL"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     GetEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		LogLevel: GetEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  GetEnvOrDefault("LOG_FILE", "server.log"),
	}
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

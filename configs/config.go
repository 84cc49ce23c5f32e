// config.go - Configuration loaded from environment variables

package configs

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bosocmputer/livecommerce_ocr/internal/ai"
	"github.com/bosocmputer/livecommerce_ocr/internal/api"
	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"github.com/bosocmputer/livecommerce_ocr/internal/extraction"
	"github.com/bosocmputer/livecommerce_ocr/internal/processor"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	// OCR.space Configuration
	OCRSPACE_API_KEY  string
	OCRSPACE_ENDPOINT string
	OCR_TIMEOUT_MS    int
	OCR_MAX_RETRIES   int
	OCR_PROVIDER      string

	// Gemini fallback Configuration
	GEMINI_API_KEY string
	OCR_MODEL_NAME string

	// Image preprocessing settings
	ENABLE_IMAGE_PREPROCESSING bool
	MAX_UPLOAD_BYTES           int
	MAX_IMAGE_DIMENSION        int

	// Reading cache
	OCR_CACHE_TTL time.Duration
	MONGO_URI     string
	MONGO_DB_NAME string

	// Outbound rate limit
	OCR_RATE_LIMIT_TOKENS int
	OCR_RATE_LIMIT_REFILL time.Duration

	// Server Configuration
	PORT            string
	UPLOAD_DIR      string
	ALLOWED_ORIGINS string
	LOG_LEVEL       string
	REQUEST_TIMEOUT time.Duration
)

// writeTimeoutMargin leaves room to render the envelope after REQUEST_TIMEOUT expires.
const writeTimeoutMargin = 30 * time.Second

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		common.Logger().Info("no .env file found, using environment variables")
	}

	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	common.SetLogLevel(LOG_LEVEL)

	// A missing key fails each request with a credential error instead of stopping the server.
	OCRSPACE_API_KEY = getEnv("OCRSPACE_API_KEY", "")
	OCRSPACE_ENDPOINT = getEnv("OCRSPACE_ENDPOINT", ai.DefaultOCRSpaceEndpoint)
	OCR_TIMEOUT_MS = getEnvInt("OCR_TIMEOUT_MS", 45000)
	OCR_MAX_RETRIES = getEnvInt("OCR_MAX_RETRIES", extraction.DefaultMaxRetries)
	OCR_PROVIDER = strings.ToLower(getEnv("OCR_PROVIDER", ai.ProviderOCRSpace))

	GEMINI_API_KEY = getEnv("GEMINI_API_KEY", "")
	OCR_MODEL_NAME = getEnv("OCR_MODEL_NAME", ai.DefaultGeminiModel)

	ENABLE_IMAGE_PREPROCESSING = getEnvBool("ENABLE_IMAGE_PREPROCESSING", true)
	MAX_UPLOAD_BYTES = getEnvInt("MAX_UPLOAD_BYTES", processor.DefaultMaxUploadBytes)
	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", processor.DefaultMaxDimension)

	OCR_CACHE_TTL = getEnvDuration("OCR_CACHE_TTL", 24*time.Hour)
	MONGO_URI = getEnv("MONGO_URI", "")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "livecommerce_ocr")

	OCR_RATE_LIMIT_TOKENS = getEnvInt("OCR_RATE_LIMIT_TOKENS", 10)
	OCR_RATE_LIMIT_REFILL = getEnvDuration("OCR_RATE_LIMIT_REFILL", 6*time.Second)

	PORT = getEnv("PORT", "8080")
	UPLOAD_DIR = getEnv("UPLOAD_DIR", "uploads")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")
	REQUEST_TIMEOUT = getEnvDuration("REQUEST_TIMEOUT", api.DefaultRequestTimeout)
	if REQUEST_TIMEOUT <= 0 {
		REQUEST_TIMEOUT = api.DefaultRequestTimeout
	}

	if OCRSPACE_API_KEY == "" && OCR_PROVIDER == ai.ProviderOCRSpace {
		common.Logger().Warn("OCRSPACE_API_KEY is not set, OCR requests will fail")
	}

	common.Logger().Info("configuration loaded",
		zap.String("provider", OCR_PROVIDER),
		zap.Int("timeout_ms", OCR_TIMEOUT_MS),
		zap.Int("max_retries", OCR_MAX_RETRIES),
		zap.Duration("cache_ttl", OCR_CACHE_TTL),
		zap.Bool("mongo_cache", MONGO_URI != ""))
}

// ProviderConfig returns the provider settings of the loaded configuration.
func ProviderConfig() ai.OCRProviderConfig {
	return ai.OCRProviderConfig{
		Provider:         OCR_PROVIDER,
		Timeout:          time.Duration(OCR_TIMEOUT_MS) * time.Millisecond,
		OCRSpaceAPIKey:   OCRSPACE_API_KEY,
		OCRSpaceEndpoint: OCRSPACE_ENDPOINT,
		GeminiAPIKey:     GEMINI_API_KEY,
		GeminiModel:      OCR_MODEL_NAME,
	}
}

// UploadOptions returns the screenshot preparation settings.
func UploadOptions() processor.UploadOptions {
	return processor.UploadOptions{
		Enabled:      ENABLE_IMAGE_PREPROCESSING,
		MaxBytes:     MAX_UPLOAD_BYTES,
		MaxDimension: MAX_IMAGE_DIMENSION,
	}
}

// ExtractionConfig returns the invoker settings.
func ExtractionConfig() extraction.Config {
	return extraction.Config{
		MaxRetries: OCR_MAX_RETRIES,
		Upload:     UploadOptions(),
	}
}

// WriteTimeout returns the HTTP server write timeout, always longer than REQUEST_TIMEOUT.
func WriteTimeout() time.Duration {
	return REQUEST_TIMEOUT + writeTimeoutMargin
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "24h") or a plain number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

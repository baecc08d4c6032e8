package common

import (
	"encoding/base64"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Queue  QueueConfig
	LLM    LLMConfig
	PDF    PDFConfig
	Worker WorkerConfig
}

// QueueConfig holds queue backend configuration
type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PoolSize      int

	QueueName     string
	StatusPrefix  string
	ResultPrefix  string
	EncryptionKey []byte // 32 bytes, decoded from base64
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	BaseURL       string
	Model         string
	APIKey        string
	Temperature   float32
	Timeout       time.Duration
	MaxConcurrent int
}

// PDFConfig holds the external binaries used for text recovery.
type PDFConfig struct {
	Pdftotext string
	Pdfinfo   string
	Pdftoppm  string
	Tesseract string

	OCRLang string
	OCRDPI  int
}

// WorkerConfig holds worker loop configuration
type WorkerConfig struct {
	PollInterval time.Duration
	ResultTTL    time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Queue: QueueConfig{
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize:      getEnvAsInt("REDIS_POOL_SIZE", 10),
			QueueName:     getEnv("QUEUE_NAME", "invoice_tasks"),
			StatusPrefix:  getEnv("QUEUE_STATUS_PREFIX", "invoice_status"),
			ResultPrefix:  getEnv("QUEUE_RESULT_PREFIX", "invoice_result"),
			EncryptionKey: getEnvAsKey("QUEUE_ENCRYPTION_KEY"),
		},
		LLM: LLMConfig{
			BaseURL:       getEnv("OPENAI_BASE_URL", ""),
			Model:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:        getEnv("OPENAI_API_KEY", ""),
			Temperature:   0.0,
			Timeout:       getEnvAsDuration("OPENAI_TIMEOUT", 90*time.Second),
			MaxConcurrent: getEnvAsInt("OPENAI_MAX_CONCURRENT", 2),
		},
		PDF: PDFConfig{
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdfinfo:   getEnv("PDFINFO_BIN", "pdfinfo"),
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract: getEnv("TESSERACT_BIN", "tesseract"),
			OCRLang:   getEnv("OCR_LANG", "eng"),
			OCRDPI:    getEnvAsInt("OCR_DPI", 300),
		},
		Worker: WorkerConfig{
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", time.Second),
			ResultTTL:    getEnvAsDuration("RESULT_TTL", time.Hour),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsKey(key string) []byte {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	return decoded
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return ConfigurationError("OPENAI_API_KEY is required")
	}
	if len(c.Queue.EncryptionKey) != 32 {
		return ConfigurationError("QUEUE_ENCRYPTION_KEY must decode to 32 bytes")
	}
	if c.LLM.MaxConcurrent < 1 {
		return ConfigurationError("OPENAI_MAX_CONCURRENT must be at least 1")
	}
	return nil
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for the ingestion worker
type Config struct {
	Redis    RedisConfig
	Worker   WorkerConfig
	Ingest   IngestConfig
	Metadata MetadataConfig
	AI       AIConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Concurrency int           `json:"concurrency" validate:"min=1"`
	QueueName   string        `json:"queue_name" validate:"required"`
	PollTimeout time.Duration `json:"poll_timeout"`
}

// IngestConfig holds chunking and validation configuration
type IngestConfig struct {
	MaxFileSize       int64    `json:"max_file_size" validate:"min=1"`
	AllowedExtensions []string `json:"allowed_extensions" validate:"min=1"`
	TempDir           string   `json:"temp_dir"`

	// Chunk sizing budgets per strategy
	TextChunkWords     int `json:"text_chunk_words" validate:"min=1"`
	SectionTargetWords int `json:"section_target_words" validate:"min=1"`
	SectionMinWords    int `json:"section_min_words" validate:"min=1"`
	JSONChunkChars     int `json:"json_chunk_chars" validate:"min=1"`
	TabularChunkChars  int `json:"tabular_chunk_chars" validate:"min=1"`

	// Content-extraction (DI) service for binary formats
	DIEndpoint    string        `json:"di_endpoint"`
	DITimeout     time.Duration `json:"di_timeout"`
	DIPageLimit   int           `json:"di_page_limit" validate:"min=1"`
	DIMaxFileSize int64         `json:"di_max_file_size" validate:"min=1"`
}

// MetadataConfig holds the optional metadata extraction pass configuration
type MetadataConfig struct {
	Enabled           bool `json:"enabled"`
	SafetyEnabled     bool `json:"safety_enabled"`
	SeverityThreshold int  `json:"severity_threshold" validate:"min=0,max=7"`
	ContextChunks     int  `json:"context_chunks" validate:"min=1"`
}

// AIConfig holds the OpenAI-compatible chat and embedding endpoints
type AIConfig struct {
	ChatHost       string `json:"chat_host"`
	ChatModel      string `json:"chat_model"`
	EmbeddingHost  string `json:"embedding_host"`
	EmbeddingModel string `json:"embedding_model"`
	Token          string `json:"token"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `json:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format     string `json:"format" validate:"oneof=json console"`
	Output     string `json:"output" validate:"oneof=stdout stderr file"`
	Filename   string `json:"filename,omitempty"`
	TimeFormat string `json:"time_format"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Port      string `json:"port"`
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
	Subsystem string `json:"subsystem"`
}

// Load reads configuration from environment variables and returns Config
func Load() *Config {
	return &Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Worker: WorkerConfig{
			Concurrency: getIntEnv("WORKER_CONCURRENCY", 4),
			QueueName:   getEnv("WORKER_QUEUE_NAME", "ingest_queue"),
			PollTimeout: getDurationEnv("WORKER_POLL_TIMEOUT", 5*time.Second),
		},
		Ingest: IngestConfig{
			MaxFileSize: getInt64Env("INGEST_MAX_FILE_SIZE", 150*1024*1024), // 150MB
			AllowedExtensions: getStringSliceEnv("INGEST_ALLOWED_EXTENSIONS", []string{
				".txt", ".md", ".html", ".htm", ".json",
				".csv", ".xlsx", ".xls",
				".pdf", ".docx", ".pptx",
				".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif", ".heif",
			}),
			TempDir:            getEnv("INGEST_TEMP_DIR", os.TempDir()),
			TextChunkWords:     getIntEnv("INGEST_TEXT_CHUNK_WORDS", 400),
			SectionTargetWords: getIntEnv("INGEST_SECTION_TARGET_WORDS", 1200),
			SectionMinWords:    getIntEnv("INGEST_SECTION_MIN_WORDS", 600),
			JSONChunkChars:     getIntEnv("INGEST_JSON_CHUNK_CHARS", 600),
			TabularChunkChars:  getIntEnv("INGEST_TABULAR_CHUNK_CHARS", 800),
			DIEndpoint:         getEnv("INGEST_DI_ENDPOINT", ""),
			DITimeout:          getDurationEnv("INGEST_DI_TIMEOUT", 2*time.Minute),
			DIPageLimit:        getIntEnv("INGEST_DI_PAGE_LIMIT", 2000),
			DIMaxFileSize:      getInt64Env("INGEST_DI_MAX_FILE_SIZE", 500*1024*1024), // 500MB
		},
		Metadata: MetadataConfig{
			Enabled:           getBoolEnv("METADATA_ENABLED", false),
			SafetyEnabled:     getBoolEnv("METADATA_SAFETY_ENABLED", false),
			SeverityThreshold: getIntEnv("METADATA_SEVERITY_THRESHOLD", 4),
			ContextChunks:     getIntEnv("METADATA_CONTEXT_CHUNKS", 5),
		},
		AI: AIConfig{
			ChatHost:       getEnv("AI_CHAT_HOST", "https://api.openai.com/v1"),
			ChatModel:      getEnv("AI_CHAT_MODEL", "gpt-4o-mini"),
			EmbeddingHost:  getEnv("AI_EMBEDDING_HOST", "https://api.openai.com/v1"),
			EmbeddingModel: getEnv("AI_EMBEDDING_MODEL", "text-embedding-3-small"),
			Token:          getEnv("AI_TOKEN", "none"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			Filename:   getEnv("LOG_FILENAME", "logs/ingest.log"),
			TimeFormat: getEnv("LOG_TIME_FORMAT", time.RFC3339),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("METRICS_ENABLED", true),
			Port:      getEnv("METRICS_PORT", "9090"),
			Path:      getEnv("METRICS_PATH", "/metrics"),
			Namespace: getEnv("METRICS_NAMESPACE", "docingest"),
			Subsystem: getEnv("METRICS_SUBSYSTEM", "worker"),
		},
	}
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// GetRedisAddr returns the Redis connection address
func (c *Config) GetRedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Warning: Invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if int64Value, err := strconv.ParseInt(value, 10, 64); err == nil {
			return int64Value
		}
		log.Printf("Warning: Invalid int64 value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		log.Printf("Warning: Invalid boolean value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: Invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

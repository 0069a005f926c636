package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ContextKey is used to store correlation values in context
type ContextKey string

const (
	RunIDKey      ContextKey = "run_id"
	DocumentIDKey ContextKey = "document_id"
	OwnerKey      ContextKey = "owner"
)

// Logger wraps zerolog with ingestion-specific helpers
type Logger struct {
	*zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string `json:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format     string `json:"format" validate:"oneof=json console"`
	Output     string `json:"output" validate:"oneof=stdout stderr file"`
	Filename   string `json:"filename,omitempty"`
	TimeFormat string `json:"time_format"`
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// New creates a new structured logger
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = config.TimeFormat

	var output io.Writer
	switch config.Output {
	case "stderr":
		output = os.Stderr
	case "file":
		if config.Filename == "" {
			config.Filename = "logs/ingest.log"
		}
		file, err := os.OpenFile(config.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		output = file
	default:
		output = os.Stdout
	}

	var logger zerolog.Logger
	if config.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(output).
			With().
			Timestamp().
			Logger()
	}

	return &Logger{Logger: &logger}, nil
}

// WithRunID attaches a fresh run identifier to the context
func WithRunID(ctx context.Context) context.Context {
	return context.WithValue(ctx, RunIDKey, uuid.New().String())
}

// WithDocument attaches document identity to the context
func WithDocument(ctx context.Context, documentID, owner string) context.Context {
	ctx = context.WithValue(ctx, DocumentIDKey, documentID)
	return context.WithValue(ctx, OwnerKey, owner)
}

// FromContext creates a logger carrying the context's correlation fields
func (l *Logger) FromContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With()

	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		logger = logger.Str("run_id", runID)
	}
	if documentID, ok := ctx.Value(DocumentIDKey).(string); ok {
		logger = logger.Str("document_id", documentID)
	}
	if owner, ok := ctx.Value(OwnerKey).(string); ok {
		logger = logger.Str("owner", owner)
	}

	contextLogger := logger.Logger()
	return &contextLogger
}

// LogIngestStart logs the beginning of a document run
func (l *Logger) LogIngestStart(ctx context.Context, fileName string, fileSize int64) {
	l.FromContext(ctx).Info().
		Str("file_name", fileName).
		Int64("file_size", fileSize).
		Msg("Document ingestion started")
}

// LogIngestComplete logs a successful run
func (l *Logger) LogIngestComplete(ctx context.Context, fileName string, chunks int, duration time.Duration) {
	l.FromContext(ctx).Info().
		Str("file_name", fileName).
		Int("chunks", chunks).
		Dur("duration", duration).
		Msg("Document ingestion completed")
}

// LogIngestFailed logs a failed run
func (l *Logger) LogIngestFailed(ctx context.Context, fileName string, err error) {
	l.FromContext(ctx).Error().
		Str("file_name", fileName).
		Err(err).
		Msg("Document ingestion failed")
}

// LogSyncOutcome logs the result of a chunk metadata sync pass
func (l *Logger) LogSyncOutcome(ctx context.Context, synced, failed int) {
	event := l.FromContext(ctx).Info()
	if failed > 0 {
		event = l.FromContext(ctx).Warn()
	}
	event.
		Int("chunks_synced", synced).
		Int("chunks_failed", failed).
		Msg("Chunk metadata sync finished")
}

// Global logger instance
var globalLogger *Logger

// Init initializes the global logger
func Init(config *Config) error {
	logger, err := New(config)
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// Get returns the global logger
func Get() *Logger {
	if globalLogger == nil {
		logger, _ := New(DefaultConfig())
		globalLogger = logger
	}
	return globalLogger
}

// Info logs an info message via the package-level logger
func Info() *zerolog.Event {
	return log.Info()
}

// Error logs an error message via the package-level logger
func Error() *zerolog.Event {
	return log.Error()
}

// Warn logs a warning message via the package-level logger
func Warn() *zerolog.Event {
	return log.Warn()
}

// Debug logs a debug message via the package-level logger
func Debug() *zerolog.Event {
	return log.Debug()
}

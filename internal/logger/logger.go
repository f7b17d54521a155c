// Package logger provides structured logging for the depot ingest service
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with ingest-specific functionality
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	// Set global log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Pretty printing for development
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	// Create logger
	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "depot").
		Logger()

	// Add caller information if requested
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// GetZerolog returns the underlying zerolog logger
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string) *zerolog.Event {
	return l.zlog.Fatal().Str("msg", msg)
}

// DepositLogger returns a logger scoped to one deposit
func (l *Logger) DepositLogger(depositID string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "ingest").
			Str("deposit", depositID).
			Logger(),
	}
}

// StageLogger returns a logger for a single stage run
func (l *Logger) StageLogger(depositID, stage string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "ingest").
			Str("deposit", depositID).
			Str("stage", stage).
			Logger(),
	}
}

// LogStageRun logs a completed stage run with structured fields
func (l *Logger) LogStageRun(depositID, stage string, duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("component", "ingest").
		Str("deposit", depositID).
		Str("stage", stage).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "ingest").
			Str("deposit", depositID).
			Str("stage", stage).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("Stage completed")
}

// LogDepositOutcome logs a deposit reaching a paused or terminal state
func (l *Logger) LogDepositOutcome(depositID, status string, phase int) {
	l.zlog.Info().
		Str("component", "ingest").
		Str("deposit", depositID).
		Str("status", status).
		Int("phase", phase).
		Msg("Deposit state changed")
}

// LogServiceStart logs service startup
func (l *Logger) LogServiceStart(inboxDir string, metricsPort int) {
	l.zlog.Info().
		Str("event", "service_start").
		Str("inbox", inboxDir).
		Int("metrics_port", metricsPort).
		Msg("Depot ingest service starting")
}

// LogServiceShutdown logs service shutdown
func (l *Logger) LogServiceShutdown() {
	l.zlog.Info().
		Str("event", "service_shutdown").
		Msg("Depot ingest service shutting down")
}

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg Config) {
	globalLogger = NewLogger(cfg)
	log.Logger = *globalLogger.GetZerolog()
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		// Initialize with defaults if not set
		InitGlobalLogger(Config{
			Level:  "info",
			Pretty: true,
		})
	}
	return globalLogger
}

package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger interface defines the common logging methods.
// It is implemented by the stdout JSON logger and the OTLP logger.
type Logger interface {
	WithComponent(componentName string) *slog.Logger
	WithOperation(operationName string) *slog.Logger
	WithRequestID(requestID string) *slog.Logger
	WithSessionID(sessionID string) *slog.Logger
	WithPreset(preset string) *slog.Logger
	WithError(err error) *slog.Logger
	LogStartup(serviceName string, version string, port int)
	LogShutdown(serviceName string, reason string)
	LogAPIRequest(method string, path string, statusCode int, duration int64, requestID string, sessionID string)
	LogBusinessEvent(eventType string, details map[string]interface{})
	Logger() *slog.Logger
}

// StandardLogger provides a standardized logging interface
type StandardLogger struct {
	logger   Logger
	shutdown func(context.Context) error
}

// NewStandardLogger creates a JSON logger on stdout.
func NewStandardLogger(logLevel string) *StandardLogger {
	return NewStandardLoggerWithWriter(logLevel, os.Stdout)
}

// NewStandardLoggerWithWriter creates a JSON logger writing to w.
func NewStandardLoggerWithWriter(logLevel string, w io.Writer) *StandardLogger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: getSlogLevel(logLevel),
	}))
	return &StandardLogger{logger: &slogAdapter{logger: logger}}
}

// NewStandardOTLPLogger creates a logger exporting through OTLP, falling back
// to stdout JSON when the exporter cannot be created.
func NewStandardOTLPLogger(config OTLPConfig) *StandardLogger {
	otlpLogger, err := NewOTLPLogger(config)
	if err != nil {
		fallback := NewStandardLogger(config.LogLevel)
		fallback.Logger().Warn("OTLP logging unavailable, using stdout", "error", err.Error())
		return fallback
	}
	return &StandardLogger{
		logger:   &slogAdapter{logger: otlpLogger.Logger()},
		shutdown: otlpLogger.Shutdown,
	}
}

// WithComponent creates a logger with component context
func (l *StandardLogger) WithComponent(componentName string) *slog.Logger {
	return l.logger.WithComponent(componentName)
}

// WithOperation creates a logger with operation context
func (l *StandardLogger) WithOperation(operationName string) *slog.Logger {
	return l.logger.WithOperation(operationName)
}

// WithRequestID creates a logger with request ID context
func (l *StandardLogger) WithRequestID(requestID string) *slog.Logger {
	return l.logger.WithRequestID(requestID)
}

// WithSessionID creates a logger with lab session context
func (l *StandardLogger) WithSessionID(sessionID string) *slog.Logger {
	return l.logger.WithSessionID(sessionID)
}

// WithPreset creates a logger with preset context
func (l *StandardLogger) WithPreset(preset string) *slog.Logger {
	return l.logger.WithPreset(preset)
}

// WithError creates a logger with error context
func (l *StandardLogger) WithError(err error) *slog.Logger {
	return l.logger.WithError(err)
}

// LogStartup logs application startup information
func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.LogStartup(serviceName, version, port)
}

// LogShutdown logs application shutdown information
func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.LogShutdown(serviceName, reason)
}

// LogAPIRequest logs API requests in a standardized format
func (l *StandardLogger) LogAPIRequest(method string, path string, statusCode int, duration int64, requestID string, sessionID string) {
	l.logger.LogAPIRequest(method, path, statusCode, duration, requestID, sessionID)
}

// LogBusinessEvent logs business events in a standardized format
func (l *StandardLogger) LogBusinessEvent(eventType string, details map[string]interface{}) {
	l.logger.LogBusinessEvent(eventType, details)
}

// Logger returns the underlying *slog.Logger
func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger.Logger()
}

// Shutdown flushes the OTLP exporter, if any.
func (l *StandardLogger) Shutdown(ctx context.Context) error {
	if l.shutdown == nil {
		return nil
	}
	return l.shutdown(ctx)
}

// getSlogLevel converts string level to slog.Level
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ConfigureLogrus aligns the logrus standard logger, used for connection
// lifecycle logs, with the service log level and JSON output.
func ConfigureLogrus(level string) {
	logrus.SetLevel(ParseLogrusLevel(level))
	logrus.SetFormatter(&logrus.JSONFormatter{})
}

// slogAdapter implements Logger on top of a *slog.Logger
type slogAdapter struct {
	logger *slog.Logger
}

func (s *slogAdapter) WithComponent(componentName string) *slog.Logger {
	return s.logger.With("component", componentName)
}

func (s *slogAdapter) WithOperation(operationName string) *slog.Logger {
	return s.logger.With("operation", operationName)
}

func (s *slogAdapter) WithRequestID(requestID string) *slog.Logger {
	return s.logger.With("request_id", requestID)
}

func (s *slogAdapter) WithSessionID(sessionID string) *slog.Logger {
	return s.logger.With("session_id", sessionID)
}

func (s *slogAdapter) WithPreset(preset string) *slog.Logger {
	return s.logger.With("preset", preset)
}

func (s *slogAdapter) WithError(err error) *slog.Logger {
	if err == nil {
		return s.logger
	}
	return s.logger.With("error", err.Error())
}

func (s *slogAdapter) LogStartup(serviceName string, version string, port int) {
	s.logger.Info("Application startup",
		"service", serviceName,
		"version", version,
		"port", port,
		"event", "startup",
	)
}

func (s *slogAdapter) LogShutdown(serviceName string, reason string) {
	s.logger.Info("Application shutdown",
		"service", serviceName,
		"reason", reason,
		"event", "shutdown",
	)
}

func (s *slogAdapter) LogAPIRequest(method string, path string, statusCode int, duration int64, requestID string, sessionID string) {
	s.WithRequestID(requestID).Info("API request",
		"method", method,
		"path", path,
		"status", statusCode,
		"duration_ms", duration,
		"session_id", sessionID,
		"event", "api",
	)
}

func (s *slogAdapter) LogBusinessEvent(eventType string, details map[string]interface{}) {
	s.logger.Info("Business event",
		"event_type", eventType,
		"details", details,
		"event", "business",
	)
}

func (s *slogAdapter) Logger() *slog.Logger {
	return s.logger
}

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
)

func setupTestLogger(level string) (*StandardLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewStandardLoggerWithWriter(level, buf), buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestNewStandardLogger_Basic(t *testing.T) {
	logger := NewStandardLogger("info")
	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger())
	assert.NoError(t, logger.Shutdown(context.Background()))
}

func TestNewStandardLogger_LogLevels(t *testing.T) {
	logger, buf := setupTestLogger("warn")

	logger.Logger().Info("hidden")
	assert.Empty(t, buf.String())

	logger.Logger().Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestStandardLogger_ContextHelpers(t *testing.T) {
	logger, buf := setupTestLogger("debug")

	logger.WithComponent("lab_service").Info("component")
	assert.Equal(t, "lab_service", lastEntry(t, buf)["component"])

	logger.WithOperation("apply_preset").Info("operation")
	assert.Equal(t, "apply_preset", lastEntry(t, buf)["operation"])

	logger.WithRequestID("req-1").Info("request")
	assert.Equal(t, "req-1", lastEntry(t, buf)["request_id"])

	logger.WithSessionID("sess-1").Info("session")
	assert.Equal(t, "sess-1", lastEntry(t, buf)["session_id"])

	logger.WithPreset("lab2").Info("preset")
	assert.Equal(t, "lab2", lastEntry(t, buf)["preset"])

	logger.WithError(errors.New("boom")).Error("failure")
	assert.Equal(t, "boom", lastEntry(t, buf)["error"])
}

func TestStandardLogger_WithNilError(t *testing.T) {
	logger, buf := setupTestLogger("info")
	logger.WithError(nil).Info("fine")
	_, ok := lastEntry(t, buf)["error"]
	assert.False(t, ok)
}

func TestStandardLogger_LogStartupAndShutdown(t *testing.T) {
	logger, buf := setupTestLogger("info")

	logger.LogStartup("capm-lab", "1.0.0", 8080)
	entry := lastEntry(t, buf)
	assert.Equal(t, "startup", entry["event"])
	assert.Equal(t, float64(8080), entry["port"])

	logger.LogShutdown("capm-lab", "signal")
	entry = lastEntry(t, buf)
	assert.Equal(t, "shutdown", entry["event"])
	assert.Equal(t, "signal", entry["reason"])
}

func TestStandardLogger_LogAPIRequest(t *testing.T) {
	logger, buf := setupTestLogger("info")

	logger.LogAPIRequest("GET", "/api/v1/capm/calculate", 200, 3, "req-7", "sess-9")

	entry := lastEntry(t, buf)
	assert.Equal(t, "api", entry["event"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "sess-9", entry["session_id"])
	assert.Equal(t, "req-7", entry["request_id"])
}

func TestStandardLogger_LogBusinessEvent(t *testing.T) {
	logger, buf := setupTestLogger("info")

	logger.LogBusinessEvent("preset_applied", map[string]interface{}{"preset": "lab1"})

	entry := lastEntry(t, buf)
	assert.Equal(t, "preset_applied", entry["event_type"])
	details, ok := entry["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "lab1", details["preset"])
}

func TestGetSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getSlogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getSlogLevel("warning"))
	assert.Equal(t, slog.LevelError, getSlogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getSlogLevel("whatever"))
}

func TestParseLogrusLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogrusLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLogrusLevel("warn"))
	assert.Equal(t, logrus.ErrorLevel, ParseLogrusLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLogrusLevel(""))
}

func TestConfigureLogrus(t *testing.T) {
	previous := logrus.GetLevel()
	defer logrus.SetLevel(previous)

	ConfigureLogrus("debug")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestNewOTLPLogger_Disabled(t *testing.T) {
	logger, err := NewOTLPLogger(OTLPConfig{Enabled: false, LogLevel: "info"})
	require.NoError(t, err)
	assert.NotNil(t, logger.Logger())
	assert.Nil(t, logger.provider)
	assert.NoError(t, logger.Shutdown(context.Background()))
}

func TestNewOTLPLogger_Enabled(t *testing.T) {
	logger, err := NewOTLPLogger(OTLPConfig{
		Enabled:        true,
		Endpoint:       "http://localhost:4318",
		ServiceName:    "capm-lab-test",
		ServiceVersion: "test",
		Environment:    "test",
		LogLevel:       "debug",
	})
	require.NoError(t, err)
	assert.NotNil(t, logger.provider)

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	_ = logger.Shutdown(ctx)
}

func TestSplitEndpoint(t *testing.T) {
	host, insecure := splitEndpoint("http://collector:4318/")
	assert.Equal(t, "collector:4318", host)
	assert.True(t, insecure)

	host, insecure = splitEndpoint("https://otel.example.com")
	assert.Equal(t, "otel.example.com", host)
	assert.False(t, insecure)

	host, insecure = splitEndpoint("")
	assert.Equal(t, "localhost:4318", host)
	assert.True(t, insecure)
}

func TestConvertSlogLevelToSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityDebug, convertSlogLevelToSeverity(slog.LevelDebug))
	assert.Equal(t, otellog.SeverityInfo, convertSlogLevelToSeverity(slog.LevelInfo))
	assert.Equal(t, otellog.SeverityWarn, convertSlogLevelToSeverity(slog.LevelWarn))
	assert.Equal(t, otellog.SeverityError, convertSlogLevelToSeverity(slog.LevelError))
}

func TestOTLPHandler_EnabledAndDerive(t *testing.T) {
	h := NewOTLPHandler(nil, slog.LevelWarn)

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	withAttrs := h.WithAttrs([]slog.Attr{slog.String("preset", "lab1")}).(*OTLPHandler)
	assert.Len(t, withAttrs.attrs, 1)
	assert.Empty(t, h.attrs)

	grouped := withAttrs.WithGroup("capm").WithGroup("inputs").(*OTLPHandler)
	assert.Equal(t, "capm.inputs", grouped.group)
	kv := grouped.convert(slog.Float64("beta", 1.5))
	assert.Equal(t, "capm.inputs.beta", kv.Key)
}

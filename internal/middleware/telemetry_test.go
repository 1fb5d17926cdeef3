package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/capm-lab-go/internal/logging"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("propagates caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "caller-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "caller-42", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "caller-42", w.Body.String())
	})
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := &bytes.Buffer{}
	logger := logging.NewStandardLoggerWithWriter("info", buf)

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/api/v1/sessions/:id", func(c *gin.Context) {
		c.Set(SessionIDKey, c.Param("id"))
		c.Status(http.StatusNoContent)
	})
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "/api/v1/sessions/:id", entry["path"])
	assert.Equal(t, float64(http.StatusNoContent), entry["status"])
	assert.Equal(t, "abc", entry["session_id"])
	assert.Equal(t, "req-42", entry["request_id"])
}

func TestRequestLogger_FailedRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := &bytes.Buffer{}
	logger := logging.NewStandardLoggerWithWriter("info", buf)

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/api/v1/presets", func(c *gin.Context) {
		_ = c.Error(errors.New("connection refused"))
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/presets", nil)
	req.Header.Set(RequestIDHeader, "req-500")
	router.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var failure map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &failure))
	assert.Equal(t, "ERROR", failure["level"])
	assert.Equal(t, "Request failed", failure["msg"])
	assert.Equal(t, "req-500", failure["request_id"])
	assert.Equal(t, "connection refused", failure["error"])

	var access map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &access))
	assert.Equal(t, "req-500", access["request_id"])
}

func TestSpanHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	router := gin.New()
	router.Use(func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "request", trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	router.GET("/fail", func(c *gin.Context) {
		AddSpanAttribute(c, "capm.beta", 1.5)
		AddSpanAttribute(c, "capm.points", 50)
		AddSpanAttribute(c, "capm.preset", "lab1")
		AddSpanAttribute(c, "capm.clamped", true)
		AddSpanAttribute(c, "capm.other", []string{"x"})
		RecordError(c, errors.New("zero risk premium"), "required beta undefined")
		c.Status(http.StatusUnprocessableEntity)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Attributes(), 5)
	assert.Len(t, spans[0].Events(), 1)
}

func TestSpanHelpers_NoSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/plain", func(c *gin.Context) {
		AddSpanAttribute(c, "k", "v")
		RecordError(c, errors.New("ignored"), "ignored")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

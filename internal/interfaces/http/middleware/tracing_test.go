package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(t.Context())
	})
	return sr
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing(t *testing.T) {
	t.Run("disabled records nothing", func(t *testing.T) {
		sr := setupTestTracer(t)
		router := gin.New()
		router.Use(Tracing("liquidaciones", false), SpanEnricher())
		router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Empty(t, sr.Ended())
	})

	t.Run("tags span with request and user ids", func(t *testing.T) {
		sr := setupTestTracer(t)
		router := gin.New()
		router.Use(RequestID(), UserID(), Tracing("liquidaciones", true), SpanEnricher())
		router.GET("/facturas/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

		uid := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/facturas/1", nil)
		req.Header.Set(HeaderRequestID, "req-1")
		req.Header.Set(HeaderUserID, uid.String())
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		v, ok := spanAttr(spans[0], "request_id")
		require.True(t, ok)
		assert.Equal(t, "req-1", v.AsString())
		v, ok = spanAttr(spans[0], "user_id")
		require.True(t, ok)
		assert.Equal(t, uid.String(), v.AsString())
	})

	t.Run("error answers mark the span", func(t *testing.T) {
		sr := setupTestTracer(t)
		router := gin.New()
		router.Use(Tracing("liquidaciones", true), SpanEnricher())
		router.GET("/x", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
	})
}

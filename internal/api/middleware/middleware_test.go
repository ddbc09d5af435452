package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func webhookRouter(rps int) http.Handler {
	r := chi.NewRouter()
	r.Use(WebhookRateLimiter(rps))
	r.Post("/v1/webhooks/asaas/{unidadeID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func post(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = "203.0.113.7:443"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestWebhookRateLimiterIsPerUnit(t *testing.T) {
	h := webhookRouter(1)

	require.Equal(t, http.StatusOK, post(h, "/v1/webhooks/asaas/unit-a").Code)

	limited := post(h, "/v1/webhooks/asaas/unit-a")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, post(h, "/v1/webhooks/asaas/unit-b").Code, "other units keep their own budget")
}

func TestTraceAndLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := chi.NewRouter()
	r.Use(TraceMiddleware(zap.New(core)))
	r.Use(LoggingMiddleware)
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/v1/webhooks/asaas/{unidadeID}", func(w http.ResponseWriter, req *http.Request) {
		assert.NotEmpty(t, TraceIDFromContext(req.Context()))
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/asaas/unit-a", nil)
	req.Header.Set(TraceHeader, "trace-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "trace-1", w.Header().Get(TraceHeader))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	entries := logs.All()
	require.Len(t, entries, 2)

	webhook := entries[0]
	assert.Equal(t, zapcore.ErrorLevel, webhook.Level)
	fields := webhook.ContextMap()
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, "unit-a", fields["unidade_id"])
	assert.Equal(t, "/v1/webhooks/asaas/{unidadeID}", fields["route"])
	assert.EqualValues(t, http.StatusServiceUnavailable, fields["status"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestRecoverMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RecoverMiddleware)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ayo6706/salon-ledger/internal/idempotency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryDeliveries struct {
	mu       sync.Mutex
	records  map[string]*idempotency.Record
	reserved map[string]string
	released int
}

func newMemoryDeliveries() *memoryDeliveries {
	return &memoryDeliveries{records: map[string]*idempotency.Record{}, reserved: map[string]string{}}
}

func (m *memoryDeliveries) Lookup(_ context.Context, key, hash string) (*idempotency.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok {
		if rec.RequestHash != hash {
			return nil, idempotency.ErrHashMismatch
		}
		return rec, nil
	}
	if _, ok := m.reserved[key]; ok {
		return nil, idempotency.ErrInProgress
	}
	return nil, idempotency.ErrNotFound
}

func (m *memoryDeliveries) Reserve(_ context.Context, key, hash, _, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reserved[key]; ok {
		return false, nil
	}
	m.reserved[key] = hash
	return true, nil
}

func (m *memoryDeliveries) Finalize(_ context.Context, key, hash string, status int, body []byte, contentType string) (*idempotency.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := &idempotency.Record{Key: key, RequestHash: hash, Status: status, Body: append([]byte(nil), body...), ContentType: contentType, ServedBy: "memory"}
	m.records[key] = rec
	delete(m.reserved, key)
	return rec, nil
}

func (m *memoryDeliveries) Release(_ context.Context, key, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, key)
	m.released++
	return nil
}

func (m *memoryDeliveries) WaitForCompletion(ctx context.Context, key, hash string) (*idempotency.Record, error) {
	return nil, idempotency.ErrInProgress
}

func countingHandler(status int, calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"processed"}`))
	})
}

func deliver(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/asaas/unit", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestWebhookDeliveryReplaysByWebhookID(t *testing.T) {
	store := newMemoryDeliveries()
	calls := 0
	h := WebhookDeliveryMiddleware(store, zap.NewNop())(countingHandler(http.StatusOK, &calls))

	body := `{"webhookId":"wh_1","event":"PAYMENT_CONFIRMED"}`
	first := deliver(h, body)
	require.Equal(t, http.StatusOK, first.Code)

	second := deliver(h, body)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "memory", second.Header().Get("X-Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)
}

func TestWebhookDeliveryConflictingPayload(t *testing.T) {
	store := newMemoryDeliveries()
	calls := 0
	h := WebhookDeliveryMiddleware(store, zap.NewNop())(countingHandler(http.StatusOK, &calls))

	deliver(h, `{"webhookId":"wh_1","event":"PAYMENT_CONFIRMED"}`)
	w := deliver(h, `{"webhookId":"wh_1","event":"PAYMENT_RECEIVED"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, calls)
}

func TestWebhookDeliveryReleasesRetryableResponses(t *testing.T) {
	store := newMemoryDeliveries()
	calls := 0
	h := WebhookDeliveryMiddleware(store, zap.NewNop())(countingHandler(http.StatusServiceUnavailable, &calls))

	body := `{"webhookId":"wh_2"}`
	assert.Equal(t, http.StatusServiceUnavailable, deliver(h, body).Code)
	assert.Equal(t, http.StatusServiceUnavailable, deliver(h, body).Code)
	assert.Equal(t, 2, calls, "a released delivery is processed again")
	assert.Equal(t, 2, store.released)
}

func TestWebhookDeliveryWithoutKeyPassesThrough(t *testing.T) {
	store := newMemoryDeliveries()
	calls := 0
	h := WebhookDeliveryMiddleware(store, zap.NewNop())(countingHandler(http.StatusOK, &calls))

	deliver(h, `{"event":"PAYMENT_CONFIRMED"}`)
	deliver(h, `{"event":"PAYMENT_CONFIRMED"}`)
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.records)
}

func TestWebhookDeliveryNilStore(t *testing.T) {
	calls := 0
	h := WebhookDeliveryMiddleware(nil, zap.NewNop())(countingHandler(http.StatusOK, &calls))
	deliver(h, `{"webhookId":"wh_3"}`)
	deliver(h, `{"webhookId":"wh_3"}`)
	assert.Equal(t, 2, calls)
}

package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayo6706/salon-ledger/internal/api/problem"
	"github.com/ayo6706/salon-ledger/internal/idempotency"
	"github.com/ayo6706/salon-ledger/internal/observability"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// DeliveryStore records webhook responses by delivery id.
type DeliveryStore interface {
	Lookup(ctx context.Context, key, requestHash string) (*idempotency.Record, error)
	Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error)
	Finalize(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*idempotency.Record, error)
	Release(ctx context.Context, key, requestHash string) error
	WaitForCompletion(ctx context.Context, key, requestHash string) (*idempotency.Record, error)
}

// WebhookDeliveryMiddleware replays the stored response when the provider
// redelivers a webhook with a webhookId it already sent. Deliveries without
// a webhookId pass through. Responses that invite a retry (409, 5xx) are not
// stored so the next delivery is processed again.
func WebhookDeliveryMiddleware(store DeliveryStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			if err != nil {
				problem.Write(w, r, http.StatusBadRequest, problem.Type("request/invalid-body"), http.StatusText(http.StatusBadRequest), "Failed to read request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			key := deliveryKey(r, bodyBytes)
			if key == "" {
				observability.IncrementIdempotencyEvent("missing_key")
				next.ServeHTTP(w, r)
				return
			}

			reqHash := hashRequest(r.Method, r.URL.Path, bodyBytes)
			rec, err := store.Lookup(r.Context(), key, reqHash)
			if err == nil {
				observability.IncrementIdempotencyEvent("replay")
				respondFromRecord(w, rec)
				return
			}
			if errors.Is(err, idempotency.ErrHashMismatch) {
				observability.IncrementIdempotencyEvent("hash_mismatch")
				problem.Write(w, r, http.StatusConflict, problem.Type("idempotency/key-conflict"), http.StatusText(http.StatusConflict), "webhookId reused with a different payload")
				return
			}
			if errors.Is(err, idempotency.ErrInProgress) {
				replayOrConflict(w, r, store, logger, key, reqHash, "replay_after_wait")
				return
			}
			if !errors.Is(err, idempotency.ErrNotFound) {
				observability.IncrementIdempotencyEvent("lookup_error")
				logger.Warn("delivery lookup failed", zap.Error(err))
			}

			reserved, err := store.Reserve(r.Context(), key, reqHash, r.Method, r.URL.Path)
			if err != nil {
				// The unique payment_id index still guards the ledger.
				observability.IncrementIdempotencyEvent("reserve_error")
				logger.Warn("delivery reserve failed, processing without replay", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				replayOrConflict(w, r, store, logger, key, reqHash, "replay_after_reserve")
				return
			}
			observability.IncrementIdempotencyEvent("reserved")

			recorder := &bodyRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)

			if recorder.status == 0 {
				recorder.status = http.StatusOK
			}
			if recorder.status == http.StatusConflict || recorder.status >= http.StatusInternalServerError {
				if err := store.Release(r.Context(), key, reqHash); err != nil {
					logger.Warn("delivery release failed", zap.Error(err), zap.String("webhook_id", key))
				}
				observability.IncrementIdempotencyEvent("released")
				return
			}

			contentType := recorder.Header().Get("Content-Type")
			if contentType == "" {
				contentType = "application/json"
			}
			if _, err := store.Finalize(r.Context(), key, reqHash, recorder.status, recorder.body.Bytes(), contentType); err != nil {
				observability.IncrementIdempotencyEvent("finalize_error")
				logger.Warn("delivery finalize failed", zap.Error(err), zap.String("webhook_id", key))
			} else {
				observability.IncrementIdempotencyEvent("finalized")
			}
		})
	}
}

func replayOrConflict(w http.ResponseWriter, r *http.Request, store DeliveryStore, logger *zap.Logger, key, reqHash, event string) {
	rec, err := store.WaitForCompletion(r.Context(), key, reqHash)
	if err == nil {
		observability.IncrementIdempotencyEvent(event)
		respondFromRecord(w, rec)
		return
	}
	observability.IncrementIdempotencyEvent("in_progress_conflict")
	logger.Warn("delivery wait failed", zap.Error(err), zap.String("webhook_id", key))
	problem.Write(w, r, http.StatusConflict, problem.Type("idempotency/in-progress"), http.StatusText(http.StatusConflict), "delivery is being processed")
}

// deliveryKey prefers the payload's webhookId; an Idempotency-Key header is accepted too.
func deliveryKey(r *http.Request, body []byte) string {
	var envelope struct {
		WebhookID string `json:"webhookId"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if id := strings.TrimSpace(envelope.WebhookID); id != "" {
			return id
		}
	}
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}

func hashRequest(method, path string, body []byte) string {
	sum := sha256.Sum256(append([]byte(method+"|"+path+"|"), body...))
	return hex.EncodeToString(sum[:])
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (br *bodyRecorder) WriteHeader(code int) {
	br.status = code
	br.ResponseWriter.WriteHeader(code)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	if br.status == 0 {
		br.status = http.StatusOK
	}
	br.body.Write(b)
	return br.ResponseWriter.Write(b)
}

func respondFromRecord(w http.ResponseWriter, rec *idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("X-Idempotent-Replay", rec.ServedBy)
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/ayo6706/salon-ledger/internal/api/middleware"
	"github.com/ayo6706/salon-ledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AsaasTokenHeader carries the shared secret configured on the Asaas webhook.
const AsaasTokenHeader = "asaas-access-token"

// WebhookHandler handles incoming payment notifications.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler instance.
func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookSvc: webhookSvc,
	}
}

// HandleAsaasWebhook handles POST /v1/webhooks/asaas/{unidadeID}.
// Processed, duplicate and ignored deliveries are acknowledged with 200 so the
// provider stops retrying; transient failures answer 503 so it retries.
func (h *WebhookHandler) HandleAsaasWebhook(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "unidadeID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-unidade-id", "Invalid unidade_id")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		middleware.LoggerFromContext(r.Context()).Error("read webhook body failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	outcome, err := h.webhookSvc.HandleAsaasWebhook(r.Context(), tenantID, body, r.Header.Get(AsaasTokenHeader))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-token", "Invalid webhook token")
		case errors.Is(err, service.ErrInvalidPayload):
			RespondErrorKind(w, r, http.StatusBadRequest, "webhook/invalid-payload", err.Error(), service.KindInvalidPayment)
		case errors.Is(err, service.ErrPaymentLocked):
			RespondError(w, r, http.StatusConflict, "webhook/payment-locked", "Payment is being processed by another delivery")
		default:
			middleware.LoggerFromContext(r.Context()).Error("process asaas webhook failed", zap.Error(err))
			RespondError(w, r, http.StatusInternalServerError, "webhook/failed", "Failed to process webhook")
		}
		return
	}

	RespondJSON(w, outcomeStatus(outcome), outcome)
}

func outcomeStatus(outcome *service.WebhookOutcome) int {
	if outcome.Status != service.WebhookStatusFailed {
		return http.StatusOK
	}
	switch outcome.Result.Kind {
	case service.KindAccountNotFound, service.KindInvalidPayment:
		return http.StatusUnprocessableEntity
	case service.KindStoreUnavailable, service.KindLedgerWriteFailed, service.KindRevenueWriteFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

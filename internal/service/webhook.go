package service

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken   = errors.New("invalid webhook token")
	ErrInvalidPayload = errors.New("invalid webhook payload")
	ErrPaymentLocked  = errors.New("payment is being processed by another delivery")
)

// PaymentLocker serializes deliveries of the same payment across instances.
// Acquire returns ErrPaymentLocked when another delivery holds the lock.
type PaymentLocker interface {
	Acquire(ctx context.Context, paymentID string) (release func(), err error)
}

// WebhookService handles Asaas payment notifications.
type WebhookService struct {
	revenue   *RevenueService
	clients   ClientStore
	locker    PaymentLocker
	token     []byte
	skipToken bool
}

// NewWebhookService creates a new WebhookService. locker may be nil when
// Redis is not configured; the unique payment_id index still applies.
func NewWebhookService(revenue *RevenueService, clients ClientStore, locker PaymentLocker, token string, skipToken bool) *WebhookService {
	return &WebhookService{
		revenue:   revenue,
		clients:   clients,
		locker:    locker,
		token:     []byte(token),
		skipToken: skipToken,
	}
}

// AsaasWebhookPayload is the provider's notification body.
type AsaasWebhookPayload struct {
	Event     string       `json:"event"`
	Payment   AsaasPayment `json:"payment"`
	Timestamp string       `json:"timestamp"`
	WebhookID string       `json:"webhookId"`
}

// AsaasPayment carries the value in minor units.
type AsaasPayment struct {
	ID          string `json:"id"`
	Customer    string `json:"customer"`
	Value       int64  `json:"value"`
	Description string `json:"description"`
	Date        string `json:"date"`
	BillingType string `json:"billingType"`
}

const (
	WebhookStatusProcessed = "processed"
	WebhookStatusDuplicate = "duplicate"
	WebhookStatusIgnored   = "ignored"
	WebhookStatusFailed    = "failed"
)

// WebhookOutcome is the acknowledgement for one delivery. The pipeline Result
// is inlined so the body reads {success, data | error, status, event}.
type WebhookOutcome struct {
	Result
	Status string `json:"status"`
	Event  string `json:"event"`
}

// VerifyToken compares the asaas-access-token header in constant time.
func (s *WebhookService) VerifyToken(token string) bool {
	if s.skipToken {
		return true
	}
	if len(s.token) == 0 {
		return false
	}
	return hmac.Equal([]byte(token), s.token)
}

// HandleAsaasWebhook verifies and decodes a delivery, then runs the revenue
// pipeline for payment confirmation events. Pipeline failures are reported in
// the outcome; the error return is reserved for token, payload and lock problems.
func (s *WebhookService) HandleAsaasWebhook(ctx context.Context, tenantID uuid.UUID, body []byte, token string) (*WebhookOutcome, error) {
	if !s.VerifyToken(token) {
		return nil, ErrInvalidToken
	}

	var payload AsaasWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	payload.Event = strings.ToUpper(strings.TrimSpace(payload.Event))

	if payload.Event != domain.EventPaymentConfirmed && payload.Event != domain.EventPaymentReceived {
		zap.L().Info("asaas event ignored", zap.String("event", payload.Event), zap.String("webhook_id", payload.WebhookID))
		return &WebhookOutcome{Status: WebhookStatusIgnored, Event: payload.Event, Result: Result{Success: true}}, nil
	}

	payment, err := payload.toPayment()
	if err != nil {
		return nil, err
	}
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: unidade_id is required", ErrInvalidPayload)
	}

	s.checkCustomer(ctx, tenantID, payment)

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, payment.ID)
		switch {
		case errors.Is(err, ErrPaymentLocked):
			return nil, err
		case err != nil:
			zap.L().Warn("payment lock unavailable, relying on unique payment_id", zap.String("payment_id", payment.ID), zap.Error(err))
		default:
			defer release()
		}
	}

	result := s.revenue.ProcessPaymentResult(ctx, tenantID, payment)
	outcome := &WebhookOutcome{Event: payload.Event, Result: result}
	switch {
	case result.Success:
		outcome.Status = WebhookStatusProcessed
	case result.Kind == KindDuplicateRevenue:
		outcome.Status = WebhookStatusDuplicate
	default:
		outcome.Status = WebhookStatusFailed
	}
	return outcome, nil
}

func (p AsaasWebhookPayload) toPayment() (Payment, error) {
	id := strings.TrimSpace(p.Payment.ID)
	if id == "" {
		return Payment{}, fmt.Errorf("%w: payment.id is required", ErrInvalidPayload)
	}
	if p.Payment.Value <= 0 {
		return Payment{}, fmt.Errorf("%w: invalid payment.value %d", ErrInvalidPayload, p.Payment.Value)
	}
	date, err := time.Parse(domain.PaymentDateLayout, strings.TrimSpace(p.Payment.Date))
	if err != nil {
		return Payment{}, fmt.Errorf("%w: payment.date must be YYYY-MM-DD", ErrInvalidPayload)
	}
	return Payment{
		ID:          id,
		CustomerID:  strings.TrimSpace(p.Payment.Customer),
		ValueMinor:  p.Payment.Value,
		Description: strings.TrimSpace(p.Payment.Description),
		Date:        date,
		BillingType: strings.TrimSpace(p.Payment.BillingType),
	}, nil
}

// checkCustomer logs payments whose customer is unknown or belongs to another
// unit. The payment is still recorded; the validator reports the reference.
func (s *WebhookService) checkCustomer(ctx context.Context, tenantID uuid.UUID, p Payment) {
	if s.clients == nil || p.CustomerID == "" {
		return
	}
	client, err := s.clients.GetClientByCustomerID(ctx, p.CustomerID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		zap.L().Warn("payment from unknown customer", zap.String("payment_id", p.ID), zap.String("customer_id", p.CustomerID))
	case err != nil:
		zap.L().Warn("customer lookup failed", zap.String("payment_id", p.ID), zap.Error(err))
	case client.TenantID != tenantID:
		zap.L().Warn("customer belongs to another unit",
			zap.String("payment_id", p.ID),
			zap.String("customer_id", p.CustomerID),
			zap.String("client_unidade_id", client.TenantID.String()),
			zap.String("unidade_id", tenantID.String()))
	}
}

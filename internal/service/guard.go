package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ayo6706/salon-ledger/internal/repository"
)

// DuplicateGuard reports whether a payment already produced a revenue record.
// It is a best-effort read; the unique index on receitas_automaticas.payment_id
// closes the race between concurrent deliveries.
type DuplicateGuard struct {
	store   LedgerStore
	timeout time.Duration
}

func NewDuplicateGuard(store LedgerStore, timeout time.Duration) *DuplicateGuard {
	return &DuplicateGuard{store: store, timeout: timeout}
}

// Processed returns true when a revenue already references paymentID.
func (g *DuplicateGuard) Processed(ctx context.Context, paymentID string) (bool, error) {
	if strings.TrimSpace(paymentID) == "" {
		return false, newPipelineError(KindInvalidPayment, "payment id is required", nil)
	}

	stepCtx, cancel := withStepTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.store.GetRevenueByPaymentID(stepCtx, paymentID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, newPipelineError(KindStoreUnavailable, MsgStoreUnavailable, err)
	}
}

// Check fails with ErrDuplicateRevenue when the payment was already processed.
func (g *DuplicateGuard) Check(ctx context.Context, paymentID string) error {
	processed, err := g.Processed(ctx, paymentID)
	if err != nil {
		return err
	}
	if processed {
		return newPipelineError(KindDuplicateRevenue, MsgDuplicateRevenue, nil)
	}
	return nil
}

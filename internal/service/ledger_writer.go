package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/ayo6706/salon-ledger/internal/repository"
	"github.com/google/uuid"
)

// LedgerWriter books the cash inflow: debit cash, credit revenue.
type LedgerWriter struct {
	store   LedgerStore
	timeout time.Duration
}

func NewLedgerWriter(store LedgerStore, timeout time.Duration) *LedgerWriter {
	return &LedgerWriter{store: store, timeout: timeout}
}

func (w *LedgerWriter) Write(ctx context.Context, tenantID uuid.UUID, accounts ResolvedAccounts, p Payment) (*models.LedgerEntry, error) {
	amount := p.Amount()
	if !amount.IsPositive() {
		return nil, newPipelineError(KindInvalidPayment, fmt.Sprintf("invalid payment value: %d", p.ValueMinor), nil)
	}
	if accounts.Cash.ID == accounts.Revenue.ID {
		return nil, newPipelineError(KindAccountNotFound, MsgAccountNotFound, errors.New("debit and credit accounts must differ"))
	}

	entry := &models.LedgerEntry{
		ID:              uuid.New(),
		TenantID:        tenantID,
		DebitAccountID:  accounts.Cash.ID,
		CreditAccountID: accounts.Revenue.ID,
		Amount:          amount,
		CompetenceDate:  p.Date,
		Description:     p.ledgerDescription(),
	}

	stepCtx, cancel := withStepTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.store.CreateLedgerEntry(stepCtx, entry); err != nil {
		return nil, newPipelineError(KindLedgerWriteFailed, MsgLedgerWriteFailed, err)
	}
	return entry, nil
}

// RevenueRecorder links the payment to its ledger entry.
type RevenueRecorder struct {
	store   LedgerStore
	timeout time.Duration
}

func NewRevenueRecorder(store LedgerStore, timeout time.Duration) *RevenueRecorder {
	return &RevenueRecorder{store: store, timeout: timeout}
}

// Record inserts the automatic revenue row. A unique violation on payment_id
// means a concurrent delivery won the race and is reported as a duplicate.
func (r *RevenueRecorder) Record(ctx context.Context, tenantID uuid.UUID, entry *models.LedgerEntry, p Payment) (*models.AutomaticRevenue, error) {
	rev := &models.AutomaticRevenue{
		ID:            uuid.New(),
		TenantID:      tenantID,
		PaymentID:     p.ID,
		CustomerID:    p.CustomerID,
		Value:         p.Amount(),
		Description:   p.ledgerDescription(),
		LedgerEntryID: entry.ID,
	}

	stepCtx, cancel := withStepTimeout(ctx, r.timeout)
	defer cancel()
	err := r.store.CreateAutomaticRevenue(stepCtx, rev)
	if errors.Is(err, repository.ErrUniqueViolation) {
		return nil, newPipelineError(KindDuplicateRevenue, MsgDuplicateRevenue, err)
	}
	if err != nil {
		return nil, newPipelineError(KindRevenueWriteFailed, MsgRevenueWriteFailed, err)
	}
	return rev, nil
}

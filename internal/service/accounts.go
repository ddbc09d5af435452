package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/ayo6706/salon-ledger/internal/repository"
)

// ResolvedAccounts holds both legs of a revenue entry.
type ResolvedAccounts struct {
	Revenue models.Account
	Cash    models.Account
}

// AccountResolver looks up the service revenue and cash accounts by code.
type AccountResolver struct {
	store       LedgerStore
	revenueCode string
	cashCode    string
	timeout     time.Duration
}

func NewAccountResolver(store LedgerStore, revenueCode, cashCode string, timeout time.Duration) *AccountResolver {
	if revenueCode == "" {
		revenueCode = domain.DefaultRevenueAccountCode
	}
	if cashCode == "" {
		cashCode = domain.DefaultCashAccountCode
	}
	return &AccountResolver{store: store, revenueCode: revenueCode, cashCode: cashCode, timeout: timeout}
}

func (r *AccountResolver) Resolve(ctx context.Context) (ResolvedAccounts, error) {
	revenue, err := r.lookup(ctx, r.revenueCode)
	if err != nil {
		return ResolvedAccounts{}, err
	}
	cash, err := r.lookup(ctx, r.cashCode)
	if err != nil {
		return ResolvedAccounts{}, err
	}
	if revenue.ID == cash.ID {
		return ResolvedAccounts{}, newPipelineError(KindAccountNotFound, MsgAccountNotFound,
			fmt.Errorf("revenue and cash codes resolve to the same account %s", revenue.ID))
	}
	return ResolvedAccounts{Revenue: *revenue, Cash: *cash}, nil
}

func (r *AccountResolver) lookup(ctx context.Context, code string) (*models.Account, error) {
	stepCtx, cancel := withStepTimeout(ctx, r.timeout)
	defer cancel()

	account, err := r.store.GetActiveAccountByCode(stepCtx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newPipelineError(KindAccountNotFound, MsgAccountNotFound, fmt.Errorf("account code %s", code))
	}
	if err != nil {
		return nil, newPipelineError(KindStoreUnavailable, MsgStoreUnavailable, err)
	}
	return account, nil
}

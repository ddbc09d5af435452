package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMemoryStoreRevenueUniqueness(t *testing.T) {
	m := NewMemoryStore()
	m.SeedChartOfAccounts()
	ctx := context.Background()

	rev := &models.AutomaticRevenue{TenantID: uuid.New(), PaymentID: "pay_1", Value: decimal.NewFromInt(10), LedgerEntryID: uuid.New()}
	require.NoError(t, m.CreateAutomaticRevenue(ctx, rev))
	assert.NotEqual(t, uuid.Nil, rev.ID)

	again := &models.AutomaticRevenue{PaymentID: "pay_1"}
	assert.ErrorIs(t, m.CreateAutomaticRevenue(ctx, again), ErrUniqueViolation)

	_, err := m.GetRevenueByPaymentID(ctx, "pay_2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteLedgerEntry(t *testing.T) {
	m := NewMemoryStore()
	m.SeedChartOfAccounts()
	ctx := context.Background()
	tenant := uuid.New()

	cash, err := m.GetActiveAccountByCode(ctx, domain.DefaultCashAccountCode)
	require.NoError(t, err)
	rev, err := m.GetActiveAccountByCode(ctx, domain.DefaultRevenueAccountCode)
	require.NoError(t, err)

	entry := &models.LedgerEntry{TenantID: tenant, DebitAccountID: cash.ID, CreditAccountID: rev.ID, Amount: decimal.NewFromInt(10), CompetenceDate: day(2024, 1, 15)}
	require.NoError(t, m.CreateLedgerEntry(ctx, entry))
	assert.Equal(t, 1, m.EntryCount())

	require.NoError(t, m.CreateAutomaticRevenue(ctx, &models.AutomaticRevenue{TenantID: tenant, PaymentID: "pay_1", LedgerEntryID: entry.ID}))
	assert.ErrorIs(t, m.DeleteLedgerEntry(ctx, entry.ID), ErrEntryReferenced)

	other := &models.LedgerEntry{TenantID: tenant, DebitAccountID: cash.ID, CreditAccountID: rev.ID, Amount: decimal.NewFromInt(5), CompetenceDate: day(2024, 1, 15)}
	require.NoError(t, m.CreateLedgerEntry(ctx, other))
	require.NoError(t, m.DeleteLedgerEntry(ctx, other.ID))
	require.NoError(t, m.DeleteLedgerEntry(ctx, other.ID))
	assert.Equal(t, 1, m.EntryCount())
}

func TestMemoryStoreInactiveAccount(t *testing.T) {
	m := NewMemoryStore()
	m.PutAccount(models.Account{Code: "9.9.9.9", Type: domain.AccountTypeExpense, Active: false})

	_, err := m.GetActiveAccountByCode(context.Background(), "9.9.9.9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreBalancesAndLines(t *testing.T) {
	m := NewMemoryStore()
	m.SeedChartOfAccounts()
	ctx := context.Background()
	tenant := uuid.New()

	cash, _ := m.GetActiveAccountByCode(ctx, domain.DefaultCashAccountCode)
	rev, _ := m.GetActiveAccountByCode(ctx, domain.DefaultRevenueAccountCode)
	for _, amount := range []string{"500", "300"} {
		require.NoError(t, m.CreateLedgerEntry(ctx, &models.LedgerEntry{
			TenantID: tenant, DebitAccountID: cash.ID, CreditAccountID: rev.ID,
			Amount: decimal.RequireFromString(amount), CompetenceDate: day(2024, 1, 15),
		}))
	}
	// Outside the period and another unit.
	require.NoError(t, m.CreateLedgerEntry(ctx, &models.LedgerEntry{TenantID: tenant, DebitAccountID: cash.ID, CreditAccountID: rev.ID, Amount: decimal.NewFromInt(1), CompetenceDate: day(2024, 2, 1)}))
	require.NoError(t, m.CreateLedgerEntry(ctx, &models.LedgerEntry{TenantID: uuid.New(), DebitAccountID: cash.ID, CreditAccountID: rev.ID, Amount: decimal.NewFromInt(1), CompetenceDate: day(2024, 1, 15)}))

	rows, err := m.GetAccountBalances(ctx, tenant, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	balances := map[string]string{}
	for _, r := range rows {
		balances[r.Code] = *r.FinalBalance
	}
	assert.Equal(t, "800.00", balances[domain.DefaultRevenueAccountCode])
	assert.Equal(t, "800.00", balances[domain.DefaultCashAccountCode])
	assert.Equal(t, "0.00", balances["6.1.1.1"])

	lines, err := m.ListLedgerLines(ctx, tenant, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	assert.Len(t, lines, 4)

	tenants, err := m.ListTenantsWithActivity(ctx, day(2024, 1, 15), day(2024, 1, 15))
	require.NoError(t, err)
	assert.Len(t, tenants, 2)
}

func TestMemoryStoreDanglingReferences(t *testing.T) {
	m := NewMemoryStore()
	m.SeedChartOfAccounts()
	ctx := context.Background()
	tenant := uuid.New()

	cash, _ := m.GetActiveAccountByCode(ctx, domain.DefaultCashAccountCode)
	entry := &models.LedgerEntry{TenantID: tenant, DebitAccountID: cash.ID, CreditAccountID: uuid.New(), Amount: decimal.NewFromInt(1), CompetenceDate: day(2024, 1, 15)}
	require.NoError(t, m.CreateLedgerEntry(ctx, entry))
	require.NoError(t, m.CreateAutomaticRevenue(ctx, &models.AutomaticRevenue{TenantID: tenant, PaymentID: "pay_1", CustomerID: "cus_unknown", LedgerEntryID: entry.ID}))

	refs, err := m.ListDanglingReferences(ctx, tenant, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)

	kinds := map[string]bool{}
	for _, r := range refs {
		kinds[r.Kind] = true
	}
	assert.True(t, kinds[models.RefCreditAccount])
	assert.True(t, kinds[models.RefRevenueClient])
	assert.False(t, kinds[models.RefDebitAccount])
	assert.False(t, kinds[models.RefRevenueEntry])
}

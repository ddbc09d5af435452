package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayo6706/salon-ledger/internal/cache"
	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubReportStore serves fixed balance rows.
type stubReportStore struct {
	rows       []models.AccountBalanceRow
	err        error
	entriesErr map[uuid.UUID]error
	calls      atomic.Int32
}

func (s *stubReportStore) GetAccountBalances(context.Context, uuid.UUID, time.Time, time.Time) ([]models.AccountBalanceRow, error) {
	s.calls.Add(1)
	return s.rows, s.err
}

func (s *stubReportStore) ListAccountEntries(_ context.Context, _ uuid.UUID, accountID uuid.UUID, _, _ time.Time) ([]models.LedgerEntry, error) {
	if err := s.entriesErr[accountID]; err != nil {
		return nil, err
	}
	return []models.LedgerEntry{{ID: uuid.New(), CreditAccountID: accountID, Amount: decimal.NewFromInt(10)}}, nil
}

func strPtr(s string) *string { return &s }

func january(t *testing.T) Period {
	return Period{From: mustDate(t, "2024-01-01"), To: mustDate(t, "2024-01-31")}
}

func TestDREAfterRecordedPayment(t *testing.T) {
	store := newTestStore(t)
	revenue := newTestRevenueService(store, nil)
	ctx := context.Background()

	_, err := revenue.ProcessPayment(ctx, testTenant, testPayment(t, "pay_001", 50000, "2024-01-15"))
	require.NoError(t, err)

	reports := NewReportService(store, NewAuditService(store), nil, ReportConfig{StepTimeout: time.Second})
	resp := reports.GetDREData(ctx, DREQuery{Period: january(t), TenantID: testTenant, Actor: "user-1"})
	require.True(t, resp.Success, resp.Error)

	data := resp.Data
	assert.True(t, data.Receitas.Gross.Equal(decimal.NewFromInt(500)), data.Receitas.Gross.String())
	assert.True(t, data.Receitas.Net.Equal(decimal.NewFromInt(500)))
	assert.True(t, data.Resultado.NetProfit.Equal(decimal.NewFromInt(375)), data.Resultado.NetProfit.String())
	assert.True(t, data.Resultado.OperatingResult.Equal(decimal.NewFromInt(500)))
	assert.Nil(t, data.AuditTrail)

	codes := make([]string, 0, len(data.Receitas.Details))
	for _, d := range data.Receitas.Details {
		codes = append(codes, d.Code)
	}
	assert.IsNonDecreasing(t, codes)

	var generated int
	for _, ev := range store.AuditEvents() {
		if ev.EntityType == domain.EntityReport && ev.Action == domain.AuditActionGenerated {
			generated++
			assert.Equal(t, "user-1", ev.Actor)
		}
	}
	assert.Equal(t, 1, generated)
}

func TestDREOtherTenantSeesNothing(t *testing.T) {
	store := newTestStore(t)
	revenue := newTestRevenueService(store, nil)
	ctx := context.Background()
	_, err := revenue.ProcessPayment(ctx, testTenant, testPayment(t, "pay_001", 50000, "2024-01-15"))
	require.NoError(t, err)

	reports := NewReportService(store, nil, nil, ReportConfig{})
	resp := reports.GetDREData(ctx, DREQuery{Period: january(t), TenantID: uuid.New()})
	require.True(t, resp.Success)
	assert.True(t, resp.Data.Receitas.Gross.IsZero())
}

func TestDRETreatsGarbageBalancesAsZero(t *testing.T) {
	store := &stubReportStore{rows: []models.AccountBalanceRow{{
		AccountID:     uuid.New(),
		Code:          "4.1.1.1",
		Name:          "Receita de Serviços",
		Type:          domain.AccountTypeRevenue,
		DebitBalance:  strPtr("NaN"),
		CreditBalance: strPtr("invalid"),
		FinalBalance:  nil,
	}}}
	reports := NewReportService(store, nil, nil, ReportConfig{})

	var resp DREResponse
	require.NotPanics(t, func() {
		resp = reports.GetDREData(context.Background(), DREQuery{Period: january(t), TenantID: testTenant})
	})
	require.True(t, resp.Success)
	assert.True(t, resp.Data.Receitas.Gross.IsZero())
	assert.True(t, resp.Data.Resultado.NetProfit.IsZero())
}

func TestDREGroupsCostsAndExpenses(t *testing.T) {
	store := &stubReportStore{rows: []models.AccountBalanceRow{
		{AccountID: uuid.New(), Code: "6.1.2.1", Type: domain.AccountTypeExpense, FinalBalance: strPtr("200.00")},
		{AccountID: uuid.New(), Code: "4.1.1.2", Type: domain.AccountTypeRevenue, FinalBalance: strPtr("300.00")},
		{AccountID: uuid.New(), Code: "4.1.1.1", Type: domain.AccountTypeRevenue, DebitBalance: strPtr("50"), CreditBalance: strPtr("1750"), FinalBalance: strPtr("garbage")},
		{AccountID: uuid.New(), Code: "5.1.1.1", Type: domain.AccountTypeCost, DebitBalance: strPtr("400.00"), CreditBalance: nil},
		{AccountID: uuid.New(), Code: "1.1.1.1", Type: domain.AccountTypeAsset, FinalBalance: strPtr("9999.00")},
	}}
	reports := NewReportService(store, nil, nil, ReportConfig{})

	resp := reports.GetDREData(context.Background(), DREQuery{Period: january(t), TenantID: testTenant})
	require.True(t, resp.Success)
	data := resp.Data

	// 1700 (credit side fallback) + 300
	assert.True(t, data.Receitas.Gross.Equal(decimal.NewFromInt(2000)), data.Receitas.Gross.String())
	require.Len(t, data.Receitas.Details, 2)
	assert.Equal(t, "4.1.1.1", data.Receitas.Details[0].Code)
	assert.True(t, data.Custos.Total.Equal(decimal.NewFromInt(400)))
	assert.True(t, data.Despesas.Total.Equal(decimal.NewFromInt(200)))
	assert.True(t, data.Resultado.OperatingResult.Equal(decimal.NewFromInt(1400)))
	assert.True(t, data.Resultado.Tax.Equal(decimal.NewFromInt(350)))
	assert.True(t, data.Resultado.NetProfit.Equal(decimal.NewFromInt(1050)))
}

func TestDREStoreFailureIsStructured(t *testing.T) {
	reports := NewReportService(&stubReportStore{err: errors.New("relation does not exist")}, nil, nil, ReportConfig{})

	resp := reports.GetDREData(context.Background(), DREQuery{Period: january(t), TenantID: testTenant})
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "Erro ao gerar DRE", resp.Error)
}

func TestDREAuditTrailDegradesPerAccount(t *testing.T) {
	broken := uuid.New()
	healthy := uuid.New()
	store := &stubReportStore{
		rows: []models.AccountBalanceRow{
			{AccountID: healthy, Code: "4.1.1.1", Type: domain.AccountTypeRevenue, FinalBalance: strPtr("10")},
			{AccountID: broken, Code: "6.1.1.1", Type: domain.AccountTypeExpense, FinalBalance: strPtr("5")},
		},
		entriesErr: map[uuid.UUID]error{broken: errors.New("timeout")},
	}
	reports := NewReportService(store, nil, nil, ReportConfig{AuditTrailConcurrency: 1})

	resp := reports.GetDREData(context.Background(), DREQuery{Period: january(t), TenantID: testTenant, IncludeAuditTrail: true})
	require.True(t, resp.Success)
	require.Len(t, resp.Data.AuditTrail, 2)

	byAccount := map[uuid.UUID]AuditTrailAccount{}
	for _, item := range resp.Data.AuditTrail {
		byAccount[item.AccountID] = item
	}
	assert.False(t, byAccount[healthy].Unavailable)
	assert.Len(t, byAccount[healthy].Entries, 1)
	assert.Equal(t, domain.DirectionCredit, byAccount[healthy].Entries[0].Direction)
	assert.True(t, byAccount[broken].Unavailable)
	assert.Empty(t, byAccount[broken].Entries)
	assert.True(t, resp.Data.Receitas.Gross.Equal(decimal.NewFromInt(10)))
}

func TestDREServedFromCacheUntilInvalidated(t *testing.T) {
	store := &stubReportStore{rows: []models.AccountBalanceRow{
		{AccountID: uuid.New(), Code: "4.1.1.1", Type: domain.AccountTypeRevenue, FinalBalance: strPtr("10")},
	}}
	reportCache := cache.NewMemoryCache()
	reports := NewReportService(store, nil, reportCache, ReportConfig{})
	ctx := context.Background()
	q := DREQuery{Period: january(t), TenantID: testTenant}

	first := reports.GetDREData(ctx, q)
	second := reports.GetDREData(ctx, q)
	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, int32(1), store.calls.Load())
	assert.True(t, second.Data.Receitas.Gross.Equal(first.Data.Receitas.Gross))

	require.NoError(t, reportCache.Invalidate(ctx, domain.RouteFinancialReports))
	reports.GetDREData(ctx, q)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestDRERejectsInvertedPeriod(t *testing.T) {
	reports := NewReportService(&stubReportStore{}, nil, nil, ReportConfig{})
	resp := reports.GetDREData(context.Background(), DREQuery{
		Period:   Period{From: mustDate(t, "2024-02-01"), To: mustDate(t, "2024-01-01")},
		TenantID: testTenant,
	})
	assert.False(t, resp.Success)
	assert.Equal(t, MsgReportUnavailable, resp.Error)
}

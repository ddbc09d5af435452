package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubValidationStore returns canned rows; a non-nil error fails that query.
type stubValidationStore struct {
	refs       []models.DanglingReference
	lines      []models.LedgerLine
	records    []models.LedgerEntryRecord
	tenants    []uuid.UUID
	refsErr    error
	linesErr   error
	recordsErr error
	panicLines bool
}

func (s *stubValidationStore) ListDanglingReferences(context.Context, uuid.UUID, time.Time, time.Time) ([]models.DanglingReference, error) {
	return s.refs, s.refsErr
}

func (s *stubValidationStore) ListLedgerLines(context.Context, uuid.UUID, time.Time, time.Time) ([]models.LedgerLine, error) {
	if s.panicLines {
		panic("driver exploded")
	}
	return s.lines, s.linesErr
}

func (s *stubValidationStore) ListLedgerEntries(context.Context, uuid.UUID, time.Time, time.Time) ([]models.LedgerEntryRecord, error) {
	return s.records, s.recordsErr
}

func (s *stubValidationStore) ListTenantsWithActivity(context.Context, time.Time, time.Time) ([]uuid.UUID, error) {
	return s.tenants, nil
}

func line(direction, amount string) models.LedgerLine {
	return models.LedgerLine{EntryID: uuid.New(), AccountID: uuid.New(), Direction: direction, Amount: amount}
}

func record(t *testing.T, amount, date, desc string) models.LedgerEntryRecord {
	debit, credit := uuid.New(), uuid.New()
	return models.LedgerEntryRecord{ID: uuid.New(), DebitAccountID: &debit, CreditAccountID: &credit, Amount: amount, Date: mustDate(t, date), Description: desc}
}

// singleDay is Monday 2024-01-15, so completeness expects exactly one day.
func singleDay(t *testing.T) Period {
	d := mustDate(t, "2024-01-15")
	return Period{From: d, To: d}
}

func checkByName(t *testing.T, data *ValidationData, name string) CheckResult {
	t.Helper()
	for _, c := range data.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s missing", name)
	return CheckResult{}
}

func TestValidationBalancedPeriodPasses(t *testing.T) {
	store := &stubValidationStore{
		lines: []models.LedgerLine{
			line(domain.DirectionDebit, "500.00"),
			line(domain.DirectionCredit, "500.00"),
			line(domain.DirectionDebit, "300.00"),
			line(domain.DirectionCredit, "300.00"),
		},
		records: []models.LedgerEntryRecord{
			record(t, "500.00", "2024-01-15", "Corte"),
			record(t, "300.00", "2024-01-15", "Barba"),
		},
	}
	svc := NewValidationService(store, ValidationConfig{})

	resp := svc.ValidateFinancialData(context.Background(), ValidationQuery{Period: singleDay(t), TenantID: testTenant})
	require.True(t, resp.Success)
	data := resp.Data

	require.NotNil(t, data.Balance)
	assert.True(t, data.Balance.TotalDebits.Equal(decimal.NewFromInt(800)))
	assert.True(t, data.Balance.TotalCredits.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, StatusPassed, checkByName(t, data, CheckDebitCreditBalance).Status)

	assert.Equal(t, 6, data.Summary.TotalChecks)
	assert.Equal(t, 6, data.Summary.Passed)
	assert.True(t, data.IsValid)
	assert.Empty(t, data.Findings)
}

func TestValidationAlwaysReportsSixChecks(t *testing.T) {
	down := errors.New("connection reset")
	stores := map[string]*stubValidationStore{
		"empty":       {},
		"all failing": {refsErr: down, linesErr: down, recordsErr: down},
		"panicking":   {panicLines: true},
		"dirty": {
			refs:  []models.DanglingReference{{Kind: models.RefDebitAccount, EntityID: uuid.NewString(), MissingID: uuid.NewString()}},
			lines: []models.LedgerLine{line(domain.DirectionDebit, "10.00")},
			records: []models.LedgerEntryRecord{
				record(t, "-1", "2024-01-15", "estorno"),
				record(t, "abc", "2024-01-15", "lixo"),
			},
		},
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			svc := NewValidationService(store, ValidationConfig{})
			resp := svc.ValidateFinancialData(context.Background(), ValidationQuery{Period: singleDay(t), TenantID: testTenant, IncludeDetailedAudit: true})
			require.True(t, resp.Success)
			data := resp.Data
			assert.Equal(t, 6, data.Summary.TotalChecks)
			assert.Len(t, data.Checks, 6)
			assert.Equal(t, 6, data.Summary.Passed+data.Summary.Failed+data.Summary.Inconclusive)
			for _, c := range data.Checks {
				assert.NotNil(t, c.DurationMS, c.Name)
			}
		})
	}
}

func TestValidationStoreFailureIsInconclusive(t *testing.T) {
	store := &stubValidationStore{linesErr: errors.New("timeout")}
	svc := NewValidationService(store, ValidationConfig{})

	resp := svc.ValidateFinancialData(context.Background(), ValidationQuery{Period: singleDay(t), TenantID: testTenant})
	require.True(t, resp.Success)
	data := resp.Data

	balance := checkByName(t, data, CheckDebitCreditBalance)
	assert.Equal(t, StatusInconclusive, balance.Status)
	assert.NotEmpty(t, balance.Error)
	assert.Equal(t, 1, data.Summary.Inconclusive)
	assert.False(t, data.IsValid)
	assert.Equal(t, StatusPassed, checkByName(t, data, CheckReferentialIntegrity).Status)
}

func TestValidationPanicIsIsolated(t *testing.T) {
	svc := NewValidationService(&stubValidationStore{panicLines: true}, ValidationConfig{})

	resp := svc.ValidateFinancialData(context.Background(), ValidationQuery{Period: singleDay(t), TenantID: testTenant})
	require.True(t, resp.Success)
	assert.Equal(t, StatusInconclusive, checkByName(t, resp.Data, CheckDebitCreditBalance).Status)
	assert.Equal(t, StatusPassed, checkByName(t, resp.Data, CheckInvalidValues).Status)
}

func TestValidationImbalanceFails(t *testing.T) {
	store := &stubValidationStore{lines: []models.LedgerLine{
		line(domain.DirectionDebit, "500.00"),
		line(domain.DirectionCredit, "450.00"),
	}}
	svc := NewValidationService(store, ValidationConfig{})

	resp := svc.ValidateFinancialData(context.Background(), ValidationQuery{Period: singleDay(t), TenantID: testTenant})
	require.True(t, resp.Success)
	assert.Equal(t, StatusFailed, checkByName(t, resp.Data, CheckDebitCreditBalance).Status)
	assert.True(t, resp.Data.Balance.Difference.Equal(decimal.NewFromInt(50)))
	assert.False(t, resp.Data.IsValid)
}

func TestValidationInvalidValuesAndOutliers(t *testing.T) {
	store := &stubValidationStore{records: []models.LedgerEntryRecord{
		record(t, "0", "2024-01-15", "zero"),
		record(t, "NaN", "2024-01-15", "nan"),
		record(t, "25000.00", "2024-01-15", "pacote anual"),
		record(t, "80.00", "2024-01-15", "corte"),
	}}
	svc := NewValidationService(store, ValidationConfig{HighValueThreshold: decimal.NewFromInt(10000)})

	resp := svc.ValidateFinancialData(context.Background(), ValidationQuery{Period: singleDay(t), TenantID: testTenant})
	require.True(t, resp.Success)
	data := resp.Data

	invalid := checkByName(t, data, CheckInvalidValues)
	assert.Equal(t, StatusFailed, invalid.Status)
	assert.Equal(t, 2, invalid.Findings)

	outliers := checkByName(t, data, CheckOutlierValues)
	assert.Equal(t, StatusPassed, outliers.Status)
	assert.Equal(t, 1, outliers.Findings)

	var warned bool
	for _, f := range data.Findings {
		if f.Check == CheckOutlierValues {
			warned = true
			assert.Equal(t, SeverityWarning, f.Severity)
			assert.Equal(t, "25000.00", f.Value)
		}
	}
	assert.True(t, warned)
}

func TestValidationDetectsDuplicateLookingEntries(t *testing.T) {
	first := record(t, "80.00", "2024-01-15", "Corte")
	dup := first
	dup.ID = uuid.New()
	dup.Amount = "80"
	dup.Description = " corte "
	store := &stubValidationStore{records: []models.LedgerEntryRecord{first, dup, record(t, "80.00", "2024-01-15", "Corte")}}
	svc := NewValidationService(store, ValidationConfig{})

	resp := svc.ValidateFinancialData(context.Background(), ValidationQuery{Period: singleDay(t), TenantID: testTenant})
	require.True(t, resp.Success)
	anomalies := checkByName(t, resp.Data, CheckAnomalies)
	assert.Equal(t, StatusFailed, anomalies.Status)
	assert.Equal(t, 1, anomalies.Findings)
}

func TestValidationCompletenessSkipsSundaysAndFuture(t *testing.T) {
	// Saturday 2024-01-13 to Tuesday 2024-01-16, "today" is Monday 2024-01-15.
	store := &stubValidationStore{records: []models.LedgerEntryRecord{record(t, "10", "2024-01-13", "x")}}
	svc := NewValidationService(store, ValidationConfig{})
	svc.now = func() time.Time { return mustDate(t, "2024-01-15").Add(10 * time.Hour) }

	resp := svc.ValidateFinancialData(context.Background(), ValidationQuery{
		Period:   Period{From: mustDate(t, "2024-01-13"), To: mustDate(t, "2024-01-16")},
		TenantID: testTenant,
	})
	require.True(t, resp.Success)
	completeness := checkByName(t, resp.Data, CheckCompleteness)
	assert.Equal(t, StatusFailed, completeness.Status)
	assert.Equal(t, 1, completeness.Findings)

	for _, f := range resp.Data.Findings {
		if f.Check == CheckCompleteness {
			assert.Equal(t, "2024-01-15", f.Date)
		}
	}
}

func TestValidationRequiresTenant(t *testing.T) {
	svc := NewValidationService(&stubValidationStore{}, ValidationConfig{})
	resp := svc.ValidateFinancialData(context.Background(), ValidationQuery{Period: singleDay(t)})
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
}

func TestValidationAgainstRecordedRevenue(t *testing.T) {
	store := newTestStore(t)
	revenue := newTestRevenueService(store, nil)
	ctx := context.Background()
	_, err := revenue.ProcessPayment(ctx, testTenant, testPayment(t, "pay_001", 50000, "2024-01-15"))
	require.NoError(t, err)

	svc := NewValidationService(store, ValidationConfig{})
	resp := svc.ValidateFinancialData(ctx, ValidationQuery{Period: singleDay(t), TenantID: testTenant})
	require.True(t, resp.Success)

	assert.True(t, resp.Data.Balance.TotalDebits.Equal(decimal.NewFromInt(500)))
	assert.True(t, resp.Data.Balance.TotalCredits.Equal(decimal.NewFromInt(500)))
	// The payment's customer has no client row yet.
	assert.Equal(t, StatusFailed, checkByName(t, resp.Data, CheckReferentialIntegrity).Status)

	store.PutClient(models.Client{Name: "João", AsaasCustomerID: "cus_000001", TenantID: testTenant})
	resp = svc.ValidateFinancialData(ctx, ValidationQuery{Period: singleDay(t), TenantID: testTenant})
	assert.True(t, resp.Data.IsValid, resp.Data.Findings)
}

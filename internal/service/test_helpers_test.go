package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/ayo6706/salon-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	errStoreDown = errors.New("connection refused")
	testTenant   = uuid.MustParse("6f0c2a3e-4d0b-4d8b-9c3e-1a2b3c4d5e6f")
)

// faultyStore wraps a MemoryStore and fails selected operations.
type faultyStore struct {
	*repository.MemoryStore

	mu             sync.Mutex
	failRevenueGet error
	failAccountGet error
	failLedgerAdd  error
	failRevenueAdd error
	failDelete     error
	revenueAddHook func()
	deleteCalls    int
}

func newTestStore(t *testing.T) *faultyStore {
	t.Helper()
	mem := repository.NewMemoryStore()
	mem.SeedChartOfAccounts()
	return &faultyStore{MemoryStore: mem}
}

func (f *faultyStore) GetRevenueByPaymentID(ctx context.Context, paymentID string) (*models.AutomaticRevenue, error) {
	if f.failRevenueGet != nil {
		return nil, f.failRevenueGet
	}
	return f.MemoryStore.GetRevenueByPaymentID(ctx, paymentID)
}

func (f *faultyStore) GetActiveAccountByCode(ctx context.Context, code string) (*models.Account, error) {
	if f.failAccountGet != nil {
		return nil, f.failAccountGet
	}
	return f.MemoryStore.GetActiveAccountByCode(ctx, code)
}

func (f *faultyStore) CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if f.failLedgerAdd != nil {
		return f.failLedgerAdd
	}
	return f.MemoryStore.CreateLedgerEntry(ctx, entry)
}

func (f *faultyStore) CreateAutomaticRevenue(ctx context.Context, rev *models.AutomaticRevenue) error {
	if f.revenueAddHook != nil {
		f.revenueAddHook()
	}
	if f.failRevenueAdd != nil {
		return f.failRevenueAdd
	}
	return f.MemoryStore.CreateAutomaticRevenue(ctx, rev)
}

func (f *faultyStore) DeleteLedgerEntry(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	f.deleteCalls++
	f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	return f.MemoryStore.DeleteLedgerEntry(ctx, id)
}

func newTestRevenueService(store *faultyStore, invalidator CacheInvalidator) *RevenueService {
	return NewRevenueService(store, NewAuditService(store), invalidator, RevenueConfig{StepTimeout: time.Second})
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func testPayment(t *testing.T, id string, cents int64, date string) Payment {
	t.Helper()
	return Payment{
		ID:          id,
		CustomerID:  "cus_000001",
		ValueMinor:  cents,
		Description: "Corte + barba",
		Date:        mustDate(t, date),
		BillingType: "PIX",
	}
}

// recordingInvalidator captures invalidated routes.
type recordingInvalidator struct {
	mu     sync.Mutex
	routes []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, routes ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, routes...)
	return nil
}

package service

import (
	"context"
	"time"

	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/google/uuid"
)

// LedgerStore is the write-path contract of the revenue pipeline.
// Point lookups return repository.ErrNotFound on a miss.
type LedgerStore interface {
	GetRevenueByPaymentID(ctx context.Context, paymentID string) (*models.AutomaticRevenue, error)
	GetActiveAccountByCode(ctx context.Context, code string) (*models.Account, error)
	CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error
	DeleteLedgerEntry(ctx context.Context, id uuid.UUID) error
	CreateAutomaticRevenue(ctx context.Context, rev *models.AutomaticRevenue) error
}

// ClientStore resolves provider customers to salon clients.
type ClientStore interface {
	GetClientByCustomerID(ctx context.Context, customerID string) (*models.Client, error)
}

// ReportStore serves the DRE aggregation.
type ReportStore interface {
	GetAccountBalances(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.AccountBalanceRow, error)
	ListAccountEntries(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) ([]models.LedgerEntry, error)
}

// ValidationStore serves the financial validator checks.
type ValidationStore interface {
	ListDanglingReferences(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.DanglingReference, error)
	ListLedgerLines(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.LedgerLine, error)
	ListLedgerEntries(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.LedgerEntryRecord, error)
	ListTenantsWithActivity(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
}

type AuditStore interface {
	InsertAuditLog(ctx context.Context, ev models.AuditEvent) error
}

// Store is everything the services need; implemented by repository.Store and
// repository.MemoryStore.
type Store interface {
	LedgerStore
	ClientStore
	ReportStore
	ValidationStore
	AuditStore
	Ping(ctx context.Context) error
}

// CacheInvalidator is signalled after a revenue is recorded.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, routes ...string) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, ...string) error { return nil }

// withStepTimeout bounds one store round-trip. A zero timeout leaves ctx as is.
func withStepTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

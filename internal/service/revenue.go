package service

import (
	"context"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/ayo6706/salon-ledger/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RevenueConfig carries the pipeline's tunables.
type RevenueConfig struct {
	RevenueAccountCode string
	CashAccountCode    string
	StepTimeout        time.Duration
}

// RevenueService records confirmed payments as a ledger entry plus an
// automatic revenue row. The two writes are not wrapped in one transaction:
// a failed revenue write is undone by deleting the ledger entry.
type RevenueService struct {
	guard       *DuplicateGuard
	resolver    *AccountResolver
	writer      *LedgerWriter
	recorder    *RevenueRecorder
	compensator *Compensator
	audit       *AuditService
	cache       CacheInvalidator
}

func NewRevenueService(store LedgerStore, audit *AuditService, cache CacheInvalidator, cfg RevenueConfig) *RevenueService {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &RevenueService{
		guard:       NewDuplicateGuard(store, cfg.StepTimeout),
		resolver:    NewAccountResolver(store, cfg.RevenueAccountCode, cfg.CashAccountCode, cfg.StepTimeout),
		writer:      NewLedgerWriter(store, cfg.StepTimeout),
		recorder:    NewRevenueRecorder(store, cfg.StepTimeout),
		compensator: NewCompensator(store, audit, 2*cfg.StepTimeout),
		audit:       audit,
		cache:       cache,
	}
}

// Result is the structured outcome handed back to webhook callers.
type Result struct {
	Success bool                     `json:"success"`
	Data    *models.AutomaticRevenue `json:"data,omitempty"`
	Error   string                   `json:"error,omitempty"`
	Kind    ErrorKind                `json:"-"`
}

// ProcessPaymentResult runs the pipeline and folds the outcome into a Result.
func (s *RevenueService) ProcessPaymentResult(ctx context.Context, tenantID uuid.UUID, p Payment) Result {
	rev, err := s.ProcessPayment(ctx, tenantID, p)
	if err != nil {
		return Result{Success: false, Error: MessageOf(err), Kind: KindOf(err)}
	}
	return Result{Success: true, Data: rev}
}

// ProcessPayment walks duplicate check, account resolution, ledger write and
// revenue write in order. Any failure after the ledger write compensates.
func (s *RevenueService) ProcessPayment(ctx context.Context, tenantID uuid.UUID, p Payment) (*models.AutomaticRevenue, error) {
	logger := zap.L().With(zap.String("payment_id", p.ID), zap.String("unidade_id", tenantID.String()))

	if tenantID == uuid.Nil {
		return nil, s.fail(ctx, p, newPipelineError(KindInvalidPayment, "unidade_id is required", nil))
	}
	if err := p.validate(); err != nil {
		return nil, s.fail(ctx, p, err)
	}

	if err := timed("duplicate_check", func() error { return s.guard.Check(ctx, p.ID) }); err != nil {
		if KindOf(err) == KindDuplicateRevenue {
			logger.Info("payment already processed")
			observability.IncrementRevenueOutcome(string(KindDuplicateRevenue))
			return nil, err
		}
		return nil, s.fail(ctx, p, err)
	}

	var accounts ResolvedAccounts
	if err := timed("resolve_accounts", func() (err error) {
		accounts, err = s.resolver.Resolve(ctx)
		return err
	}); err != nil {
		return nil, s.fail(ctx, p, err)
	}

	var entry *models.LedgerEntry
	if err := timed("write_ledger_entry", func() (err error) {
		entry, err = s.writer.Write(ctx, tenantID, accounts, p)
		return err
	}); err != nil {
		return nil, s.fail(ctx, p, err)
	}

	var rev *models.AutomaticRevenue
	if err := timed("record_revenue", func() (err error) {
		rev, err = s.recorder.Record(ctx, tenantID, entry, p)
		return err
	}); err != nil {
		_ = s.compensator.Compensate(ctx, entry.ID, err)
		if KindOf(err) == KindDuplicateRevenue {
			logger.Warn("concurrent delivery recorded payment first", zap.String("ledger_entry_id", entry.ID.String()))
			observability.IncrementRevenueOutcome(string(KindDuplicateRevenue))
			return nil, err
		}
		return nil, s.fail(ctx, p, err)
	}

	observability.IncrementRevenueOutcome("success")
	logger.Info("revenue recorded",
		zap.String("revenue_id", rev.ID.String()),
		zap.String("ledger_entry_id", entry.ID.String()),
		zap.String("value", rev.Value.StringFixed(2)))

	s.audit.Emit(ctx, domain.EntityAutomaticRevenue, rev.ID.String(), domain.ActorAsaasWebhook, domain.AuditActionCreated, "recorded",
		map[string]any{
			"payment_id":      p.ID,
			"ledger_entry_id": entry.ID.String(),
			"value":           rev.Value.StringFixed(2),
			"unidade_id":      tenantID.String(),
			"billing_type":    p.BillingType,
		})
	if err := s.cache.Invalidate(ctx, domain.RouteFinancialReports, domain.RouteDashboard); err != nil {
		logger.Warn("report cache invalidation failed", zap.Error(err))
	}
	return rev, nil
}

func (s *RevenueService) fail(ctx context.Context, p Payment, err error) error {
	kind := KindOf(err)
	observability.IncrementRevenueOutcome(string(kind))
	zap.L().Error("revenue pipeline failed",
		zap.String("payment_id", p.ID),
		zap.String("kind", string(kind)),
		zap.Error(err))
	entityID := p.ID
	if entityID == "" {
		entityID = "unknown"
	}
	s.audit.Emit(ctx, domain.EntityAutomaticRevenue, entityID, domain.ActorAsaasWebhook, domain.AuditActionFailed, "failed",
		map[string]any{"kind": string(kind), "error": err.Error()})
	return err
}

func timed(step string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.ObservePipelineStep(step, time.Since(start))
	return err
}

package service

import (
	"context"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCompensationTimeout = 10 * time.Second

// Compensator deletes a ledger entry whose revenue record could not be written.
type Compensator struct {
	store   LedgerStore
	audit   *AuditService
	timeout time.Duration
}

func NewCompensator(store LedgerStore, audit *AuditService, timeout time.Duration) *Compensator {
	if timeout <= 0 {
		timeout = defaultCompensationTimeout
	}
	return &Compensator{store: store, audit: audit, timeout: timeout}
}

// Compensate removes entryID. It runs detached from the caller's cancellation
// so a timed-out request still cleans up. The returned error is informational:
// callers surface cause, not this.
func (c *Compensator) Compensate(ctx context.Context, entryID uuid.UUID, cause error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	err := c.store.DeleteLedgerEntry(cctx, entryID)
	observability.ObservePipelineStep("compensate", time.Since(start))
	if err != nil {
		observability.IncrementCompensation("failed")
		zap.L().Error("orphan ledger entry",
			zap.String("ledger_entry_id", entryID.String()),
			zap.NamedError("cause", cause),
			zap.Error(err))
		c.audit.Emit(cctx, domain.EntityLedgerEntry, entryID.String(), domain.ActorAsaasWebhook, domain.AuditActionFailed, "orphaned",
			map[string]any{"cause": errString(cause), "compensation_error": err.Error()})
		return err
	}

	observability.IncrementCompensation("success")
	zap.L().Warn("ledger entry compensated",
		zap.String("ledger_entry_id", entryID.String()),
		zap.NamedError("cause", cause))
	c.audit.Emit(cctx, domain.EntityLedgerEntry, entryID.String(), domain.ActorAsaasWebhook, domain.AuditActionCompensated, "deleted",
		map[string]any{"cause": errString(cause)})
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

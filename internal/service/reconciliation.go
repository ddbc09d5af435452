package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"go.uber.org/zap"
)

// activityLookback is how far back a unit's last entry may be for the unit
// to still be swept. Idle days inside the window are what completeness reports.
const activityLookback = 30

// ReconciliationService validates the previous day for every unit with
// ledger activity in the trailing activityLookback days.
type ReconciliationService struct {
	store     ValidationStore
	validator *ValidationService
	audit     *AuditService
	now       func() time.Time
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store ValidationStore, validator *ValidationService, audit *AuditService) *ReconciliationService {
	return &ReconciliationService{store: store, validator: validator, audit: audit, now: time.Now}
}

// Run validates yesterday's ledger per unit. It returns ErrValidationFailed
// when any unit is invalid so the worker can count the run as failed.
func (s *ReconciliationService) Run(ctx context.Context) error {
	day := dateOnly(s.now()).AddDate(0, 0, -1)
	period := Period{From: day, To: day}

	tenants, err := s.store.ListTenantsWithActivity(ctx, day.AddDate(0, 0, -activityLookback), day)
	if err != nil {
		return fmt.Errorf("list units with activity: %w", err)
	}

	invalid := 0
	for _, tenantID := range tenants {
		resp := s.validator.ValidateFinancialData(ctx, ValidationQuery{Period: period, TenantID: tenantID})
		if !resp.Success || resp.Data == nil {
			invalid++
			zap.L().Error("ledger validation could not run", zap.String("unidade_id", tenantID.String()), zap.String("error", resp.Error))
			continue
		}
		data := resp.Data
		if data.IsValid {
			zap.L().Info("ledger validated", zap.String("unidade_id", tenantID.String()), zap.String("date", day.Format(domain.PaymentDateLayout)))
			continue
		}

		invalid++
		for _, check := range data.Checks {
			if check.Status == StatusPassed {
				continue
			}
			zap.L().Error("CRITICAL: ledger validation check not passed",
				zap.String("unidade_id", tenantID.String()),
				zap.String("check", check.Name),
				zap.String("status", string(check.Status)),
				zap.Int("findings", check.Findings),
				zap.String("message", check.Message))
		}
		s.audit.Emit(ctx, domain.EntityReport, "validation:"+tenantID.String(), domain.ActorValidatorWorker, domain.AuditActionFailed, "invalid",
			map[string]any{
				"date":         day.Format(domain.PaymentDateLayout),
				"passed":       data.Summary.Passed,
				"failed":       data.Summary.Failed,
				"inconclusive": data.Summary.Inconclusive,
			})
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d units", ErrValidationFailed, invalid, len(tenants))
	}
	return nil
}

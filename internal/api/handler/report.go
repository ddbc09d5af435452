package handler

import (
	"errors"
	"net/http"

	"github.com/ayo6706/salon-ledger/internal/api/middleware"
	"github.com/ayo6706/salon-ledger/internal/service"
	"github.com/google/uuid"
)

// ReportHandler serves the DRE and the financial validation report.
type ReportHandler struct {
	reports   *service.ReportService
	validator *service.ValidationService
}

func NewReportHandler(reports *service.ReportService, validator *service.ValidationService) *ReportHandler {
	return &ReportHandler{reports: reports, validator: validator}
}

// GetDRE handles GET /v1/reports/dre?from=&to=[&unidade_id=][&include_audit_trail=true].
func (h *ReportHandler) GetDRE(w http.ResponseWriter, r *http.Request) {
	tenantID, period, ok := h.parseScope(w, r)
	if !ok {
		return
	}

	resp := h.reports.GetDREData(r.Context(), service.DREQuery{
		Period:            period,
		TenantID:          tenantID,
		IncludeAuditTrail: queryBool(r, "include_audit_trail", "audit_trail"),
		Actor:             middleware.UserIDFromContext(r.Context()),
	})
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusServiceUnavailable
	}
	RespondJSON(w, status, resp)
}

// GetValidation handles GET /v1/reports/validation?from=&to=[&unidade_id=][&include_detailed_audit=true].
// An invalid ledger is still a 200; the verdict is in data.isValid.
func (h *ReportHandler) GetValidation(w http.ResponseWriter, r *http.Request) {
	tenantID, period, ok := h.parseScope(w, r)
	if !ok {
		return
	}

	resp := h.validator.ValidateFinancialData(r.Context(), service.ValidationQuery{
		Period:               period,
		TenantID:             tenantID,
		IncludeDetailedAudit: queryBool(r, "include_detailed_audit", "detailed"),
	})
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadRequest
	}
	RespondJSON(w, status, resp)
}

func (h *ReportHandler) parseScope(w http.ResponseWriter, r *http.Request) (tenantID uuid.UUID, period service.Period, ok bool) {
	tenant, err := requestTenant(r)
	if err != nil {
		if errors.Is(err, errTenantForbidden) {
			RespondError(w, r, http.StatusForbidden, "auth/unit-forbidden", err.Error())
		} else {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-unidade-id", err.Error())
		}
		return tenantID, period, false
	}
	period, err = requestPeriod(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-period", err.Error())
		return tenantID, period, false
	}
	return tenant, period, true
}

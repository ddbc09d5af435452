package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/ayo6706/salon-ledger/internal/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	CheckReferentialIntegrity = "referential_integrity"
	CheckDebitCreditBalance   = "debit_credit_balance"
	CheckInvalidValues        = "invalid_values"
	CheckOutlierValues        = "outlier_values"
	CheckAnomalies            = "anomalies"
	CheckCompleteness         = "completeness"

	TotalChecks = 6
)

type CheckStatus string

const (
	StatusPassed       CheckStatus = "passed"
	StatusFailed       CheckStatus = "failed"
	StatusInconclusive CheckStatus = "inconclusive"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

var defaultHighValueThreshold = decimal.NewFromInt(10000)

// Finding is one row explaining why a check did not pass.
type Finding struct {
	Check     string `json:"check"`
	Severity  string `json:"severity"`
	EntryID   string `json:"entry_id,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	Value     string `json:"value,omitempty"`
	Date      string `json:"date,omitempty"`
	Message   string `json:"message"`
}

type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Error      string      `json:"error,omitempty"`
	Findings   int         `json:"findings"`
	DurationMS *int64      `json:"duration_ms,omitempty"`
}

type ValidationSummary struct {
	TotalChecks  int `json:"total_checks"`
	Passed       int `json:"passed"`
	Failed       int `json:"failed"`
	Inconclusive int `json:"inconclusive"`
}

// BalanceTotals are the debit and credit sums computed by the balance check.
type BalanceTotals struct {
	TotalDebits  decimal.Decimal `json:"totalDebitos"`
	TotalCredits decimal.Decimal `json:"totalCreditos"`
	Difference   decimal.Decimal `json:"diferenca"`
}

type ValidationData struct {
	IsValid     bool              `json:"isValid"`
	Summary     ValidationSummary `json:"summary"`
	Checks      []CheckResult     `json:"checks"`
	Findings    []Finding         `json:"findings"`
	Balance     *BalanceTotals    `json:"balance,omitempty"`
	Period      Period            `json:"period"`
	TenantID    uuid.UUID         `json:"unidade_id"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type ValidationResponse struct {
	Success bool            `json:"success"`
	Data    *ValidationData `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type ValidationQuery struct {
	Period               Period
	TenantID             uuid.UUID
	IncludeDetailedAudit bool
}

type ValidationConfig struct {
	StepTimeout        time.Duration
	HighValueThreshold decimal.Decimal
}

// ValidationService runs independent consistency checks over a tenant's ledger.
type ValidationService struct {
	store     ValidationStore
	timeout   time.Duration
	threshold decimal.Decimal
	now       func() time.Time
}

func NewValidationService(store ValidationStore, cfg ValidationConfig) *ValidationService {
	threshold := cfg.HighValueThreshold
	if !threshold.IsPositive() {
		threshold = defaultHighValueThreshold
	}
	return &ValidationService{
		store:     store,
		timeout:   cfg.StepTimeout,
		threshold: threshold,
		now:       time.Now,
	}
}

// checkOutcome is what a single check produces before it is summarized.
type checkOutcome struct {
	status   CheckStatus
	message  string
	findings []Finding
	balance  *BalanceTotals
	err      error
}

type checkFunc func(ctx context.Context, q ValidationQuery) checkOutcome

// ValidateFinancialData always reports all six checks. A check whose store
// call fails is inconclusive and makes the verdict invalid.
func (s *ValidationService) ValidateFinancialData(ctx context.Context, q ValidationQuery) ValidationResponse {
	if q.TenantID == uuid.Nil {
		return ValidationResponse{Success: false, Error: "unidade_id is required"}
	}
	if err := q.Period.Validate(); err != nil {
		return ValidationResponse{Success: false, Error: err.Error()}
	}

	checks := []struct {
		name string
		fn   checkFunc
	}{
		{CheckReferentialIntegrity, s.checkReferentialIntegrity},
		{CheckDebitCreditBalance, s.checkBalance},
		{CheckInvalidValues, s.checkInvalidValues},
		{CheckOutlierValues, s.checkOutliers},
		{CheckAnomalies, s.checkAnomalies},
		{CheckCompleteness, s.checkCompleteness},
	}

	outcomes := make([]checkOutcome, len(checks))
	durations := make([]time.Duration, len(checks))

	// Plain Group: one check failing never cancels its siblings.
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			start := time.Now()
			outcomes[i] = s.runIsolated(ctx, c.name, c.fn, q)
			durations[i] = time.Since(start)
			return nil
		})
	}
	_ = g.Wait()

	data := &ValidationData{
		Summary:     ValidationSummary{TotalChecks: TotalChecks},
		Checks:      make([]CheckResult, 0, len(checks)),
		Findings:    []Finding{},
		Period:      q.Period,
		TenantID:    q.TenantID,
		GeneratedAt: s.now().UTC(),
	}
	for i, c := range checks {
		out := outcomes[i]
		res := CheckResult{
			Name:     c.name,
			Status:   out.status,
			Message:  out.message,
			Findings: len(out.findings),
		}
		if out.err != nil {
			res.Error = out.err.Error()
		}
		if q.IncludeDetailedAudit {
			ms := durations[i].Milliseconds()
			res.DurationMS = &ms
		}
		switch out.status {
		case StatusPassed:
			data.Summary.Passed++
		case StatusFailed:
			data.Summary.Failed++
		default:
			data.Summary.Inconclusive++
		}
		if out.balance != nil {
			data.Balance = out.balance
		}
		data.Checks = append(data.Checks, res)
		data.Findings = append(data.Findings, out.findings...)
	}
	data.IsValid = data.Summary.Passed == TotalChecks
	return ValidationResponse{Success: true, Data: data}
}

func (s *ValidationService) runIsolated(ctx context.Context, name string, fn checkFunc, q ValidationQuery) (out checkOutcome) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("validation check panicked", zap.String("check", name), zap.Any("panic", r))
			out = checkOutcome{status: StatusInconclusive, message: "check aborted", err: fmt.Errorf("panic: %v", r)}
		}
		if out.status != StatusPassed {
			observability.IncrementValidationFailure(name, string(out.status))
		}
	}()

	stepCtx, cancel := withStepTimeout(ctx, s.timeout)
	defer cancel()
	return fn(stepCtx, q)
}

func inconclusive(err error) checkOutcome {
	return checkOutcome{status: StatusInconclusive, message: "store unavailable, re-run the validation", err: err}
}

func (s *ValidationService) checkReferentialIntegrity(ctx context.Context, q ValidationQuery) checkOutcome {
	refs, err := s.store.ListDanglingReferences(ctx, q.TenantID, q.Period.From, q.Period.To)
	if err != nil {
		return inconclusive(err)
	}
	if len(refs) == 0 {
		return checkOutcome{status: StatusPassed, message: "all references resolve"}
	}
	findings := make([]Finding, 0, len(refs))
	for _, ref := range refs {
		findings = append(findings, Finding{
			Check:    CheckReferentialIntegrity,
			Severity: SeverityError,
			EntryID:  ref.EntityID,
			Value:    ref.MissingID,
			Date:     ref.Date.Format(domain.PaymentDateLayout),
			Message:  danglingMessage(ref),
		})
	}
	return checkOutcome{status: StatusFailed, message: fmt.Sprintf("%d dangling references", len(refs)), findings: findings}
}

func danglingMessage(ref models.DanglingReference) string {
	switch ref.Kind {
	case models.RefDebitAccount:
		return "ledger entry debits a missing account"
	case models.RefCreditAccount:
		return "ledger entry credits a missing account"
	case models.RefRevenueClient:
		return "revenue references an unknown customer"
	case models.RefRevenueEntry:
		return "revenue references a missing ledger entry"
	}
	return "dangling reference: " + ref.Kind
}

func (s *ValidationService) checkBalance(ctx context.Context, q ValidationQuery) checkOutcome {
	lines, err := s.store.ListLedgerLines(ctx, q.TenantID, q.Period.From, q.Period.To)
	if err != nil {
		return inconclusive(err)
	}

	totals := &BalanceTotals{TotalDebits: decimal.Zero, TotalCredits: decimal.Zero}
	var findings []Finding
	for _, line := range lines {
		amount, err := domain.ParseAmount(line.Amount)
		if err != nil {
			findings = append(findings, Finding{
				Check:    CheckDebitCreditBalance,
				Severity: SeverityWarning,
				EntryID:  line.EntryID.String(),
				Value:    line.Amount,
				Date:     line.Date.Format(domain.PaymentDateLayout),
				Message:  "line amount not numeric, excluded from totals",
			})
			continue
		}
		switch line.Direction {
		case domain.DirectionDebit:
			totals.TotalDebits = totals.TotalDebits.Add(amount)
		case domain.DirectionCredit:
			totals.TotalCredits = totals.TotalCredits.Add(amount)
		}
	}
	totals.Difference = totals.TotalDebits.Sub(totals.TotalCredits)

	if totals.Difference.IsZero() {
		return checkOutcome{
			status:   StatusPassed,
			message:  fmt.Sprintf("debits equal credits (%s)", totals.TotalDebits.StringFixed(2)),
			findings: findings,
			balance:  totals,
		}
	}
	findings = append(findings, Finding{
		Check:    CheckDebitCreditBalance,
		Severity: SeverityError,
		Value:    totals.Difference.StringFixed(2),
		Message:  fmt.Sprintf("debits %s differ from credits %s", totals.TotalDebits.StringFixed(2), totals.TotalCredits.StringFixed(2)),
	})
	return checkOutcome{status: StatusFailed, message: "ledger out of balance", findings: findings, balance: totals}
}

func (s *ValidationService) checkInvalidValues(ctx context.Context, q ValidationQuery) checkOutcome {
	records, err := s.store.ListLedgerEntries(ctx, q.TenantID, q.Period.From, q.Period.To)
	if err != nil {
		return inconclusive(err)
	}
	var findings []Finding
	for _, r := range records {
		amount, err := domain.ParseAmount(r.Amount)
		msg := ""
		switch {
		case err != nil:
			msg = "amount is not numeric"
		case !amount.IsPositive():
			msg = "amount must be greater than zero"
		}
		if msg == "" {
			continue
		}
		findings = append(findings, entryFinding(CheckInvalidValues, SeverityError, r, msg))
	}
	if len(findings) == 0 {
		return checkOutcome{status: StatusPassed, message: "all amounts valid"}
	}
	return checkOutcome{status: StatusFailed, message: fmt.Sprintf("%d invalid amounts", len(findings)), findings: findings}
}

// checkOutliers flags high values for review; it passes regardless.
func (s *ValidationService) checkOutliers(ctx context.Context, q ValidationQuery) checkOutcome {
	records, err := s.store.ListLedgerEntries(ctx, q.TenantID, q.Period.From, q.Period.To)
	if err != nil {
		return inconclusive(err)
	}
	var findings []Finding
	for _, r := range records {
		amount, err := domain.ParseAmount(r.Amount)
		if err != nil || amount.LessThanOrEqual(s.threshold) {
			continue
		}
		findings = append(findings, entryFinding(CheckOutlierValues, SeverityWarning, r,
			fmt.Sprintf("amount above review threshold %s", s.threshold.StringFixed(2))))
	}
	msg := "no values above threshold"
	if len(findings) > 0 {
		msg = fmt.Sprintf("%d values flagged for review", len(findings))
	}
	return checkOutcome{status: StatusPassed, message: msg, findings: findings}
}

// checkAnomalies looks for entries that repeat date, amount, both accounts and description.
func (s *ValidationService) checkAnomalies(ctx context.Context, q ValidationQuery) checkOutcome {
	records, err := s.store.ListLedgerEntries(ctx, q.TenantID, q.Period.From, q.Period.To)
	if err != nil {
		return inconclusive(err)
	}
	seen := make(map[string]models.LedgerEntryRecord, len(records))
	var findings []Finding
	for _, r := range records {
		key := duplicateKey(r)
		first, dup := seen[key]
		if !dup {
			seen[key] = r
			continue
		}
		findings = append(findings, entryFinding(CheckAnomalies, SeverityError, r,
			"possible duplicate of entry "+first.ID.String()))
	}
	if len(findings) == 0 {
		return checkOutcome{status: StatusPassed, message: "no duplicate-looking entries"}
	}
	return checkOutcome{status: StatusFailed, message: fmt.Sprintf("%d duplicate-looking entries", len(findings)), findings: findings}
}

func duplicateKey(r models.LedgerEntryRecord) string {
	amount := strings.TrimSpace(r.Amount)
	if d, err := domain.ParseAmount(r.Amount); err == nil {
		amount = d.StringFixed(2)
	}
	return strings.Join([]string{
		r.Date.Format(domain.PaymentDateLayout),
		amount,
		optionalIDString(r.DebitAccountID),
		optionalIDString(r.CreditAccountID),
		strings.ToLower(strings.TrimSpace(r.Description)),
	}, "|")
}

// checkCompleteness expects at least one entry on every business day
// (Monday to Saturday) of the period that is not in the future.
func (s *ValidationService) checkCompleteness(ctx context.Context, q ValidationQuery) checkOutcome {
	records, err := s.store.ListLedgerEntries(ctx, q.TenantID, q.Period.From, q.Period.To)
	if err != nil {
		return inconclusive(err)
	}
	days := make(map[string]struct{}, len(records))
	for _, r := range records {
		days[r.Date.Format(domain.PaymentDateLayout)] = struct{}{}
	}

	var findings []Finding
	for _, day := range businessDays(q.Period, s.now()) {
		key := day.Format(domain.PaymentDateLayout)
		if _, ok := days[key]; ok {
			continue
		}
		findings = append(findings, Finding{
			Check:    CheckCompleteness,
			Severity: SeverityError,
			Date:     key,
			Message:  "no ledger entries on business day",
		})
	}
	if len(findings) == 0 {
		return checkOutcome{status: StatusPassed, message: "every business day has entries"}
	}
	return checkOutcome{status: StatusFailed, message: fmt.Sprintf("%d business days without entries", len(findings)), findings: findings}
}

func businessDays(p Period, now time.Time) []time.Time {
	start := dateOnly(p.From)
	end := dateOnly(p.To)
	if today := dateOnly(now); end.After(today) {
		end = today
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func entryFinding(check, severity string, r models.LedgerEntryRecord, msg string) Finding {
	return Finding{
		Check:     check,
		Severity:  severity,
		EntryID:   r.ID.String(),
		AccountID: optionalIDString(r.DebitAccountID),
		Value:     r.Amount,
		Date:      r.Date.Format(domain.PaymentDateLayout),
		Message:   msg,
	}
}

func optionalIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// ErrValidationFailed is returned by batch runs when any tenant is not valid.
var ErrValidationFailed = errors.New("financial validation failed")


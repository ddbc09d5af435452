package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/ayo6706/salon-ledger/internal/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultAuditTrailConcurrency = 4

// Period is an inclusive range of competence dates.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (p Period) Validate() error {
	if p.From.IsZero() || p.To.IsZero() {
		return errors.New("period from and to are required")
	}
	if p.To.Before(p.From) {
		return errors.New("period to must not be before from")
	}
	return nil
}

type DREQuery struct {
	Period            Period
	TenantID          uuid.UUID
	IncludeAuditTrail bool
	Actor             string
}

type DREAccountLine struct {
	AccountID uuid.UUID       `json:"conta_id"`
	Code      string          `json:"codigo"`
	Name      string          `json:"nome"`
	Type      string          `json:"tipo"`
	Value     decimal.Decimal `json:"valor"`
}

type DRERevenue struct {
	Gross   decimal.Decimal  `json:"receita_bruta"`
	Net     decimal.Decimal  `json:"receita_liquida"`
	Details []DREAccountLine `json:"detalhes"`
}

type DREGroup struct {
	Total   decimal.Decimal  `json:"total"`
	Details []DREAccountLine `json:"detalhes"`
}

type DREResult struct {
	OperatingResult decimal.Decimal `json:"resultado_operacional"`
	TaxRate         decimal.Decimal `json:"aliquota_imposto"`
	Tax             decimal.Decimal `json:"imposto"`
	NetProfit       decimal.Decimal `json:"lucro_liquido"`
}

type AuditTrailEntry struct {
	EntryID     uuid.UUID       `json:"lancamento_id"`
	Date        string          `json:"data_competencia"`
	Description string          `json:"historico"`
	Direction   string          `json:"natureza"`
	Amount      decimal.Decimal `json:"valor"`
}

// AuditTrailAccount lists the entries behind one account's balance.
// Unavailable is set when they could not be fetched.
type AuditTrailAccount struct {
	AccountID   uuid.UUID         `json:"conta_id"`
	Code        string            `json:"codigo"`
	Name        string            `json:"nome"`
	Entries     []AuditTrailEntry `json:"lancamentos"`
	Unavailable bool              `json:"indisponivel,omitempty"`
}

type DREData struct {
	Period     Period              `json:"period"`
	TenantID   uuid.UUID           `json:"unidade_id"`
	Receitas   DRERevenue          `json:"receitas"`
	Custos     DREGroup            `json:"custos"`
	Despesas   DREGroup            `json:"despesas"`
	Resultado  DREResult           `json:"resultado"`
	AuditTrail []AuditTrailAccount `json:"audit_trail,omitempty"`
}

type DREResponse struct {
	Success bool     `json:"success"`
	Data    *DREData `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ReportCache stores rendered report payloads.
type ReportCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type ReportConfig struct {
	StepTimeout           time.Duration
	AuditTrailConcurrency int
}

// ReportService builds the DRE (income statement) from period balances.
type ReportService struct {
	store       ReportStore
	audit       *AuditService
	cache       ReportCache
	timeout     time.Duration
	concurrency int
}

func NewReportService(store ReportStore, audit *AuditService, cache ReportCache, cfg ReportConfig) *ReportService {
	if cfg.AuditTrailConcurrency <= 0 {
		cfg.AuditTrailConcurrency = defaultAuditTrailConcurrency
	}
	return &ReportService{
		store:       store,
		audit:       audit,
		cache:       cache,
		timeout:     cfg.StepTimeout,
		concurrency: cfg.AuditTrailConcurrency,
	}
}

// GetDREData never returns an error: failures come back as {success:false}.
func (s *ReportService) GetDREData(ctx context.Context, q DREQuery) DREResponse {
	data, err := s.buildDRE(ctx, q)
	if err != nil {
		zap.L().Error("dre generation failed",
			zap.String("unidade_id", q.TenantID.String()),
			zap.Error(err))
		return DREResponse{Success: false, Error: MsgReportUnavailable}
	}

	actor := q.Actor
	if actor == "" {
		actor = "anonymous"
	}
	s.audit.Emit(ctx, domain.EntityReport, "dre:"+q.TenantID.String(), actor, domain.AuditActionGenerated, "generated",
		map[string]any{
			"from":          q.Period.From.Format(domain.PaymentDateLayout),
			"to":            q.Period.To.Format(domain.PaymentDateLayout),
			"audit_trail":   q.IncludeAuditTrail,
			"receita_bruta": data.Receitas.Gross.StringFixed(2),
			"lucro_liquido": data.Resultado.NetProfit.StringFixed(2),
		})
	return DREResponse{Success: true, Data: data}
}

func (s *ReportService) buildDRE(ctx context.Context, q DREQuery) (*DREData, error) {
	if q.TenantID == uuid.Nil {
		return nil, newPipelineError(KindReportUnavailable, MsgReportUnavailable, errors.New("unidade_id is required"))
	}
	if err := q.Period.Validate(); err != nil {
		return nil, newPipelineError(KindReportUnavailable, MsgReportUnavailable, err)
	}

	key := dreCacheKey(q)
	if s.cache != nil {
		var cached DREData
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			zap.L().Warn("report cache read failed", zap.Error(err))
		} else if hit {
			observability.IncrementReportCacheEvent("hit")
			return &cached, nil
		}
		observability.IncrementReportCacheEvent("miss")
	}

	stepCtx, cancel := withStepTimeout(ctx, s.timeout)
	rows, err := s.store.GetAccountBalances(stepCtx, q.TenantID, q.Period.From, q.Period.To)
	cancel()
	if err != nil {
		return nil, newPipelineError(KindReportUnavailable, MsgReportUnavailable, err)
	}

	data := aggregateDRE(rows)
	data.Period = q.Period
	data.TenantID = q.TenantID

	if q.IncludeAuditTrail {
		data.AuditTrail = s.auditTrail(ctx, q, data)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, data); err != nil {
			zap.L().Warn("report cache write failed", zap.Error(err))
		}
	}
	return data, nil
}

// aggregateDRE turns raw balance rows into the income statement. Amounts are
// parsed here and nowhere else; unparseable values count as zero.
func aggregateDRE(rows []models.AccountBalanceRow) *DREData {
	data := &DREData{
		Receitas: DRERevenue{Gross: decimal.Zero, Details: []DREAccountLine{}},
		Custos:   DREGroup{Total: decimal.Zero, Details: []DREAccountLine{}},
		Despesas: DREGroup{Total: decimal.Zero, Details: []DREAccountLine{}},
	}

	sorted := make([]models.AccountBalanceRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	for _, row := range sorted {
		line := DREAccountLine{
			AccountID: row.AccountID,
			Code:      row.Code,
			Name:      row.Name,
			Type:      row.Type,
			Value:     accountAmount(row),
		}
		switch row.Type {
		case domain.AccountTypeRevenue:
			data.Receitas.Gross = data.Receitas.Gross.Add(line.Value)
			data.Receitas.Details = append(data.Receitas.Details, line)
		case domain.AccountTypeCost:
			data.Custos.Total = data.Custos.Total.Add(line.Value)
			data.Custos.Details = append(data.Custos.Details, line)
		case domain.AccountTypeExpense:
			data.Despesas.Total = data.Despesas.Total.Add(line.Value)
			data.Despesas.Details = append(data.Despesas.Details, line)
		}
	}

	// No deductions are modeled: net revenue equals gross revenue.
	data.Receitas.Net = data.Receitas.Gross

	result := data.Receitas.Gross.Sub(data.Custos.Total).Sub(data.Despesas.Total)
	tax := result.Mul(domain.SimplifiedTaxRate)
	data.Resultado = DREResult{
		OperatingResult: result,
		TaxRate:         domain.SimplifiedTaxRate,
		Tax:             tax,
		NetProfit:       result.Sub(tax),
	}
	return data
}

// accountAmount prefers the procedure's final balance and falls back to the
// natural-side difference of the debit and credit balances.
func accountAmount(row models.AccountBalanceRow) decimal.Decimal {
	if row.FinalBalance != nil {
		if final, err := domain.ParseAmount(*row.FinalBalance); err == nil {
			return final
		}
	}
	debit := domain.ParseAmountOrZero(row.DebitBalance)
	credit := domain.ParseAmountOrZero(row.CreditBalance)
	if row.Type == domain.AccountTypeRevenue || row.Type == domain.AccountTypeLiability {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// auditTrail fetches each account's entries concurrently. A failed fetch marks
// that account unavailable and leaves the rest of the report intact.
func (s *ReportService) auditTrail(ctx context.Context, q DREQuery, data *DREData) []AuditTrailAccount {
	var lines []DREAccountLine
	lines = append(lines, data.Receitas.Details...)
	lines = append(lines, data.Custos.Details...)
	lines = append(lines, data.Despesas.Details...)

	trail := make([]AuditTrailAccount, len(lines))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, line := range lines {
		g.Go(func() error {
			trail[i] = s.accountTrail(ctx, q, line)
			return nil
		})
	}
	_ = g.Wait()
	return trail
}

func (s *ReportService) accountTrail(ctx context.Context, q DREQuery, line DREAccountLine) (item AuditTrailAccount) {
	item = AuditTrailAccount{AccountID: line.AccountID, Code: line.Code, Name: line.Name, Entries: []AuditTrailEntry{}}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("audit trail fetch panicked", zap.String("conta_id", line.AccountID.String()), zap.Any("panic", r))
			item.Entries = []AuditTrailEntry{}
			item.Unavailable = true
		}
	}()

	stepCtx, cancel := withStepTimeout(ctx, s.timeout)
	defer cancel()
	entries, err := s.store.ListAccountEntries(stepCtx, q.TenantID, line.AccountID, q.Period.From, q.Period.To)
	if err != nil {
		zap.L().Warn("audit trail unavailable for account",
			zap.String("conta_id", line.AccountID.String()),
			zap.Error(err))
		item.Unavailable = true
		return item
	}
	for _, e := range entries {
		direction := domain.DirectionCredit
		if e.DebitAccountID == line.AccountID {
			direction = domain.DirectionDebit
		}
		item.Entries = append(item.Entries, AuditTrailEntry{
			EntryID:     e.ID,
			Date:        e.CompetenceDate.Format(domain.PaymentDateLayout),
			Description: e.Description,
			Direction:   direction,
			Amount:      e.Amount,
		})
	}
	return item
}

func dreCacheKey(q DREQuery) string {
	return fmt.Sprintf("%s/dre:%s:%s:%s:%t",
		domain.RouteFinancialReports,
		q.TenantID,
		q.Period.From.Format(domain.PaymentDateLayout),
		q.Period.To.Format(domain.PaymentDateLayout),
		q.IncludeAuditTrail)
}

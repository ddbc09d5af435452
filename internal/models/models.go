package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a row of the chart of accounts (contas_contabeis).
type Account struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"codigo"`
	Name   string    `json:"nome"`
	Type   string    `json:"tipo"` // receita, despesa, custo, ativo, passivo
	Active bool      `json:"ativo"`
}

// LedgerEntry is one balanced double-entry record (lancamentos_contabeis):
// the same amount is debited to one account and credited to another.
type LedgerEntry struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        uuid.UUID       `json:"unidade_id"`
	DebitAccountID  uuid.UUID       `json:"conta_debito_id"`
	CreditAccountID uuid.UUID       `json:"conta_credito_id"`
	Amount          decimal.Decimal `json:"valor"`
	CompetenceDate  time.Time       `json:"data_competencia"`
	Description     string          `json:"historico"`
	CreatedAt       time.Time       `json:"created_at"`
}

// AutomaticRevenue links an external payment to the ledger entry it produced (receitas_automaticas).
type AutomaticRevenue struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"unidade_id"`
	PaymentID     string          `json:"payment_id"`
	CustomerID    string          `json:"customer_id"`
	Value         decimal.Decimal `json:"value"`
	Description   string          `json:"description"`
	LedgerEntryID uuid.UUID       `json:"lancamento_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Client struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"nome"`
	AsaasCustomerID string    `json:"asaas_customer_id"`
	TenantID        uuid.UUID `json:"unidade_id"`
}

// AccountBalanceRow is one row of the period aggregation procedure.
// Balances stay raw text here; they are parsed once by the report service.
type AccountBalanceRow struct {
	AccountID     uuid.UUID
	Code          string
	Name          string
	Type          string
	DebitBalance  *string
	CreditBalance *string
	FinalBalance  *string
}

// LedgerLine is one side (debit or credit) of a ledger entry with its raw amount text.
type LedgerLine struct {
	EntryID     uuid.UUID
	AccountID   uuid.UUID
	Direction   string
	Amount      string
	Date        time.Time
	Description string
}

// LedgerEntryRecord is a ledger entry as read back for validation, amount unparsed.
type LedgerEntryRecord struct {
	ID              uuid.UUID
	DebitAccountID  *uuid.UUID
	CreditAccountID *uuid.UUID
	Amount          string
	Date            time.Time
	Description     string
}

const (
	RefDebitAccount  = "ledger_debit_account"
	RefCreditAccount = "ledger_credit_account"
	RefRevenueClient = "revenue_client"
	RefRevenueEntry  = "revenue_ledger_entry"
)

// DanglingReference describes a row pointing at something that does not exist.
type DanglingReference struct {
	Kind      string    `json:"kind"`
	EntityID  string    `json:"entity_id"`
	MissingID string    `json:"missing_id"`
	Date      time.Time `json:"date"`
}

// AuditEvent is a single immutable audit_log record.
type AuditEvent struct {
	EntityType string
	EntityID   string
	Actor      string
	Action     string
	PrevState  string
	NextState  string
	Metadata   []byte
	CreatedAt  time.Time
}

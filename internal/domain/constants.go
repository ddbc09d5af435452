package domain

import "github.com/shopspring/decimal"

// Chart-of-accounts types as stored in contas_contabeis.tipo.
const (
	AccountTypeRevenue   = "receita"
	AccountTypeExpense   = "despesa"
	AccountTypeCost      = "custo"
	AccountTypeAsset     = "ativo"
	AccountTypeLiability = "passivo"
)

// Well-known account codes used by the revenue pipeline (overridable via config).
const (
	DefaultRevenueAccountCode = "4.1.1.1"
	DefaultCashAccountCode    = "1.1.1.1"
)

const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"

	// Asaas webhook events that confirm money has been received.
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentReceived  = "PAYMENT_RECEIVED"

	PaymentDateLayout = "2006-01-02"

	// Report routes whose cached pages go stale when revenue is recorded.
	RouteFinancialReports = "/reports/financial"
	RouteDashboard        = "/dashboard"

	ActorAsaasWebhook    = "system:asaas-webhook"
	ActorValidatorWorker = "system:validation-worker"

	// Audit entity types and actions.
	EntityAutomaticRevenue = "automatic_revenue"
	EntityLedgerEntry      = "ledger_entry"
	EntityReport           = "report"

	AuditActionCreated     = "created"
	AuditActionFailed      = "failed"
	AuditActionCompensated = "compensated"
	AuditActionGenerated   = "generated"
)

// SimplifiedTaxRate is applied only to the final result line of the DRE.
// Net revenue equals gross revenue and no other deductions are modeled;
// this mirrors the legacy report and is likely a placeholder for real tax rules.
var SimplifiedTaxRate = decimal.RequireFromString("0.25")

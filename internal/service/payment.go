package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Payment is a provider-confirmed payment. Value is in minor units (cents).
type Payment struct {
	ID          string
	CustomerID  string
	ValueMinor  int64
	Description string
	Date        time.Time
	BillingType string
}

// Amount is the payment value in decimal currency: 50000 becomes 500.00.
func (p Payment) Amount() decimal.Decimal {
	return domain.FromMinorUnits(p.ValueMinor)
}

func (p Payment) validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return newPipelineError(KindInvalidPayment, "payment id is required", nil)
	}
	if p.ValueMinor <= 0 {
		return newPipelineError(KindInvalidPayment, fmt.Sprintf("invalid payment value: %d", p.ValueMinor), nil)
	}
	if p.Date.IsZero() {
		return newPipelineError(KindInvalidPayment, "payment date is required", nil)
	}
	return nil
}

// ledgerDescription is the historico written on the entry.
func (p Payment) ledgerDescription() string {
	if d := strings.TrimSpace(p.Description); d != "" {
		return d
	}
	return "Recebimento Asaas " + p.ID
}

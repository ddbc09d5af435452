package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process implementation of the ledger tables used for
// local development (STORE_DRIVER=memory) and service tests. It mirrors the
// Postgres store's semantics, including the unique payment_id index.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]models.Account
	clients  map[string]models.Client
	entries  map[uuid.UUID]models.LedgerEntry
	revenues map[string]models.AutomaticRevenue
	audit    []models.AuditEvent
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[uuid.UUID]models.Account),
		clients:  make(map[string]models.Client),
		entries:  make(map[uuid.UUID]models.LedgerEntry),
		revenues: make(map[string]models.AutomaticRevenue),
		now:      time.Now,
	}
}

// SeedChartOfAccounts loads the accounts the revenue pipeline and the DRE expect.
func (m *MemoryStore) SeedChartOfAccounts() {
	for _, a := range []models.Account{
		{Code: domain.DefaultCashAccountCode, Name: "Caixa e Bancos", Type: domain.AccountTypeAsset, Active: true},
		{Code: domain.DefaultRevenueAccountCode, Name: "Receita de Serviços", Type: domain.AccountTypeRevenue, Active: true},
		{Code: "4.1.1.2", Name: "Receita de Produtos", Type: domain.AccountTypeRevenue, Active: true},
		{Code: "5.1.1.1", Name: "Custo dos Produtos Vendidos", Type: domain.AccountTypeCost, Active: true},
		{Code: "6.1.1.1", Name: "Comissões", Type: domain.AccountTypeExpense, Active: true},
		{Code: "6.1.2.1", Name: "Aluguel", Type: domain.AccountTypeExpense, Active: true},
	} {
		m.PutAccount(a)
	}
}

// PutAccount inserts or replaces an account, assigning an id when missing.
func (m *MemoryStore) PutAccount(a models.Account) models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.accounts[a.ID] = a
	return a
}

func (m *MemoryStore) PutClient(c models.Client) models.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.clients[c.AsaasCustomerID] = c
	return c
}

// AuditEvents returns a copy of every audit event written so far.
func (m *MemoryStore) AuditEvents() []models.AuditEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AuditEvent, len(m.audit))
	copy(out, m.audit)
	return out
}

// EntryCount returns the number of ledger entries held.
func (m *MemoryStore) EntryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) GetRevenueByPaymentID(_ context.Context, paymentID string) (*models.AutomaticRevenue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rev, ok := m.revenues[paymentID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rev, nil
}

func (m *MemoryStore) CreateAutomaticRevenue(_ context.Context, rev *models.AutomaticRevenue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.revenues[rev.PaymentID]; exists {
		return ErrUniqueViolation
	}
	if rev.ID == uuid.Nil {
		rev.ID = uuid.New()
	}
	rev.Value = rev.Value.Round(2)
	rev.CreatedAt = m.now()
	m.revenues[rev.PaymentID] = *rev
	return nil
}

func (m *MemoryStore) GetClientByCustomerID(_ context.Context, customerID string) (*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) GetActiveAccountByCode(_ context.Context, code string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Code == code && a.Active {
			a := a
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateLedgerEntry(_ context.Context, entry *models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if _, exists := m.entries[entry.ID]; exists {
		return ErrUniqueViolation
	}
	entry.Amount = entry.Amount.Round(2)
	entry.CreatedAt = m.now()
	m.entries[entry.ID] = *entry
	return nil
}

func (m *MemoryStore) GetLedgerEntry(_ context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) DeleteLedgerEntry(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return nil
	}
	for _, rev := range m.revenues {
		if rev.LedgerEntryID == id {
			return ErrEntryReferenced
		}
	}
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) InsertAuditLog(_ context.Context, ev models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.CreatedAt = m.now()
	m.audit = append(m.audit, ev)
	return nil
}

// periodEntries returns the tenant's entries with competence date in [from, to], ordered.
func (m *MemoryStore) periodEntries(tenantID uuid.UUID, from, to time.Time) []models.LedgerEntry {
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.TenantID != tenantID || !withinDays(e.CompetenceDate, from, to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompetenceDate.Equal(out[j].CompetenceDate) {
			return out[i].CompetenceDate.Before(out[j].CompetenceDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (m *MemoryStore) ListAccountEntries(_ context.Context, tenantID, accountID uuid.UUID, from, to time.Time) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.LedgerEntry
	for _, e := range m.periodEntries(tenantID, from, to) {
		if e.DebitAccountID == accountID || e.CreditAccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListLedgerEntries(_ context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.LedgerEntryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.LedgerEntryRecord
	for _, e := range m.periodEntries(tenantID, from, to) {
		debit, credit := e.DebitAccountID, e.CreditAccountID
		out = append(out, models.LedgerEntryRecord{
			ID:              e.ID,
			DebitAccountID:  optionalID(debit),
			CreditAccountID: optionalID(credit),
			Amount:          e.Amount.StringFixed(2),
			Date:            e.CompetenceDate,
			Description:     e.Description,
		})
	}
	return out, nil
}

func (m *MemoryStore) ListLedgerLines(_ context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.LedgerLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.LedgerLine
	for _, e := range m.periodEntries(tenantID, from, to) {
		amount := e.Amount.StringFixed(2)
		if e.DebitAccountID != uuid.Nil {
			out = append(out, models.LedgerLine{EntryID: e.ID, AccountID: e.DebitAccountID, Direction: domain.DirectionDebit, Amount: amount, Date: e.CompetenceDate, Description: e.Description})
		}
		if e.CreditAccountID != uuid.Nil {
			out = append(out, models.LedgerLine{EntryID: e.ID, AccountID: e.CreditAccountID, Direction: domain.DirectionCredit, Amount: amount, Date: e.CompetenceDate, Description: e.Description})
		}
	}
	return out, nil
}

func (m *MemoryStore) ListTenantsWithActivity(_ context.Context, from, to time.Time) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, e := range m.entries {
		if !withinDays(e.CompetenceDate, from, to) {
			continue
		}
		if _, ok := seen[e.TenantID]; ok {
			continue
		}
		seen[e.TenantID] = struct{}{}
		out = append(out, e.TenantID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// GetAccountBalances reproduces fn_saldos_contas_periodo: one row per active
// account with debit, credit and natural-side final balances as text.
func (m *MemoryStore) GetAccountBalances(_ context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.AccountBalanceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	debits := make(map[uuid.UUID]decimal.Decimal)
	credits := make(map[uuid.UUID]decimal.Decimal)
	for _, e := range m.periodEntries(tenantID, from, to) {
		debits[e.DebitAccountID] = debits[e.DebitAccountID].Add(e.Amount)
		credits[e.CreditAccountID] = credits[e.CreditAccountID].Add(e.Amount)
	}

	var rows []models.AccountBalanceRow
	for _, a := range m.accounts {
		if !a.Active {
			continue
		}
		d, c := debits[a.ID], credits[a.ID]
		final := d.Sub(c)
		if a.Type == domain.AccountTypeRevenue || a.Type == domain.AccountTypeLiability {
			final = c.Sub(d)
		}
		ds, cs, fs := d.StringFixed(2), c.StringFixed(2), final.StringFixed(2)
		rows = append(rows, models.AccountBalanceRow{
			AccountID:     a.ID,
			Code:          a.Code,
			Name:          a.Name,
			Type:          a.Type,
			DebitBalance:  &ds,
			CreditBalance: &cs,
			FinalBalance:  &fs,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows, nil
}

func (m *MemoryStore) ListDanglingReferences(_ context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.DanglingReference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var refs []models.DanglingReference
	for _, e := range m.periodEntries(tenantID, from, to) {
		if _, ok := m.accounts[e.DebitAccountID]; e.DebitAccountID != uuid.Nil && !ok {
			refs = append(refs, models.DanglingReference{Kind: models.RefDebitAccount, EntityID: e.ID.String(), MissingID: e.DebitAccountID.String(), Date: e.CompetenceDate})
		}
		if _, ok := m.accounts[e.CreditAccountID]; e.CreditAccountID != uuid.Nil && !ok {
			refs = append(refs, models.DanglingReference{Kind: models.RefCreditAccount, EntityID: e.ID.String(), MissingID: e.CreditAccountID.String(), Date: e.CompetenceDate})
		}
	}
	for _, rev := range m.revenues {
		if rev.TenantID != tenantID {
			continue
		}
		entry, hasEntry := m.entries[rev.LedgerEntryID]
		date := rev.CreatedAt
		if hasEntry {
			date = entry.CompetenceDate
		}
		if !withinDays(date, from, to) {
			continue
		}
		if _, ok := m.clients[rev.CustomerID]; rev.CustomerID != "" && !ok {
			refs = append(refs, models.DanglingReference{Kind: models.RefRevenueClient, EntityID: rev.ID.String(), MissingID: rev.CustomerID, Date: date})
		}
		if !hasEntry {
			refs = append(refs, models.DanglingReference{Kind: models.RefRevenueEntry, EntityID: rev.ID.String(), MissingID: rev.LedgerEntryID.String(), Date: date})
		}
	}
	return refs, nil
}

func withinDays(t, from, to time.Time) bool {
	d := truncateDay(t)
	return !d.Before(truncateDay(from)) && !d.After(truncateDay(to))
}

func truncateDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

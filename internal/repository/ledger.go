package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/salon-ledger/internal/domain"
	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (q *Queries) CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	query := `
		INSERT INTO lancamentos_contabeis (id, unidade_id, conta_debito_id, conta_credito_id, valor, data_competencia, historico, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, NOW())
		RETURNING created_at
	`
	err := q.db.QueryRow(ctx, query,
		entry.ID, entry.TenantID, entry.DebitAccountID, entry.CreditAccountID,
		entry.Amount.StringFixed(2), entry.CompetenceDate, entry.Description,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("create ledger entry: %w", translate(err))
	}
	return nil
}

func (q *Queries) GetLedgerEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	query := `
		SELECT id, unidade_id, conta_debito_id, conta_credito_id, valor::text, data_competencia, COALESCE(historico, ''), created_at
		FROM lancamentos_contabeis
		WHERE id = $1
	`
	var (
		e      models.LedgerEntry
		amount string
	)
	err := q.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.TenantID, &e.DebitAccountID, &e.CreditAccountID, &amount, &e.CompetenceDate, &e.Description, &e.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse ledger amount: %w", err)
	}
	return &e, nil
}

// ListAccountEntries returns the entries touching accountID (either leg) in the period.
func (q *Queries) ListAccountEntries(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, unidade_id, conta_debito_id, conta_credito_id, valor::text, data_competencia, COALESCE(historico, ''), created_at
		FROM lancamentos_contabeis
		WHERE unidade_id = $1
		  AND (conta_debito_id = $2 OR conta_credito_id = $2)
		  AND data_competencia BETWEEN $3 AND $4
		ORDER BY data_competencia, created_at
	`
	rows, err := q.db.Query(ctx, query, tenantID, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list account entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			e      models.LedgerEntry
			amount string
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.DebitAccountID, &e.CreditAccountID, &amount, &e.CompetenceDate, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Amount = domain.ParseAmountOrZero(&amount)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListLedgerEntries returns the period's entries with raw amount text, for validation.
func (q *Queries) ListLedgerEntries(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.LedgerEntryRecord, error) {
	query := `
		SELECT id, conta_debito_id, conta_credito_id, COALESCE(valor::text, ''), data_competencia, COALESCE(historico, '')
		FROM lancamentos_contabeis
		WHERE unidade_id = $1 AND data_competencia BETWEEN $2 AND $3
		ORDER BY data_competencia, id
	`
	rows, err := q.db.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var records []models.LedgerEntryRecord
	for rows.Next() {
		var r models.LedgerEntryRecord
		if err := rows.Scan(&r.ID, &r.DebitAccountID, &r.CreditAccountID, &r.Amount, &r.Date, &r.Description); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListLedgerLines expands each entry into its debit and credit lines.
// A missing leg produces no line, which shows up as an imbalance.
func (q *Queries) ListLedgerLines(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.LedgerLine, error) {
	query := `
		SELECT id, conta_debito_id, 'debit', COALESCE(valor::text, ''), data_competencia, COALESCE(historico, '')
		FROM lancamentos_contabeis
		WHERE unidade_id = $1 AND data_competencia BETWEEN $2 AND $3 AND conta_debito_id IS NOT NULL
		UNION ALL
		SELECT id, conta_credito_id, 'credit', COALESCE(valor::text, ''), data_competencia, COALESCE(historico, '')
		FROM lancamentos_contabeis
		WHERE unidade_id = $1 AND data_competencia BETWEEN $2 AND $3 AND conta_credito_id IS NOT NULL
	`
	rows, err := q.db.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list ledger lines: %w", err)
	}
	defer rows.Close()

	var lines []models.LedgerLine
	for rows.Next() {
		var l models.LedgerLine
		if err := rows.Scan(&l.EntryID, &l.AccountID, &l.Direction, &l.Amount, &l.Date, &l.Description); err != nil {
			return nil, fmt.Errorf("scan ledger line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListTenantsWithActivity returns the units that have ledger entries in the period.
func (q *Queries) ListTenantsWithActivity(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `
		SELECT DISTINCT unidade_id FROM lancamentos_contabeis
		WHERE data_competencia BETWEEN $1 AND $2
		ORDER BY unidade_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/google/uuid"
)

// GetAccountBalances calls the period aggregation procedure. Balances come back as text.
func (q *Queries) GetAccountBalances(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.AccountBalanceRow, error) {
	query := `
		SELECT conta_id, codigo, nome, tipo, saldo_debito, saldo_credito, saldo_final
		FROM fn_saldos_contas_periodo($1::date, $2::date, $3::uuid)
	`
	rows, err := q.db.Query(ctx, query, from, to, tenantID)
	if err != nil {
		return nil, fmt.Errorf("aggregate account balances: %w", err)
	}
	defer rows.Close()

	var result []models.AccountBalanceRow
	for rows.Next() {
		var r models.AccountBalanceRow
		if err := rows.Scan(&r.AccountID, &r.Code, &r.Name, &r.Type, &r.DebitBalance, &r.CreditBalance, &r.FinalBalance); err != nil {
			return nil, fmt.Errorf("scan account balance: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ListDanglingReferences finds ledger entries and revenues that point at
// accounts, clients or entries that do not exist. Revenues are dated by their
// entry's competence date, or by creation when the entry is gone.
func (q *Queries) ListDanglingReferences(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.DanglingReference, error) {
	query := `
		SELECT $4::text, l.id::text, l.conta_debito_id::text, l.data_competencia
		FROM lancamentos_contabeis l
		LEFT JOIN contas_contabeis c ON c.id = l.conta_debito_id
		WHERE l.unidade_id = $1 AND l.data_competencia BETWEEN $2 AND $3
		  AND l.conta_debito_id IS NOT NULL AND c.id IS NULL
		UNION ALL
		SELECT $5::text, l.id::text, l.conta_credito_id::text, l.data_competencia
		FROM lancamentos_contabeis l
		LEFT JOIN contas_contabeis c ON c.id = l.conta_credito_id
		WHERE l.unidade_id = $1 AND l.data_competencia BETWEEN $2 AND $3
		  AND l.conta_credito_id IS NOT NULL AND c.id IS NULL
		UNION ALL
		SELECT $6::text, r.id::text, r.customer_id, COALESCE(l.data_competencia, r.created_at::date)
		FROM receitas_automaticas r
		LEFT JOIN lancamentos_contabeis l ON l.id = r.lancamento_id
		LEFT JOIN clients cl ON cl.asaas_customer_id = r.customer_id
		WHERE r.unidade_id = $1 AND COALESCE(l.data_competencia, r.created_at::date) BETWEEN $2 AND $3
		  AND COALESCE(r.customer_id, '') <> '' AND cl.id IS NULL
		UNION ALL
		SELECT $7::text, r.id::text, r.lancamento_id::text, r.created_at::date
		FROM receitas_automaticas r
		LEFT JOIN lancamentos_contabeis l ON l.id = r.lancamento_id
		WHERE r.unidade_id = $1 AND r.created_at::date BETWEEN $2 AND $3
		  AND l.id IS NULL
	`
	rows, err := q.db.Query(ctx, query, tenantID, from, to,
		models.RefDebitAccount, models.RefCreditAccount, models.RefRevenueClient, models.RefRevenueEntry)
	if err != nil {
		return nil, fmt.Errorf("list dangling references: %w", err)
	}
	defer rows.Close()

	var refs []models.DanglingReference
	for rows.Next() {
		var r models.DanglingReference
		if err := rows.Scan(&r.Kind, &r.EntityID, &r.MissingID, &r.Date); err != nil {
			return nil, fmt.Errorf("scan dangling reference: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/salon-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrEntryReferenced is returned when a ledger entry delete is refused because
// an automatic revenue still points at it.
var ErrEntryReferenced = errors.New("ledger entry is referenced by an automatic revenue")

func (q *Queries) GetRevenueByPaymentID(ctx context.Context, paymentID string) (*models.AutomaticRevenue, error) {
	query := `
		SELECT id, unidade_id, payment_id, COALESCE(customer_id, ''), valor::text, COALESCE(descricao, ''), lancamento_id, created_at
		FROM receitas_automaticas
		WHERE payment_id = $1
	`
	var (
		rev   models.AutomaticRevenue
		value string
	)
	err := q.db.QueryRow(ctx, query, paymentID).Scan(
		&rev.ID, &rev.TenantID, &rev.PaymentID, &rev.CustomerID, &value, &rev.Description, &rev.LedgerEntryID, &rev.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	if rev.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("parse revenue value: %w", err)
	}
	return &rev, nil
}

func (q *Queries) CreateAutomaticRevenue(ctx context.Context, rev *models.AutomaticRevenue) error {
	if rev.ID == uuid.Nil {
		rev.ID = uuid.New()
	}
	query := `
		INSERT INTO receitas_automaticas (id, unidade_id, payment_id, customer_id, valor, descricao, lancamento_id, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, NOW())
		RETURNING created_at
	`
	err := q.db.QueryRow(ctx, query,
		rev.ID, rev.TenantID, rev.PaymentID, rev.CustomerID, rev.Value.StringFixed(2), rev.Description, rev.LedgerEntryID,
	).Scan(&rev.CreatedAt)
	if err != nil {
		return fmt.Errorf("create automatic revenue: %w", translate(err))
	}
	return nil
}

func (q *Queries) GetClientByCustomerID(ctx context.Context, customerID string) (*models.Client, error) {
	query := `SELECT id, nome, asaas_customer_id, unidade_id FROM clients WHERE asaas_customer_id = $1`
	var c models.Client
	if err := q.db.QueryRow(ctx, query, customerID).Scan(&c.ID, &c.Name, &c.AsaasCustomerID, &c.TenantID); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (q *Queries) GetActiveAccountByCode(ctx context.Context, code string) (*models.Account, error) {
	query := `SELECT id, codigo, nome, tipo, ativo FROM contas_contabeis WHERE codigo = $1 AND ativo = TRUE`
	var a models.Account
	if err := q.db.QueryRow(ctx, query, code).Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Active); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// DeleteLedgerEntry removes an entry unless a revenue record already references it.
// Deleting an absent entry is not an error.
func (s *Store) DeleteLedgerEntry(ctx context.Context, id uuid.UUID) error {
	return s.RunInTx(ctx, func(qtx *Queries) error {
		var locked uuid.UUID
		err := qtx.db.QueryRow(ctx, `SELECT id FROM lancamentos_contabeis WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock ledger entry: %w", err)
		}

		var referenced bool
		if err := qtx.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM receitas_automaticas WHERE lancamento_id = $1)`, id).Scan(&referenced); err != nil {
			return fmt.Errorf("check ledger entry references: %w", err)
		}
		if referenced {
			return ErrEntryReferenced
		}

		if _, err := qtx.db.Exec(ctx, `DELETE FROM lancamentos_contabeis WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete ledger entry: %w", err)
		}
		return nil
	})
}

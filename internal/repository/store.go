package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres ledger store. Plain reads and writes go through the
// embedded query set; multi-statement work such as the compensating delete
// runs in RunInTx.
type Store struct {
	*Queries
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{Queries: New(db), db: db}
}

// RunInTx runs fn in a read-committed transaction, rolling back when fn fails.
func (s *Store) RunInTx(ctx context.Context, fn func(q *Queries) error) error {
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(s.Queries.WithTx(tx))
	})
}

// Ping backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned by point lookups that matched no row.
	ErrNotFound = errors.New("record not found")
	// ErrUniqueViolation is returned when an insert collides with a unique index.
	ErrUniqueViolation = errors.New("unique constraint violation")
)

const pgUniqueViolation = "23505"

// translate maps driver-level errors onto the package's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errors.Join(ErrUniqueViolation, err)
	}
	return err
}

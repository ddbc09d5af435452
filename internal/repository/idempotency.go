package repository

import (
	"context"
)

type IdempotencyKeyRow struct {
	IdempotencyKey string
	RequestHash    string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
}

type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
}

type FinalizeIdempotencyKeyParams struct {
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	IdempotencyKey string
	RequestHash    string
}

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKeyRow, error) {
	var row IdempotencyKeyRow
	err := q.db.QueryRow(ctx, `
		SELECT idempotency_key, request_hash, response_status, response_body, content_type, in_progress
		FROM idempotency_keys WHERE idempotency_key = $1
	`, key).Scan(&row.IdempotencyKey, &row.RequestHash, &row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress)
	return row, translate(err)
}

// ReserveIdempotencyKey inserts an in-progress marker. ErrNotFound means another
// request already holds the key.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (string, error) {
	var key string
	err := q.db.QueryRow(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING idempotency_key
	`, arg.IdempotencyKey, arg.RequestHash, arg.Method, arg.Path).Scan(&key)
	return key, translate(err)
}

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKeyRow, error) {
	var row IdempotencyKeyRow
	err := q.db.QueryRow(ctx, `
		UPDATE idempotency_keys
		SET response_status = $1, response_body = $2, content_type = $3, in_progress = FALSE, updated_at = NOW()
		WHERE idempotency_key = $4 AND request_hash = $5
		RETURNING idempotency_key, request_hash, response_status, response_body, content_type, in_progress
	`, arg.ResponseStatus, arg.ResponseBody, arg.ContentType, arg.IdempotencyKey, arg.RequestHash).
		Scan(&row.IdempotencyKey, &row.RequestHash, &row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress)
	return row, translate(err)
}

// ReleaseIdempotencyKey drops an in-progress reservation so the request can be retried.
func (q *Queries) ReleaseIdempotencyKey(ctx context.Context, key, requestHash string) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM idempotency_keys WHERE idempotency_key = $1 AND request_hash = $2 AND in_progress = TRUE
	`, key, requestHash)
	return err
}

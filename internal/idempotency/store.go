// Package idempotency remembers the response given to each provider webhook
// delivery so a redelivered webhookId is answered without re-running the
// revenue pipeline.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/salon-ledger/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("delivery key not found")
	ErrHashMismatch = errors.New("delivery key body mismatch")
	ErrInProgress   = errors.New("delivery key in progress")
)

const (
	redisKeyPrefix = "webhook-delivery"
	maxWait        = 5 * time.Second
	pollInterval   = 50 * time.Millisecond

	ServedByRedis    = "redis"
	ServedByPostgres = "postgres"
)

// Record is the stored answer to one delivery.
type Record struct {
	Key         string
	RequestHash string
	Status      int
	Body        []byte
	ContentType string
	ServedBy    string
}

// Store keeps delivery records in the idempotency_keys table. Finished
// records are mirrored to Redis when a client is configured.
type Store struct {
	redis   redis.Cmdable
	queries *repository.Queries
	ttl     time.Duration
}

func NewStore(redis redis.Cmdable, db repository.DBTX, ttl time.Duration) *Store {
	return &Store{redis: redis, queries: repository.New(db), ttl: ttl}
}

// Lookup returns the finished record for key. ErrInProgress means another
// delivery holds the reservation; ErrHashMismatch means the webhookId was
// reused with a different payload.
func (s *Store) Lookup(ctx context.Context, key, requestHash string) (*Record, error) {
	if rec, ok := s.cached(ctx, key); ok {
		if rec.RequestHash != requestHash {
			return nil, ErrHashMismatch
		}
		return rec, nil
	}

	row, err := s.queries.GetIdempotencyKey(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("lookup delivery %s: %w", key, err)
	case row.RequestHash != requestHash:
		return nil, ErrHashMismatch
	case row.InProgress:
		return nil, ErrInProgress
	}

	rec := fromRow(row)
	s.mirror(ctx, rec)
	return rec, nil
}

// Reserve claims key for this delivery. false means another delivery holds it.
func (s *Store) Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	_, err := s.queries.ReserveIdempotencyKey(ctx, repository.ReserveIdempotencyKeyParams{
		IdempotencyKey: key,
		RequestHash:    requestHash,
		Method:         method,
		Path:           path,
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("reserve delivery %s: %w", key, err)
	}
}

// Finalize stores the response for a reserved delivery.
func (s *Store) Finalize(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*Record, error) {
	row, err := s.queries.FinalizeIdempotencyKey(ctx, repository.FinalizeIdempotencyKeyParams{
		ResponseStatus: int32(status),
		ResponseBody:   body,
		ContentType:    contentType,
		IdempotencyKey: key,
		RequestHash:    requestHash,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finalize delivery %s: %w", key, err)
	}

	rec := fromRow(row)
	s.mirror(ctx, rec)
	return rec, nil
}

// Release drops an unfinished reservation so the provider's retry runs the
// pipeline again. Transient failures are never replayed.
func (s *Store) Release(ctx context.Context, key, requestHash string) error {
	if err := s.queries.ReleaseIdempotencyKey(ctx, key, requestHash); err != nil {
		return fmt.Errorf("release delivery %s: %w", key, err)
	}
	return nil
}

// WaitForCompletion polls until the in-flight delivery finishes, for at most maxWait.
func (s *Store) WaitForCompletion(ctx context.Context, key, requestHash string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		rec, err := s.Lookup(ctx, key, requestHash)
		if !errors.Is(err, ErrInProgress) {
			return rec, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func fromRow(row repository.IdempotencyKeyRow) *Record {
	return &Record{
		Key:         row.IdempotencyKey,
		RequestHash: row.RequestHash,
		Status:      int(row.ResponseStatus),
		Body:        row.ResponseBody,
		ContentType: row.ContentType,
		ServedBy:    ServedByPostgres,
	}
}

// envelope is the Redis form of a Record.
type envelope struct {
	Key         string `json:"key"`
	Hash        string `json:"hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
}

func (s *Store) cached(ctx context.Context, key string) (*Record, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("redis delivery lookup failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}
	return &Record{
		Key:         env.Key,
		RequestHash: env.Hash,
		Status:      env.Status,
		Body:        env.Body,
		ContentType: env.ContentType,
		ServedBy:    ServedByRedis,
	}, true
}

func (s *Store) mirror(ctx context.Context, rec *Record) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(envelope{
		Key:         rec.Key,
		Hash:        rec.RequestHash,
		Status:      rec.Status,
		Body:        rec.Body,
		ContentType: rec.ContentType,
	})
	if err != nil {
		zap.L().Warn("marshal delivery record", zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, redisKey(rec.Key), payload, s.ttl).Err(); err != nil {
		zap.L().Warn("redis delivery mirror failed", zap.String("key", rec.Key), zap.Error(err))
	}
}

func redisKey(key string) string {
	return redisKeyPrefix + ":" + key
}

package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/salon-ledger/internal/service"
	"github.com/bsm/redislock"
	"go.uber.org/zap"
)

const (
	keyPrefix       = "revenue-lock"
	defaultTTL      = 30 * time.Second
	retryBackoff    = 100 * time.Millisecond
	maxRetryAttempt = 20
)

// PaymentLocker holds a Redis lock per payment id while its revenue is recorded.
// A second delivery waits briefly so it can observe the first one's result.
type PaymentLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewPaymentLocker(client redislock.RedisClient, ttl time.Duration) *PaymentLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &PaymentLocker{client: redislock.New(client), ttl: ttl}
}

// Acquire returns service.ErrPaymentLocked if the lock is still held after retrying.
func (l *PaymentLocker) Acquire(ctx context.Context, paymentID string) (func(), error) {
	key := Key(paymentID)
	lk, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryBackoff), maxRetryAttempt),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", service.ErrPaymentLocked, paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain payment lock: %w", err)
	}

	release := func() {
		// Release must run even when the request context is already done.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := lk.Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			zap.L().Warn("release payment lock failed", zap.String("key", key), zap.Error(err))
		}
	}
	return release, nil
}

func Key(paymentID string) string {
	return keyPrefix + ":" + paymentID
}

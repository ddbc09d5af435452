package lock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bsm/redislock"
)

// RunLock lets one instance run a periodic job per window. The window is the
// job's interval: the key is bucketed by window start and is never released,
// so an instance whose ticker is offset from the winner's finds the bucket
// taken. It expires on its own once the window is over.
type RunLock struct {
	client *redislock.Client
	name   string
	window time.Duration
	now    func() time.Time
}

func NewRunLock(client redislock.RedisClient, name string, window time.Duration) *RunLock {
	if window <= 0 {
		window = defaultTTL
	}
	return &RunLock{client: redislock.New(client), name: name, window: window, now: time.Now}
}

// TryAcquire claims the current window. It reports false, nil when another
// instance already ran in this window.
func (l *RunLock) TryAcquire(ctx context.Context) (bool, error) {
	_, err := l.client.Obtain(ctx, l.key(), l.window, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("obtain run lock: %w", err)
	}
	return true, nil
}

func (l *RunLock) key() string {
	bucket := l.now().UTC().Truncate(l.window).Unix()
	return "run-lock:" + l.name + ":" + strconv.FormatInt(bucket, 10)
}

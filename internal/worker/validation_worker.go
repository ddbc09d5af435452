package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/salon-ledger/internal/observability"
	"go.uber.org/zap"
)

const workerName = "financial_validation"

// Runner is one validation sweep over every active unit.
type Runner interface {
	Run(ctx context.Context) error
}

// Leader elects a single instance per run window. ok=false means another
// instance already ran in it.
type Leader interface {
	TryAcquire(ctx context.Context) (ok bool, err error)
}

// ValidationWorker runs the financial validator on a fixed interval.
type ValidationWorker struct {
	runner   Runner
	leader   Leader
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewValidationWorker constructs a worker with a default daily interval.
func NewValidationWorker(runner Runner) *ValidationWorker {
	return &ValidationWorker{
		runner:   runner,
		interval: 24 * time.Hour,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *ValidationWorker) WithInterval(interval time.Duration) *ValidationWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithLeader makes runs conditional on holding the leader lock.
func (w *ValidationWorker) WithLeader(leader Leader) *ValidationWorker {
	w.leader = leader
	return w
}

// Start blocks and runs validation at the configured interval.
func (w *ValidationWorker) Start(ctx context.Context) {
	defer close(w.done)
	zap.L().Info("validation worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("validation worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("validation worker stop signal received")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Stop stops the loop and waits for an in-flight run to finish.
func (w *ValidationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.done
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *ValidationWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// RunOnce performs a single sweep, honoring the leader lock when configured.
func (w *ValidationWorker) RunOnce(ctx context.Context) {
	if w.leader != nil {
		ok, err := w.leader.TryAcquire(ctx)
		if err != nil {
			// Lock backend down: run without it.
			zap.L().Warn("validation leader lock unavailable", zap.Error(err))
		} else if !ok {
			observability.IncrementWorkerRun(workerName, "skipped")
			zap.L().Debug("validation window already run by another instance")
			return
		}
	}

	start := time.Now()
	if err := w.runner.Run(ctx); err != nil {
		observability.IncrementWorkerRun(workerName, "failed")
		zap.L().Error("validation run failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	observability.IncrementWorkerRun(workerName, "success")
	zap.L().Info("validation run completed", zap.Duration("duration", time.Since(start)))
}

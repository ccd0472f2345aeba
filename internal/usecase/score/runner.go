package score

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docscore/internal/metrics"
)

// Runner serializes scoring runs. Submitting a new request cancels any
// in-flight run; only the latest submission's result is delivered.
type Runner struct {
	svc    *Service
	logger *zap.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a single-flight runner over the scoring service.
func NewRunner(svc *Service, logger *zap.Logger) *Runner {
	return &Runner{svc: svc, logger: logger}
}

// Submit starts a scoring run in the background. deliver is invoked
// exactly once with the outcome unless the run is superseded by a later
// Submit or canceled, in which case it is never invoked.
func (r *Runner) Submit(ctx context.Context, req *Request, deliver func(*Result, error)) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		metrics.ScoringSupersededTotal.Inc()
		r.logger.Debug("Superseding in-flight scoring run", zap.Uint64("generation", r.gen))
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.gen++
	gen := r.gen
	r.cancel = cancel
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		result, err := r.svc.Score(runCtx, req)

		r.mu.Lock()
		latest := gen == r.gen
		if latest {
			r.cancel = nil
		}
		r.mu.Unlock()

		if !latest {
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		deliver(result, err)
	}()
}

// Cancel aborts any in-flight run without starting a new one.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
		// Bump the generation so the aborted run cannot deliver.
		r.gen++
	}
}

// Wait blocks until the most recently submitted run has finished.
// Intended for tests and orderly shutdown.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

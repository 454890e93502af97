// Package runner owns the trigger surface around the ingestion pipeline:
// a registry tracking the active run and its cancellation handle, and a
// recurring scheduler that re-invokes the run on a fixed interval.
package runner

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/campwatch/campground-ingest/pkg/logging"
)

// ErrAlreadyRunning is returned by Start when a run is active.
var ErrAlreadyRunning = errors.New("a run is already active")

// RunFunc executes one ingestion run.
type RunFunc func(ctx context.Context) error

// Registry tracks the active run and its cancellation handle. All state is
// mutated under a single lock, so a manual trigger and a scheduled trigger
// firing concurrently cannot start overlapping runs: the second caller
// gets ErrAlreadyRunning.
type Registry struct {
	run    RunFunc
	logger zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRegistry creates a registry for the given run function.
func NewRegistry(run RunFunc) *Registry {
	return &Registry{
		run:    run,
		logger: logging.NewLogger("runner"),
	}
}

// Start launches a run in the background. Returns ErrAlreadyRunning when
// one is active. The run gets its own context, detached from the caller's:
// it outlives the triggering HTTP request and stops only via Stop.
func (r *Registry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go func() {
		defer func() {
			r.mu.Lock()
			r.cancel = nil
			r.done = nil
			r.mu.Unlock()
			close(done)
		}()

		err := r.run(ctx)
		switch {
		case err == nil:
			r.logger.Info().Msg("Run finished")
		case errors.Is(err, context.Canceled):
			r.logger.Warn().Msg("Run cancelled")
		default:
			r.logger.Error().Err(err).Msg("Run failed")
		}
	}()

	return nil
}

// Stop cancels the active run, if any, and reports whether one was active.
// It does not wait for the run to unwind.
func (r *Registry) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

// Active reports whether a run is currently executing.
func (r *Registry) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done != nil
}

// Wait blocks until the active run finishes. Returns immediately when no
// run is active.
func (r *Registry) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Package jobs runs periodic background work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// Func is one tick of a job.
type Func func(ctx context.Context) error

// Runner calls fn every interval on its own goroutine. A failing or
// panicking tick is logged and reported; the schedule keeps going.
type Runner struct {
	name     string
	interval time.Duration
	fn       Func

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(name string, interval time.Duration, fn Func) *Runner {
	return &Runner{name: name, interval: interval, fn: fn}
}

// Start begins the schedule. The first tick fires after one interval.
// Calling Start on a running Runner does nothing.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx, r.done)
	slog.Info("job started", "job", r.name, "interval", r.interval.String())
}

// Stop cancels the schedule and waits for an in-flight tick to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("job stopped", "job", r.name)
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce executes a single tick inside the error boundary.
func (r *Runner) RunOnce(ctx context.Context) {
	start := time.Now()
	err := r.safeCall(ctx)
	if err != nil {
		slog.Error("job failed", "job", r.name, "error", err, "latency_ms", time.Since(start).Milliseconds())
		sentry.CaptureException(err)
		return
	}
	slog.Debug("job completed", "job", r.name, "latency_ms", time.Since(start).Milliseconds())
}

func (r *Runner) safeCall(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", r.name, p)
		}
	}()
	return r.fn(ctx)
}

package simulator

import (
	"context"
	"sync"
	"time"
)

// Timing controls the pace of simulated progress.
type Timing struct {
	// StartDelay is the pause between entering running and the first step's interval.
	StartDelay time.Duration
	// StepInterval is the pause before each running step.
	StepInterval time.Duration
	// MonitorInterval is the pause before each compute progress increment.
	MonitorInterval time.Duration
	// MonitorStep is the progress added per monitoring tick.
	MonitorStep int
}

// DefaultTiming returns 2s start delay, 3s per step, +10% per second.
func DefaultTiming() Timing {
	return Timing{
		StartDelay:      2 * time.Second,
		StepInterval:    3 * time.Second,
		MonitorInterval: time.Second,
		MonitorStep:     10,
	}
}

// TickFunc is invoked on each tick. Returning false ends the task.
type TickFunc func(ctx context.Context) bool

// Task is a cancellable timer loop. Ticks run sequentially on the task's own
// goroutine. No new tick starts after Cancel returns, but Cancel does not wait
// for a tick already in progress; use Wait for that.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start waits delay, then repeatedly waits interval and calls tick, until
// tick returns false, ctx is done, or the task is cancelled.
func Start(ctx context.Context, delay, interval time.Duration, tick TickFunc) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()

		if !sleep(ctx, delay) {
			return
		}
		for {
			if !sleep(ctx, interval) {
				return
			}
			if !tick(ctx) {
				return
			}
		}
	}()

	return t
}

// Cancel stops the task. It is safe to call more than once and on a nil Task.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(t.cancel)
}

// Done is closed when the task's goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task's goroutine has exited.
func (t *Task) Wait() {
	if t == nil {
		return
	}
	<-t.done
}

// sleep waits d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return ctx.Err() == nil
	}
}

// Package repo coordinates all access to the store behind a single worker
// goroutine. Handlers never touch the database directly; they submit
// commands to the executor and wait for the result. This keeps write
// ordering trivial (one writer, one queue) while the bounded queue provides
// backpressure instead of unbounded goroutine pileup.
package repo

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped reports that a command was submitted after the executor shut
// down, or that shutdown happened before the command could be queued.
var ErrStopped = errors.New("executor stopped")

// defaultQueueDepth bounds how many commands may wait for the worker.
const defaultQueueDepth = 128

type command func(ctx context.Context)

// executor serializes store access through one worker goroutine. Submission
// honors the caller's context while waiting for queue space; once a command
// is queued it always runs to completion, even during shutdown.
type executor struct {
	commands chan command
	quit     chan struct{}
	finished chan struct{}

	stopOnce sync.Once
}

func newExecutor(depth int) *executor {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	e := &executor{
		commands: make(chan command, depth),
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go e.run()
	return e
}

// run is the worker loop. Commands execute with a background context:
// callers that give up waiting must not abort a mutation mid-flight.
func (e *executor) run() {
	defer close(e.finished)

	for {
		select {
		case cmd := <-e.commands:
			cmd(context.Background())
		case <-e.quit:
			// Drain whatever made it into the queue before quit.
			for {
				select {
				case cmd := <-e.commands:
					cmd(context.Background())
				default:
					return
				}
			}
		}
	}
}

// stop shuts the worker down after draining queued commands. Blocks until
// the worker has exited. Safe to call more than once.
func (e *executor) stop() {
	e.stopOnce.Do(func() { close(e.quit) })
	<-e.finished
}

// submit queues fn and waits for its result. The context applies to
// queueing and waiting only; fn itself is never cancelled.
func submit[T any](ctx context.Context, e *executor, fn func(ctx context.Context) (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	cmd := func(execCtx context.Context) {
		value, err := fn(execCtx)
		done <- outcome{value, err}
	}

	var zero T
	select {
	case e.commands <- cmd:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-e.quit:
		return zero, ErrStopped
	}

	select {
	case result := <-done:
		return result.value, result.err
	case <-e.finished:
		// The worker exited without running the command. Only possible
		// when the enqueue raced a concurrent stop.
		select {
		case result := <-done:
			return result.value, result.err
		default:
			return zero, ErrStopped
		}
	}
}

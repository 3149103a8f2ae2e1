// Package runloop serializes work onto a single goroutine.
package runloop

import (
	"context"
	"fmt"
	"sync"
)

// Loop is a FIFO task queue. Post may be called from any goroutine; tasks
// only ever run one at a time, in the order they were posted.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	running sync.Mutex
}

// New creates an empty Loop
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued tasks
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// RunPending runs queued tasks on the calling goroutine until the queue is
// empty, including tasks posted while it runs. It returns how many ran.
func (l *Loop) RunPending() int {
	l.running.Lock()
	defer l.running.Unlock()

	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
		n++
	}
}

// Run drains the queue whenever tasks arrive, until ctx is done
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Do runs fn on the loop and waits for it. Tasks fn posts run after it.
// If ctx ends before the loop reaches fn, fn is skipped.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	l.Post(func() {
		if err := ctx.Err(); err != nil {
			done <- err
			return
		}
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("task panicked: %v", r)
			}
		}()
		done <- fn()
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

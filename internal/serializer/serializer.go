// Package serializer runs submitted tasks one at a time in submission order.
//
// A Serializer is a mutual-exclusion queue for work against shared state.
// Any number of goroutines may Submit concurrently; tasks still execute
// strictly FIFO and never overlap. One instance is created per process and
// handed to whoever needs it. It gives no guarantee across processes.
//
// There is no priority, deadline or cancellation: a slow task delays every
// task behind it, and a submitted task always runs to completion.
package serializer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Task is a unit of work. The context carries the submitter's values but is
// never cancelled.
type Task func(ctx context.Context) (any, error)

// Observer receives queue statistics. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	// QueueDepth is called with the number of waiting tasks whenever it
	// changes.
	QueueDepth(n int)
	// TaskDone is called after each task settles.
	TaskDone(elapsed time.Duration, err error)
}

// PanicError is the outcome of a task that panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("serializer: task panicked: %v", e.Value)
}

type outcome struct {
	value any
	err   error
}

type job struct {
	ctx  context.Context
	task Task
	done chan outcome
}

// Serializer is a FIFO queue plus a busy flag. The zero value is not usable;
// call New.
type Serializer struct {
	mu       sync.Mutex
	queue    []*job
	busy     bool
	observer Observer
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithObserver reports queue depth and task timings to o.
func WithObserver(o Observer) Option {
	return func(s *Serializer) {
		s.observer = o
	}
}

// New returns an idle Serializer.
func New(opts ...Option) *Serializer {
	s := &Serializer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit enqueues task and blocks until it has run, returning exactly the
// task's own result. Queuing itself cannot fail.
func (s *Serializer) Submit(ctx context.Context, task Task) (any, error) {
	j := &job{
		ctx:  context.WithoutCancel(ctx),
		task: task,
		done: make(chan outcome, 1),
	}

	s.mu.Lock()
	s.queue = append(s.queue, j)
	s.reportDepth(len(s.queue))
	s.mu.Unlock()

	s.drain()

	out := <-j.done
	return out.value, out.err
}

// Do is a typed wrapper around Submit.
func Do[T any](ctx context.Context, s *Serializer, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := s.Submit(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Len returns the number of tasks waiting to run, not counting the one
// currently running.
func (s *Serializer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// drain starts a runner unless one is already active or there is nothing
// to do. Calling it again while busy is a no-op.
func (s *Serializer) drain() {
	s.mu.Lock()
	if s.busy || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	s.busy = true
	s.mu.Unlock()

	go s.run()
}

// run executes queued jobs from the head until the queue is empty. busy
// stays set for the whole loop so no second runner can start.
func (s *Serializer) run() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.busy = false
			s.mu.Unlock()
			return
		}
		j := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.reportDepth(len(s.queue))
		s.mu.Unlock()

		j.done <- s.execute(j)
	}
}

func (s *Serializer) execute(j *job) (out outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: &PanicError{Value: r}}
		}
		if s.observer != nil {
			s.observer.TaskDone(time.Since(start), out.err)
		}
	}()

	v, err := j.task(j.ctx)
	return outcome{value: v, err: err}
}

// reportDepth must be called with mu held so depths arrive in order.
func (s *Serializer) reportDepth(n int) {
	if s.observer != nil {
		s.observer.QueueDepth(n)
	}
}

// Package jobs runs notification work off the request path. Handlers enqueue
// tasks onto an in-process queue and a pool of workers delivers them.
package jobs

import (
	"context"
	"log/slog"
	"sync"
)

// Task kinds processed by the queue.
const (
	TaskRecoveryOTP = "recovery-otp"
	TaskBooking     = "booking"
)

// Task is a unit of background work.
type Task struct {
	Kind    string
	Payload any

	done chan error
}

// Wait blocks until the task has been processed and returns the handler's
// error. Only valid for tasks created with NewTask.
func (t *Task) Wait() error {
	if t.done == nil {
		return nil
	}
	return <-t.done
}

// NewTask builds a Task whose completion can be observed via Wait.
func NewTask(kind string, payload any) *Task {
	return &Task{Kind: kind, Payload: payload, done: make(chan error, 1)}
}

// Handler processes a single task.
type Handler func(ctx context.Context, task *Task) error

// Queue is a bounded in-process task queue with a worker pool.
type Queue struct {
	tasks   chan *Task
	handler Handler
	workers int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewQueue creates a queue that dispatches tasks to handler across the given
// number of workers. Start must be called before Enqueue delivers anything.
func NewQueue(handler Handler, workers, buffer int) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		tasks:   make(chan *Task, buffer),
		handler: handler,
		workers: workers,
	}
}

// Start launches the worker pool.
func (q *Queue) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			err := q.handler(ctx, task)
			if err != nil {
				slog.Error("task failed", "kind", task.Kind, "err", err)
			}
			if task.done != nil {
				task.done <- err
			}
		}
	}
}

// Enqueue submits a task. It never blocks: when the queue is full or already
// stopped the task is dropped with a warning rather than stalling the
// request path.
func (q *Queue) Enqueue(task *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		slog.Warn("queue stopped, dropping task", "kind", task.Kind)
		q.reject(task)
		return
	}
	select {
	case q.tasks <- task:
	default:
		slog.Warn("queue full, dropping task", "kind", task.Kind)
		q.reject(task)
	}
}

func (q *Queue) reject(task *Task) {
	if task.done != nil {
		task.done <- context.Canceled
	}
}

// Stop drains in-flight work and shuts the workers down. Safe to call once
// concurrently with Enqueue; later enqueues are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	if q.cancel != nil {
		q.cancel()
	}
}

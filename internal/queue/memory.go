package queue

import (
	"context"
	"sync"
	"time"

	"github.com/ppiankov/dossier/internal/model"
)

const defaultCapacity = 256

// MemoryQueue is a bounded in-process queue for single-binary deployments
// and tests. Tasks are lost when the process exits.
type MemoryQueue struct {
	tasks chan model.Task

	closeOnce sync.Once
	done      chan struct{}
}

// NewMemoryQueue creates a queue holding at most capacity tasks
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryQueue{
		tasks: make(chan model.Task, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue adds task without blocking; a full queue returns ErrFull
func (q *MemoryQueue) Enqueue(ctx context.Context, task model.Task) (model.Task, error) {
	task = stamp(task)
	select {
	case <-q.done:
		return model.Task{}, context.Canceled
	case <-ctx.Done():
		return model.Task{}, ctx.Err()
	case q.tasks <- task:
		return task, nil
	default:
		return model.Task{}, ErrFull
	}
}

// Dequeue waits up to timeout for a task
func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (*model.Task, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case task := <-q.tasks:
		return &task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, ErrClosed
	case <-timer.C:
		return nil, nil
	}
}

// Len returns the number of waiting tasks
func (q *MemoryQueue) Len(context.Context) (int64, error) {
	return int64(len(q.tasks)), nil
}

// Close wakes up blocked consumers with ErrClosed; waiting tasks are dropped
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

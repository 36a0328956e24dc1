// Package queue carries assemble tasks from the HTTP API to the workers
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/dossier/internal/model"
)

// Backend names accepted by New
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrFull is returned by a bounded queue that cannot accept more tasks
var ErrFull = errors.New("queue is full")

// ErrClosed is returned by Dequeue once the queue has been closed
var ErrClosed = errors.New("queue is closed")

// Queue is a FIFO of assemble tasks
type Queue interface {
	// Enqueue stores task, assigning an ID and enqueue time when unset
	Enqueue(ctx context.Context, task model.Task) (model.Task, error)

	// Dequeue waits up to timeout for a task. It returns nil without error
	// when the wait times out.
	Dequeue(ctx context.Context, timeout time.Duration) (*model.Task, error)

	Len(ctx context.Context) (int64, error)
	Close() error
}

// New builds the queue selected by cfg
func New(cfg model.QueueConfig) (Queue, error) {
	switch cfg.Backend {
	case BackendRedis, "":
		return NewRedisQueue(cfg.RedisURL, cfg.Key)
	case BackendMemory:
		return NewMemoryQueue(cfg.Capacity), nil
	default:
		return nil, fmt.Errorf("unknown queue backend: %s", cfg.Backend)
	}
}

// stamp fills the fields a producer leaves empty
func stamp(task model.Task) model.Task {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	return task
}

func encode(task model.Task) ([]byte, error) {
	return json.Marshal(task)
}

func decode(data []byte) (*model.Task, error) {
	var task model.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

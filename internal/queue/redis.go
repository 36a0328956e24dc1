package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/dossier/internal/errs"
	"github.com/ppiankov/dossier/internal/model"
)

const defaultKey = "dossier:tasks"

// RedisQueue is a list-backed queue: producers LPUSH, consumers BRPOP
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue connects to url (redis://[:password@]host:port/db)
func NewRedisQueue(url, key string) (*RedisQueue, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisQueueWithClient(redis.NewClient(opts), key), nil
}

// NewRedisQueueWithClient wraps an existing client
func NewRedisQueueWithClient(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = defaultKey
	}
	return &RedisQueue{client: client, key: key}
}

// Ping verifies the connection to Redis
func (q *RedisQueue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return errs.External("queue.ping", "redis unreachable", err)
	}
	return nil
}

// Enqueue pushes task onto the head of the list
func (q *RedisQueue) Enqueue(ctx context.Context, task model.Task) (model.Task, error) {
	task = stamp(task)
	data, err := encode(task)
	if err != nil {
		return model.Task{}, err
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return model.Task{}, errs.External("queue.enqueue", "redis LPUSH failed", err)
	}
	return task, nil
}

// Dequeue pops from the tail of the list, blocking up to timeout
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*model.Task, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return nil, ErrClosed
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.External("queue.dequeue", "redis BRPOP failed", err)
	}
	if len(res) != 2 {
		return nil, errs.External("queue.dequeue", fmt.Sprintf("unexpected BRPOP reply of %d items", len(res)), nil)
	}
	return decode([]byte(res[1]))
}

// Len returns the number of waiting tasks
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, errs.External("queue.len", "redis LLEN failed", err)
	}
	return n, nil
}

// Close closes the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

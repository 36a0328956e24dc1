package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ppiankov/dossier/internal/errs"
	"github.com/ppiankov/dossier/internal/logging"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/queue"
	"github.com/ppiankov/dossier/internal/retry"
)

// ConsumerConfig tunes a Consumer
type ConsumerConfig struct {
	Concurrency int
	PollTimeout time.Duration
	TaskTimeout time.Duration
	Retry       retry.Config
}

// ConsumerConfigFromModel converts the configured worker and retry sections
func ConsumerConfigFromModel(w model.WorkerConfig, r model.RetryConfig) ConsumerConfig {
	return ConsumerConfig{
		Concurrency: w.Concurrency,
		PollTimeout: w.PollTimeout,
		TaskTimeout: w.TaskTimeout,
		Retry:       retry.FromModel(r),
	}
}

// Consumer pulls tasks from a queue and assembles them
type Consumer struct {
	queue     queue.Queue
	assembler Assembler
	cfg       ConsumerConfig

	processed atomic.Int64
	failed    atomic.Int64
}

// NewConsumer creates a consumer
func NewConsumer(q queue.Queue, assembler Assembler, cfg ConsumerConfig) *Consumer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	return &Consumer{queue: q, assembler: assembler, cfg: cfg}
}

// Run consumes until ctx is cancelled. Tasks in flight finish their current
// attempt before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	log.Info().Int("concurrency", c.cfg.Concurrency).Msg("worker started")

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	log.Info().
		Int64("processed", c.processed.Load()).
		Int64("failed", c.failed.Load()).
		Msg("worker stopped")
	return nil
}

// Stats returns the number of succeeded and failed tasks
func (c *Consumer) Stats() (processed, failed int64) {
	return c.processed.Load(), c.failed.Load()
}

func (c *Consumer) loop(ctx context.Context, id int) {
	for ctx.Err() == nil {
		task, err := c.queue.Dequeue(ctx, c.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			log.Error().Err(err).Int("worker", id).Msg("dequeue failed")
			sleep(ctx, c.cfg.PollTimeout)
			continue
		}
		if task == nil {
			continue
		}
		c.handle(ctx, *task)
	}
}

func (c *Consumer) handle(ctx context.Context, task model.Task) {
	ctx = logging.ForTask(ctx, task.ID, task.WikidataID)
	logger := logging.FromContext(ctx)
	start := time.Now()

	logger.Info().Str("name", task.Name).Msg("assembling dossier")

	res, attempts, err := runWithRetry(ctx, c.assembler, c.cfg.Retry, c.cfg.TaskTimeout, task.Name, task.WikidataID)
	if err != nil {
		c.failed.Add(1)
		logger.Error().
			Err(err).
			Int("attempts", attempts).
			Bool("permanent", !errs.Retryable(err)).
			Dur("elapsed", time.Since(start)).
			Msg("dossier failed")
		return
	}

	c.processed.Add(1)
	logger.Info().
		Str("key", res.Key).
		Bool("created", res.Created).
		Int("attempts", attempts).
		Dur("elapsed", time.Since(start)).
		Msg("LLM processing complete")
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

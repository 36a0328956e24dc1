package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/dossier/internal/errs"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/queue"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestConsumer_ProcessesQueuedTasks(t *testing.T) {
	q := queue.NewMemoryQueue(8)
	assembler := newMockAssembler()
	consumer := NewConsumer(q, assembler, ConsumerConfig{
		Concurrency: 2,
		PollTimeout: 10 * time.Millisecond,
		Retry:       fastRetry(1),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- consumer.Run(ctx) }()

	for _, id := range []string{"Q567", "Q61053", "Q3052772"} {
		if _, err := q.Enqueue(ctx, model.Task{Name: "Someone", WikidataID: id}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	waitFor(t, func() bool {
		processed, _ := consumer.Stats()
		return processed == 3
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	for _, id := range []string{"Q567", "Q61053", "Q3052772"} {
		if assembler.callCount(id) != 1 {
			t.Errorf("%s assembled %d times", id, assembler.callCount(id))
		}
	}
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	q := queue.NewMemoryQueue(8)
	assembler := newMockAssembler()
	assembler.failures["Q567"] = 2
	assembler.failWith = errs.External("index.search", "unavailable", errors.New("503"))

	consumer := NewConsumer(q, assembler, ConsumerConfig{
		Concurrency: 1,
		PollTimeout: 10 * time.Millisecond,
		Retry:       fastRetry(6),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Run(ctx) }()

	if _, err := q.Enqueue(ctx, model.Task{Name: "Angela Merkel", WikidataID: "Q567"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, func() bool {
		processed, _ := consumer.Stats()
		return processed == 1
	})
	if got := assembler.callCount("Q567"); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestConsumer_PermanentFailureCounted(t *testing.T) {
	q := queue.NewMemoryQueue(8)
	assembler := newMockAssembler()
	assembler.failures["Q567"] = 10
	assembler.failWith = errs.Validation("pipeline.run", "data.name: required")

	consumer := NewConsumer(q, assembler, ConsumerConfig{
		Concurrency: 1,
		PollTimeout: 10 * time.Millisecond,
		Retry:       fastRetry(6),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Run(ctx) }()

	if _, err := q.Enqueue(ctx, model.Task{Name: "Angela Merkel", WikidataID: "Q567"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, func() bool {
		_, failed := consumer.Stats()
		return failed == 1
	})
	if got := assembler.callCount("Q567"); got != 1 {
		t.Errorf("validation failure retried: %d attempts", got)
	}
}

func TestNewConsumer_Defaults(t *testing.T) {
	c := NewConsumer(queue.NewMemoryQueue(1), newMockAssembler(), ConsumerConfig{})
	if c.cfg.Concurrency != 1 {
		t.Errorf("expected concurrency 1, got %d", c.cfg.Concurrency)
	}
	if c.cfg.PollTimeout != 5*time.Second {
		t.Errorf("expected 5s poll timeout, got %v", c.cfg.PollTimeout)
	}
}

func TestConsumerConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cc := ConsumerConfigFromModel(cfg.Worker, cfg.Retry)
	if cc.Concurrency != cfg.Worker.Concurrency {
		t.Errorf("concurrency = %d", cc.Concurrency)
	}
	if cc.Retry.MaxAttempts != 6 {
		t.Errorf("max attempts = %d", cc.Retry.MaxAttempts)
	}
}

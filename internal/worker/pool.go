package worker

import (
	"context"
	"sync"
)

// Job is a unit of work run by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job produces
type Result interface {
	GetError() error
}

type indexedJob struct {
	seq int
	job Job
}

type indexedResult struct {
	seq    int
	result Result
}

// Pool runs jobs on a fixed number of goroutines. Wait returns results in
// submission order.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	results    chan indexedResult
	wg         sync.WaitGroup
	collected  chan struct{}
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu        sync.Mutex
	submitted int
	slots     map[int]Result
}

// NewPool creates a pool bound to ctx; cancelling ctx stops the workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2),
		results:    make(chan indexedResult, workers*2),
		collected:  make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
		slots:      make(map[int]Result),
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	go func() {
		defer close(p.collected)
		for ir := range p.results {
			p.mu.Lock()
			p.slots[ir.seq] = ir.result
			p.mu.Unlock()
		}
	}()

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := ij.job.Execute(p.ctx)
			p.results <- indexedResult{seq: ij.seq, result: result}
		}
	}
}

// Submit queues job. It returns false when the pool has been shut down.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	seq := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexedJob{seq: seq, job: job}:
		return true
	}
}

// Wait closes the pool to new jobs and returns every result in submission
// order. Jobs dropped by a shutdown leave no entry. The pool's context is
// released once results are collected.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	<-p.collected
	p.cancelFunc()

	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]Result, 0, len(p.slots))
	for i := 0; i < p.submitted; i++ {
		if r, ok := p.slots[i]; ok {
			results = append(results, r)
		}
	}
	return results
}

// Shutdown stops the workers without waiting for queued jobs
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// Package worker runs validation and comparison jobs concurrently and rate
// limits clients and remote hosts
package worker

import (
	"context"
	"sync"
)

// Job is one unit of work, such as validating a file or scanning one row of
// the duplicate matrix
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a Job
type Result interface {
	GetError() error
}

// Pool runs submitted jobs on a fixed number of goroutines
type Pool struct {
	workers int
	jobs    chan Job
	results chan Result
	done    chan struct{} // closed once every result is collected
	out     []Result      // written only by collect until done is closed
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewPool creates a pool of workers goroutines. Cancelling ctx stops the
// workers and drops queued jobs.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	go p.collect()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
}

// collect drains results while jobs are still being submitted, so a batch
// larger than the channel buffers cannot stall the workers
func (p *Pool) collect() {
	defer close(p.done)
	for r := range p.results {
		p.out = append(p.out, r)
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			r := job.Execute(p.ctx)
			select {
			case p.results <- r:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It returns false when the pool was cancelled before
// the job could be queued.
func (p *Pool) Submit(job Job) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns the results in
// completion order. Jobs dropped by cancellation have no result.
func (p *Pool) Wait() []Result {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	<-p.done
	p.cancel()
	return p.out
}

// Package worker provides a generic worker pool used to fan out batches of
// fetch operations, such as warming quotes for a symbol universe.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work. ID identifies the job in its result; for fetch
// batches it is typically the symbol.
type Job[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// Result is the outcome of one job.
type Result[T any] struct {
	JobID string
	Value T
	Err   error
}

// task pairs a job with the channel its result goes to, so that each
// SubmitAndWait batch collects only its own outcomes even when batches
// overlap on the same pool.
type task[T any] struct {
	job     Job[T]
	results chan<- Result[T]
}

// Pool runs jobs on a fixed set of worker goroutines.
type Pool[T any] struct {
	workers  int
	jobQueue chan task[T]
	results  chan Result[T]
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	closeOnce sync.Once
}

// NewPool creates a pool with the given number of workers and queue buffer.
// Workers start immediately.
func NewPool[T any](ctx context.Context, workers, queueSize int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	poolCtx, cancel := context.WithCancel(ctx)

	p := &Pool[T]{
		workers:  workers,
		jobQueue: make(chan task[T], queueSize),
		results:  make(chan Result[T], queueSize+workers),
		ctx:      poolCtx,
		cancel:   cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t := <-p.jobQueue:
			value, err := t.job.Execute(p.ctx)
			select {
			case t.results <- Result[T]{JobID: t.job.ID, Value: value, Err: err}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job whose result is delivered on the shared Results
// channel. It blocks while the queue is full and returns the context error
// once the pool is closed or the parent context cancelled.
func (p *Pool[T]) Submit(job Job[T]) error {
	return p.submit(task[T]{job: job, results: p.results})
}

func (p *Pool[T]) submit(t task[T]) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- t:
		return nil
	}
}

// SubmitAndWait submits a batch and collects one result per submitted job.
// The batch gets a private result channel, so concurrent batches on the same
// pool never see each other's outcomes. Results arrive in completion order,
// not submission order.
func (p *Pool[T]) SubmitAndWait(jobs []Job[T]) []Result[T] {
	batch := make(chan Result[T], len(jobs))

	submitted := 0
	for _, job := range jobs {
		if err := p.submit(task[T]{job: job, results: batch}); err != nil {
			break
		}
		submitted++
	}

	results := make([]Result[T], 0, submitted)
	for i := 0; i < submitted; i++ {
		select {
		case <-p.ctx.Done():
			return results
		case result := <-batch:
			results = append(results, result)
		}
	}

	return results
}

// Results exposes the shared result channel fed by Submit.
func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}

// Close stops accepting jobs and waits for in-flight workers to exit.
// Safe to call more than once.
func (p *Pool[T]) Close() {
	// The queue channel is left open; workers exit on context cancellation
	// and a late Submit sees the cancelled context instead of a closed
	// channel.
	p.closeOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

// Workers returns the pool's worker count.
func (p *Pool[T]) Workers() int {
	return p.workers
}

// QueueLen returns the number of queued jobs not yet picked up.
func (p *Pool[T]) QueueLen() int {
	return len(p.jobQueue)
}

package catalog

import (
	"runtime"
	"sync"
)

// workerPool runs fn over a fixed set of jobs on a bounded number of
// goroutines. Results come back in completion order; callers that need
// input order carry an index in the job.
type workerPool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// newWorkerPool sizes the pool for numJobs. A non-positive numWorkers uses
// GOMAXPROCS, and the pool never starts more workers than jobs.
func newWorkerPool[Job any, Result any](numWorkers, numJobs int) *workerPool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}

	return &workerPool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numJobs),
		results:    make(chan Result, numJobs),
	}
}

func (p *workerPool[Job, Result]) start(fn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- fn(job)
			}
		}()
	}
}

func (p *workerPool[Job, Result]) submit(job Job) {
	p.jobs <- job
}

// close stops accepting jobs; the results channel closes once every
// worker has drained.
func (p *workerPool[Job, Result]) close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

func (p *workerPool[Job, Result]) resultsChan() <-chan Result {
	return p.results
}

// parallelMap applies fn to every item and returns the results in input
// order.
func parallelMap[T any, R any](workers int, items []T, fn func(T) R) []R {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out
	}

	type job struct {
		i    int
		item T
	}
	type result struct {
		i int
		r R
	}

	pool := newWorkerPool[job, result](workers, len(items))
	pool.start(func(j job) result {
		return result{i: j.i, r: fn(j.item)}
	})
	for i, item := range items {
		pool.submit(job{i: i, item: item})
	}
	pool.close()

	for res := range pool.resultsChan() {
		out[res.i] = res.r
	}
	return out
}
